package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/media-monitor/app/feed"
	"github.com/lysyi3m/media-monitor/app/monitor"
)

func NewHandler(m MonitorInterface, scanHours int, version string) *Handler {
	return &Handler{
		monitor:   m,
		generator: feed.NewGenerator(),
		scanHours: scanHours,
		version:   version,
	}
}

func (h *Handler) APIScan(c *gin.Context) {
	hours, ok := intQuery(c, "hours", h.scanHours)
	if !ok {
		return
	}

	result, err := h.monitor.Scan(c.Request.Context(), hours)
	if err != nil {
		respondError(c, "scan", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) APITrending(c *gin.Context) {
	minMentions, ok := intQuery(c, "min_mentions", 0)
	if !ok {
		return
	}

	result, err := h.monitor.Trending(c.Request.Context(), monitor.TrendingQuery{
		Period:      c.Query("period"),
		MinMentions: minMentions,
		Topics:      listQuery(c, "topics"),
	})
	if err != nil {
		respondError(c, "trending", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) APIExperts(c *gin.Context) {
	minQuotes, ok := intQuery(c, "min_quotes", 0)
	if !ok {
		return
	}

	result, err := h.monitor.Experts(c.Request.Context(), monitor.ExpertsQuery{
		Topic:     c.Query("topic"),
		Period:    c.Query("period"),
		MinQuotes: minQuotes,
	})
	if err != nil {
		respondError(c, "experts", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) APISuggestions(c *gin.Context) {
	result, err := h.monitor.Suggestions(c.Request.Context(), listQuery(c, "focus"))
	if err != nil {
		respondError(c, "suggestions", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) APIFetchArticle(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}

	result, err := h.monitor.FetchArticle(c.Request.Context(), url)
	if err != nil {
		respondError(c, "fetch_article", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) APIWeeklyReport(c *gin.Context) {
	r, err := h.monitor.WeeklyReport(c.Request.Context())
	if err != nil {
		respondError(c, "weekly_report", err)
		return
	}

	c.JSON(http.StatusOK, r)
}

func (h *Handler) APISources(c *gin.Context) {
	stats, err := h.monitor.SourceStats(c.Request.Context())
	if err != nil {
		respondError(c, "source_stats", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": stats,
		"total":   len(stats),
	})
}

func (h *Handler) GetDigestFeed(c *gin.Context) {
	topic := c.Query("topic")

	articles, err := h.monitor.Digest(c.Request.Context(), c.Query("period"), topic)
	if err != nil {
		respondError(c, "digest", err)
		return
	}

	title := "AI in de media"
	if topic != "" {
		title += ": " + topic
	}

	rss, err := h.generator.Run(feed.Channel{
		Title:       title,
		Link:        "http://" + c.Request.Host + "/",
		SelfLink:    "http://" + c.Request.Host + c.Request.URL.RequestURI(),
		Description: "AI-gerelateerde artikelen uit Nederlandse media",
		Generator:   "Media Monitor " + h.version,
	}, articles, time.Now())
	if err != nil {
		slog.Error("RSS generation error", "topic", topic, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(articles)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	info, err := h.monitor.Info(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "info", "error", err)
		health["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	health["articles"] = info.Articles
	health["schema_version"] = info.SchemaVersion
	if info.Newest != nil {
		health["newest_article_at"] = info.Newest
	}

	c.JSON(http.StatusOK, health)
}

func respondError(c *gin.Context, operation string, err error) {
	if errors.Is(err, monitor.ErrInvalidArgument) || errors.Is(err, monitor.ErrInvalidConfig) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slog.Error("Operation failed", "operation", operation, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}

// intQuery reads an integer parameter, writing a 400 response when it is malformed
func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key + " parameter"})
		return 0, false
	}
	return value, true
}

func listQuery(c *gin.Context, key string) []string {
	var values []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}
