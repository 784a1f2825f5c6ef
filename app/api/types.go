package api

import (
	"context"
	"time"

	"github.com/lysyi3m/media-monitor/app/database"
	"github.com/lysyi3m/media-monitor/app/feed"
	"github.com/lysyi3m/media-monitor/app/monitor"
	"github.com/lysyi3m/media-monitor/app/report"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, articles []database.Article, buildDate time.Time) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// MonitorInterface is the set of engine operations exposed over HTTP
type MonitorInterface interface {
	Scan(ctx context.Context, hoursBack int) (monitor.ScanResult, error)
	Trending(ctx context.Context, query monitor.TrendingQuery) (monitor.TrendingResult, error)
	Experts(ctx context.Context, query monitor.ExpertsQuery) (monitor.ExpertsResult, error)
	Suggestions(ctx context.Context, focusAreas []string) (monitor.SuggestionsResult, error)
	FetchArticle(ctx context.Context, url string) (monitor.ArticleResult, error)
	WeeklyReport(ctx context.Context) (report.Report, error)
	Digest(ctx context.Context, period, topic string) ([]database.Article, error)
	SourceStats(ctx context.Context) ([]database.SourceStat, error)
	Info(ctx context.Context) (database.Info, error)
}

var _ MonitorInterface = (*monitor.Engine)(nil)

type Handler struct {
	monitor   MonitorInterface
	generator GeneratorInterface
	scanHours int
	version   string
}
