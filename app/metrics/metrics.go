// Package metrics provides Prometheus metrics for the media monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mediamonitor"

var (
	// FeedFetchTotal counts feed fetches by source and outcome.
	FeedFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetch_total",
			Help:      "Total number of feed fetches",
		},
		[]string{"source", "status"},
	)

	// ArticlesTotal counts scanned entries by outcome.
	ArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Total number of scanned entries by outcome",
		},
		[]string{"outcome"},
	)

	// BypassAttemptsTotal counts paywall bypass attempts.
	BypassAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bypass_attempts_total",
			Help:      "Total number of paywall bypass attempts",
		},
		[]string{"service", "status"},
	)

	// ArticleFetchTotal counts full-text fetches by method.
	ArticleFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "article_fetch_total",
			Help:      "Total number of full article fetches",
		},
		[]string{"method", "status"},
	)

	// TaskDuration measures scheduled task duration.
	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of scheduled tasks in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type", "status"},
	)
)

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func RecordFeedFetch(source string, ok bool) {
	FeedFetchTotal.WithLabelValues(source, status(ok)).Inc()
}

// RecordArticles adds n entries with the given outcome (stored, updated, skipped, failed)
func RecordArticles(outcome string, n int) {
	if n > 0 {
		ArticlesTotal.WithLabelValues(outcome).Add(float64(n))
	}
}

func RecordBypassAttempt(service string, ok bool) {
	BypassAttemptsTotal.WithLabelValues(service, status(ok)).Inc()
}

func RecordArticleFetch(method string, ok bool) {
	ArticleFetchTotal.WithLabelValues(method, status(ok)).Inc()
}

func RecordTask(taskType string, ok bool, seconds float64) {
	TaskDuration.WithLabelValues(taskType, status(ok)).Observe(seconds)
}
