package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lysyi3m/media-monitor/app/config"
	"github.com/lysyi3m/media-monitor/app/database"
)

type TrendOptions struct {
	MinMentions     int
	Topics          []string // empty means all topics
	Representatives int
}

// TrendAggregator computes per-topic statistics over two adjacent windows
type TrendAggregator struct {
	sentiment    *SentimentScorer
	angles       []config.Angle
	defaultAngle string
}

func NewTrendAggregator(cfg config.Config) *TrendAggregator {
	return &TrendAggregator{
		sentiment:    NewSentimentScorer(cfg.Sentiment),
		angles:       cfg.Angles,
		defaultAngle: cfg.DefaultAngle,
	}
}

type topicBucket struct {
	articles  []database.Article
	sources   map[string]bool
	sentiment float64
}

func (a *TrendAggregator) Run(current, previous []database.Article, opts TrendOptions) []TrendingTopic {
	buckets := make(map[string]*topicBucket)
	for _, article := range current {
		score := a.sentiment.Score(articleText(article))
		for _, topic := range article.Topics {
			if !topicSelected(topic, opts.Topics) {
				continue
			}
			b, ok := buckets[topic]
			if !ok {
				b = &topicBucket{sources: make(map[string]bool)}
				buckets[topic] = b
			}
			b.articles = append(b.articles, article)
			b.sources[article.Source] = true
			b.sentiment += score
		}
	}

	previousCounts := make(map[string]int)
	for _, article := range previous {
		for _, topic := range article.Topics {
			previousCounts[topic]++
		}
	}

	var trends []TrendingTopic
	for topic, b := range buckets {
		mentions := len(b.articles)
		if mentions < opts.MinMentions {
			continue
		}

		sources := make([]string, 0, len(b.sources))
		for source := range b.sources {
			sources = append(sources, source)
		}
		sort.Strings(sources)

		sentiment := round2(b.sentiment / float64(mentions))
		prev := previousCounts[topic]

		trends = append(trends, TrendingTopic{
			Topic:            topic,
			Mentions:         mentions,
			Sources:          sources,
			Sentiment:        sentiment,
			SentimentLabel:   SentimentLabel(sentiment),
			GrowthPercentage: Growth(mentions, prev),
			PreviousMentions: prev,
			Articles:         representatives(b.articles, opts.Representatives),
			SuggestedAngle:   a.Angle(topic),
		})
	}

	SortTrends(trends)
	return trends
}

// Angle returns the first rule whose match occurs in the topic label
func (a *TrendAggregator) Angle(topic string) string {
	lower := strings.ToLower(topic)
	for _, rule := range a.angles {
		if rule.Match != "" && strings.Contains(lower, strings.ToLower(rule.Match)) {
			return rule.Angle
		}
	}
	return fmt.Sprintf(a.defaultAngle, topic)
}

// Growth is the percentage change against the previous window, with an
// empty previous window counted as one mention.
func Growth(current, previous int) float64 {
	return round2(float64(current-previous) / float64(max(previous, 1)) * 100)
}

// SortTrends ranks by mentions, then source diversity, then label
func SortTrends(trends []TrendingTopic) {
	sort.Slice(trends, func(i, j int) bool {
		a, b := trends[i], trends[j]
		if a.Mentions != b.Mentions {
			return a.Mentions > b.Mentions
		}
		if len(a.Sources) != len(b.Sources) {
			return len(a.Sources) > len(b.Sources)
		}
		return a.Topic < b.Topic
	})
}

func representatives(articles []database.Article, n int) []ArticleRef {
	sorted := make([]database.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].PublishedAt.Equal(sorted[j].PublishedAt) {
			return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}

	refs := make([]ArticleRef, 0, len(sorted))
	for _, article := range sorted {
		refs = append(refs, RefOf(article))
	}
	return refs
}

func topicSelected(topic string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if strings.EqualFold(strings.TrimSpace(f), topic) {
			return true
		}
	}
	return false
}

func articleText(article database.Article) string {
	parts := []string{article.Title, article.Summary}
	if article.Content != "" {
		parts = append(parts, article.Content)
	}
	return strings.Join(parts, "\n")
}
