package monitor

import (
	"time"

	"github.com/lysyi3m/media-monitor/app/analysis"
	"github.com/lysyi3m/media-monitor/app/database"
	"github.com/lysyi3m/media-monitor/app/paywall"
)

type ScanResult struct {
	Articles []database.Article `json:"articles"`
	Fetched  int                `json:"fetched"`
	Stored   int                `json:"stored"`
	Updated  int                `json:"updated"`
	Skipped  int                `json:"skipped"`  // not AI-relevant
	Outdated int                `json:"outdated"` // published before the scan window
	Errors   []ItemError        `json:"errors"`
	Duration time.Duration      `json:"duration"`
}

type ExtractResult struct {
	Pending   int           `json:"pending"` // summary-only articles attempted this run
	Extracted int           `json:"extracted"`
	Failed    int           `json:"failed"`
	Quotes    int           `json:"quotes"`
	Errors    []ItemError   `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

type TrendingQuery struct {
	Period      string
	MinMentions int
	Topics      []string
}

type TrendingResult struct {
	Period   analysis.Period          `json:"period"`
	From     time.Time                `json:"from"`
	To       time.Time                `json:"to"`
	Articles int                      `json:"articles"`
	Topics   []analysis.TrendingTopic `json:"topics"`
	Errors   []ItemError              `json:"errors"`
}

type ExpertsQuery struct {
	Topic     string
	Period    string
	MinQuotes int
}

type ExpertsResult struct {
	Period  analysis.Period   `json:"period"`
	Topic   string            `json:"topic,omitempty"`
	Experts []analysis.Expert `json:"experts"`
	Errors  []ItemError       `json:"errors"`
}

type SuggestionsResult struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	Suggestions []analysis.TopicSuggestion `json:"suggestions"`
	Errors      []ItemError                `json:"errors"`
}

type ArticleResult struct {
	URL       string           `json:"url"`
	Title     string           `json:"title,omitempty"`
	Content   string           `json:"content"`
	Method    paywall.Method   `json:"fetch_method"`
	Service   string           `json:"service,omitempty"`
	Success   bool             `json:"success"`
	Paywalled bool             `json:"paywalled"`
	Error     string           `json:"error,omitempty"`
	Quotes    []database.Quote `json:"quotes,omitempty"`
	Cached    bool             `json:"cached"`
	Errors    []ItemError      `json:"errors"`
}
