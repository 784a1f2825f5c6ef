package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/media-monitor/app/analysis"
)

type Statistics struct {
	Articles       int `json:"articles"`
	TrendingTopics int `json:"trending_topics"`
	Experts        int `json:"experts"`
	Suggestions    int `json:"suggestions"`
}

// Highlights holds the top entry of each list, nil when the list is empty
type Highlights struct {
	TopTopic      *analysis.TrendingTopic   `json:"top_topic"`
	TopExpert     *analysis.Expert          `json:"top_expert"`
	TopSuggestion *analysis.TopicSuggestion `json:"top_suggestion"`
}

type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type Report struct {
	ID          string                     `json:"id"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Week        string                     `json:"week"`
	Period      Period                     `json:"period"`
	Statistics  Statistics                 `json:"statistics"`
	Highlights  Highlights                 `json:"highlights"`
	Trends      []analysis.TrendingTopic   `json:"trends"`
	Experts     []analysis.Expert          `json:"experts"`
	Suggestions []analysis.TopicSuggestion `json:"suggestions"`
}

type Options struct {
	ID       string    // generated when empty
	Now      time.Time // time.Now when zero
	Window   time.Duration
	Articles int
}

// Compile assembles a report from already ranked lists. It performs no I/O.
func Compile(trends []analysis.TrendingTopic, experts []analysis.Expert, suggestions []analysis.TopicSuggestion, opts Options) Report {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Window <= 0 {
		opts.Window = analysis.PeriodWeek.Duration()
	}

	r := Report{
		ID:          opts.ID,
		GeneratedAt: opts.Now,
		Week:        ISOWeek(opts.Now),
		Period:      Period{From: opts.Now.Add(-opts.Window), To: opts.Now},
		Statistics: Statistics{
			Articles:       opts.Articles,
			TrendingTopics: len(trends),
			Experts:        len(experts),
			Suggestions:    len(suggestions),
		},
		Trends:      nonNil(trends),
		Experts:     nonNil(experts),
		Suggestions: nonNil(suggestions),
	}

	if len(trends) > 0 {
		r.Highlights.TopTopic = &trends[0]
	}
	if len(experts) > 0 {
		r.Highlights.TopExpert = &experts[0]
	}
	if len(suggestions) > 0 {
		r.Highlights.TopSuggestion = &suggestions[0]
	}

	return r
}

// ISOWeek formats t as 2024-W07
func ISOWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// FileName is the name the report is stored under
func (r Report) FileName() string {
	return "report-" + r.Week + ".json"
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
