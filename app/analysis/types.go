package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/media-monitor/app/database"
)

var ErrUnknownPeriod = errors.New("unknown period")

// Period is a named analysis window length
type Period string

const (
	PeriodDay     Period = "day"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
)

// ParsePeriod accepts day, week, month and quarter. An empty string means week.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodWeek, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodQuarter:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
}

func (p Period) Duration() time.Duration {
	switch p {
	case PeriodDay:
		return 24 * time.Hour
	case PeriodMonth:
		return 30 * 24 * time.Hour
	case PeriodQuarter:
		return 90 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// ArticleRef identifies a stored article inside derived views
type ArticleRef struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

func RefOf(article database.Article) ArticleRef {
	return ArticleRef{
		ID:          article.ID,
		URL:         article.URL,
		Title:       article.Title,
		Source:      article.Source,
		PublishedAt: article.PublishedAt,
	}
}

type TrendingTopic struct {
	Topic            string       `json:"topic"`
	Mentions         int          `json:"mentions"`
	Sources          []string     `json:"sources"`
	Sentiment        float64      `json:"sentiment"`
	SentimentLabel   string       `json:"sentiment_label"`
	GrowthPercentage float64      `json:"growth_percentage"`
	PreviousMentions int          `json:"previous_mentions"`
	Articles         []ArticleRef `json:"articles"`
	SuggestedAngle   string       `json:"suggested_angle"`
}

type ExpertQuote struct {
	Text     string     `json:"text"`
	Context  string     `json:"context,omitempty"`
	Article  ArticleRef `json:"article"`
	QuotedAt time.Time  `json:"quoted_at"`
}

type Expert struct {
	Key            string        `json:"key"`
	Name           string        `json:"name"`
	Organization   string        `json:"organization,omitempty"`
	Quotes         []ExpertQuote `json:"quotes"`
	ExpertiseAreas []string      `json:"expertise_areas"`
	QuoteCount     int           `json:"quote_count"`
	LatestQuoteAt  time.Time     `json:"latest_quote_at"`
	ContactHints   []string      `json:"contact_hints"`
}

type TopicSuggestion struct {
	Topic           string       `json:"topic"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Angle           string       `json:"angle"`
	Mentions        int          `json:"mentions"`
	Articles        []ArticleRef `json:"articles"`
	PotentialGuests []string     `json:"potential_guests"`
	Urgency         int          `json:"urgency"`
	Reason          string       `json:"reason"`
	Questions       []string     `json:"questions"`
}
