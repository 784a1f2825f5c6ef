package analysis

import (
	"sort"
	"strings"

	"github.com/lysyi3m/media-monitor/app/database"
)

const linkedInHint = "LinkedIn zoeken op naam + AI"

type ExpertOptions struct {
	Topic     string // empty means all topics
	MinQuotes int
}

// ExpertAggregator merges stored quotes into per-person profiles
type ExpertAggregator struct{}

func NewExpertAggregator() *ExpertAggregator {
	return &ExpertAggregator{}
}

type quoteRecord struct {
	quote   database.Quote
	article database.Article
}

func (a *ExpertAggregator) Run(articles []database.Article, opts ExpertOptions) []Expert {
	var records []quoteRecord
	for _, article := range articles {
		if opts.Topic != "" && !topicSelected(opts.Topic, article.Topics) {
			continue
		}
		for _, quote := range article.Quotes {
			if strings.TrimSpace(quote.Name) == "" {
				continue
			}
			records = append(records, quoteRecord{quote: quote, article: article})
		}
	}

	// oldest first so later records overwrite display name and organization
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].article, records[j].article
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.Before(b.PublishedAt)
		}
		return a.ID < b.ID
	})

	byKey := make(map[string]*Expert)
	areas := make(map[string]map[string]bool)
	for _, r := range records {
		key := NormalizeName(r.quote.Name)
		expert, ok := byKey[key]
		if !ok {
			expert = &Expert{Key: key}
			byKey[key] = expert
			areas[key] = make(map[string]bool)
		}

		expert.Name = r.quote.Name
		if r.quote.Organization != "" {
			expert.Organization = r.quote.Organization
		}
		expert.Quotes = append(expert.Quotes, ExpertQuote{
			Text:     r.quote.Text,
			Context:  r.quote.Context,
			Article:  RefOf(r.article),
			QuotedAt: r.article.PublishedAt,
		})
		if r.article.PublishedAt.After(expert.LatestQuoteAt) {
			expert.LatestQuoteAt = r.article.PublishedAt
		}
		for _, topic := range r.article.Topics {
			areas[key][topic] = true
		}
	}

	experts := make([]Expert, 0, len(byKey))
	for key, expert := range byKey {
		expert.QuoteCount = len(expert.Quotes)
		if expert.QuoteCount < opts.MinQuotes {
			continue
		}

		expert.ExpertiseAreas = make([]string, 0, len(areas[key]))
		for topic := range areas[key] {
			expert.ExpertiseAreas = append(expert.ExpertiseAreas, topic)
		}
		sort.Strings(expert.ExpertiseAreas)

		// newest quote first
		for i, j := 0, len(expert.Quotes)-1; i < j; i, j = i+1, j-1 {
			expert.Quotes[i], expert.Quotes[j] = expert.Quotes[j], expert.Quotes[i]
		}

		expert.ContactHints = contactHints(expert.Organization)
		experts = append(experts, *expert)
	}

	SortExperts(experts)
	return experts
}

// SortExperts ranks by quote count, then most recent quote, then key
func SortExperts(experts []Expert) {
	sort.Slice(experts, func(i, j int) bool {
		a, b := experts[i], experts[j]
		if a.QuoteCount != b.QuoteCount {
			return a.QuoteCount > b.QuoteCount
		}
		if !a.LatestQuoteAt.Equal(b.LatestQuoteAt) {
			return a.LatestQuoteAt.After(b.LatestQuoteAt)
		}
		return a.Key < b.Key
	})
}

// HasExpertise reports whether topic is one of the expert's areas
func (e Expert) HasExpertise(topic string) bool {
	for _, area := range e.ExpertiseAreas {
		if strings.EqualFold(area, topic) {
			return true
		}
	}
	return false
}

func contactHints(organization string) []string {
	if organization == "" {
		return []string{linkedInHint}
	}
	return []string{"Via " + organization, linkedInHint}
}

