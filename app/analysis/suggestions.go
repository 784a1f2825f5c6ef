package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lysyi3m/media-monitor/app/config"
)

const (
	minUrgency = 1
	maxUrgency = 10
)

var defaultQuestions = []string{
	"Wat is de realiteit van %s in Nederland?",
	"Wat zijn de grootste uitdagingen die je tegenkomt?",
	"Welke kansen zie je voor de toekomst?",
}

// SuggestionGenerator turns trends and experts into ranked episode ideas
type SuggestionGenerator struct {
	weights config.SuggestionWeights
	cfg     config.Config
}

func NewSuggestionGenerator(cfg config.Config) *SuggestionGenerator {
	return &SuggestionGenerator{
		weights: cfg.Suggestions,
		cfg:     cfg,
	}
}

// Run builds one suggestion per trend matching focusAreas. Focus areas are
// case-insensitive substrings of topic labels; none means every trend.
func (g *SuggestionGenerator) Run(trends []TrendingTopic, experts []Expert, focusAreas []string) []TopicSuggestion {
	suggestions := []TopicSuggestion{}

	for _, trend := range trends {
		if !inFocus(trend.Topic, focusAreas) {
			continue
		}

		var guests []string
		available := 0
		for _, expert := range experts {
			if !expert.HasExpertise(trend.Topic) {
				continue
			}
			available++
			if len(guests) < g.weights.MaxGuests {
				guests = append(guests, expert.Name)
			}
		}

		suggestions = append(suggestions, TopicSuggestion{
			Topic: trend.Topic,
			Title: trend.Topic + ": " + trend.SuggestedAngle,
			Description: fmt.Sprintf("%s wordt %d keer genoemd door %d bronnen (%+.0f%% ten opzichte van de vorige periode).",
				trend.Topic, trend.Mentions, len(trend.Sources), trend.GrowthPercentage),
			Angle:           trend.SuggestedAngle,
			Mentions:        trend.Mentions,
			Articles:        trend.Articles,
			PotentialGuests: guests,
			Urgency:         g.Urgency(trend, len(guests)),
			Reason:          fmt.Sprintf("%d artikelen deze week, %d beschikbare experts", trend.Mentions, available),
			Questions:       g.questions(trend.Topic),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Urgency != b.Urgency {
			return a.Urgency > b.Urgency
		}
		if a.Mentions != b.Mentions {
			return a.Mentions > b.Mentions
		}
		return a.Topic < b.Topic
	})

	return suggestions
}

// Urgency combines mention volume, guest availability and capped growth
// into a score between 1 and 10.
func (g *SuggestionGenerator) Urgency(trend TrendingTopic, guests int) int {
	w := g.weights
	growth := math.Min(math.Max(trend.GrowthPercentage, 0)*w.GrowthWeight, w.GrowthCap)
	score := math.Round(float64(trend.Mentions)*w.MentionWeight + float64(guests)*w.ExpertWeight + growth)
	return int(math.Max(minUrgency, math.Min(maxUrgency, score)))
}

func (g *SuggestionGenerator) questions(topic string) []string {
	if t, ok := g.cfg.FindTopic(topic); ok && len(t.Questions) > 0 {
		return t.Questions
	}

	questions := make([]string, len(defaultQuestions))
	copy(questions, defaultQuestions)
	questions[0] = fmt.Sprintf(questions[0], topic)
	return questions
}

func inFocus(topic string, focusAreas []string) bool {
	if len(focusAreas) == 0 {
		return true
	}
	lower := strings.ToLower(topic)
	for _, area := range focusAreas {
		if area = strings.ToLower(strings.TrimSpace(area)); area != "" && strings.Contains(lower, area) {
			return true
		}
	}
	return false
}
