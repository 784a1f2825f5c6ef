package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/media-monitor/app/config"
	"github.com/lysyi3m/media-monitor/app/database"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func article(id int64, source string, age time.Duration, topics ...string) database.Article {
	return database.Article{
		ID:          id,
		URL:         fmt.Sprintf("https://example.com/%d", id),
		Title:       fmt.Sprintf("Artikel %d", id),
		Source:      source,
		PublishedAt: testNow.Add(-age),
		Topics:      topics,
		AIRelevant:  true,
	}
}

func newTestTrendAggregator() *TrendAggregator {
	return NewTrendAggregator(config.Default())
}

func TestTrendingGenerativeAIScenario(t *testing.T) {
	current := []database.Article{
		article(1, "NOS", 1*time.Hour, "Generative AI"),
		article(2, "NRC", 2*time.Hour, "Generative AI"),
		article(3, "NOS", 3*time.Hour, "Generative AI", "AI en privacy"),
		article(4, "Tweakers", 4*time.Hour, "Generative AI"),
		article(5, "NRC", 5*time.Hour, "Generative AI", "AI en privacy"),
	}

	trends := newTestTrendAggregator().Run(current, nil, TrendOptions{MinMentions: 3, Representatives: 3})

	require.Len(t, trends, 1)
	trend := trends[0]
	assert.Equal(t, "Generative AI", trend.Topic)
	assert.Equal(t, 5, trend.Mentions)
	assert.Equal(t, []string{"NOS", "NRC", "Tweakers"}, trend.Sources)
	assert.Equal(t, 500.0, trend.GrowthPercentage, "an empty previous window counts as one mention")
	assert.Equal(t, 0, trend.PreviousMentions)
	assert.Equal(t, "De realiteit achter Generative AI in Nederland", trend.SuggestedAngle)

	require.Len(t, trend.Articles, 3)
	assert.Equal(t, int64(1), trend.Articles[0].ID)
	assert.Equal(t, int64(3), trend.Articles[2].ID)
}

func TestTrendingMinMentionsIsRespected(t *testing.T) {
	current := []database.Article{
		article(1, "NOS", time.Hour, "AI in de zorg"),
		article(2, "NOS", time.Hour, "AI in de zorg"),
		article(3, "NOS", time.Hour, "AI-ethiek"),
	}

	aggregator := newTestTrendAggregator()
	for _, minMentions := range []int{0, 1, 2, 3} {
		for _, trend := range aggregator.Run(current, nil, TrendOptions{MinMentions: minMentions}) {
			assert.GreaterOrEqual(t, trend.Mentions, minMentions)
		}
	}

	assert.Empty(t, aggregator.Run(current, nil, TrendOptions{MinMentions: 3}))
}

func TestTrendingGrowthAgainstPreviousWindow(t *testing.T) {
	current := []database.Article{
		article(1, "NOS", time.Hour, "AI in de zorg"),
		article(2, "NRC", time.Hour, "AI in de zorg"),
		article(3, "FD", time.Hour, "AI in de zorg"),
	}
	previous := []database.Article{
		article(10, "NOS", 8*24*time.Hour, "AI in de zorg"),
		article(11, "NOS", 9*24*time.Hour, "AI in de zorg"),
	}

	trends := newTestTrendAggregator().Run(current, previous, TrendOptions{MinMentions: 1})

	require.Len(t, trends, 1)
	assert.Equal(t, 2, trends[0].PreviousMentions)
	assert.Equal(t, 50.0, trends[0].GrowthPercentage)
	assert.Equal(t, "Succesverhalen uit Nederlandse ziekenhuizen", trends[0].SuggestedAngle)
}

func TestGrowth(t *testing.T) {
	assert.Equal(t, 700.0, Growth(7, 0))
	assert.Equal(t, 0.0, Growth(0, 0))
	assert.Equal(t, -50.0, Growth(2, 4))
	assert.Equal(t, 33.33, Growth(4, 3))
}

func TestTrendingTieBreaks(t *testing.T) {
	current := []database.Article{
		article(1, "NOS", time.Hour, "B-topic", "A-topic", "C-topic"),
		article(2, "NRC", time.Hour, "B-topic", "A-topic", "C-topic"),
		article(3, "NOS", time.Hour, "C-topic"),
		article(4, "FD", time.Hour, "B-topic"),
		article(5, "NOS", time.Hour, "A-topic"),
	}

	trends := newTestTrendAggregator().Run(current, nil, TrendOptions{MinMentions: 1})

	var order []string
	for _, trend := range trends {
		order = append(order, trend.Topic)
	}
	// all three have three mentions; B has three sources, A and C two
	assert.Equal(t, []string{"B-topic", "A-topic", "C-topic"}, order)
}

func TestTrendingTopicFilter(t *testing.T) {
	current := []database.Article{
		article(1, "NOS", time.Hour, "Generative AI", "AI en privacy"),
		article(2, "NRC", time.Hour, "Generative AI", "AI en privacy"),
	}

	trends := newTestTrendAggregator().Run(current, nil, TrendOptions{MinMentions: 1, Topics: []string{"ai EN privacy"}})

	require.Len(t, trends, 1)
	assert.Equal(t, "AI en privacy", trends[0].Topic)
	assert.Equal(t, "Praktische oplossingen voor privacy-uitdagingen", trends[0].SuggestedAngle)
}

func TestTrendingRepresentativesTieBreakByID(t *testing.T) {
	current := []database.Article{
		article(9, "NOS", time.Hour, "Generative AI"),
		article(4, "NRC", time.Hour, "Generative AI"),
		article(7, "FD", 2*time.Hour, "Generative AI"),
	}

	trends := newTestTrendAggregator().Run(current, nil, TrendOptions{MinMentions: 1, Representatives: 2})

	require.Len(t, trends, 1)
	require.Len(t, trends[0].Articles, 2)
	assert.Equal(t, int64(4), trends[0].Articles[0].ID)
	assert.Equal(t, int64(9), trends[0].Articles[1].ID)
}

func TestTrendingSentiment(t *testing.T) {
	positive := article(1, "NOS", time.Hour, "AI in de zorg")
	positive.Summary = "Een doorbraak en een verbetering voor patiënten."
	negative := article(2, "NRC", time.Hour, "AI in de zorg")
	negative.Summary = "Critici zien vooral risico en gevaar, maar ook een kans."
	neutral := article(3, "FD", time.Hour, "AI in de zorg")

	trends := newTestTrendAggregator().Run([]database.Article{positive, negative, neutral}, nil, TrendOptions{MinMentions: 1})

	require.Len(t, trends, 1)
	// (1 + -1/3 + 0) / 3
	assert.Equal(t, 0.22, trends[0].Sentiment)
	assert.Equal(t, "positive", trends[0].SentimentLabel)
}

func TestSentimentScore(t *testing.T) {
	scorer := NewSentimentScorer(config.Default().Sentiment)

	tests := []struct {
		text  string
		score float64
	}{
		{"The pilot was a success, but there is a risk.", 0},
		{"Een groot succes.", 1},
		{"De risico's van gezichtsherkenning.", -1},
		{"Kansen en innovaties in de zorg.", 1},
		{"Een onsuccesvolle en gevaarlijke proef.", -1},
		{"Geen enkel lexiconwoord.", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.score, scorer.Score(tt.text))
		})
	}

	assert.Equal(t, "neutral", SentimentLabel(scorer.Score("The pilot was a success, but there is a risk.")))
}

func TestSentimentLabel(t *testing.T) {
	assert.Equal(t, "positive", SentimentLabel(0.5))
	assert.Equal(t, "neutral", SentimentLabel(0.1))
	assert.Equal(t, "neutral", SentimentLabel(-0.1))
	assert.Equal(t, "negative", SentimentLabel(-0.11))
}

func TestParsePeriod(t *testing.T) {
	for input, want := range map[string]Period{"": PeriodWeek, "day": PeriodDay, "WEEK": PeriodWeek, "month": PeriodMonth, "quarter": PeriodQuarter} {
		got, err := ParsePeriod(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePeriod("year")
	assert.ErrorIs(t, err, ErrUnknownPeriod)

	assert.Equal(t, 30*24*time.Hour, PeriodMonth.Duration())
}
