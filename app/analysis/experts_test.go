package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/media-monitor/app/database"
)

func quoted(a database.Article, quotes ...database.Quote) database.Article {
	a.Quotes = quotes
	return a
}

func TestExpertsMergeByNormalizedName(t *testing.T) {
	articles := []database.Article{
		quoted(article(1, "NOS", 3*time.Hour, "AI in de zorg"),
			database.Quote{Name: "José García", Text: "AI helpt artsen sneller te beslissen.", Organization: "Erasmus MC"}),
		quoted(article(2, "NRC", 2*time.Hour, "AI-ethiek"),
			database.Quote{Name: "jose garcia", Text: "We moeten transparant zijn over modellen."}),
		quoted(article(3, "FD", 1*time.Hour, "Generative AI"),
			database.Quote{Name: "Jose Garcia", Text: "Generatieve modellen zijn geen orakel."}),
	}

	experts := NewExpertAggregator().Run(articles, ExpertOptions{MinQuotes: 1})

	require.Len(t, experts, 1)
	expert := experts[0]
	assert.Equal(t, "jose garcia", expert.Key)
	assert.Equal(t, "Jose Garcia", expert.Name, "display name is the most recent variant")
	assert.Equal(t, "Erasmus MC", expert.Organization)
	assert.Equal(t, 3, expert.QuoteCount)
	assert.Len(t, expert.Quotes, expert.QuoteCount)
	assert.Equal(t, []string{"AI in de zorg", "AI-ethiek", "Generative AI"}, expert.ExpertiseAreas)
	assert.Equal(t, testNow.Add(-time.Hour), expert.LatestQuoteAt)
	assert.Equal(t, int64(3), expert.Quotes[0].Article.ID, "newest quote first")
	assert.Equal(t, []string{"Via Erasmus MC", "LinkedIn zoeken op naam + AI"}, expert.ContactHints)
}

func TestExpertsMinQuotesExcludes(t *testing.T) {
	articles := []database.Article{
		quoted(article(1, "NOS", time.Hour, "AI in de zorg"),
			database.Quote{Name: "Anna de Vries", Text: "Eerste uitspraak over AI."},
			database.Quote{Name: "Jan Jansen", Text: "Enige uitspraak over AI."}),
		quoted(article(2, "NRC", time.Hour, "AI in de zorg"),
			database.Quote{Name: "Anna de Vries", Text: "Tweede uitspraak over AI."}),
	}

	experts := NewExpertAggregator().Run(articles, ExpertOptions{MinQuotes: 2})

	require.Len(t, experts, 1)
	assert.Equal(t, "Anna de Vries", experts[0].Name)
	for _, expert := range experts {
		assert.GreaterOrEqual(t, expert.QuoteCount, 2)
	}
	assert.Equal(t, []string{"LinkedIn zoeken op naam + AI"}, experts[0].ContactHints)
}

func TestExpertsTopicFilter(t *testing.T) {
	articles := []database.Article{
		quoted(article(1, "NOS", time.Hour, "AI in de zorg"),
			database.Quote{Name: "Anna de Vries", Text: "Over de zorg."}),
		quoted(article(2, "NRC", time.Hour, "AI-wetgeving"),
			database.Quote{Name: "Anna de Vries", Text: "Over de AI Act."},
			database.Quote{Name: "Jan Jansen", Text: "Ook over de AI Act."}),
	}

	experts := NewExpertAggregator().Run(articles, ExpertOptions{Topic: "ai in de zorg", MinQuotes: 1})

	require.Len(t, experts, 1)
	assert.Equal(t, "Anna de Vries", experts[0].Name)
	assert.Equal(t, 1, experts[0].QuoteCount)
	assert.Equal(t, []string{"AI in de zorg"}, experts[0].ExpertiseAreas)
}

func TestExpertsRanking(t *testing.T) {
	articles := []database.Article{
		quoted(article(1, "NOS", 5*time.Hour, "AI-ethiek"),
			database.Quote{Name: "Bram Bos", Text: "Uitspraak een."},
			database.Quote{Name: "Carla Claes", Text: "Uitspraak twee."},
			database.Quote{Name: "Anna Aalders", Text: "Uitspraak drie."}),
		quoted(article(2, "NOS", 1*time.Hour, "AI-ethiek"),
			database.Quote{Name: "Carla Claes", Text: "Uitspraak vier."}),
		quoted(article(3, "NOS", 3*time.Hour, "AI-ethiek"),
			database.Quote{Name: "Bram Bos", Text: "Uitspraak vijf."},
			database.Quote{Name: "Anna Aalders", Text: "Uitspraak zes."}),
	}

	experts := NewExpertAggregator().Run(articles, ExpertOptions{MinQuotes: 1})

	var names []string
	for _, expert := range experts {
		names = append(names, expert.Name)
	}
	// equal counts: Carla has the most recent quote, then Anna before Bram by key
	assert.Equal(t, []string{"Carla Claes", "Anna Aalders", "Bram Bos"}, names)
}
