package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/media-monitor/app/config"
	"github.com/lysyi3m/media-monitor/app/database"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	engine *Engine
	repo   *database.SQLArticleRepository
	clock  *testClock
	cfg    config.Config
}

func testConfig(sources ...config.Source) config.Config {
	cfg := config.Default()
	cfg.Sources = sources
	cfg.Bypass = nil
	cfg.Defaults.Retries = 0
	cfg.Defaults.RateLimit = 0
	cfg.Defaults.Timeout = 5
	cfg.Defaults.BackoffInitial = 1
	cfg.Defaults.MinContentLength = 200
	return cfg
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "monitor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	clock := &testClock{now: time.Now().UTC().Truncate(time.Second)}
	repo := database.NewArticleRepository(db, database.WithClock(clock.Now))

	engine, err := NewEngine(cfg, repo, &http.Client{}, Options{UserAgent: "Media Monitor/test", Now: clock.Now})
	require.NoError(t, err)

	return &testEnv{engine: engine, repo: repo, clock: clock, cfg: cfg}
}

type feedItem struct {
	title   string
	link    string
	summary string
	content string
	pubDate time.Time
}

func rss(items ...feedItem) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/"><channel><title>Test</title>`)
	for _, item := range items {
		fmt.Fprintf(&b, `<item><title>%s</title><link>%s</link><description>%s</description>`, item.title, item.link, item.summary)
		if item.content != "" {
			fmt.Fprintf(&b, `<content:encoded><![CDATA[%s]]></content:encoded>`, item.content)
		}
		fmt.Fprintf(&b, `<pubDate>%s</pubDate></item>`, item.pubDate.Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestScanStoresOnlyAIRelevantEntries(t *testing.T) {
	now := time.Now().UTC()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rss(
			feedItem{
				title:   "Ziekenhuis test AI-diagnose-algoritme",
				link:    "https://nos.nl/artikel/1?utm_source=rss",
				summary: "Artsen zetten kunstmatige intelligentie in bij diagnoses.",
				pubDate: now.Add(-time.Hour),
			},
			feedItem{
				title:   "Nieuwe brug geopend in Utrecht",
				link:    "https://nos.nl/artikel/2",
				summary: "Het verkeer rijdt weer.",
				pubDate: now.Add(-2 * time.Hour),
			},
			feedItem{
				title:   "Oud nieuws over machine learning",
				link:    "https://nos.nl/artikel/3",
				summary: "Dit artikel valt buiten het venster.",
				pubDate: now.Add(-72 * time.Hour),
			},
		))
	}))
	defer server.Close()

	env := newTestEnv(t, testConfig(config.Source{Name: "NOS", URL: server.URL}))

	result, err := env.engine.Scan(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 1, result.Stored)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Outdated)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Articles, 1)
	assert.Equal(t, "https://nos.nl/artikel/1", result.Articles[0].URL)

	stored, err := env.repo.Get(context.Background(), "https://nos.nl/artikel/1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Contains(t, stored.Topics, "AI in de zorg")
	assert.True(t, stored.AIRelevant)

	count, err := env.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestScanTwoBatchesOfSameURL(t *testing.T) {
	published := time.Now().UTC().Add(-time.Hour)
	var secondBatch atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		item := feedItem{
			title:   "Kabinet presenteert plan voor kunstmatige intelligentie",
			link:    "https://nrc.nl/ai-plan",
			summary: "Het kabinet wil meer toezicht op AI.",
			pubDate: published,
		}
		if secondBatch.Load() {
			item.content = "<p>Volledige tekst over de nieuwe wetgeving en toezicht op algoritmes.</p>"
		}
		fmt.Fprint(w, rss(item))
	}))
	defer server.Close()

	env := newTestEnv(t, testConfig(config.Source{Name: "NRC", URL: server.URL}))
	ctx := context.Background()

	first, err := env.engine.Scan(ctx, 48)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Stored)

	env.clock.Advance(24 * time.Hour)
	secondBatch.Store(true)

	second, err := env.engine.Scan(ctx, 48)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Stored)
	assert.Equal(t, 1, second.Updated)

	count, err := env.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := env.repo.Get(ctx, "https://nrc.nl/ai-plan")
	require.NoError(t, err)
	assert.Contains(t, stored.Content, "Volledige tekst over de nieuwe wetgeving")
}

func TestScanRecordsSourceErrors(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rss(feedItem{
			title:   "Bank zet AI in tegen fraude",
			link:    "https://fd.nl/ai-fraude",
			summary: "Machine learning herkent verdachte betalingen.",
			pubDate: time.Now().UTC().Add(-time.Hour),
		}))
	}))
	defer good.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	env := newTestEnv(t, testConfig(
		config.Source{Name: "FD", URL: good.URL},
		config.Source{Name: "Broken", URL: broken.URL},
	))

	result, err := env.engine.Scan(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stored)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, KindSourceFetch, result.Errors[0].Kind)
	assert.Equal(t, "Broken", result.Errors[0].Item)
}

func TestScanRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t, testConfig())

	result, err := env.engine.Scan(context.Background(), 24)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Empty(t, result.Articles)

	_, err = env.engine.Scan(context.Background(), 0)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func storeArticle(t *testing.T, env *testEnv, url, source string, age time.Duration, topics []string, quotes ...database.Quote) {
	t.Helper()
	_, err := env.repo.Upsert(context.Background(), database.Article{
		URL:         url,
		Title:       "Artikel " + url,
		Source:      source,
		PublishedAt: env.clock.Now().Add(-age),
		Summary:     "Samenvatting over AI.",
		Topics:      topics,
		AIRelevant:  true,
		Quotes:      quotes,
	})
	require.NoError(t, err)
}

func TestScanReportsSyndicatedArticleOnce(t *testing.T) {
	published := time.Now().UTC().Add(-time.Hour)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		link := "https://nos.nl/artikel/42"
		if r.URL.Path == "/nu" {
			link += "?utm_source=nu.nl"
		}
		fmt.Fprint(w, rss(feedItem{
			title:   "Toezichthouder waarschuwt voor gezichtsherkenning met AI",
			link:    link,
			summary: "De Autoriteit Persoonsgegevens wil strengere regels voor AI.",
			pubDate: published,
		}))
	}))
	defer server.Close()

	env := newTestEnv(t, testConfig(
		config.Source{Name: "NOS", URL: server.URL + "/nos"},
		config.Source{Name: "NU.nl", URL: server.URL + "/nu"},
	))

	result, err := env.engine.Scan(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 1, result.Stored)
	assert.Equal(t, 0, result.Updated)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "https://nos.nl/artikel/42", result.Articles[0].URL)

	count, err := env.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTrendingGenerativeAIScenario(t *testing.T) {
	env := newTestEnv(t, testConfig())
	sources := []string{"NOS", "NRC", "Tweakers", "NOS", "NRC"}
	for i, source := range sources {
		storeArticle(t, env, fmt.Sprintf("https://example.com/gen-%d", i), source, time.Duration(i+1)*time.Hour, []string{"Generative AI"})
	}
	storeArticle(t, env, "https://example.com/zorg", "NOS", time.Hour, []string{"AI in de zorg"})

	result, err := env.engine.Trending(context.Background(), TrendingQuery{Period: "week", MinMentions: 3})
	require.NoError(t, err)

	require.Len(t, result.Topics, 1)
	assert.Equal(t, "Generative AI", result.Topics[0].Topic)
	assert.Equal(t, 5, result.Topics[0].Mentions)
	assert.Len(t, result.Topics[0].Sources, 3)
	assert.Equal(t, 500.0, result.Topics[0].GrowthPercentage)
	assert.Equal(t, 6, result.Articles)
}

func TestTrendingUsesPreviousWindow(t *testing.T) {
	env := newTestEnv(t, testConfig())
	storeArticle(t, env, "https://example.com/now-1", "NOS", time.Hour, []string{"AI-ethiek"})
	storeArticle(t, env, "https://example.com/now-2", "NRC", time.Hour, []string{"AI-ethiek"})
	storeArticle(t, env, "https://example.com/prev-1", "NOS", 8*24*time.Hour, []string{"AI-ethiek"})
	storeArticle(t, env, "https://example.com/old", "NOS", 20*24*time.Hour, []string{"AI-ethiek"})

	result, err := env.engine.Trending(context.Background(), TrendingQuery{Period: "week", MinMentions: 1})
	require.NoError(t, err)

	require.Len(t, result.Topics, 1)
	assert.Equal(t, 1, result.Topics[0].PreviousMentions)
	assert.Equal(t, 100.0, result.Topics[0].GrowthPercentage)
}

func TestTrendingWindowsFollowEngineClock(t *testing.T) {
	env := newTestEnv(t, testConfig())
	engineNow := env.clock.Now().Add(-30 * 24 * time.Hour)

	storeArticle(t, env, "https://example.com/edge", "NOS", 30*24*time.Hour, []string{"AI-ethiek"})
	storeArticle(t, env, "https://example.com/current", "NRC", 30*24*time.Hour+time.Hour, []string{"AI-ethiek"})
	storeArticle(t, env, "https://example.com/previous", "NOS", 38*24*time.Hour, []string{"AI-ethiek"})

	engine, err := NewEngine(env.cfg, env.repo, &http.Client{}, Options{Now: func() time.Time { return engineNow }})
	require.NoError(t, err)

	result, err := engine.Trending(context.Background(), TrendingQuery{Period: "week", MinMentions: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Articles)
	assert.Equal(t, engineNow, result.To)
	require.Len(t, result.Topics, 1)
	assert.Equal(t, 2, result.Topics[0].Mentions)
	assert.Equal(t, 1, result.Topics[0].PreviousMentions)
	assert.Equal(t, 100.0, result.Topics[0].GrowthPercentage)

	digest, err := engine.Digest(context.Background(), "week", "")
	require.NoError(t, err)
	assert.Len(t, digest, 2)
}

func TestTrendingRejectsUnknownPeriod(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, err := env.engine.Trending(context.Background(), TrendingQuery{Period: "decade"})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = env.engine.Experts(context.Background(), ExpertsQuery{Period: "eon"})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestExpertsAndSuggestions(t *testing.T) {
	env := newTestEnv(t, testConfig())
	anna := database.Quote{Name: "Anna de Vries", Text: "AI verandert de radiologie.", Organization: "UMC Utrecht"}
	for i := 0; i < 3; i++ {
		storeArticle(t, env, fmt.Sprintf("https://example.com/zorg-%d", i), "NOS", time.Duration(i+1)*time.Hour,
			[]string{"AI in de zorg"},
			database.Quote{Name: "Anna de Vries", Text: fmt.Sprintf("Uitspraak %d over AI in de zorg.", i)})
	}
	storeArticle(t, env, "https://example.com/zorg-extra", "NRC", 5*time.Hour, []string{"AI in de zorg"}, anna,
		database.Quote{Name: "Jan Jansen", Text: "Eenmalige uitspraak."})

	experts, err := env.engine.Experts(context.Background(), ExpertsQuery{Period: "week", MinQuotes: 2})
	require.NoError(t, err)
	require.Len(t, experts.Experts, 1)
	assert.Equal(t, "Anna de Vries", experts.Experts[0].Name)
	assert.Equal(t, 4, experts.Experts[0].QuoteCount)
	assert.Equal(t, "UMC Utrecht", experts.Experts[0].Organization)

	suggestions, err := env.engine.Suggestions(context.Background(), []string{"zorg"})
	require.NoError(t, err)
	require.Len(t, suggestions.Suggestions, 1)
	s := suggestions.Suggestions[0]
	assert.Equal(t, "AI in de zorg", s.Topic)
	assert.Equal(t, []string{"Anna de Vries", "Jan Jansen"}, s.PotentialGuests)
	assert.Equal(t, "4 artikelen deze week, 2 beschikbare experts", s.Reason)

	none, err := env.engine.Suggestions(context.Background(), []string{"onderwijs"})
	require.NoError(t, err)
	assert.Empty(t, none.Suggestions)
}

func TestWeeklyReport(t *testing.T) {
	env := newTestEnv(t, testConfig())
	for i := 0; i < 4; i++ {
		storeArticle(t, env, fmt.Sprintf("https://example.com/gen-%d", i), "NOS", time.Hour, []string{"Generative AI"},
			database.Quote{Name: "Sanne Bakker", Text: fmt.Sprintf("Uitspraak %d over generatieve AI.", i)})
	}

	r, err := env.engine.WeeklyReport(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, 4, r.Statistics.Articles)
	assert.Equal(t, len(r.Trends), r.Statistics.TrendingTopics)
	assert.Equal(t, len(r.Experts), r.Statistics.Experts)
	assert.Equal(t, len(r.Suggestions), r.Statistics.Suggestions)
	require.NotNil(t, r.Highlights.TopTopic)
	assert.Equal(t, "Generative AI", r.Highlights.TopTopic.Topic)
	require.NotNil(t, r.Highlights.TopExpert)
	assert.Equal(t, "Sanne Bakker", r.Highlights.TopExpert.Name)
}

func articlePage() string {
	var body strings.Builder
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&body, "<p>Alinea %d over kunstmatige intelligentie in het ziekenhuis en wat dit betekent voor artsen, verpleegkundigen en patiënten in Nederland.</p>", i+1)
	}
	body.WriteString(`<p>"Dit verandert de manier waarop we naar scans kijken," zegt Anna de Vries, hoogleraar bij het UMC Utrecht.</p>`)
	return `<html><head><title>AI in het ziekenhuis</title></head><body><article><h1>AI in het ziekenhuis</h1>` + body.String() + `</article></body></html>`
}

func TestFetchArticleWritesBackContent(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, articlePage())
	}))
	defer server.Close()

	env := newTestEnv(t, testConfig())
	articleURL := server.URL + "/artikel"
	storeArticle(t, env, articleURL, "NOS", time.Hour, []string{"AI in de zorg"})

	result, err := env.engine.FetchArticle(context.Background(), articleURL)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "direct", string(result.Method))
	assert.Contains(t, result.Content, "Alinea 5")
	require.Len(t, result.Quotes, 1)
	assert.Equal(t, "Anna de Vries", result.Quotes[0].Name)

	stored, err := env.repo.Get(context.Background(), articleURL)
	require.NoError(t, err)
	assert.Contains(t, stored.Content, "Alinea 5")
	require.Len(t, stored.Quotes, 1)

	cached, err := env.engine.FetchArticle(context.Background(), articleURL+"?utm_source=mail")
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchArticleFallsBackToSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	env := newTestEnv(t, testConfig())
	articleURL := server.URL + "/premium"
	storeArticle(t, env, articleURL, "FD", time.Hour, []string{"AI in finance"})

	result, err := env.engine.FetchArticle(context.Background(), articleURL)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.True(t, result.Paywalled)
	assert.Equal(t, "bypass", string(result.Method))
	assert.Equal(t, "Samenvatting over AI.", result.Content)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, KindBypassExhausted, result.Errors[0].Kind)
	assert.NotEmpty(t, result.Error)
}

func TestFetchArticleRejectsMalformedURL(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, err := env.engine.FetchArticle(context.Background(), "ftp://example.com/file")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestExtractContentFindsExpertsAfterScan(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed":
			now := time.Now().UTC()
			fmt.Fprint(w, rss(
				feedItem{
					title:   "Ziekenhuis zet AI in bij het beoordelen van scans",
					link:    server.URL + "/artikel/scans",
					summary: "Radiologen werken samen met kunstmatige intelligentie.",
					pubDate: now.Add(-time.Hour),
				},
				feedItem{
					title:   "AI-project in de zorg verdwenen",
					link:    server.URL + "/artikel/weg",
					summary: "Een proef met kunstmatige intelligentie is stopgezet.",
					pubDate: now.Add(-2 * time.Hour),
				},
			))
		case "/artikel/scans":
			fmt.Fprint(w, articlePage())
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	env := newTestEnv(t, testConfig(config.Source{Name: "NOS", URL: server.URL + "/feed"}))
	ctx := context.Background()

	scan, err := env.engine.Scan(ctx, 24)
	require.NoError(t, err)
	require.Equal(t, 2, scan.Stored)

	before, err := env.engine.Experts(ctx, ExpertsQuery{Period: "week", MinQuotes: 1})
	require.NoError(t, err)
	assert.Empty(t, before.Experts)

	result, err := env.engine.ExtractContent(ctx, 24)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pending)
	assert.Equal(t, 1, result.Extracted)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Quotes)
	assert.NotEmpty(t, result.Errors)

	after, err := env.engine.Experts(ctx, ExpertsQuery{Period: "week", MinQuotes: 1})
	require.NoError(t, err)
	require.Len(t, after.Experts, 1)
	assert.Equal(t, "Anna de Vries", after.Experts[0].Name)

	again, err := env.engine.ExtractContent(ctx, 24)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Pending, "extracted and recently failed articles are not fetched again")
}

func TestExtractContentRejectsInvalidWindow(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, err := env.engine.ExtractContent(context.Background(), 0)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}
