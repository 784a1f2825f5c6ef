package monitor

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/media-monitor/app/analysis"
	"github.com/lysyi3m/media-monitor/app/config"
	"github.com/lysyi3m/media-monitor/app/database"
	"github.com/lysyi3m/media-monitor/app/feed"
	"github.com/lysyi3m/media-monitor/app/metrics"
	"github.com/lysyi3m/media-monitor/app/paywall"
	"github.com/lysyi3m/media-monitor/app/report"
)

type Options struct {
	UserAgent    string
	OnTransition func(paywall.Transition)
	Now          func() time.Time
}

// Engine exposes the monitor operations on top of one configuration and
// one article store.
type Engine struct {
	cfg         config.Config
	repo        database.ArticleRepository
	fetcher     *feed.Fetcher
	classifier  *feed.Classifier
	quotes      *analysis.QuoteExtractor
	trends      *analysis.TrendAggregator
	experts     *analysis.ExpertAggregator
	suggestions *analysis.SuggestionGenerator
	articles    *paywall.ArticleFetcher
	cache       *cache.Cache
	attempted   *cache.Cache
	now         func() time.Time
}

// extractRetryAfter is how long an article whose full text could not be
// fetched is left alone by ExtractContent.
const extractRetryAfter = 24 * time.Hour

func NewEngine(cfg config.Config, repo database.ArticleRepository, httpClient *http.Client, opts Options) (*Engine, error) {
	classifier, err := feed.NewClassifier(cfg.AIPatterns, cfg.Topics)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	d := cfg.Defaults
	extractor := feed.NewContentExtractor()

	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), feed.FetcherOptions{
		Timeout:        d.GetTimeout(),
		Concurrency:    d.Concurrency,
		RateLimit:      d.RateLimit,
		Retries:        d.Retries,
		BackoffInitial: d.GetBackoffInitial(),
		UserAgent:      opts.UserAgent,
	})

	resolver := paywall.NewResolver(httpClient, cfg.Bypass, extractor, paywall.ResolverOptions{
		MinContentLength: d.MinContentLength,
		BackoffInitial:   d.GetBackoffInitial(),
		UserAgent:        opts.UserAgent,
		OnTransition:     opts.OnTransition,
	})

	articles := paywall.NewArticleFetcher(httpClient, extractor, resolver, paywall.FetcherOptions{
		Timeout:          d.GetTimeout(),
		MinContentLength: d.MinContentLength,
		UserAgent:        opts.UserAgent,
	})

	return &Engine{
		cfg:         cfg,
		repo:        repo,
		fetcher:     fetcher,
		classifier:  classifier,
		quotes:      analysis.NewQuoteExtractor(cfg.Attribution),
		trends:      analysis.NewTrendAggregator(cfg),
		experts:     analysis.NewExpertAggregator(),
		suggestions: analysis.NewSuggestionGenerator(cfg),
		articles:    articles,
		cache:       cache.New(d.GetCacheTTL(), 10*time.Minute),
		attempted:   cache.New(extractRetryAfter, time.Hour),
		now:         opts.Now,
	}, nil
}

func (e *Engine) Config() config.Config {
	return e.cfg
}

// Scan fetches every source, keeps entries published in the trailing
// hoursBack window and stores the AI-relevant ones.
func (e *Engine) Scan(ctx context.Context, hoursBack int) (ScanResult, error) {
	result := ScanResult{Articles: []database.Article{}, Errors: []ItemError{}}

	if hoursBack < 1 {
		return result, fmt.Errorf("%w: hours back must be positive, got %d", ErrInvalidArgument, hoursBack)
	}
	if len(e.cfg.Sources) == 0 {
		return result, fmt.Errorf("%w: no feed sources configured", ErrInvalidConfig)
	}

	started := e.now()
	cutoff := started.Add(-time.Duration(hoursBack) * time.Hour)

	fetched := e.fetcher.Run(ctx, e.cfg.Sources)
	result.Fetched = len(fetched.Entries)

	seen := make(map[string]int)
	failed := make(map[string]bool, len(fetched.Errors))
	for _, fetchErr := range fetched.Errors {
		failed[fetchErr.Source] = true
		result.Errors = append(result.Errors, itemError(fetchErr.Source, fetchErr))
	}
	for _, source := range e.cfg.Sources {
		metrics.RecordFeedFetch(source.Name, !failed[source.Name])
	}

	for _, entry := range fetched.Entries {
		if entry.PublishedAt.Before(cutoff) {
			result.Outdated++
			continue
		}

		classification := e.classifier.Run(entry.Text())
		if !classification.Relevant {
			result.Skipped++
			continue
		}

		canonical, err := feed.CanonicalizeURL(entry.Link)
		if err != nil {
			conflict := &database.StorageConflictError{URL: entry.Link, Reason: err.Error()}
			result.Errors = append(result.Errors, itemError(entry.Link, conflict))
			continue
		}

		article := database.Article{
			URL:         canonical,
			Title:       entry.Title,
			Source:      entry.Source,
			PublishedAt: entry.PublishedAt,
			Summary:     entry.Summary,
			Content:     entry.Content,
			Topics:      classification.Topics,
			AIRelevant:  true,
			Quotes:      e.quotes.Run(strings.Join([]string{entry.Summary, entry.Content}, "\n")),
		}

		upserted, err := e.repo.Upsert(ctx, article)
		if err != nil {
			slog.Warn("Failed to store article", "url", canonical, "error", err)
			result.Errors = append(result.Errors, itemError(canonical, err))
			continue
		}

		article.ID = upserted.ID

		// Syndicated entries share a canonical URL and are reported once
		if i, ok := seen[canonical]; ok {
			result.Articles[i] = article
			continue
		}
		seen[canonical] = len(result.Articles)

		if upserted.Created {
			result.Stored++
		} else {
			result.Updated++
		}
		result.Articles = append(result.Articles, article)
	}

	result.Duration = e.now().Sub(started)

	metrics.RecordArticles("stored", result.Stored)
	metrics.RecordArticles("updated", result.Updated)
	metrics.RecordArticles("skipped", result.Skipped)

	slog.Info("Scan completed",
		"hours_back", hoursBack,
		"fetched", result.Fetched,
		"stored", result.Stored,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", len(result.Errors))

	return result, nil
}

// Trending ranks topics of the period. A zero MinMentions uses the configured default.
func (e *Engine) Trending(ctx context.Context, query TrendingQuery) (TrendingResult, error) {
	period, err := parsePeriod(query.Period)
	if err != nil {
		return TrendingResult{}, err
	}
	if query.MinMentions < 0 {
		return TrendingResult{}, fmt.Errorf("%w: min mentions must not be negative", ErrInvalidArgument)
	}

	return e.trending(ctx, period, cmp.Or(query.MinMentions, e.cfg.Defaults.MinMentions), query.Topics)
}

func (e *Engine) trending(ctx context.Context, period analysis.Period, minMentions int, topics []string) (TrendingResult, error) {
	now := e.now()
	window := period.Duration()
	from := now.Add(-window)

	current, err := e.repo.Between(ctx, from, through(now))
	if err != nil {
		return TrendingResult{}, fmt.Errorf("failed to load current window: %w", err)
	}
	previous, err := e.repo.Between(ctx, from.Add(-window), from)
	if err != nil {
		return TrendingResult{}, fmt.Errorf("failed to load previous window: %w", err)
	}

	trends := e.trends.Run(current, previous, analysis.TrendOptions{
		MinMentions:     minMentions,
		Topics:          topics,
		Representatives: e.cfg.Defaults.Representatives,
	})

	return TrendingResult{
		Period:   period,
		From:     from,
		To:       now,
		Articles: len(current),
		Topics:   nonNil(trends),
		Errors:   []ItemError{},
	}, nil
}

func (e *Engine) Experts(ctx context.Context, query ExpertsQuery) (ExpertsResult, error) {
	period, err := parsePeriod(query.Period)
	if err != nil {
		return ExpertsResult{}, err
	}
	if query.MinQuotes < 0 {
		return ExpertsResult{}, fmt.Errorf("%w: min quotes must not be negative", ErrInvalidArgument)
	}

	experts, err := e.expertsFor(ctx, period, query.Topic, cmp.Or(query.MinQuotes, e.cfg.Defaults.MinQuotes))
	if err != nil {
		return ExpertsResult{}, err
	}

	return ExpertsResult{Period: period, Topic: query.Topic, Experts: experts, Errors: []ItemError{}}, nil
}

func (e *Engine) expertsFor(ctx context.Context, period analysis.Period, topic string, minQuotes int) ([]analysis.Expert, error) {
	articles, err := e.recent(ctx, period.Duration())
	if err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}

	return nonNil(e.experts.Run(articles, analysis.ExpertOptions{Topic: topic, MinQuotes: minQuotes})), nil
}

// Suggestions ranks episode ideas from this week's trends and experts
func (e *Engine) Suggestions(ctx context.Context, focusAreas []string) (SuggestionsResult, error) {
	suggestions, err := e.suggest(ctx, focusAreas)
	if err != nil {
		return SuggestionsResult{}, err
	}

	return SuggestionsResult{GeneratedAt: e.now(), Suggestions: suggestions, Errors: []ItemError{}}, nil
}

func (e *Engine) suggest(ctx context.Context, focusAreas []string) ([]analysis.TopicSuggestion, error) {
	trending, err := e.trending(ctx, analysis.PeriodWeek, e.cfg.Suggestions.MinMentions, nil)
	if err != nil {
		return nil, err
	}
	experts, err := e.expertsFor(ctx, analysis.PeriodWeek, "", 1)
	if err != nil {
		return nil, err
	}

	return e.suggestions.Run(trending.Topics, experts, focusAreas), nil
}

// FetchArticle retrieves the full text of url, bypassing paywalls when
// needed. Stored articles get the text and its quotes written back.
func (e *Engine) FetchArticle(ctx context.Context, rawURL string) (ArticleResult, error) {
	canonical, err := feed.CanonicalizeURL(rawURL)
	if err != nil {
		return ArticleResult{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	if cached, ok := e.cache.Get(canonical); ok {
		result := cached.(ArticleResult)
		result.Cached = true
		return result, nil
	}

	fetched := e.articles.Run(ctx, canonical)

	result := ArticleResult{
		URL:       canonical,
		Title:     fetched.Title,
		Content:   fetched.Content,
		Method:    fetched.Method,
		Service:   fetched.Service,
		Success:   fetched.Success,
		Paywalled: fetched.Paywalled,
		Errors:    []ItemError{},
	}
	if fetched.Err != nil {
		result.Error = fetched.Err.Error()
		result.Errors = append(result.Errors, itemError(canonical, fetched.Err))
	}

	stored, err := e.repo.Get(ctx, canonical)
	if err != nil {
		result.Errors = append(result.Errors, itemError(canonical, err))
	}

	if !fetched.Success {
		if result.Content == "" && stored != nil {
			result.Content = cmp.Or(stored.Content, stored.Summary)
		}
		if result.Title == "" && stored != nil {
			result.Title = stored.Title
		}
		return result, nil
	}

	result.Quotes = e.quotes.Run(fetched.Content)
	if stored != nil {
		if err := e.repo.UpdateContent(ctx, canonical, fetched.Content, result.Quotes); err != nil {
			slog.Warn("Failed to store article content", "url", canonical, "error", err)
			result.Errors = append(result.Errors, itemError(canonical, err))
		}
	}

	e.cache.Set(canonical, result, cache.DefaultExpiration)
	return result, nil
}

// ExtractContent fetches the full text of stored articles from the trailing
// hoursBack window that only carry their feed summary, and stores the text
// together with the quotes found in it. Articles that could not be fetched
// are skipped by later runs for a day.
func (e *Engine) ExtractContent(ctx context.Context, hoursBack int) (ExtractResult, error) {
	result := ExtractResult{Errors: []ItemError{}}

	if hoursBack < 1 {
		return result, fmt.Errorf("%w: hours back must be positive, got %d", ErrInvalidArgument, hoursBack)
	}

	started := e.now()
	articles, err := e.recent(ctx, time.Duration(hoursBack)*time.Hour)
	if err != nil {
		return result, fmt.Errorf("failed to load articles: %w", err)
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(max(e.cfg.Defaults.Concurrency, 1))

	for _, article := range articles {
		if article.Content != "" {
			continue
		}
		if _, skip := e.attempted.Get(article.URL); skip {
			continue
		}
		result.Pending++

		g.Go(func() error {
			fetched, err := e.FetchArticle(ctx, article.URL)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err != nil:
				result.Failed++
				result.Errors = append(result.Errors, itemError(article.URL, err))
			case !fetched.Success:
				result.Failed++
				result.Errors = append(result.Errors, fetched.Errors...)
			default:
				result.Extracted++
				result.Quotes += len(fetched.Quotes)
				return nil
			}

			e.attempted.SetDefault(article.URL, true)
			return nil
		})
	}
	g.Wait()

	result.Duration = e.now().Sub(started)
	metrics.RecordArticles("extracted", result.Extracted)

	slog.Info("Content extraction completed",
		"hours_back", hoursBack,
		"pending", result.Pending,
		"extracted", result.Extracted,
		"failed", result.Failed,
		"quotes", result.Quotes)

	return result, nil
}

// WeeklyReport compiles this week's trends, experts and suggestions
func (e *Engine) WeeklyReport(ctx context.Context) (report.Report, error) {
	trending, err := e.trending(ctx, analysis.PeriodWeek, e.cfg.Defaults.MinMentions, nil)
	if err != nil {
		return report.Report{}, err
	}
	experts, err := e.expertsFor(ctx, analysis.PeriodWeek, "", e.cfg.Defaults.MinQuotes)
	if err != nil {
		return report.Report{}, err
	}
	suggestions, err := e.suggest(ctx, nil)
	if err != nil {
		return report.Report{}, err
	}

	return report.Compile(trending.Topics, experts, suggestions, report.Options{
		Now:      e.now(),
		Window:   analysis.PeriodWeek.Duration(),
		Articles: trending.Articles,
	}), nil
}

// Digest returns the stored articles of a period, optionally for one topic
func (e *Engine) Digest(ctx context.Context, periodName, topic string) ([]database.Article, error) {
	period, err := parsePeriod(periodName)
	if err != nil {
		return nil, err
	}

	articles, err := e.recent(ctx, period.Duration())
	if err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}
	if topic == "" {
		return articles, nil
	}

	filtered := make([]database.Article, 0, len(articles))
	for _, article := range articles {
		for _, t := range article.Topics {
			if strings.EqualFold(t, topic) {
				filtered = append(filtered, article)
				break
			}
		}
	}
	return filtered, nil
}

func (e *Engine) SourceStats(ctx context.Context) ([]database.SourceStat, error) {
	return e.repo.SourceStats(ctx)
}

func (e *Engine) Info(ctx context.Context) (database.Info, error) {
	return e.repo.Info(ctx)
}

// Prune removes articles older than maxAge
func (e *Engine) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, fmt.Errorf("%w: retention must be positive", ErrInvalidArgument)
	}
	return e.repo.Prune(ctx, maxAge)
}

// recent returns the stored articles of the trailing window ending now
func (e *Engine) recent(ctx context.Context, window time.Duration) ([]database.Article, error) {
	now := e.now()
	return e.repo.Between(ctx, now.Add(-window), through(now))
}

// through returns an exclusive bound that still covers the second of t
func through(t time.Time) time.Time {
	return t.Truncate(time.Second).Add(time.Second)
}

func parsePeriod(s string) (analysis.Period, error) {
	period, err := analysis.ParsePeriod(s)
	if errors.Is(err, analysis.ErrUnknownPeriod) {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return period, err
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
