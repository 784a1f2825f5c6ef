package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lysyi3m/media-monitor/app/config"
)

type FetcherOptions struct {
	Timeout        time.Duration
	Concurrency    int
	RateLimit      float64 // requests per second, 0 disables limiting
	Retries        int
	BackoffInitial time.Duration
	UserAgent      string
}

// Fetcher retrieves all configured feeds concurrently
type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	limiter    *rate.Limiter
	opts       FetcherOptions
	now        func() time.Time
}

func NewFetcher(httpClient *http.Client, parser *Parser, opts FetcherOptions) *Fetcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = 500 * time.Millisecond
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		limiter:    rate.NewLimiter(limit, 1),
		opts:       opts,
		now:        time.Now,
	}
}

// Run fetches every source. A failing source is recorded in the result and
// never aborts the batch. Entries are sorted newest first so the merged
// sequence does not depend on network completion order.
func (f *Fetcher) Run(ctx context.Context, sources []config.Source) FetchResult {
	var (
		mu     sync.Mutex
		result FetchResult
	)

	g := new(errgroup.Group)
	g.SetLimit(f.opts.Concurrency)

	for _, source := range sources {
		g.Go(func() error {
			entries, err := f.fetchSource(ctx, source)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				slog.Warn("Feed fetch failed", "source", source.Name, "kind", string(err.Kind), "error", err)
				result.Errors = append(result.Errors, err)
				return nil
			}

			slog.Debug("Feed fetched", "source", source.Name, "entries", len(entries))
			result.Entries = append(result.Entries, entries...)
			return nil
		})
	}

	g.Wait()

	SortEntries(result.Entries)
	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].Source < result.Errors[j].Source
	})

	return result
}

func (f *Fetcher) fetchSource(ctx context.Context, source config.Source) ([]Entry, *SourceFetchError) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.opts.BackoffInitial

	data, err := backoff.Retry(ctx, func() ([]byte, error) {
		data, fetchErr := f.fetchFeed(ctx, source)
		if fetchErr == nil {
			return data, nil
		}
		if fetchErr.Kind == FetchErrorStatus && fetchErr.StatusCode < http.StatusInternalServerError {
			return nil, backoff.Permanent(fetchErr)
		}
		return nil, fetchErr
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(f.opts.Retries+1)))
	if err != nil {
		var fetchErr *SourceFetchError
		if errors.As(err, &fetchErr) {
			return nil, fetchErr
		}
		return nil, &SourceFetchError{Source: source.Name, URL: source.URL, Kind: classifyError(err), Err: err}
	}

	entries, err := f.parser.Run(data, source.Name, f.now())
	if err != nil {
		return nil, &SourceFetchError{Source: source.Name, URL: source.URL, Kind: FetchErrorMalformed, Err: err}
	}

	return entries, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, source config.Source) ([]byte, *SourceFetchError) {
	fail := func(kind FetchErrorKind, err error) *SourceFetchError {
		return &SourceFetchError{Source: source.Name, URL: source.URL, Kind: kind, Err: err}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fail(classifyError(err), fmt.Errorf("rate limiter: %w", err))
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", source.URL, nil)
	if err != nil {
		return nil, fail(FetchErrorNetwork, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fail(classifyError(err), fmt.Errorf("failed to fetch feed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SourceFetchError{
			Source:     source.Name,
			URL:        source.URL,
			Kind:       FetchErrorStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(classifyError(err), fmt.Errorf("failed to read response body: %w", err))
	}

	return data, nil
}

// SortEntries orders entries newest first, then by source and link
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Link < b.Link
	})
}

func classifyError(err error) FetchErrorKind {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return FetchErrorTimeout
	}
	return FetchErrorNetwork
}
