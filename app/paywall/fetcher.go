package paywall

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/media-monitor/app/feed"
	"github.com/lysyi3m/media-monitor/app/metrics"
)

type Method string

const (
	MethodDirect Method = "direct"
	MethodBypass Method = "bypass"
)

type FetchResult struct {
	URL       string
	Title     string
	Content   string // partial direct text when Success is false
	Method    Method
	Service   string
	Success   bool
	Paywalled bool
	Err       error
}

type FetcherOptions struct {
	Timeout          time.Duration
	MinContentLength int
	UserAgent        string
}

// ArticleFetcher retrieves full article text, falling back to the
// Resolver when the direct fetch is blocked or truncated.
type ArticleFetcher struct {
	httpClient *http.Client
	extractor  *feed.ContentExtractor
	resolver   *Resolver
	opts       FetcherOptions
}

func NewArticleFetcher(httpClient *http.Client, extractor *feed.ContentExtractor, resolver *Resolver, opts FetcherOptions) *ArticleFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &ArticleFetcher{
		httpClient: httpClient,
		extractor:  extractor,
		resolver:   resolver,
		opts:       opts,
	}
}

// Run never returns a Go error: failures are reported in the result so the
// caller can fall back to the stored summary.
func (f *ArticleFetcher) Run(ctx context.Context, targetURL string) FetchResult {
	f.resolver.notify(Transition{URL: targetURL, State: StateDirect})

	result := FetchResult{URL: targetURL, Method: MethodDirect}

	title, content, err := f.direct(ctx, targetURL)
	if err == nil {
		result.Title = title
		result.Content = content
		result.Success = true
		metrics.RecordArticleFetch(string(MethodDirect), true)
		return result
	}

	var blocked *paywallError
	result.Paywalled = errors.As(err, &blocked)
	result.Title = title
	result.Content = content
	metrics.RecordArticleFetch(string(MethodDirect), false)

	slog.Info("Direct fetch failed, trying bypass services", "url", targetURL, "paywalled", result.Paywalled, "error", err)

	resolution, err := f.resolver.Run(ctx, targetURL)
	result.Method = MethodBypass
	if err != nil {
		result.Err = err
		metrics.RecordArticleFetch(string(MethodBypass), false)
		slog.Warn("Article fetch failed", "url", targetURL, "error", err)
		return result
	}

	result.Title = cmp.Or(resolution.Title, result.Title)
	result.Content = resolution.Content
	result.Service = resolution.Service
	result.Success = true
	metrics.RecordArticleFetch(string(MethodBypass), true)

	return result
}

type paywallError struct {
	reason string
}

func (e *paywallError) Error() string {
	return "paywall detected: " + e.reason
}

// direct returns whatever it could extract along with the failure, so a
// truncated teaser is still available to the caller
func (f *ArticleFetcher) direct(ctx context.Context, targetURL string) (string, string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	status, data, err := doRequest(f.httpClient, req)
	if err != nil {
		return "", "", err
	}
	if BlockedStatus(status) {
		return "", "", &paywallError{reason: fmt.Sprintf("HTTP %d", status)}
	}
	if status < 200 || status > 299 {
		return "", "", fmt.Errorf("HTTP error: %d", status)
	}

	inspection, err := Inspect(data)
	if err != nil {
		return "", "", err
	}

	extracted, err := f.extractor.Run(data, req.URL)
	if err != nil {
		return inspection.Title, "", &paywallError{reason: err.Error()}
	}
	title := cmp.Or(extracted.Title, inspection.Title)

	if inspection.Paywalled {
		return title, extracted.Text, &paywallError{reason: "paywall marker"}
	}
	if length := utf8.RuneCountInString(extracted.Text); length < f.opts.MinContentLength {
		return title, extracted.Text, &paywallError{reason: fmt.Sprintf("content too short: %d characters", length)}
	}

	return title, extracted.Text, nil
}
