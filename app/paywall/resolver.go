package paywall

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"

	"github.com/lysyi3m/media-monitor/app/config"
	"github.com/lysyi3m/media-monitor/app/feed"
	"github.com/lysyi3m/media-monitor/app/metrics"
)

const maxBodySize = 10 << 20

type State string

const (
	StateDirect        State = "direct"
	StateTryingService State = "trying_service"
	StateNextService   State = "next_service"
	StateSuccess       State = "success"
	StateExhausted     State = "exhausted"
)

// Transition is reported on every state change of a fetch
type Transition struct {
	URL     string
	State   State
	Service string
	Index   int
	Err     error
}

type ResolverOptions struct {
	MinContentLength int
	BackoffInitial   time.Duration
	UserAgent        string
	OnTransition     func(Transition)
}

type Resolution struct {
	Title    string
	Content  string
	Service  string
	Attempts int
}

// Resolver tries bypass services strictly in ascending priority order and
// returns the first usable content.
type Resolver struct {
	httpClient *http.Client
	services   []config.BypassService
	extractor  *feed.ContentExtractor
	opts       ResolverOptions
}

func NewResolver(httpClient *http.Client, services []config.BypassService, extractor *feed.ContentExtractor, opts ResolverOptions) *Resolver {
	sorted := make([]config.BypassService, len(services))
	copy(sorted, services)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = 500 * time.Millisecond
	}

	return &Resolver{
		httpClient: httpClient,
		services:   sorted,
		extractor:  extractor,
		opts:       opts,
	}
}

func (r *Resolver) Run(ctx context.Context, targetURL string) (Resolution, error) {
	exhausted := &BypassExhaustedError{URL: targetURL}
	total := 0

	for i, service := range r.services {
		r.notify(Transition{URL: targetURL, State: StateTryingService, Service: service.Name, Index: i})

		attempts := 0
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = r.opts.BackoffInitial

		resolution, err := backoff.Retry(ctx, func() (Resolution, error) {
			attempts++
			resolution, err := r.attempt(ctx, service, targetURL)
			metrics.RecordBypassAttempt(service.Name, err == nil)
			if err != nil {
				slog.Debug("Bypass attempt failed", "service", service.Name, "url", targetURL, "attempt", attempts, "error", err)
			}
			return resolution, err
		}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(service.Retries+1)))

		total += attempts
		if err == nil {
			resolution.Service = service.Name
			resolution.Attempts = total
			r.notify(Transition{URL: targetURL, State: StateSuccess, Service: service.Name, Index: i})
			return resolution, nil
		}

		exhausted.Attempts = append(exhausted.Attempts, ServiceError{Service: service.Name, Attempts: attempts, Err: err})
		if ctx.Err() != nil {
			break
		}
		if i < len(r.services)-1 {
			r.notify(Transition{URL: targetURL, State: StateNextService, Service: service.Name, Index: i, Err: err})
		}
	}

	r.notify(Transition{URL: targetURL, State: StateExhausted, Err: exhausted})
	return Resolution{Attempts: total}, exhausted
}

func (r *Resolver) attempt(ctx context.Context, service config.BypassService, targetURL string) (Resolution, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, service.GetTimeout())
	defer cancel()

	req, err := newServiceRequest(timeoutCtx, service, targetURL)
	if err != nil {
		return Resolution{}, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", r.opts.UserAgent)

	status, data, err := doRequest(r.httpClient, req)
	if err != nil {
		return Resolution{}, err
	}
	if status < 200 || status > 299 {
		return Resolution{}, fmt.Errorf("HTTP error: %d", status)
	}

	return r.check(data, req.URL)
}

// check applies the sanity rules: no error page and enough readable text
func (r *Resolver) check(data []byte, pageURL *url.URL) (Resolution, error) {
	if len(data) == 0 {
		return Resolution{}, errors.New("empty response body")
	}

	inspection, err := Inspect(data)
	if err != nil {
		return Resolution{}, err
	}
	if inspection.ErrorPage {
		return Resolution{}, fmt.Errorf("error page: %q", inspection.Title)
	}

	extracted, err := r.extractor.Run(data, pageURL)
	if err != nil {
		return Resolution{}, err
	}
	if length := utf8.RuneCountInString(extracted.Text); length < r.opts.MinContentLength {
		return Resolution{}, fmt.Errorf("content too short: %d characters", length)
	}

	return Resolution{Title: cmp.Or(extracted.Title, inspection.Title), Content: extracted.Text}, nil
}

func (r *Resolver) notify(t Transition) {
	if r.opts.OnTransition != nil {
		r.opts.OnTransition(t)
	}
}

// newServiceRequest substitutes the target into the service template. POST
// services also receive the target as the form value "url".
func newServiceRequest(ctx context.Context, service config.BypassService, targetURL string) (*http.Request, error) {
	endpoint := strings.ReplaceAll(service.URL, "{url}", targetURL)

	if service.GetMethod() == http.MethodPost {
		form := url.Values{"url": {targetURL}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

func doRequest(client *http.Client, req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to fetch %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, data, nil
}
