package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const UserAgent = "curse2nix/curse2nix"

// RetryPolicy bounds how often and how patiently a request is retried.
// The delay before attempt n+1 is BaseDelay * 2^(n-1), capped at MaxDelay,
// plus up to the same amount of jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	BaseDelay:   time.Second,
	MaxDelay:    30 * time.Second,
}

// WithDefaults fills every field that is not positive from
// DefaultRetryPolicy, so a partial policy still backs off.
func (p RetryPolicy) WithDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Delay returns the wait after the given (1-based) failed attempt, without jitter.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// randDuration is a variable so tests can remove jitter.
var randDuration = func(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

// StatusError is returned for any response that is not 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
	// RetryAfter is the wait the server asked for on 429 or 503, if any.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s returned %s", e.URL, e.Status)
}

// Permanent reports whether retrying the same request cannot succeed.
func (e *StatusError) Permanent() bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusGone:
		return true
	}
	return false
}

// RetryError is returned once a RetryPolicy is exhausted.
type RetryError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("giving up on %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Fetcher.Retry returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err}
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date. It returns 0 when the header is missing or unusable.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func IsPermanent(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return true
	}
	var s *StatusError
	return errors.As(err, &s) && s.Permanent()
}

// DownloadSink receives a download body. Reset is called before every
// attempt so a body that failed halfway is not counted twice.
type DownloadSink interface {
	io.Writer
	Reset()
}

// Fetcher performs GET requests with bounded retries.
type Fetcher struct {
	client  *http.Client
	policy  RetryPolicy
	limiter *rate.Limiter
	header  http.Header
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithRetryPolicy replaces the default policy; fields left at zero keep
// their default value.
func WithRetryPolicy(policy RetryPolicy) FetcherOption {
	return func(f *Fetcher) {
		f.policy = policy.WithDefaults()
	}
}

// WithRateLimit throttles every request attempt made through the Fetcher.
func WithRateLimit(limiter *rate.Limiter) FetcherOption {
	return func(f *Fetcher) {
		f.limiter = limiter
	}
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: http.DefaultClient,
		policy: DefaultRetryPolicy,
		header: make(http.Header),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithHeader returns a copy of f that sends an extra header on every request.
// The copy shares the HTTP client and rate limiter.
func (f *Fetcher) WithHeader(key, value string) *Fetcher {
	cp := *f
	cp.header = f.header.Clone()
	cp.header.Set(key, value)
	return &cp
}

// Retry runs attempt until it succeeds, fails permanently, the context is
// done, or the policy runs out of attempts.
func (f *Fetcher) Retry(ctx context.Context, url string, attempt func(ctx context.Context) error) error {
	logger := zerolog.Ctx(ctx)
	maxAttempts := f.policy.MaxAttempts

	for n := 1; ; n++ {
		err := attempt(ctx)
		if err == nil {
			if n > 1 {
				logger.Debug().Str("url", url).Int("attempt", n).Msg("request succeeded after retry")
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if IsPermanent(err) {
			logger.Warn().Err(err).Str("url", url).Int("attempt", n).Msg("request failed permanently")
			return err
		}
		if n >= maxAttempts {
			logger.Warn().Err(err).Str("url", url).Int("attempt", n).Msg("request failed, no attempts left")
			return &RetryError{URL: url, Attempts: n, Err: err}
		}

		delay := f.policy.Delay(n)
		delay += randDuration(delay)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.RetryAfter > delay {
			delay = statusErr.RetryAfter
		}
		logger.Info().Err(err).Str("url", url).Int("attempt", n).Dur("retry_in", delay).Msg("request failed")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (f *Fetcher) get(ctx context.Context, url, accept string, handle func(resp *http.Response) error) error {
	return f.Retry(ctx, url, func(ctx context.Context) error {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Permanent(err)
		}
		for k, v := range f.header {
			req.Header[k] = v
		}
		req.Header.Set("User-Agent", UserAgent)
		req.Header.Set("Accept", accept)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			statusErr := &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
				statusErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
			}
			return statusErr
		}
		return handle(resp)
	})
}

// GetText returns the response body as a string.
func (f *Fetcher) GetText(ctx context.Context, url string) (string, error) {
	var text string
	err := f.get(ctx, url, "text/plain, */*", func(resp *http.Response) error {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		text = string(body)
		return nil
	})
	return text, err
}

// GetJSON decodes the response body into v. A body that fails to decode
// is retried like a network failure.
func (f *Fetcher) GetJSON(ctx context.Context, url string, v interface{}) error {
	return f.get(ctx, url, "application/json", func(resp *http.Response) error {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("failed to decode JSON response: %w", err)
		}
		return nil
	})
}

// Download streams the body of url into sink and returns the byte count.
func (f *Fetcher) Download(ctx context.Context, url string, sink DownloadSink) (int64, error) {
	var written int64
	err := f.get(ctx, url, "application/octet-stream", func(resp *http.Response) error {
		sink.Reset()
		n, err := io.Copy(sink, resp.Body)
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", url, err)
		}
		written = n
		return nil
	})
	return written, err
}
