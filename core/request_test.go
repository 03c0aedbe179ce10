package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Millisecond,
	MaxDelay:    5 * time.Millisecond,
}

func noJitter(t *testing.T) {
	t.Helper()
	orig := randDuration
	randDuration = func(time.Duration) time.Duration { return 0 }
	t.Cleanup(func() { randDuration = orig })
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 5*time.Second, p.Delay(4))
	assert.Equal(t, 5*time.Second, p.Delay(40))

	unbounded := RetryPolicy{BaseDelay: time.Second}
	assert.Equal(t, 8*time.Second, unbounded.Delay(4))
}

func TestFetcherGetJSONRetriesUntilSuccess(t *testing.T) {
	noJitter(t)
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			_, _ = w.Write([]byte(`{"name": "trunc`))
		default:
			_, _ = w.Write([]byte(`{"name": "Foo"}`))
		}
	}))
	defer ts.Close()

	f := NewFetcher(WithRetryPolicy(fastPolicy))
	var out struct {
		Name string `json:"name"`
	}
	err := f.GetJSON(context.Background(), ts.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, "Foo", out.Name)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetcherGivesUpAfterMaxAttempts(t *testing.T) {
	noJitter(t)
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	f := NewFetcher(WithRetryPolicy(fastPolicy))
	_, err := f.GetText(context.Background(), ts.URL)
	require.Error(t, err)

	var retryErr *RetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, 3, retryErr.Attempts)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetcherPermanentStatusIsNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer ts.Close()

	f := NewFetcher(WithRetryPolicy(fastPolicy))
	_, err := f.GetText(context.Background(), ts.URL)
	require.Error(t, err)

	var retryErr *RetryError
	assert.False(t, errors.As(err, &retryErr))
	assert.True(t, IsPermanent(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetcherStopsOnContextCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	f := NewFetcher(WithRetryPolicy(RetryPolicy{MaxAttempts: 100, BaseDelay: time.Hour}))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.GetText(ctx, ts.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestFetcherWithHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("x-api-key")))
	}))
	defer ts.Close()

	base := NewFetcher(WithRetryPolicy(fastPolicy))
	keyed := base.WithHeader("x-api-key", "secret")

	got, err := keyed.GetText(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "secret", got)

	got, err = base.GetText(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestRetryPermanentWrapper(t *testing.T) {
	f := NewFetcher(WithRetryPolicy(fastPolicy))
	calls := 0
	cause := errors.New("bad input")
	err := f.Retry(context.Background(), "test", func(context.Context) error {
		calls++
		return Permanent(cause)
	})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
	assert.Nil(t, Permanent(nil))
}

func TestRetryPolicyWithDefaults(t *testing.T) {
	tests := []struct {
		name   string
		policy RetryPolicy
		want   RetryPolicy
	}{
		{"Zero", RetryPolicy{}, DefaultRetryPolicy},
		{"Attempts only", RetryPolicy{MaxAttempts: 50}, RetryPolicy{MaxAttempts: 50, BaseDelay: time.Second, MaxDelay: 30 * time.Second}},
		{"Negative delay", RetryPolicy{MaxAttempts: 2, BaseDelay: -time.Second}, RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second, MaxDelay: 30 * time.Second}},
		{"Cap below base", RetryPolicy{MaxAttempts: 2, BaseDelay: time.Minute, MaxDelay: time.Second}, RetryPolicy{MaxAttempts: 2, BaseDelay: time.Minute, MaxDelay: time.Minute}},
		{"Complete", fastPolicy, fastPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.WithDefaults())
		})
	}
}

func TestFetcherPartialPolicyStillBacksOff(t *testing.T) {
	noJitter(t)
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	f := NewFetcher(WithRetryPolicy(RetryPolicy{MaxAttempts: 2}))

	start := time.Now()
	_, err := f.GetText(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, time.Since(start), DefaultRetryPolicy.BaseDelay)
}

func TestFetcherHonoursRetryAfter(t *testing.T) {
	noJitter(t)
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	f := NewFetcher(WithRetryPolicy(fastPolicy))

	start := time.Now()
	text, err := f.GetText(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"Missing", "", 0},
		{"Seconds", "7", 7 * time.Second},
		{"Negative seconds", "-3", 0},
		{"HTTP date", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{"Date in the past", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"Garbage", "soon", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRetryAfter(tt.value, now))
		})
	}
}
