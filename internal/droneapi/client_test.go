package droneapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyTransport fails the first n round trips with a transport error.
type flakyTransport struct {
	failures int
	calls    atomic.Int32
	next     http.RoundTripper
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	n := f.calls.Add(1)
	if int(n) <= f.failures {
		return nil, errors.New("connection reset by peer")
	}
	return f.next.RoundTrip(r)
}

type retryLog struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (l *retryLog) record(_ int, d time.Duration, _ error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delays = append(l.delays, d)
}

func (l *retryLog) snapshot() []time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]time.Duration(nil), l.delays...)
}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func okHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestParseBaseURL_Normalizes(t *testing.T) {
	u, err := parseBaseURL("dronesim.example/api?x=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "/api/", u.Path)
	assert.Empty(t, u.RawQuery)
	assert.Empty(t, u.Fragment)

	_, err = parseBaseURL("   ")
	assert.Error(t, err)
}

func TestClient_FetchPageBuildsRequest(t *testing.T) {
	var gotPath, gotAuth, gotUA string
	var gotQuery url.Values
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		okHandler(`{"count":5,"next":"n","previous":null,"results":[{"id":1},{"id":2}]}`)(w, r)
	})

	c, err := NewClient(Options{BaseURL: srv.URL + "/api", Token: " secret "})
	require.NoError(t, err)

	page, err := c.FetchPage(context.Background(), "/drones/", 2, 4)
	require.NoError(t, err)

	assert.Equal(t, "/api/drones/", gotPath)
	assert.Equal(t, "json", gotQuery.Get("format"))
	assert.Equal(t, "2", gotQuery.Get("limit"))
	assert.Equal(t, "4", gotQuery.Get("offset"))
	assert.Equal(t, "Token secret", gotAuth)
	assert.Contains(t, gotUA, "dronewatch/")

	assert.Equal(t, int64(5), page.Count)
	assert.Equal(t, "n", page.Next)
	assert.Empty(t, page.Previous)
	require.Len(t, page.Results, 2)
	assert.Equal(t, int64(2), page.Results[1].Get("id").Int())
}

func TestClient_FetchPageRejectsInvalidInput(t *testing.T) {
	transport := &flakyTransport{next: http.DefaultTransport}
	c, err := NewClient(Options{BaseURL: "http://127.0.0.1:1", HTTPClient: &http.Client{Transport: transport}})
	require.NoError(t, err)

	for _, tc := range []struct {
		endpoint      string
		limit, offset int
	}{
		{"", 1, 0},
		{" / ", 1, 0},
		{"drones", -1, 0},
		{"drones", 1, -1},
	} {
		_, err := c.FetchPage(context.Background(), tc.endpoint, tc.limit, tc.offset)
		assert.ErrorIs(t, err, ErrInvalidRequest, "endpoint=%q limit=%d offset=%d", tc.endpoint, tc.limit, tc.offset)
	}
	assert.Zero(t, transport.calls.Load(), "invalid input must not reach the network")
}

func TestClient_RetriesTransportErrorsThenSucceeds(t *testing.T) {
	srv := newServer(t, okHandler(`{"results":[{"id":1}]}`))
	transport := &flakyTransport{failures: 2, next: http.DefaultTransport}
	log := &retryLog{}

	c, err := NewClient(Options{
		BaseURL:    srv.URL,
		RetryDelay: 5 * time.Millisecond,
		HTTPClient: &http.Client{Transport: transport},
		OnRetry:    log.record,
	})
	require.NoError(t, err)

	page, err := c.FetchPage(context.Background(), "drones", 10, 0)
	require.NoError(t, err)
	assert.Len(t, page.Results, 1)
	assert.Equal(t, int32(3), transport.calls.Load())
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}, log.snapshot())
}

func TestClient_RetryExhaustion(t *testing.T) {
	transport := &flakyTransport{failures: 100, next: http.DefaultTransport}
	log := &retryLog{}

	c, err := NewClient(Options{
		BaseURL:    "http://127.0.0.1:1",
		RetryDelay: time.Millisecond,
		HTTPClient: &http.Client{Transport: transport},
		OnRetry:    log.record,
	})
	require.NoError(t, err)

	_, err = c.FetchPage(context.Background(), "drones", 10, 0)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Equal(t, 3, apiErr.Attempts)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.False(t, apiErr.Interrupted())
	assert.True(t, apiErr.Retryable())
	assert.Equal(t, int32(3), transport.calls.Load())
	assert.Len(t, log.snapshot(), 2)
	assert.Equal(t, "API unreachable", UserMessage(err))
}

func TestClient_StatusErrorsAreTerminal(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    error
		message string
	}{
		{"not found", http.StatusNotFound, ErrEndpointNotFound, "endpoint not found"},
		{"unauthorized", http.StatusUnauthorized, ErrAuthFailed, "authentication failed, check the API token"},
		{"server error", http.StatusInternalServerError, ErrUnexpectedStatus, "API returned status 500"},
		{"forbidden", http.StatusForbidden, ErrUnexpectedStatus, "API returned status 403"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				http.Error(w, "nope", tt.status)
			})
			c, err := NewClient(Options{BaseURL: srv.URL, RetryDelay: time.Millisecond})
			require.NoError(t, err)

			_, err = c.FetchPage(context.Background(), "drones", 1, 0)
			require.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, KindStatus, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.False(t, apiErr.Retryable())
			assert.Equal(t, int32(1), calls.Load(), "status failures must not be retried")
			assert.Equal(t, tt.message, UserMessage(err))
		})
	}
}

func TestClient_MalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"not json":    "{not-json",
		"array":       `[1,2,3]`,
		"bad results": `{"results":{"id":1}}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, okHandler(body))
			c, err := NewClient(Options{BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = c.FetchPage(context.Background(), "drones", 1, 0)
			require.ErrorIs(t, err, ErrMalformedResponse)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, KindParse, apiErr.Kind)
		})
	}
}

func TestClient_CancelDuringRetrySleep(t *testing.T) {
	transport := &flakyTransport{failures: 100, next: http.DefaultTransport}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	c, err := NewClient(Options{
		BaseURL:    "http://127.0.0.1:1",
		RetryDelay: time.Hour,
		HTTPClient: &http.Client{Transport: transport},
		OnRetry:    func(int, time.Duration, error) { cancel() },
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.FetchPage(ctx, "drones", 1, 0)
		done <- err
	}()

	select {
	case err := <-done:
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.Interrupted())
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrRetriesExhausted)
		assert.Equal(t, int32(1), transport.calls.Load())
		assert.Equal(t, "request cancelled", UserMessage(err))
	case <-time.After(5 * time.Second):
		t.Fatal("FetchPage did not abort after cancellation")
	}
}

func TestClient_CancelDuringRequest(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c, err := NewClient(Options{BaseURL: srv.URL, RetryDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	t.Cleanup(cancel)

	_, err = c.FetchPage(ctx, "drones", 1, 0)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Interrupted())
	assert.Equal(t, 1, apiErr.Attempts)
}

func TestClient_FetchOne(t *testing.T) {
	var gotPath string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		okHandler(`{"id":5,"manufacturer":"DJI"}`)(w, r)
	})
	c, err := NewClient(Options{BaseURL: srv.URL + "/api/"})
	require.NoError(t, err)

	obj, err := c.FetchOne(context.Background(), "dronetypes/5")
	require.NoError(t, err)
	assert.Equal(t, "/api/dronetypes/5/", gotPath)
	assert.Equal(t, "DJI", obj.Get("manufacturer").String())

	_, err = c.FetchOne(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestNilClient(t *testing.T) {
	var c *Client
	_, err := c.FetchPage(context.Background(), "drones", 1, 0)
	assert.Error(t, err)
}
