package droneapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/five82/dronewatch/internal/metrics"
	"github.com/five82/dronewatch/internal/version"
)

// Fetcher is implemented by *Client and lets callers substitute fakes in tests.
type Fetcher interface {
	FetchPage(ctx context.Context, endpoint string, limit, offset int) (Page, error)
	FetchOne(ctx context.Context, endpoint string) (gjson.Result, error)
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second

	maxResponseSize = 32 * 1024 * 1024
)

// Options configure a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
	Metrics    *metrics.Collector

	// OnRetry is called before each sleep between attempts.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Client talks to the drone API. It holds no per-call state and is safe for
// concurrent use; build one per process and pass it around.
type Client struct {
	baseURL     *url.URL
	token       string
	http        *http.Client
	maxAttempts int
	retryDelay  time.Duration
	userAgent   string
	logger      *zap.Logger
	metrics     *metrics.Collector
	onRetry     func(attempt int, delay time.Duration, err error)
}

// Page is the decoded envelope of one paginated response.
type Page struct {
	Count    int64
	Next     string
	Previous string
	Results  []gjson.Result
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     base,
		token:       strings.TrimSpace(opts.Token),
		http:        httpClient,
		maxAttempts: attempts,
		retryDelay:  delay,
		userAgent:   version.UserAgent(),
		logger:      logger.Named("droneapi"),
		metrics:     opts.Metrics,
		onRetry:     opts.OnRetry,
	}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchPage retrieves one page of endpoint. It blocks for the duration of the
// request and any retries; cancel ctx to abort.
func (c *Client) FetchPage(ctx context.Context, endpoint string, limit, offset int) (Page, error) {
	if c == nil {
		return Page{}, fmt.Errorf("client is nil")
	}
	endpoint = strings.Trim(strings.TrimSpace(endpoint), "/")
	if endpoint == "" || limit < 0 || offset < 0 {
		return Page{}, &APIError{
			Kind:     KindParse,
			Endpoint: endpoint,
			sentinel: ErrInvalidRequest,
			Err:      fmt.Errorf("endpoint=%q limit=%d offset=%d", endpoint, limit, offset),
		}
	}

	values := url.Values{}
	values.Set("format", "json")
	values.Set("limit", strconv.Itoa(limit))
	values.Set("offset", strconv.Itoa(offset))

	body, err := c.get(ctx, endpoint, values)
	if err != nil {
		return Page{}, err
	}

	results := body.Get("results")
	if results.Exists() && !results.IsArray() {
		return Page{}, &APIError{
			Kind:     KindParse,
			Endpoint: endpoint,
			sentinel: ErrMalformedResponse,
			Err:      errors.New("results is not an array"),
		}
	}
	return Page{
		Count:    body.Get("count").Int(),
		Next:     body.Get("next").String(),
		Previous: body.Get("previous").String(),
		Results:  results.Array(),
	}, nil
}

// FetchOne retrieves a single JSON object, e.g. "dronetypes/5".
func (c *Client) FetchOne(ctx context.Context, endpoint string) (gjson.Result, error) {
	if c == nil {
		return gjson.Result{}, fmt.Errorf("client is nil")
	}
	endpoint = strings.Trim(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return gjson.Result{}, &APIError{Kind: KindParse, sentinel: ErrInvalidRequest, Err: errors.New("empty endpoint")}
	}
	values := url.Values{}
	values.Set("format", "json")
	return c.get(ctx, endpoint, values)
}

func (c *Client) get(ctx context.Context, endpoint string, values url.Values) (gjson.Result, error) {
	reqURL := c.baseURL.JoinPath(endpoint)
	reqURL.Path += "/"
	reqURL.RawQuery = values.Encode()
	target := reqURL.String()

	started := time.Now()
	attempts := 0
	operation := func() (gjson.Result, error) {
		attempts++
		c.metrics.RecordAttempt(endpoint)
		return c.attempt(ctx, endpoint, target)
	}
	notify := func(err error, delay time.Duration) {
		c.metrics.RecordRetry(endpoint)
		c.logger.Warn("fetch attempt failed, retrying",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
			zap.Error(err))
		if c.onRetry != nil {
			c.onRetry(attempts, delay, err)
		}
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryDelay)),
		backoff.WithMaxTries(uint(c.maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		apiErr, outcome := c.classify(ctx, endpoint, attempts, err)
		c.metrics.RecordFetch(endpoint, outcome, time.Since(started))
		c.logger.Debug("fetch failed",
			zap.String("endpoint", endpoint),
			zap.String("outcome", outcome),
			zap.Error(apiErr))
		return gjson.Result{}, apiErr
	}
	c.metrics.RecordFetch(endpoint, metrics.OutcomeSuccess, time.Since(started))
	return body, nil
}

// attempt performs one request. Status and decode failures are wrapped with
// backoff.Permanent; transport failures are returned bare so they are retried.
func (c *Client) attempt(ctx context.Context, endpoint, target string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return gjson.Result{}, backoff.Permanent(&APIError{
			Kind: KindParse, Endpoint: endpoint, sentinel: ErrInvalidRequest, Err: err,
		})
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return gjson.Result{}, backoff.Permanent(err)
		}
		return gjson.Result{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return gjson.Result{}, backoff.Permanent(statusError(endpoint, resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		if ctx.Err() != nil {
			return gjson.Result{}, backoff.Permanent(err)
		}
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}
	if len(raw) > maxResponseSize {
		return gjson.Result{}, backoff.Permanent(&APIError{
			Kind: KindParse, Endpoint: endpoint, sentinel: ErrMalformedResponse,
			Err: fmt.Errorf("response exceeds %d bytes", maxResponseSize),
		})
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, backoff.Permanent(&APIError{
			Kind: KindParse, Endpoint: endpoint, sentinel: ErrMalformedResponse,
			Err: errors.New("body is not valid JSON"),
		})
	}
	body := gjson.ParseBytes(raw)
	if !body.IsObject() {
		return gjson.Result{}, backoff.Permanent(&APIError{
			Kind: KindParse, Endpoint: endpoint, sentinel: ErrMalformedResponse,
			Err: errors.New("body is not a JSON object"),
		})
	}
	return body, nil
}

func (c *Client) classify(ctx context.Context, endpoint string, attempts int, err error) (*APIError, string) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		apiErr.Attempts = attempts
		if apiErr.Kind == KindStatus {
			return apiErr, metrics.OutcomeStatusError
		}
		return apiErr, metrics.OutcomeMalformed
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		cause := err
		if !errors.Is(err, ctxErr) {
			cause = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return &APIError{
			Kind:        KindTransport,
			Endpoint:    endpoint,
			Attempts:    attempts,
			Err:         cause,
			interrupted: true,
		}, metrics.OutcomeInterrupted
	}
	return &APIError{
		Kind:     KindTransport,
		Endpoint: endpoint,
		Attempts: attempts,
		sentinel: ErrRetriesExhausted,
		Err:      err,
	}, metrics.OutcomeExhausted
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
