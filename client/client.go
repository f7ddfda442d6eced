package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/restops/cabinet"
	"github.com/jonwraymond/restops/locator"
	"github.com/jonwraymond/restops/observe"
	"github.com/jonwraymond/restops/schema"
	"github.com/jonwraymond/restops/secret"
	"github.com/jonwraymond/restops/session"
)

// Session is the slice of session state the engine needs: a bearer
// token to attach, an acting account for discovery, and a sink for
// authentication results. *session.Session satisfies it.
type Session interface {
	Token() string
	AccountID() string
	SetAuthentication(auth session.Authentication)
}

// Config configures a Client. The zero value is usable for literal-URL
// requests; service resolution needs at least Matrix and ServiceStack.
type Config struct {
	// ServiceStack is the descriptor id of the default API stack
	// (resolved through Matrix).
	ServiceStack string

	// Residency is the default residency for stack resolution.
	Residency string

	// Timeout bounds each network attempt. Defaults to 30s.
	Timeout time.Duration

	// DefaultTTL is the cache lifetime applied when a request opts into
	// caching without naming a duration. Defaults to 60s.
	DefaultTTL time.Duration

	// DisableEndpoints turns off endpoint discovery engine-wide.
	DisableEndpoints bool

	// DefaultServiceList seeds the per-account discovery service list.
	DefaultServiceList []string

	// CollectLog enables the execution log.
	CollectLog bool

	// HTTPClient overrides the transport. Timeout is not applied to a
	// caller-supplied client.
	HTTPClient *http.Client

	// Matrix resolves service stack descriptors. A fresh empty matrix is
	// created when nil.
	Matrix *locator.Matrix

	// Session supplies the bearer token and acting account.
	Session Session

	// Observer receives traces, metrics and logs. Defaults to no-op.
	Observer observe.Observer

	// Validator checks response payloads for requests that name a schema.
	Validator *schema.Validator

	// Credentials resolves secret references in Authenticate inputs.
	Credentials *secret.Resolver
}

// Client executes requests against logical services with caching,
// in-flight de-duplication, retry and endpoint discovery.
//
// Contract:
//   - concurrent GETs sharing a cache key collapse to one network call
//   - mutating methods invalidate the cache entry for their URL first
//   - a Client is safe for concurrent use
type Client struct {
	cfg       Config
	http      *http.Client
	matrix    *locator.Matrix
	sess      Session
	obs       observe.Observer
	validator *schema.Validator
	creds     *secret.Resolver
	disc      *discoveryTable

	mu        sync.Mutex
	cache     *cabinet.Cabinet
	flight    *singleflight.Group
	execLog   []LogItem
	lastErr   *APIError
	listeners []Listener
}

// New builds a Client, filling unset Config fields with defaults.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Minute
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	matrix := cfg.Matrix
	if matrix == nil {
		matrix = locator.NewMatrix()
	}
	obs := cfg.Observer
	if obs == nil {
		obs = observe.Noop()
	}
	return &Client{
		cfg:       cfg,
		http:      httpClient,
		matrix:    matrix,
		sess:      cfg.Session,
		obs:       obs,
		validator: cfg.Validator,
		creds:     cfg.Credentials,
		disc:      newDiscoveryTable(),
		cache:     cabinet.New("client_cache"),
		flight:    &singleflight.Group{},
	}
}

// Matrix exposes the location matrix for registration and context
// changes.
func (c *Client) Matrix() *locator.Matrix { return c.matrix }

// Request starts a fluent request builder.
func (c *Client) Request(method string) *Builder {
	return &Builder{c: c, r: Request{Method: method}}
}

// Get executes r as a GET.
func (c *Client) Get(ctx context.Context, r Request) (*Response, error) {
	r.Method = http.MethodGet
	return c.execute(ctx, r)
}

// Post executes r as a POST.
func (c *Client) Post(ctx context.Context, r Request) (*Response, error) {
	r.Method = http.MethodPost
	return c.execute(ctx, r)
}

// Put executes r as a PUT.
func (c *Client) Put(ctx context.Context, r Request) (*Response, error) {
	r.Method = http.MethodPut
	return c.execute(ctx, r)
}

// Delete executes r as a DELETE.
func (c *Client) Delete(ctx context.Context, r Request) (*Response, error) {
	r.Method = http.MethodDelete
	return c.execute(ctx, r)
}

// Form executes r as a POST with a URL-encoded form body.
func (c *Client) Form(ctx context.Context, r Request) (*Response, error) {
	if r.Method == "" {
		r.Method = http.MethodPost
	}
	return c.execute(ctx, r)
}

// Fetch executes r as a GET.
//
// Deprecated: use Get.
func (c *Client) Fetch(ctx context.Context, r Request) (*Response, error) {
	return c.Get(ctx, r)
}

// Set executes r as a PUT.
//
// Deprecated: use Put.
func (c *Client) Set(ctx context.Context, r Request) (*Response, error) {
	return c.Put(ctx, r)
}

// AddListener registers a listener for client events.
func (c *Client) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// LastError returns the most recent non-2xx API error, or nil.
func (c *Client) LastError() *APIError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Reset returns the client to its initial state: cache, in-flight
// groups, discovery state, execution log, last error and listeners are
// all discarded. Intended for test isolation.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = cabinet.New("client_cache")
	c.flight = &singleflight.Group{}
	c.disc = newDiscoveryTable()
	c.execLog = nil
	c.lastErr = nil
	c.listeners = nil
}

func (c *Client) cacheRef() *cabinet.Cabinet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache
}

func (c *Client) flightRef() *singleflight.Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flight
}

func (c *Client) captureError(err *APIError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
}

func (c *Client) dispatch(ev Event) {
	c.mu.Lock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}

// execute is the single entry point behind every verb method and the
// builder. It resolves the URL, consults the cache, collapses
// concurrent identical GETs and hands off to the retry loop.
func (c *Client) execute(ctx context.Context, r Request) (*Response, error) {
	if err := c.normalize(&r); err != nil {
		return nil, err
	}
	fullURL, err := c.resolveURL(ctx, &r)
	if err != nil {
		return nil, err
	}

	key := r.CacheKey
	if key == "" {
		key = fullURL
	}
	ttl := r.TTL
	if ttl <= 0 && r.CacheDefault {
		ttl = c.cfg.DefaultTTL
	}

	if r.Method == http.MethodGet {
		cache := c.cacheRef()
		cacheable := ttl > 0 && !r.DisableCache
		if cacheable {
			if hit, ok := cache.Get(key, nil, false).(*Response); ok {
				return hit, nil
			}
		}
		v, derr, _ := c.flightRef().Do(key, func() (any, error) {
			resp, err := c.do(ctx, &r, fullURL)
			if err != nil {
				return nil, err
			}
			if cacheable {
				cache.Set(key, resp, ttl)
			}
			return resp, nil
		})
		if derr != nil {
			return nil, derr
		}
		return v.(*Response), nil
	}

	// Writes make any cached read of the same resource stale.
	cache := c.cacheRef()
	cache.Delete(fullURL)
	if r.CacheKey != "" {
		cache.Delete(r.CacheKey)
	}
	return c.do(ctx, &r, fullURL)
}

// normalize applies engine defaults and encodes the body once.
func (c *Client) normalize(r *Request) error {
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	r.Method = strings.ToUpper(r.Method)
	if r.URL == "" && r.ServiceName == "" {
		return ErrMissingService
	}
	if r.ServiceStack == "" {
		r.ServiceStack = c.cfg.ServiceStack
	}
	if r.Residency == "" {
		r.Residency = c.cfg.Residency
	}
	if r.ContextAccountID != "" {
		r.AccountID = r.ContextAccountID
	}
	if r.RetryCount < 0 {
		r.RetryCount = 0
	}
	if r.RetryInterval <= 0 {
		r.RetryInterval = DefaultRetryInterval
	}
	return encodeBody(r)
}

// resolveURL produces the absolute request URL. Literal URLs pass
// through; otherwise the base comes from endpoint discovery when
// enabled, falling back to the stack descriptor, and the path is
// assembled as /<service>[/<version>][/<account>][/<path>].
func (c *Client) resolveURL(ctx context.Context, r *Request) (string, error) {
	if r.URL != "" {
		return withQuery(r.URL, r.Params), nil
	}

	base := ""
	if !r.NoEndpointsResolution && !c.cfg.DisableEndpoints {
		acct := r.AccountID
		if acct == "" && c.sess != nil {
			acct = c.sess.AccountID()
		}
		if acct != "" && acct != "0" {
			host, err := c.endpointFor(ctx, r, acct)
			if err != nil {
				c.obs.Logger().Warn(ctx, "endpoint discovery failed, using stack default",
					observe.F("service", r.ServiceName), observe.F("error", err.Error()))
			} else {
				base = host
			}
		}
	}
	if base == "" {
		base = c.stackURI(r)
	}
	if base == "" {
		return "", fmt.Errorf("%w: service %q stack %q", ErrUnresolvedEndpoint, r.ServiceName, r.ServiceStack)
	}

	var b strings.Builder
	b.WriteString(strings.TrimSuffix(base, "/"))
	b.WriteString("/")
	b.WriteString(r.ServiceName)
	if r.Version != "" {
		b.WriteString("/")
		b.WriteString(r.Version)
	}
	if r.AccountID != "" && r.AccountID != "0" {
		b.WriteString("/")
		b.WriteString(r.AccountID)
	}
	if p := strings.TrimPrefix(r.Path, "/"); p != "" {
		b.WriteString("/")
		b.WriteString(p)
	}
	return withQuery(b.String(), r.Params), nil
}

// stackURI resolves the request's stack descriptor to a full URI,
// honoring a per-request residency override.
func (c *Client) stackURI(r *Request) string {
	if r.ServiceStack == "" {
		return ""
	}
	lctx := c.matrix.Context()
	if r.Residency != "" {
		lctx.Residency = r.Residency
	}
	d := c.matrix.ResolveIn(r.ServiceStack, lctx)
	if d == nil {
		return ""
	}
	return c.matrix.FullURI(d)
}

func withQuery(rawURL string, params url.Values) string {
	if len(params) == 0 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + params.Encode()
}

// do wraps the retry loop with tracing, response validation and
// metrics.
func (c *Client) do(ctx context.Context, r *Request, fullURL string) (*Response, error) {
	meta := observe.RequestMeta{
		Service:   r.ServiceName,
		Method:    r.Method,
		Host:      hostOf(fullURL),
		AccountID: r.AccountID,
	}
	ctx, span := c.obs.Tracer().StartSpan(ctx, meta)
	start := time.Now()

	resp, err := c.attempt(ctx, r, fullURL)

	if err == nil && r.Schema != "" && c.validator != nil {
		if verr := c.validator.Validate(r.Schema, resp.Body); verr != nil {
			resp, err = nil, verr
		}
	}
	if err == nil && r.Converter != nil {
		decoded, cerr := r.Converter(resp.Body)
		if cerr != nil {
			resp, err = nil, fmt.Errorf("client: convert response: %w", cerr)
		} else {
			resp.Decoded = decoded
		}
	}

	var status int
	var size int64
	if resp != nil {
		status = resp.Status
		size = int64(len(resp.Body))
	} else {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			status = apiErr.Status
			size = int64(len(apiErr.Body))
		}
	}
	c.obs.Metrics().RecordRequest(ctx, meta, status, size, time.Since(start), err)
	c.obs.Tracer().EndSpan(span, err)
	return resp, err
}

// attempt runs the linear-backoff retry loop. Attempts are 0-indexed
// and retried only while attempt < RetryCount; retried URLs carry a
// cache-buster parameter. Terminal statuses (2xx success, 4xx caller
// error) exit immediately.
func (c *Client) attempt(ctx context.Context, r *Request, fullURL string) (*Response, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		reqURL := fullURL
		if attempt > 0 {
			reqURL = appendCacheBuster(fullURL)
		}

		resp, err := c.roundTrip(ctx, r, reqURL)
		switch {
		case err != nil:
			lastErr = err
		case resp.Status < 300:
			return resp, nil
		default:
			apiErr := &APIError{
				Status:     resp.Status,
				StatusText: resp.StatusText,
				URL:        resp.URL,
				Header:     resp.Header,
				Body:       resp.Body,
			}
			c.captureError(apiErr)
			lastErr = apiErr
			if !retryableStatus(resp.Status) {
				return nil, apiErr
			}
		}

		if attempt >= r.RetryCount {
			return nil, lastErr
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay(r.RetryInterval, attempt)):
		}
	}
}

// roundTrip performs one network attempt: header assembly, listener
// dispatch, token attachment, the wire call and body read.
func (c *Client) roundTrip(ctx context.Context, r *Request, reqURL string) (*Response, error) {
	var body io.Reader
	if len(r.body) > 0 {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}

	headers := http.Header{}
	for k, vs := range r.Headers {
		for _, v := range vs {
			headers.Add(k, v)
		}
	}
	if headers.Get("Accept") == "" {
		headers.Set("Accept", "application/json")
	}
	if r.contentType != "" && headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", r.contentType)
	}
	if c.sess != nil &&
		headers.Get("X-AIMS-Auth-Token") == "" &&
		headers.Get("X-AIMS-Session-Token") == "" &&
		headers.Get("Authorization") == "" {
		if token := c.sess.Token(); token != "" {
			headers.Set("X-AIMS-Auth-Token", token)
		}
	}

	c.dispatch(&PreRequestEvent{Method: r.Method, URL: reqURL, Headers: headers})
	req.Header = headers

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		c.appendLog(LogItem{Method: r.Method, URL: reqURL, Duration: time.Since(start), Error: err.Error()})
		c.obs.Logger().Warn(ctx, "request transport failure",
			observe.F("method", r.Method), observe.F("url", reqURL), observe.F("error", err.Error()))
		return nil, fmt.Errorf("client: %s %s: %w", r.Method, reqURL, err)
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.appendLog(LogItem{Method: r.Method, URL: reqURL, Status: httpResp.StatusCode, Duration: time.Since(start), Error: err.Error()})
		return nil, fmt.Errorf("client: read response: %w", err)
	}

	resp := &Response{
		Status:     httpResp.StatusCode,
		StatusText: http.StatusText(httpResp.StatusCode),
		Header:     httpResp.Header,
		Body:       payload,
		URL:        reqURL,
	}
	c.appendLog(LogItem{
		Method:        r.Method,
		URL:           reqURL,
		Status:        resp.Status,
		ContentLength: int64(len(payload)),
		Duration:      time.Since(start),
	})
	c.obs.Logger().Debug(ctx, "request complete",
		observe.F("method", r.Method), observe.F("url", reqURL), observe.F("status", resp.Status))
	return resp, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// AuthOption customizes an Authenticate call.
type AuthOption func(*authOptions)

type authOptions struct {
	mfaCode string
}

// WithMFACode supplies a one-time MFA code alongside the credentials.
func WithMFACode(code string) AuthOption {
	return func(o *authOptions) { o.mfaCode = code }
}

// Authenticate exchanges credentials for a session token and installs
// the result on the configured Session. Username and password may be
// secret references when a Credentials resolver is configured.
func (c *Client) Authenticate(ctx context.Context, username, password string, opts ...AuthOption) (session.Authentication, error) {
	if c.sess == nil {
		return session.Authentication{}, ErrNoSession
	}
	var o authOptions
	for _, opt := range opts {
		opt(&o)
	}

	if c.creds != nil {
		var err error
		if username, err = c.creds.ResolveValue(ctx, username); err != nil {
			return session.Authentication{}, fmt.Errorf("client: resolve username: %w", err)
		}
		if password, err = c.creds.ResolveValue(ctx, password); err != nil {
			return session.Authentication{}, fmt.Errorf("client: resolve password: %w", err)
		}
	}

	headers := http.Header{}
	basic := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	headers.Set("Authorization", "Basic "+basic)
	return c.authenticate(ctx, headers, o.mfaCode)
}

// AuthenticateWithSessionToken completes an MFA login: the session
// token from the first factor plus the one-time code.
func (c *Client) AuthenticateWithSessionToken(ctx context.Context, sessionToken, mfaCode string) (session.Authentication, error) {
	if c.sess == nil {
		return session.Authentication{}, ErrNoSession
	}
	headers := http.Header{}
	headers.Set("X-AIMS-Session-Token", sessionToken)
	return c.authenticate(ctx, headers, mfaCode)
}

func (c *Client) authenticate(ctx context.Context, headers http.Header, mfaCode string) (session.Authentication, error) {
	var body any
	if mfaCode != "" {
		body = map[string]string{"mfa_code": mfaCode}
	}
	resp, err := c.execute(ctx, Request{
		Method:                http.MethodPost,
		ServiceName:           "aims",
		Version:               "v1",
		Path:                  "authenticate",
		Headers:               headers,
		Body:                  body,
		DisableCache:          true,
		NoEndpointsResolution: true,
	})
	if err != nil {
		return session.Authentication{}, err
	}

	var payload struct {
		Authentication session.Authentication `json:"authentication"`
	}
	if err := resp.JSON(&payload); err != nil {
		return session.Authentication{}, fmt.Errorf("client: decode authentication: %w", err)
	}
	c.sess.SetAuthentication(payload.Authentication)
	return payload.Authentication, nil
}
