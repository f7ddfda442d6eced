package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request describes one call against a logical service. It is
// caller-owned and transient: built once, executed once.
type Request struct {
	// Method is the HTTP method. Defaults to GET.
	Method string

	// URL is a literal target. When set, service resolution is skipped
	// entirely.
	URL string

	// ServiceName is the logical service to call (e.g. "aims").
	ServiceName string

	// ServiceStack overrides the engine's default stack descriptor id.
	ServiceStack string

	// Residency overrides the ambient residency for stack resolution.
	Residency string

	// Version is the API version path segment (e.g. "v1"). Use
	// FormatVersion to render integers.
	Version string

	// AccountID is the acting account inserted into the URL. Zero or "0"
	// is treated as absent.
	AccountID string

	// ContextAccountID, when set, takes precedence over AccountID.
	ContextAccountID string

	// Path is the service-relative path. A leading slash is tolerated.
	Path string

	// Params are appended as the query string.
	Params url.Values

	// Headers are sent verbatim, after any listener injection.
	Headers http.Header

	// Body is the request payload: []byte and string pass through,
	// anything else is JSON-encoded.
	Body any

	// Form, when non-empty, is sent URL-encoded and takes precedence
	// over Body.
	Form url.Values

	// TTL enables GET response caching when positive.
	TTL time.Duration

	// CacheDefault requests the engine-wide default TTL (the boolean
	// form of the ttl option).
	CacheDefault bool

	// CacheKey overrides the cache/de-duplication key. Defaults to the
	// full resolved URL including the query string.
	CacheKey string

	// DisableCache bypasses cache reads and writes for this request.
	DisableCache bool

	// RetryCount is the number of retries after the initial attempt.
	// An attempt is retried only while its 0-indexed attempt number is
	// strictly less than RetryCount.
	RetryCount int

	// RetryInterval is the linear backoff base. Defaults to 1s.
	RetryInterval time.Duration

	// NoEndpointsResolution skips endpoint discovery for this request.
	NoEndpointsResolution bool

	// Schema names a registered response schema to validate against.
	Schema string

	// Converter decodes the response body; the result lands in
	// Response.Decoded.
	Converter func([]byte) (any, error)

	// encoded body, computed once during normalization so retries
	// re-send identical bytes
	body        []byte
	contentType string
}

// FormatVersion renders a version value for the URL path: strings are
// used literally, positive integers become "v<N>", everything else is
// empty.
func FormatVersion(v any) string {
	switch ver := v.(type) {
	case string:
		return ver
	case int:
		if ver > 0 {
			return fmt.Sprintf("v%d", ver)
		}
	case int64:
		if ver > 0 {
			return fmt.Sprintf("v%d", ver)
		}
	}
	return ""
}

// Response is the outcome of an executed request. Cached responses are
// shared between callers; treat them as read-only.
type Response struct {
	Status     int
	StatusText string
	Header     http.Header
	Body       []byte
	URL        string

	// Decoded holds the Converter output when one was configured.
	Decoded any
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// encodeBody renders the request payload to bytes once so retried
// attempts re-send identical content.
func encodeBody(r *Request) error {
	if len(r.Form) > 0 {
		r.body = []byte(r.Form.Encode())
		r.contentType = "application/x-www-form-urlencoded"
		return nil
	}
	switch b := r.Body.(type) {
	case nil:
		return nil
	case []byte:
		r.body = b
	case string:
		r.body = []byte(b)
	case json.RawMessage:
		r.body = b
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("client: encode request body: %w", err)
		}
		r.body = raw
	}
	r.contentType = "application/json"
	return nil
}

// Builder assembles a Request fluently. Obtain one via Client.Request.
type Builder struct {
	c *Client
	r Request
}

// Service sets the logical service name.
func (b *Builder) Service(name string) *Builder {
	b.r.ServiceName = name
	return b
}

// Stack overrides the service stack descriptor id.
func (b *Builder) Stack(id string) *Builder {
	b.r.ServiceStack = id
	return b
}

// Residency overrides the residency selector.
func (b *Builder) Residency(residency string) *Builder {
	b.r.Residency = residency
	return b
}

// Version sets the version path segment; accepts a string or a positive
// integer.
func (b *Builder) Version(v any) *Builder {
	b.r.Version = FormatVersion(v)
	return b
}

// Account sets the acting account id.
func (b *Builder) Account(id string) *Builder {
	b.r.AccountID = id
	return b
}

// ContextAccount sets the context account id, which takes precedence
// over Account.
func (b *Builder) ContextAccount(id string) *Builder {
	b.r.ContextAccountID = id
	return b
}

// Path sets the service-relative path.
func (b *Builder) Path(path string) *Builder {
	b.r.Path = path
	return b
}

// URL sets a literal target, bypassing resolution.
func (b *Builder) URL(raw string) *Builder {
	b.r.URL = raw
	return b
}

// Param adds one query parameter.
func (b *Builder) Param(key, value string) *Builder {
	if b.r.Params == nil {
		b.r.Params = url.Values{}
	}
	b.r.Params.Add(key, value)
	return b
}

// Header adds one request header.
func (b *Builder) Header(key, value string) *Builder {
	if b.r.Headers == nil {
		b.r.Headers = http.Header{}
	}
	b.r.Headers.Add(key, value)
	return b
}

// JSON sets the request body; it will be JSON-encoded.
func (b *Builder) JSON(body any) *Builder {
	b.r.Body = body
	return b
}

// Form sets a URL-encoded form body.
func (b *Builder) Form(values url.Values) *Builder {
	b.r.Form = values
	return b
}

// TTL enables response caching for the given duration.
func (b *Builder) TTL(d time.Duration) *Builder {
	b.r.TTL = d
	return b
}

// CacheDefault enables caching with the engine-wide default TTL.
func (b *Builder) CacheDefault() *Builder {
	b.r.CacheDefault = true
	return b
}

// CacheKey overrides the cache/de-duplication key.
func (b *Builder) CacheKey(key string) *Builder {
	b.r.CacheKey = key
	return b
}

// DisableCache bypasses the cache for this request.
func (b *Builder) DisableCache() *Builder {
	b.r.DisableCache = true
	return b
}

// Retry enables up to count retries with a linear backoff base of
// interval.
func (b *Builder) Retry(count int, interval time.Duration) *Builder {
	b.r.RetryCount = count
	b.r.RetryInterval = interval
	return b
}

// NoEndpoints skips endpoint discovery for this request.
func (b *Builder) NoEndpoints() *Builder {
	b.r.NoEndpointsResolution = true
	return b
}

// Schema names the registered response schema to validate against.
func (b *Builder) Schema(name string) *Builder {
	b.r.Schema = name
	return b
}

// Convert installs a response converter.
func (b *Builder) Convert(fn func([]byte) (any, error)) *Builder {
	b.r.Converter = fn
	return b
}

// Execute runs the assembled request.
func (b *Builder) Execute(ctx context.Context) (*Response, error) {
	return b.c.execute(ctx, b.r)
}
