package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for request execution.
var (
	// ErrUnresolvedEndpoint is returned when neither endpoint discovery
	// nor the location matrix can produce a base URL for a request.
	ErrUnresolvedEndpoint = errors.New("client: no endpoint could be resolved")

	// ErrMissingService is returned when a request names neither a
	// logical service nor a literal URL.
	ErrMissingService = errors.New("client: request has no service name or URL")

	// ErrNoSession is returned by Authenticate when no session
	// collaborator is attached to store the result.
	ErrNoSession = errors.New("client: no session is attached")
)

// APIError is a non-2xx response surfaced to the caller. The client
// retains the most recent one for diagnostic retrieval; it is overwritten
// by each new failure, never accumulated.
type APIError struct {
	Status     int
	StatusText string
	URL        string
	Header     http.Header
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %s returned %d %s", e.URL, e.Status, e.StatusText)
}

// IsClientError reports whether err is a terminal 4xx response.
func IsClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

// IsServerError reports whether err is a 5xx response.
func IsServerError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 500
}
