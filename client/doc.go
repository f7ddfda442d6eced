// Package client executes requests against REST services identified by
// logical names.
//
// A Client turns a request descriptor into an HTTP call: the logical
// service name is resolved to a concrete base URL (endpoint discovery
// with a locator.Matrix fallback), GET responses are cached with a TTL
// and de-duplicated while in flight, and failures are retried with a
// linear backoff. HTTP itself is delegated to an *http.Client; this
// package implements no transport of its own.
package client
