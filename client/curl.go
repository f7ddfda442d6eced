package client

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// AsCURL renders r as an equivalent curl invocation for operator
// debugging. The URL is resolved exactly as execution would resolve it,
// and the headers mirror what roundTrip would send, including the
// session token.
func (c *Client) AsCURL(ctx context.Context, r Request) (string, error) {
	if err := c.normalize(&r); err != nil {
		return "", err
	}
	fullURL, err := c.resolveURL(ctx, &r)
	if err != nil {
		return "", err
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
		headers.Get("Authorization") == "" {
		if token := c.sess.Token(); token != "" {
			headers.Set("X-AIMS-Auth-Token", token)
		}
	}

	parts := []string{"curl", "-X", r.Method}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			parts = append(parts, "-H", shellQuote(fmt.Sprintf("%s: %s", k, v)))
		}
	}

	if len(r.body) > 0 {
		parts = append(parts, "--data", shellQuote(string(r.body)))
	}

	parts = append(parts, shellQuote(fullURL))
	return strings.Join(parts, " "), nil
}

// shellQuote single-quotes s for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
