package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// endpointsTTL is how long a discovered serviceName→host map stays
// cached. Endpoint topology changes rarely.
const endpointsTTL = 15 * time.Minute

// discoveryTable tracks the service list requested per account and
// shares outstanding discovery calls, so at most one discovery request
// is in flight per (environment, account) pair.
type discoveryTable struct {
	group singleflight.Group

	mu       sync.Mutex
	services map[string][]string // accountID → merged service list
}

func newDiscoveryTable() *discoveryTable {
	return &discoveryTable{services: make(map[string][]string)}
}

// merge folds service into the account's default list and returns the
// current list.
func (t *discoveryTable) merge(accountID string, defaults []string, service string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	list, ok := t.services[accountID]
	if !ok {
		list = append(list, defaults...)
	}
	found := false
	for _, s := range list {
		if s == service {
			found = true
			break
		}
	}
	if !found {
		list = append(list, service)
	}
	t.services[accountID] = list
	return list
}

func (t *discoveryTable) list(accountID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.services[accountID]))
	copy(out, t.services[accountID])
	sort.Strings(out)
	return out
}

// endpointFor returns the discovered host for the request's service.
// Results are cached for endpointsTTL; a cached map that lacks the
// requested service is discarded and discovery is re-issued with the
// expanded service list.
func (c *Client) endpointFor(ctx context.Context, r *Request, accountID string) (string, error) {
	env := c.matrix.Context().Environment
	flightKey := env + ":" + accountID
	cacheKey := "endpoints:" + flightKey

	c.disc.merge(accountID, c.cfg.DefaultServiceList, r.ServiceName)

	cache := c.cacheRef()
	if cached, ok := cache.Get(cacheKey, nil, false).(map[string]string); ok {
		if host, present := cached[r.ServiceName]; present {
			return host, nil
		}
		// The resolved set predates this service; force a re-fetch with
		// the merged list.
		cache.Delete(cacheKey)
	}

	v, err, _ := c.disc.group.Do(flightKey, func() (any, error) {
		hosts, err := c.fetchEndpoints(ctx, accountID, c.disc.list(accountID))
		if err != nil {
			return nil, err
		}
		cache.Set(cacheKey, hosts, endpointsTTL)
		return hosts, nil
	})
	if err != nil {
		return "", err
	}

	hosts := v.(map[string]string)
	host, ok := hosts[r.ServiceName]
	if !ok {
		return "", fmt.Errorf("client: discovery has no endpoint for service %q", r.ServiceName)
	}
	return host, nil
}

// fetchEndpoints performs the discovery wire call:
// POST <stack>/endpoints/v1/{accountId}/residency/default/endpoints with
// the service name list; the response maps service name → host.
func (c *Client) fetchEndpoints(ctx context.Context, accountID string, services []string) (map[string]string, error) {
	base := c.matrix.ResolveURI(c.cfg.ServiceStack)
	if base == "" {
		return nil, fmt.Errorf("%w: stack %q", ErrUnresolvedEndpoint, c.cfg.ServiceStack)
	}

	endpoint := fmt.Sprintf("%s/endpoints/v1/%s/residency/default/endpoints",
		strings.TrimSuffix(base, "/"), accountID)

	payload, err := json.Marshal(services)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.sess != nil {
		if token := c.sess.Token(); token != "" {
			req.Header.Set("X-AIMS-Auth-Token", token)
		}
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: endpoint discovery: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: endpoint discovery: %w", err)
	}
	if httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("client: endpoint discovery returned %d", httpResp.StatusCode)
	}

	hosts := map[string]string{}
	if err := json.Unmarshal(raw, &hosts); err != nil {
		return nil, fmt.Errorf("client: decode endpoints: %w", err)
	}
	for name, host := range hosts {
		hosts[name] = normalizeHost(host)
	}
	return hosts, nil
}

// normalizeHost defaults discovered hosts to https when the scheme is
// absent.
func normalizeHost(host string) string {
	host = strings.TrimSuffix(host, "/")
	if host == "" || strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}
