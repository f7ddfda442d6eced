package locator

import (
	"strings"
	"sync"
)

// wildcard marks the generic tier of an index key.
const wildcard = "*"

// maxAncestorDepth bounds parent-chain walks so a cyclic graph cannot
// hang URI resolution.
const maxAncestorDepth = 16

// Matrix resolves logical location identifiers to Descriptors.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: unresolved lookups return nil (or "" for URIs), never an error.
type Matrix struct {
	mu       sync.RWMutex
	nodes    []*Descriptor
	index    map[string]*Descriptor
	ctx      Context
	fastPath map[string]*Descriptor
}

// NewMatrix creates a Matrix over the given descriptor set.
func NewMatrix(nodes ...Descriptor) *Matrix {
	m := &Matrix{}
	m.SetNodes(nodes...)
	return m
}

// SetNodes replaces the descriptor set and rebuilds the index.
// Memoized URIs and the fast-path cache are flushed.
func (m *Matrix) SetNodes(nodes ...Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nodes = m.nodes[:0]
	m.index = make(map[string]*Descriptor)
	for i := range nodes {
		n := nodes[i]
		m.addLocked(&n)
	}
	m.fastPath = nil
}

// Add registers additional descriptors without disturbing existing ones.
// Memoized URIs and the fast-path cache are flushed.
func (m *Matrix) Add(nodes ...Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index == nil {
		m.index = make(map[string]*Descriptor)
	}
	for i := range nodes {
		n := nodes[i]
		m.addLocked(&n)
	}
	for _, n := range m.nodes {
		n.fullURI = ""
	}
	m.fastPath = nil
}

// addLocked indexes one descriptor under every specificity tier it
// satisfies. The first descriptor registered for a key wins.
func (m *Matrix) addLocked(n *Descriptor) {
	m.nodes = append(m.nodes, n)

	keys := make([]string, 0, 4)
	if n.Environment != "" && n.Residency != "" && n.LocationID != "" {
		keys = append(keys, indexKey(n.ID, n.Environment, n.Residency, n.LocationID))
	}
	if n.Environment != "" && n.Residency != "" {
		keys = append(keys, indexKey(n.ID, n.Environment, n.Residency, ""))
	}
	if n.Environment != "" {
		keys = append(keys, indexKey(n.ID, n.Environment, wildcard, ""))
	}
	keys = append(keys, indexKey(n.ID, wildcard, wildcard, ""))

	for _, k := range keys {
		if _, taken := m.index[k]; !taken {
			m.index[k] = n
		}
	}
}

func indexKey(id, env, residency, location string) string {
	var b strings.Builder
	b.WriteString(id)
	b.WriteByte('#')
	b.WriteString(env)
	b.WriteByte('#')
	b.WriteString(residency)
	if location != "" {
		b.WriteByte('#')
		b.WriteString(location)
	}
	return b.String()
}

// SetContext replaces the ambient context and flushes the fast-path cache.
func (m *Matrix) SetContext(ctx Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = ctx
	m.fastPath = nil
}

// Context returns a copy of the ambient context.
func (m *Matrix) Context() Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctx
}

// Resolve looks up id against the ambient context. Results are cached
// per id until the context or descriptor set changes. Returns nil on
// miss.
func (m *Matrix) Resolve(id string) *Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.fastPath[id]; ok {
		return d
	}
	d := m.lookupLocked(id, m.ctx)
	if d != nil {
		if m.fastPath == nil {
			m.fastPath = make(map[string]*Descriptor)
		}
		m.fastPath[id] = d
	}
	return d
}

// ResolveIn looks up id against an explicit context override. Override
// lookups bypass and do not populate the fast-path cache.
func (m *Matrix) ResolveIn(id string, ctx Context) *Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(id, ctx)
}

// lookupLocked walks the specificity tiers from most to least specific.
// Caller must hold at least a read lock.
func (m *Matrix) lookupLocked(id string, ctx Context) *Descriptor {
	env, res := ctx.Environment, ctx.Residency

	if ctx.Location != "" {
		if d, ok := m.index[indexKey(id, env, res, ctx.Location)]; ok {
			return d
		}
	}
	for _, loc := range ctx.Accessible {
		if d, ok := m.index[indexKey(id, env, res, loc)]; ok {
			return d
		}
	}
	if d, ok := m.index[indexKey(id, env, res, "")]; ok {
		return d
	}
	if d, ok := m.index[indexKey(id, env, wildcard, "")]; ok {
		return d
	}
	if d, ok := m.index[indexKey(id, wildcard, wildcard, "")]; ok {
		return d
	}
	return nil
}

// FullURI computes the descriptor's concrete base URI by concatenating
// ancestor URIs root-to-leaf through ParentID. The result is memoized on
// the descriptor until the graph mutates. A chain whose root lacks an
// explicit scheme is assumed to be https.
func (m *Matrix) FullURI(d *Descriptor) string {
	if d == nil {
		return ""
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fullURILocked(d, 0)
}

func (m *Matrix) fullURILocked(d *Descriptor, depth int) string {
	if d.fullURI != "" {
		return d.fullURI
	}
	if depth >= maxAncestorDepth {
		return d.URI
	}

	uri := d.URI
	if !d.HasScheme() {
		if d.ParentID != "" {
			if parent := m.lookupLocked(d.ParentID, m.ctx); parent != nil && parent != d {
				uri = m.fullURILocked(parent, depth+1) + d.URI
			}
		}
		if !strings.Contains(uri, "://") {
			uri = "https://" + uri
		}
	}
	d.fullURI = uri
	return uri
}

// ResolveURI resolves id against the ambient context and returns its
// full URI, or "" when the id is unknown.
func (m *Matrix) ResolveURI(id string) string {
	return m.FullURI(m.Resolve(id))
}

// SetActingURI reverse-resolves a literal URI to its owning descriptor by
// longest-URI-prefix match, and adopts that descriptor's environment,
// residency and location into the ambient context. This is how a client
// self-configures from the host it is running against. Returns the
// matched descriptor, or nil when no descriptor owns the URI.
func (m *Matrix) SetActingURI(uri string) *Descriptor {
	if uri == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var best *Descriptor
	bestLen := 0
	for _, n := range m.nodes {
		full := m.fullURILocked(n, 0)
		if full == "" {
			continue
		}
		if strings.HasPrefix(uri, full) && len(full) > bestLen {
			best = n
			bestLen = len(full)
		}
	}
	if best == nil {
		return nil
	}

	if best.Environment != "" {
		m.ctx.Environment = best.Environment
	}
	if best.Residency != "" {
		m.ctx.Residency = best.Residency
	}
	m.ctx.Location = best.LocationID
	m.fastPath = nil
	return best
}
