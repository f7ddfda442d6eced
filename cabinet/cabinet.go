package cabinet

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounce is how long writes must settle before a pending flush
// to the backing store fires.
const DefaultDebounce = 250 * time.Millisecond

// Cabinet is an expiring key-value store.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Expiry: evaluated lazily on read; expired entries are deleted on
//   access. Synchronize sweeps the whole set eagerly.
// - TTL: zero means the entry never expires.
type Cabinet struct {
	mu       sync.Mutex
	name     string
	entries  map[string]Entry
	store    Store // nil for ephemeral cabinets
	debounce time.Duration
	timer    *time.Timer

	now func() time.Time // test seam
}

// Option configures a Cabinet.
type Option func(*Cabinet)

// WithStore makes the cabinet persistent: Synchronize flushes surviving
// entries to store, and every mutation schedules a debounced flush.
func WithStore(store Store) Option {
	return func(c *Cabinet) { c.store = store }
}

// WithDebounce overrides the settle window for mutation-triggered flushes.
func WithDebounce(d time.Duration) Option {
	return func(c *Cabinet) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// withClock overrides the time source. Test-only.
func withClock(now func() time.Time) Option {
	return func(c *Cabinet) { c.now = now }
}

// New creates a Cabinet. Persistent cabinets resume from whatever the
// backing store last saved; a load failure starts the cabinet empty
// rather than failing construction.
func New(name string, opts ...Option) *Cabinet {
	c := &Cabinet{
		name:     name,
		entries:  make(map[string]Entry),
		debounce: DefaultDebounce,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store != nil {
		if loaded, err := c.store.Load(context.Background(), name); err == nil && loaded != nil {
			c.entries = loaded
		}
	}
	return c
}

// Name returns the cabinet's name, which keys its persisted form.
func (c *Cabinet) Name() string {
	return c.name
}

// Get returns the value stored under key, or def when the key is absent
// or expired. Expired entries are deleted on access. ignoreExpiry returns
// the raw value even past its deadline (without deleting it), which lets
// callers serve stale data while refreshing.
func (c *Cabinet) Get(key string, def any, ignoreExpiry bool) any {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return def
	}
	if ignoreExpiry {
		return entry.Value
	}
	if c.expiredLocked(entry) {
		delete(c.entries, key)
		c.scheduleFlushLocked()
		return def
	}
	return entry.Value
}

// Set stores value under key for ttl. A zero ttl never expires; a nil
// value deletes the key.
func (c *Cabinet) Set(key string, value any, ttl time.Duration) {
	if value == nil {
		c.Delete(key)
		return
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = c.nowMillis() + ttl.Milliseconds()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Value: value, ExpiresAt: expiresAt}
	c.scheduleFlushLocked()
}

// Delete removes key. Idempotent.
func (c *Cabinet) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.scheduleFlushLocked()
	}
}

// Exists reports whether key holds a live (unexpired) entry.
func (c *Cabinet) Exists(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return ok && !c.expiredLocked(entry)
}

// Expired reports whether key holds an entry past its deadline. A missing
// key is considered expired.
func (c *Cabinet) Expired(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return true
	}
	return c.expiredLocked(entry)
}

// Len returns the number of entries, live or not yet swept.
func (c *Cabinet) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Synchronize eagerly sweeps expired entries and, for persistent
// cabinets, flushes the survivors to the backing store. Any pending
// debounced flush is absorbed by this pass.
func (c *Cabinet) Synchronize(ctx context.Context) error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	for key, entry := range c.entries {
		if c.expiredLocked(entry) {
			delete(c.entries, key)
		}
	}
	var snapshot map[string]Entry
	if c.store != nil {
		snapshot = make(map[string]Entry, len(c.entries))
		for k, v := range c.entries {
			snapshot[k] = v
		}
	}
	store := c.store
	name := c.name
	c.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Save(ctx, name, snapshot)
}

// scheduleFlushLocked coalesces mutation-triggered persistence: each
// write cancels and reschedules the single pending flush, so the store
// is written once the cabinet settles. Caller must hold the lock.
func (c *Cabinet) scheduleFlushLocked() {
	if c.store == nil {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		_ = c.Synchronize(context.Background())
	})
}

func (c *Cabinet) expiredLocked(entry Entry) bool {
	return entry.ExpiresAt != 0 && c.nowMillis() >= entry.ExpiresAt
}

func (c *Cabinet) nowMillis() int64 {
	return c.now().UnixMilli()
}
