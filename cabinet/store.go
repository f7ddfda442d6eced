package cabinet

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
)

// Entry is one stored value with its expiry deadline.
type Entry struct {
	// Value is the cached payload.
	Value any `json:"value"`

	// ExpiresAt is the expiry deadline in epoch milliseconds.
	// Zero means the entry never expires.
	ExpiresAt int64 `json:"expires_at"`
}

// Store persists a cabinet's surviving entry set.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines.
// - Errors: Load on a store that has never been saved returns an empty
//   map, not an error.
type Store interface {
	// Load retrieves the persisted entry set for the named cabinet.
	Load(ctx context.Context, name string) (map[string]Entry, error)

	// Save replaces the persisted entry set for the named cabinet.
	Save(ctx context.Context, name string, entries map[string]Entry) error
}

// MemoryStore is an in-memory Store, useful for tests and for processes
// that want synchronize semantics without disk I/O.
type MemoryStore struct {
	mu    sync.Mutex
	data  map[string]map[string]Entry
	saves map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]map[string]Entry),
		saves: make(map[string]int),
	}
}

// Load retrieves the saved entry set. Returns an empty map when the
// cabinet has never been saved.
func (s *MemoryStore) Load(_ context.Context, name string) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Entry, len(s.data[name]))
	for k, v := range s.data[name] {
		out[k] = v
	}
	return out, nil
}

// Save replaces the saved entry set.
func (s *MemoryStore) Save(_ context.Context, name string, entries map[string]Entry) error {
	cp := make(map[string]Entry, len(entries))
	for k, v := range entries {
		cp[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = cp
	s.saves[name]++
	return nil
}

// Saves returns how many times Save has been called for name.
// Intended for tests.
func (s *MemoryStore) Saves(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[name]
}

var _ Store = (*MemoryStore)(nil)

// FileStore persists cabinets as JSON files under a directory, one file
// per cabinet name.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("cabinet: store directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Load reads the cabinet's JSON file. A missing file yields an empty map.
func (s *FileStore) Load(_ context.Context, name string) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, err
	}

	entries := map[string]Entry{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Save writes the cabinet's JSON file atomically via a rename.
func (s *FileStore) Save(_ context.Context, name string, entries map[string]Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path(name) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(name))
}

func (s *FileStore) path(name string) string {
	return s.dir + string(os.PathSeparator) + sanitizeName(name) + ".json"
}

// sanitizeName keeps cabinet names filesystem-safe.
func sanitizeName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

var _ Store = (*FileStore)(nil)
