package secret

import (
	"context"
	"fmt"
	"sync"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret
// values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// StaticProvider serves secrets from a fixed in-memory map. Useful for
// tests and for processes that receive credentials through a bootstrap
// channel.
type StaticProvider struct {
	name string

	mu     sync.RWMutex
	values map[string]string
}

// NewStaticProvider creates a StaticProvider with the given name and
// values.
func NewStaticProvider(name string, values map[string]string) *StaticProvider {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &StaticProvider{name: name, values: cp}
}

// Name returns the provider's registration name.
func (p *StaticProvider) Name() string {
	return p.name
}

// Resolve returns the value stored under ref.
func (p *StaticProvider) Resolve(_ context.Context, ref string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[ref]
	if !ok {
		return "", fmt.Errorf("secret: %q has no value for %q", p.name, ref)
	}
	return v, nil
}

var _ Provider = (*StaticProvider)(nil)
