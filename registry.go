package bincache

import (
	"context"
	"sort"
	"sync"

	be "github.com/unkn0wn-root/bincache/backend"
)

// Registry maps bin names to backend instances, constructing each backend on
// first use and returning the same instance for the bin afterwards. It is the
// application-owned replacement for a process-global table: hand one Registry
// to every cache that should share backends, and a fresh one to each test.
type Registry struct {
	mu       sync.Mutex
	factory  be.Factory
	backends map[string]be.Backend
}

func NewRegistry(factory be.Factory) *Registry {
	return &Registry{
		factory:  factory,
		backends: make(map[string]be.Backend),
	}
}

// Resolve returns the bin's backend, constructing it if this is the bin's
// first use. Construction has no error path; repeated calls with the same
// bin observe the same instance.
func (r *Registry) Resolve(bin string) be.Backend {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.backends[bin]; ok {
		return b
	}
	b := r.factory(bin)
	r.backends[bin] = b
	return b
}

// Bins lists the bins with a constructed backend, sorted.
func (r *Registry) Bins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.backends))
	for bin := range r.backends {
		out = append(out, bin)
	}
	sort.Strings(out)
	return out
}

// Close releases every constructed backend. First failure wins; remaining
// backends are still closed.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, b := range r.backends {
		if err := b.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	r.backends = make(map[string]be.Backend)
	return first
}
