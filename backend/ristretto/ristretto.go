// Package ristretto serves bins out of a single shared Ristretto cache.
// Ristretto cannot enumerate its keys, so the store keeps a side index of
// keys it has written; the index tolerates Ristretto's silent admission
// refusals and evictions by re-checking membership on every scan.
package ristretto

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	be "github.com/unkn0wn-root/bincache/backend"
	"github.com/unkn0wn-root/bincache/internal/wire"
)

type Store struct {
	c *rc.Cache

	mu    sync.Mutex
	index map[string]struct{} // keys written, possibly since evicted
}

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto backend: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c, index: make(map[string]struct{})}, nil
}

// Factory returns per-bin views over the shared cache.
func (s *Store) Factory() be.Factory {
	return func(bin string) be.Backend {
		return &Bin{store: s, prefix: bin + ":"}
	}
}

func (s *Store) Close(context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes Ristretto's counters for the application (not part of the
// backend contract).
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }

func (s *Store) remember(key string) {
	s.mu.Lock()
	s.index[key] = struct{}{}
	s.mu.Unlock()
}

func (s *Store) forget(key string) {
	s.c.Del(key)
	s.mu.Lock()
	delete(s.index, key)
	s.mu.Unlock()
}

// indexed returns a snapshot of keys under prefix.
func (s *Store) indexed(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.index {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Bin is one bin's view, isolated by key prefix.
type Bin struct {
	store  *Store
	prefix string
}

var _ be.Backend = (*Bin)(nil)

func (b *Bin) key(cid string) string { return b.prefix + cid }

func (b *Bin) Get(_ context.Context, cid string) ([]byte, bool, error) {
	v, ok := b.store.c.Get(b.key(cid))
	if !ok {
		return nil, false, nil
	}
	raw, _ := v.([]byte)
	if raw == nil {
		b.store.forget(b.key(cid)) // unexpected entry shape
		return nil, false, nil
	}
	stored, exp, payload, derr := wire.Decode(raw)
	if derr != nil || stored != cid {
		b.store.forget(b.key(cid))
		return nil, false, nil
	}
	if be.FromUnix(exp).Expired(time.Now()) {
		b.store.forget(b.key(cid))
		return nil, false, nil
	}
	return payload, true, nil
}

func (b *Bin) GetMultiple(ctx context.Context, cids []string) (map[string][]byte, []string, error) {
	found := make(map[string][]byte, len(cids))
	var missing []string
	for _, cid := range cids {
		if v, ok, _ := b.Get(ctx, cid); ok {
			found[cid] = v
		} else {
			missing = append(missing, cid)
		}
	}
	return found, missing, nil
}

func (b *Bin) Set(_ context.Context, cid string, value []byte, exp be.Expiration) (bool, error) {
	env := wire.Encode(cid, exp.Unix(), value)
	var ttl time.Duration
	if at, ok := exp.Deadline(); ok {
		ttl = time.Until(at)
		if ttl <= 0 {
			return true, nil // already past its deadline
		}
	}
	var ok bool
	if ttl > 0 {
		ok = b.store.c.SetWithTTL(b.key(cid), env, int64(len(env)), ttl)
	} else {
		ok = b.store.c.Set(b.key(cid), env, int64(len(env)))
	}
	if ok {
		b.store.remember(b.key(cid))
	}
	return ok, nil
}

func (b *Bin) Clear(ctx context.Context, cid string, wildcard bool) error {
	switch {
	case cid == "":
		now := time.Now()
		b.drop(func(_ string, exp be.Expiration) bool { return exp.Sweepable(now) })
	case wildcard && cid == be.Wildcard:
		b.drop(func(string, be.Expiration) bool { return true })
	case wildcard:
		b.drop(func(stored string, _ be.Expiration) bool {
			return strings.HasPrefix(stored, cid)
		})
	default:
		b.store.forget(b.key(cid))
	}
	return nil
}

// drop scans the side index for this bin and deletes entries the predicate
// selects. Index entries whose value is gone from Ristretto are pruned.
func (b *Bin) drop(sel func(cid string, exp be.Expiration) bool) {
	for _, k := range b.store.indexed(b.prefix) {
		v, ok := b.store.c.Get(k)
		if !ok {
			b.store.forget(k) // evicted behind our back
			continue
		}
		raw, _ := v.([]byte)
		stored, exp, derr := wire.DecodeHeader(raw)
		if raw == nil || derr != nil || sel(stored, be.FromUnix(exp)) {
			b.store.forget(k)
		}
	}
}

func (b *Bin) IsEmpty(_ context.Context) (bool, error) {
	now := time.Now()
	for _, k := range b.store.indexed(b.prefix) {
		v, ok := b.store.c.Get(k)
		if !ok {
			b.store.forget(k)
			continue
		}
		raw, _ := v.([]byte)
		if raw == nil {
			continue
		}
		if _, exp, derr := wire.DecodeHeader(raw); derr == nil && !be.FromUnix(exp).Expired(now) {
			return false, nil
		}
	}
	return true, nil
}

// Close is a no-op for a bin view; the Store owns the cache.
func (b *Bin) Close(context.Context) error { return nil }
