// Package memory is the in-process reference backend. One Bin per cache bin,
// nothing shared between them, nothing survives the process.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	be "github.com/unkn0wn-root/bincache/backend"
)

type entry struct {
	value []byte
	exp   be.Expiration
}

// Bin holds one bin's entries behind a mutex.
type Bin struct {
	mu sync.RWMutex
	m  map[string]entry
}

var _ be.Backend = (*Bin)(nil)

func New() *Bin { return &Bin{m: make(map[string]entry)} }

// Factory gives every bin its own fresh Bin.
func Factory() be.Factory {
	return func(string) be.Backend { return New() }
}

func (b *Bin) Get(_ context.Context, cid string) ([]byte, bool, error) {
	b.mu.RLock()
	e, ok := b.m[cid]
	b.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.exp.Expired(time.Now()) {
		// lazy expiry; re-check under the write lock so a concurrent
		// overwrite between the two locks is not lost
		b.mu.Lock()
		if cur, ok := b.m[cid]; ok && cur.exp.Expired(time.Now()) {
			delete(b.m, cid)
		}
		b.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
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
	b.mu.Lock()
	b.m[cid] = entry{value: value, exp: exp}
	b.mu.Unlock()
	return true, nil
}

func (b *Bin) Clear(_ context.Context, cid string, wildcard bool) error {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case cid == "":
		for k, e := range b.m {
			if e.exp.Sweepable(now) {
				delete(b.m, k)
			}
		}
	case wildcard && cid == be.Wildcard:
		b.m = make(map[string]entry)
	case wildcard:
		for k := range b.m {
			if strings.HasPrefix(k, cid) {
				delete(b.m, k)
			}
		}
	default:
		delete(b.m, cid)
	}
	return nil
}

func (b *Bin) IsEmpty(_ context.Context) (bool, error) {
	now := time.Now()
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.m {
		if !e.exp.Expired(now) {
			return false, nil
		}
	}
	return true, nil
}

func (b *Bin) Close(context.Context) error { return nil }
