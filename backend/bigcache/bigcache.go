// Package bigcache serves bins out of a single shared BigCache instance.
// BigCache has no per-entry TTL, only a global LifeWindow; the wire envelope
// stays authoritative for expiry, enforced lazily on read and at sweep time.
package bigcache

import (
	"context"
	"strings"
	"time"

	bc "github.com/allegro/bigcache/v3"

	be "github.com/unkn0wn-root/bincache/backend"
	"github.com/unkn0wn-root/bincache/internal/wire"
)

type Store struct {
	c *bc.BigCache
}

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Store, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

// Factory returns per-bin views over the shared instance.
func (s *Store) Factory() be.Factory {
	return func(bin string) be.Backend {
		return &Bin{store: s, prefix: bin + ":"}
	}
}

func (s *Store) Close(context.Context) error { return s.c.Close() }

// Bin is one bin's view, isolated by key prefix.
type Bin struct {
	store  *Store
	prefix string
}

var _ be.Backend = (*Bin)(nil)

func (b *Bin) key(cid string) string { return b.prefix + cid }

func (b *Bin) Get(_ context.Context, cid string) ([]byte, bool, error) {
	raw, err := b.store.c.Get(b.key(cid))
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	stored, exp, payload, derr := wire.Decode(raw)
	if derr != nil || stored != cid {
		_ = b.store.c.Delete(b.key(cid)) // self-heal
		return nil, false, nil
	}
	if be.FromUnix(exp).Expired(time.Now()) {
		_ = b.store.c.Delete(b.key(cid))
		return nil, false, nil
	}
	return payload, true, nil
}

func (b *Bin) GetMultiple(ctx context.Context, cids []string) (map[string][]byte, []string, error) {
	found := make(map[string][]byte, len(cids))
	var missing []string
	for _, cid := range cids {
		v, ok, err := b.Get(ctx, cid)
		if err != nil {
			return found, append([]string(nil), cids...), err
		}
		if ok {
			found[cid] = v
		} else {
			missing = append(missing, cid)
		}
	}
	return found, missing, nil
}

func (b *Bin) Set(_ context.Context, cid string, value []byte, exp be.Expiration) (bool, error) {
	env := wire.Encode(cid, exp.Unix(), value)
	if err := b.store.c.Set(b.key(cid), env); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Bin) Clear(_ context.Context, cid string, wildcard bool) error {
	switch {
	case cid == "":
		now := time.Now()
		return b.drop(func(_ string, exp be.Expiration) bool { return exp.Sweepable(now) })
	case wildcard && cid == be.Wildcard:
		return b.drop(func(string, be.Expiration) bool { return true })
	case wildcard:
		return b.drop(func(stored string, _ be.Expiration) bool {
			return strings.HasPrefix(stored, cid)
		})
	default:
		err := b.store.c.Delete(b.key(cid))
		if err == bc.ErrEntryNotFound {
			return nil
		}
		return err
	}
}

// drop iterates the shared instance, keeps to this bin's prefix, and deletes
// entries the predicate selects. Keys are collected first; BigCache's
// iterator does not tolerate concurrent deletes.
func (b *Bin) drop(sel func(cid string, exp be.Expiration) bool) error {
	var doomed []string
	it := b.store.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		if !strings.HasPrefix(info.Key(), b.prefix) {
			continue
		}
		stored, exp, derr := wire.DecodeHeader(info.Value())
		if derr != nil || sel(stored, be.FromUnix(exp)) {
			doomed = append(doomed, info.Key())
		}
	}
	for _, k := range doomed {
		if err := b.store.c.Delete(k); err != nil && err != bc.ErrEntryNotFound {
			return err
		}
	}
	return nil
}

func (b *Bin) IsEmpty(_ context.Context) (bool, error) {
	now := time.Now()
	it := b.store.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		if !strings.HasPrefix(info.Key(), b.prefix) {
			continue
		}
		if _, exp, derr := wire.DecodeHeader(info.Value()); derr == nil && !be.FromUnix(exp).Expired(now) {
			return false, nil
		}
	}
	return true, nil
}

// Close is a no-op for a bin view; the Store owns the instance.
func (b *Bin) Close(context.Context) error { return nil }
