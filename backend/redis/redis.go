// Package redis maps bins onto a shared Redis keyspace. Entries live under
// "bin:<bin>:<cid>" and carry the wire envelope so the expiration class
// survives round-trips; timestamped entries additionally get a native TTL so
// Redis drops them on its own.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	be "github.com/unkn0wn-root/bincache/backend"
	"github.com/unkn0wn-root/bincache/internal/wire"
)

var ErrNilClient = errors.New("redis backend: nil client")

// Store owns the client shared by every bin view.
type Store struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Store{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// Factory returns per-bin views over the shared client.
func (s *Store) Factory() be.Factory {
	return func(bin string) be.Backend {
		return &Bin{store: s, prefix: "bin:" + bin + ":"}
	}
}

// Close releases the underlying client only when this store owns it.
// Safe to call repeatedly.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// Bin is one bin's view over the shared client.
type Bin struct {
	store  *Store
	prefix string
}

var _ be.Backend = (*Bin)(nil)

func (b *Bin) key(cid string) string { return b.prefix + cid }

func (b *Bin) Get(ctx context.Context, cid string) ([]byte, bool, error) {
	raw, err := b.store.rdb.Get(ctx, b.key(cid)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	stored, exp, payload, derr := wire.Decode(raw)
	if derr != nil || stored != cid {
		_ = b.store.rdb.Del(ctx, b.key(cid)).Err() // self-heal
		return nil, false, nil
	}
	if be.FromUnix(exp).Expired(time.Now()) {
		_ = b.store.rdb.Del(ctx, b.key(cid)).Err()
		return nil, false, nil
	}
	return payload, true, nil
}

func (b *Bin) GetMultiple(ctx context.Context, cids []string) (map[string][]byte, []string, error) {
	found := make(map[string][]byte, len(cids))
	if len(cids) == 0 {
		return found, nil, nil
	}

	keys := make([]string, len(cids))
	for i, cid := range cids {
		keys[i] = b.key(cid)
	}
	vals, err := b.store.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return found, append([]string(nil), cids...), err
	}

	now := time.Now()
	var missing []string
	for i, cid := range cids {
		s, ok := vals[i].(string)
		if !ok {
			missing = append(missing, cid)
			continue
		}
		stored, exp, payload, derr := wire.Decode([]byte(s))
		if derr != nil || stored != cid || be.FromUnix(exp).Expired(now) {
			_ = b.store.rdb.Del(ctx, keys[i]).Err()
			missing = append(missing, cid)
			continue
		}
		found[cid] = payload
	}
	return found, missing, nil
}

func (b *Bin) Set(ctx context.Context, cid string, value []byte, exp be.Expiration) (bool, error) {
	var ttl time.Duration
	if at, ok := exp.Deadline(); ok {
		ttl = time.Until(at)
		if ttl <= 0 {
			// already past its deadline; don't bother Redis
			return true, nil
		}
	}
	env := wire.Encode(cid, exp.Unix(), value)
	if err := b.store.rdb.Set(ctx, b.key(cid), env, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Bin) Clear(ctx context.Context, cid string, wildcard bool) error {
	switch {
	case cid == "":
		now := time.Now()
		return b.scan(ctx, func(key string, raw []byte) bool {
			_, exp, err := wire.DecodeHeader(raw)
			return err != nil || be.FromUnix(exp).Sweepable(now)
		})
	case wildcard && cid == be.Wildcard:
		return b.scan(ctx, func(string, []byte) bool { return true })
	case wildcard:
		return b.scan(ctx, func(key string, _ []byte) bool {
			return strings.HasPrefix(strings.TrimPrefix(key, b.prefix), cid)
		})
	default:
		return b.store.rdb.Del(ctx, b.key(cid)).Err()
	}
}

// scan walks the bin's keys and deletes those drop() selects. Matching is
// done client-side on the clear cid, so glob metacharacters in cids are safe.
func (b *Bin) scan(ctx context.Context, drop func(key string, raw []byte) bool) error {
	iter := b.store.rdb.Scan(ctx, 0, b.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := b.store.rdb.Get(ctx, key).Bytes()
		if err == goredis.Nil {
			continue
		}
		if err != nil {
			return err
		}
		if drop(key, raw) {
			if err := b.store.rdb.Del(ctx, key).Err(); err != nil {
				return err
			}
		}
	}
	return iter.Err()
}

func (b *Bin) IsEmpty(ctx context.Context) (bool, error) {
	iter := b.store.rdb.Scan(ctx, 0, b.prefix+"*", 1).Iterator()
	for iter.Next(ctx) {
		return false, nil
	}
	return true, iter.Err()
}

// Close is a no-op for a bin view; the Store owns the client.
func (b *Bin) Close(context.Context) error { return nil }
