package bincache

import (
	"context"
	"time"

	be "github.com/unkn0wn-root/bincache/backend"
	c "github.com/unkn0wn-root/bincache/codec"
)

// DefaultBin is the bin used whenever a caller passes bin == "".
const DefaultBin = "default"

// Expiration policy, re-exported from the backend contract.
type Expiration = be.Expiration

func Permanent() Expiration                { return be.Permanent() }
func Temporary() Expiration                { return be.Temporary() }
func ExpiresAt(t time.Time) Expiration     { return be.ExpiresAt(t) }
func ExpiresIn(d time.Duration) Expiration { return be.ExpiresIn(d) }

// Cache is the bin-aware facade. bin == "" selects the default bin in every
// operation. V is the caller's value type; serialization is handled by a
// pluggable codec.Codec[V].
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// Get returns the live entry for cid, or (zero, false, nil) on a miss.
	Get(ctx context.Context, bin, cid string) (v V, ok bool, err error)

	// GetMultiple resolves many cids at once, returning the satisfied
	// mapping plus the cids that remain unresolved. Partial results are
	// normal.
	GetMultiple(ctx context.Context, bin string, cids []string) (map[string]V, []string, error)

	// Set stores value under cid, overwriting any previous entry.
	// ok=false means the entry was not stored (cache disabled or backend
	// pressure) without an error.
	Set(ctx context.Context, bin, cid string, value V, exp Expiration) (ok bool, err error)

	// Clear removes entries from one bin:
	//
	//	Clear(ctx, bin, "", false)      sweep the bin's expirable entries
	//	Clear(ctx, bin, cid, false)     delete exactly cid
	//	Clear(ctx, bin, pfx, true)      delete every cid with prefix pfx
	//	Clear(ctx, bin, "*", true)      empty the bin, Permanent included
	Clear(ctx context.Context, bin, cid string, wildcard bool) error

	// ClearAll sweeps every known bin (expirable entries only; see Clear
	// with "*" for a full wipe of a bin).
	ClearAll(ctx context.Context) error

	// IsEmpty reports whether the bin holds no live entries.
	IsEmpty(ctx context.Context, bin string) (bool, error)

	// Bins lists the known bins: the default bin first, then bins
	// contributed by collaborators, stable order, deduplicated.
	Bins() []string
}

// Options tune a cache facade. Codec and one of Factory/Registry are
// required; everything else has defaults.
type Options[V any] struct {
	Codec c.Codec[V] // required

	// Factory builds per-bin backends. Ignored when Registry is set.
	Factory be.Factory
	// Registry shares one bin->backend table across several typed caches.
	// When nil, a private registry is built from Factory.
	Registry *Registry

	DefaultBin string          // "" => "default"
	ExtraBins  func() []string // bins contributed by external collaborators
	Logger     Logger          // nil => NopLogger
	Hooks      Hooks           // nil => NopHooks
	Disabled   bool            // true => Gets miss, Sets and Clears never touch storage
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
