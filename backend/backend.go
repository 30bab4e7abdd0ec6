// Package backend defines the storage capability a cache bin delegates to.
//
// A Backend owns one bin's keyspace. Implementations decide how entries are
// persisted (process memory, files, Redis, ...) but must honor the expiration
// policy attached to every Set: a Permanent entry survives until explicitly
// deleted, a Temporary entry is removed by the no-target Clear sweep, and a
// timestamped entry behaves as Temporary once its deadline passes. Expiry is
// enforced lazily; an expired entry must read as a miss even if the bytes are
// still on disk.
//
// Backends must be byte-for-byte transparent: Get returns exactly the []byte
// previously passed to Set for the same cid. Envelope framing, compression or
// other internal transforms must be fully reversed before returning.
package backend

import (
	"context"
	"time"
)

// Wildcard is the cid that, combined with wildcard=true, clears an entire
// bin including Permanent entries.
const Wildcard = "*"

// Backend is the per-bin storage contract.
// Get returns (value, true, nil) on a live hit and (nil, false, nil) on a
// miss or an expired entry; IO/remote failures come back as (nil, false, err).
type Backend interface {
	Get(ctx context.Context, cid string) ([]byte, bool, error)

	// GetMultiple resolves many cids in one call. It returns the values for
	// every cid with a live entry plus the cids that could not be satisfied.
	// Partial results are normal, not an error.
	GetMultiple(ctx context.Context, cids []string) (map[string][]byte, []string, error)

	// Set stores value under cid with the given expiration policy,
	// overwriting any previous entry. ok=false means the store rejected the
	// write (pressure, disabled, ...) without failing.
	Set(ctx context.Context, cid string, value []byte, exp Expiration) (ok bool, err error)

	// Clear removes entries from the bin:
	//
	//	Clear(ctx, "", false)        sweep: remove expirable entries only
	//	Clear(ctx, cid, false)       remove exactly cid
	//	Clear(ctx, prefix, true)     remove every cid with the literal prefix
	//	Clear(ctx, Wildcard, true)   remove everything, Permanent included
	Clear(ctx context.Context, cid string, wildcard bool) error

	// IsEmpty reports whether the bin holds no live entries.
	IsEmpty(ctx context.Context) (bool, error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// Factory builds the backend for a bin on first use. Construction must not
// fail; anything that can go wrong (permissions, connectivity) belongs to the
// backend's own operations.
type Factory func(bin string) Backend

const (
	kindPermanent int8 = iota
	kindTemporary
	kindTimestamp
)

// Wire sentinels for the two non-timestamp policies. Any other encoded value
// is an absolute Unix-seconds deadline.
const (
	unixPermanent int64 = 0
	unixTemporary int64 = -1
)

// Expiration is the lifetime policy of an entry: Permanent, Temporary, or a
// concrete deadline. The zero value is Permanent.
type Expiration struct {
	kind int8
	at   time.Time
}

// Permanent never expires; only explicit deletion removes the entry.
func Permanent() Expiration { return Expiration{kind: kindPermanent} }

// Temporary marks the entry for removal on the next untargeted sweep.
func Temporary() Expiration { return Expiration{kind: kindTemporary} }

// ExpiresAt behaves as live until t, then as Temporary.
func ExpiresAt(t time.Time) Expiration { return Expiration{kind: kindTimestamp, at: t} }

// ExpiresIn is shorthand for ExpiresAt(now+d).
func ExpiresIn(d time.Duration) Expiration { return ExpiresAt(time.Now().Add(d)) }

func (e Expiration) IsPermanent() bool { return e.kind == kindPermanent }
func (e Expiration) IsTemporary() bool { return e.kind == kindTemporary }

// Deadline returns the expiration instant and true for timestamped entries.
func (e Expiration) Deadline() (time.Time, bool) {
	if e.kind != kindTimestamp {
		return time.Time{}, false
	}
	return e.at, true
}

// Expired reports whether a timestamped deadline has passed at now.
// Permanent and Temporary entries never report true here; Temporary removal
// is the sweep's job, not the read path's.
func (e Expiration) Expired(now time.Time) bool {
	return e.kind == kindTimestamp && now.After(e.at)
}

// Sweepable reports whether an untargeted Clear sweep may remove the entry:
// Temporary entries always, timestamped entries once expired.
func (e Expiration) Sweepable(now time.Time) bool {
	return e.kind == kindTemporary || e.Expired(now)
}

// Unix encodes the policy as a single integer: 0 permanent, -1 temporary,
// otherwise the deadline in Unix seconds. This is the on-wire and
// external-collaborator representation.
func (e Expiration) Unix() int64 {
	switch e.kind {
	case kindTemporary:
		return unixTemporary
	case kindTimestamp:
		return e.at.Unix()
	default:
		return unixPermanent
	}
}

// FromUnix is the inverse of Unix.
func FromUnix(sec int64) Expiration {
	switch sec {
	case unixPermanent:
		return Permanent()
	case unixTemporary:
		return Temporary()
	default:
		return ExpiresAt(time.Unix(sec, 0))
	}
}

func (e Expiration) String() string {
	switch e.kind {
	case kindTemporary:
		return "temporary"
	case kindTimestamp:
		return "expires " + e.at.UTC().Format(time.RFC3339)
	default:
		return "permanent"
	}
}
