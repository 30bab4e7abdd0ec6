// Package file persists a bin as a directory of envelope files, so cached
// data survives across invocations of a short-lived CLI process.
//
// Each entry lives in <root>/<bin>/<hash(cid)>. The clear cid sits inside the
// envelope; reads verify it against the requested cid, and prefix clears
// recover it without needing reversible filenames. Writes go through a temp
// file plus rename so concurrent processes never observe a torn entry.
package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	be "github.com/unkn0wn-root/bincache/backend"
	"github.com/unkn0wn-root/bincache/internal/util"
	"github.com/unkn0wn-root/bincache/internal/wire"
)

const dirPerm = 0o755

// Bin is one bin's directory. The zero value is not usable; construct with
// New or through Factory.
type Bin struct {
	dir string
}

var _ be.Backend = (*Bin)(nil)

// New binds a Bin to dir. The directory is created lazily on first write,
// so construction never fails.
func New(dir string) *Bin { return &Bin{dir: dir} }

// Factory places every bin in its own subdirectory of root.
func Factory(root string) be.Factory {
	return func(bin string) be.Backend { return New(filepath.Join(root, bin)) }
}

// Dir exposes the bin directory (diagnostics only).
func (b *Bin) Dir() string { return b.dir }

func (b *Bin) path(cid string) string {
	return filepath.Join(b.dir, util.EncodeCID(cid))
}

func (b *Bin) Get(_ context.Context, cid string) ([]byte, bool, error) {
	p := b.path(cid)
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	storedCID, exp, payload, derr := wire.Decode(raw)
	if derr != nil || storedCID != cid {
		// corrupt or foreign file under our name; self-heal
		_ = os.Remove(p)
		return nil, false, nil
	}
	if be.FromUnix(exp).Expired(time.Now()) {
		_ = os.Remove(p)
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
	if err := os.MkdirAll(b.dir, dirPerm); err != nil {
		return false, err
	}

	env := wire.Encode(cid, exp.Unix(), value)

	tmp, err := os.CreateTemp(b.dir, ".put-*")
	if err != nil {
		return false, err
	}
	if _, err := tmp.Write(env); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return false, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return false, err
	}
	// atomic replace; last writer wins across processes
	if err := os.Rename(tmp.Name(), b.path(cid)); err != nil {
		_ = os.Remove(tmp.Name())
		return false, err
	}
	return true, nil
}

func (b *Bin) Clear(_ context.Context, cid string, wildcard bool) error {
	switch {
	case cid == "":
		return b.sweep(func(stored string, exp be.Expiration) bool {
			return exp.Sweepable(time.Now())
		})
	case wildcard && cid == be.Wildcard:
		err := os.RemoveAll(b.dir)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	case wildcard:
		return b.sweep(func(stored string, _ be.Expiration) bool {
			return strings.HasPrefix(stored, cid)
		})
	default:
		err := os.Remove(b.path(cid))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
}

// sweep walks the bin directory and removes entries drop() selects.
// Unreadable or corrupt files are removed too.
func (b *Bin) sweep(drop func(cid string, exp be.Expiration) bool) error {
	ents, err := os.ReadDir(b.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, de := range ents {
		if de.IsDir() {
			continue
		}
		p := filepath.Join(b.dir, de.Name())
		raw, rerr := os.ReadFile(p)
		if rerr != nil {
			continue
		}
		stored, exp, derr := wire.DecodeHeader(raw)
		if derr != nil || drop(stored, be.FromUnix(exp)) {
			_ = os.Remove(p)
		}
	}
	return nil
}

func (b *Bin) IsEmpty(_ context.Context) (bool, error) {
	ents, err := os.ReadDir(b.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	now := time.Now()
	for _, de := range ents {
		if de.IsDir() {
			continue
		}
		raw, rerr := os.ReadFile(filepath.Join(b.dir, de.Name()))
		if rerr != nil {
			continue
		}
		if _, exp, derr := wire.DecodeHeader(raw); derr == nil && !be.FromUnix(exp).Expired(now) {
			return false, nil
		}
	}
	return true, nil
}

func (b *Bin) Close(context.Context) error { return nil }
