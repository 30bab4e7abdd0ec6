package file

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	be "github.com/unkn0wn-root/bincache/backend"
)

func TestRoundTripAndPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b := New(dir)
	ok, err := b.Set(ctx, "remote/meta", []byte("payload"), be.Permanent())
	if err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}

	// a second Bin over the same directory models the next CLI invocation
	b2 := New(dir)
	got, ok, err := b2.Get(ctx, "remote/meta")
	if err != nil || !ok || string(got) != "payload" {
		t.Fatalf("entry did not survive: ok=%v err=%v got=%q", ok, err, got)
	}
}

func TestMissOnAbsentDirAndEntry(t *testing.T) {
	ctx := context.Background()
	b := New(filepath.Join(t.TempDir(), "never-written"))

	if _, ok, err := b.Get(ctx, "anything"); err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
	if empty, err := b.IsEmpty(ctx); err != nil || !empty {
		t.Fatalf("absent dir should be empty: empty=%v err=%v", empty, err)
	}
	if err := b.Clear(ctx, "", false); err != nil {
		t.Fatalf("sweep of absent dir: %v", err)
	}
}

func TestExpiredEntryUnlinkedOnRead(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir)

	_, _ = b.Set(ctx, "stale", []byte("x"), be.ExpiresAt(time.Now().Add(-time.Minute)))
	if _, ok, _ := b.Get(ctx, "stale"); ok {
		t.Fatalf("expired entry returned")
	}
	ents, _ := os.ReadDir(dir)
	if len(ents) != 0 {
		t.Fatalf("expired file left behind: %v", ents)
	}
}

func TestCorruptFileHealedOnRead(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir)

	_, _ = b.Set(ctx, "k", []byte("good"), be.Permanent())

	// stomp the entry with garbage
	ents, _ := os.ReadDir(dir)
	if len(ents) != 1 {
		t.Fatalf("expected one entry file, got %d", len(ents))
	}
	p := filepath.Join(dir, ents[0].Name())
	if err := os.WriteFile(p, []byte("not an envelope"), 0o600); err != nil {
		t.Fatalf("stomp: %v", err)
	}

	if _, ok, err := b.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("corrupt entry should miss: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("corrupt file not removed")
	}
}

// A read failure mid-batch reports every requested cid as missing exactly
// once, not the already-missed ones twice.
func TestGetMultipleErrorListsEachCIDOnce(t *testing.T) {
	ctx := context.Background()
	b := New(t.TempDir())

	_, _ = b.Set(ctx, "c", []byte("C"), be.Permanent())
	// a directory where an entry file should be makes the read fail
	if err := os.MkdirAll(b.path("boom"), 0o755); err != nil {
		t.Fatalf("plant: %v", err)
	}

	found, missing, err := b.GetMultiple(ctx, []string{"absent", "boom", "c"})
	if err == nil {
		t.Fatalf("expected a read error")
	}
	if len(found) != 0 {
		t.Fatalf("partial values on error path: %v", found)
	}
	if !reflect.DeepEqual(missing, []string{"absent", "boom", "c"}) {
		t.Fatalf("missing: %v", missing)
	}
}

func TestSweepAndPrefixClear(t *testing.T) {
	ctx := context.Background()
	b := New(t.TempDir())

	_, _ = b.Set(ctx, "perm", []byte("p"), be.Permanent())
	_, _ = b.Set(ctx, "temp", []byte("t"), be.Temporary())
	_, _ = b.Set(ctx, "cmd:ls", []byte("1"), be.Permanent())
	_, _ = b.Set(ctx, "cmd:rm", []byte("2"), be.Permanent())

	if err := b.Clear(ctx, "", false); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "temp"); ok {
		t.Fatalf("temp survived sweep")
	}
	if _, ok, _ := b.Get(ctx, "perm"); !ok {
		t.Fatalf("perm removed by sweep")
	}

	// prefix clear works even though filenames are hashed
	if err := b.Clear(ctx, "cmd:", true); err != nil {
		t.Fatalf("prefix clear: %v", err)
	}
	for _, cid := range []string{"cmd:ls", "cmd:rm"} {
		if _, ok, _ := b.Get(ctx, cid); ok {
			t.Fatalf("%s survived prefix clear", cid)
		}
	}
	if _, ok, _ := b.Get(ctx, "perm"); !ok {
		t.Fatalf("perm removed by prefix clear")
	}
}

func TestStarClearRemovesDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir)

	_, _ = b.Set(ctx, "a", []byte("1"), be.Permanent())
	_, _ = b.Set(ctx, "b", []byte("2"), be.Temporary())

	if err := b.Clear(ctx, be.Wildcard, true); err != nil {
		t.Fatalf("star clear: %v", err)
	}
	if empty, _ := b.IsEmpty(ctx); !empty {
		t.Fatalf("bin not empty after star clear")
	}
	// writes still work afterwards
	if ok, err := b.Set(ctx, "c", []byte("3"), be.Permanent()); err != nil || !ok {
		t.Fatalf("Set after star clear: ok=%v err=%v", ok, err)
	}
}

func TestOverwriteIsAtomicReplace(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir)

	_, _ = b.Set(ctx, "k", []byte("old"), be.Permanent())
	_, _ = b.Set(ctx, "k", []byte("new"), be.Permanent())

	got, ok, _ := b.Get(ctx, "k")
	if !ok || string(got) != "new" {
		t.Fatalf("overwrite: ok=%v got=%q", ok, got)
	}
	// no temp files left behind
	ents, _ := os.ReadDir(dir)
	if len(ents) != 1 {
		t.Fatalf("stray files after overwrite: %v", ents)
	}
}
