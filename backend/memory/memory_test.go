package memory

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	be "github.com/unkn0wn-root/bincache/backend"
)

func TestLazyExpiryOnGet(t *testing.T) {
	ctx := context.Background()
	b := New()

	_, _ = b.Set(ctx, "stale", []byte("x"), be.ExpiresAt(time.Now().Add(-time.Second)))
	if _, ok, _ := b.Get(ctx, "stale"); ok {
		t.Fatalf("expired entry returned")
	}
	// the read dropped it; the bin is now empty
	if empty, _ := b.IsEmpty(ctx); !empty {
		t.Fatalf("expired entry still counted after lazy removal")
	}
}

// A Get that lazily drops an expired entry must not take a concurrently
// written fresh entry for the same cid down with it.
func TestLazyExpiryKeepsConcurrentOverwrite(t *testing.T) {
	ctx := context.Background()
	b := New()

	for i := 0; i < 200; i++ {
		_, _ = b.Set(ctx, "k", []byte("old"), be.ExpiresAt(time.Now().Add(-time.Second)))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = b.Get(ctx, "k")
		}()
		_, _ = b.Set(ctx, "k", []byte("new"), be.Permanent())
		wg.Wait()

		if got, ok, _ := b.Get(ctx, "k"); !ok || string(got) != "new" {
			t.Fatalf("iteration %d: fresh overwrite lost: ok=%v got=%q", i, ok, got)
		}
	}
}

func TestSweepSelectsExpirableOnly(t *testing.T) {
	ctx := context.Background()
	b := New()

	_, _ = b.Set(ctx, "perm", []byte("p"), be.Permanent())
	_, _ = b.Set(ctx, "temp", []byte("t"), be.Temporary())
	_, _ = b.Set(ctx, "stale", []byte("s"), be.ExpiresAt(time.Now().Add(-time.Second)))
	_, _ = b.Set(ctx, "live", []byte("l"), be.ExpiresAt(time.Now().Add(time.Hour)))

	if err := b.Clear(ctx, "", false); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	for _, cid := range []string{"temp", "stale"} {
		if _, ok, _ := b.Get(ctx, cid); ok {
			t.Fatalf("%s survived sweep", cid)
		}
	}
	for _, cid := range []string{"perm", "live"} {
		if _, ok, _ := b.Get(ctx, cid); !ok {
			t.Fatalf("%s removed by sweep", cid)
		}
	}
}

func TestPrefixAndStarClear(t *testing.T) {
	ctx := context.Background()
	b := New()

	for _, cid := range []string{"foo1", "foo2", "bar"} {
		_, _ = b.Set(ctx, cid, []byte(cid), be.Permanent())
	}

	if err := b.Clear(ctx, "foo", true); err != nil {
		t.Fatalf("prefix clear: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "bar"); !ok {
		t.Fatalf("bar removed by prefix clear")
	}

	if err := b.Clear(ctx, be.Wildcard, true); err != nil {
		t.Fatalf("star clear: %v", err)
	}
	if empty, _ := b.IsEmpty(ctx); !empty {
		t.Fatalf("bin not empty after star clear")
	}
}

func TestGetMultiplePreservesRequestOrder(t *testing.T) {
	ctx := context.Background()
	b := New()

	_, _ = b.Set(ctx, "a", []byte("A"), be.Permanent())
	_, _ = b.Set(ctx, "c", []byte("C"), be.Permanent())

	found, missing, err := b.GetMultiple(ctx, []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("GetMultiple: %v", err)
	}
	if len(found) != 2 || string(found["a"]) != "A" || string(found["c"]) != "C" {
		t.Fatalf("found: %v", found)
	}
	if !reflect.DeepEqual(missing, []string{"b", "d"}) {
		t.Fatalf("missing out of order: %v", missing)
	}
}
