package bincache

import (
	"context"
	"reflect"
	"testing"

	be "github.com/unkn0wn-root/bincache/backend"
	"github.com/unkn0wn-root/bincache/backend/memory"
)

func TestRegistryResolveIsIdempotent(t *testing.T) {
	constructed := 0
	reg := NewRegistry(func(string) be.Backend {
		constructed++
		return memory.New()
	})

	b1 := reg.Resolve("default")
	b2 := reg.Resolve("default")
	if b1 != b2 {
		t.Fatalf("same bin resolved to different backends")
	}
	if constructed != 1 {
		t.Fatalf("factory called %d times for one bin", constructed)
	}

	reg.Resolve("other")
	if constructed != 2 {
		t.Fatalf("factory not called for a new bin")
	}
}

// Both handles must observe the same underlying bin identity.
func TestRegistryHandlesShareState(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(memory.Factory())

	h1 := reg.Resolve("default")
	h2 := reg.Resolve("default")

	if _, err := h1.Set(ctx, "k", []byte("v"), be.Permanent()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := h2.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("write via h1 invisible via h2: ok=%v err=%v got=%q", ok, err, got)
	}
}

func TestRegistryBinsSorted(t *testing.T) {
	reg := NewRegistry(memory.Factory())
	for _, bin := range []string{"zeta", "alpha", "mid"} {
		reg.Resolve(bin)
	}
	got := reg.Bins()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Bins: got %v want %v", got, want)
	}
}

func TestRegistryCloseResets(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(memory.Factory())

	h := reg.Resolve("default")
	_, _ = h.Set(ctx, "k", []byte("v"), be.Permanent())

	if err := reg.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(reg.Bins()) != 0 {
		t.Fatalf("backends survive Close: %v", reg.Bins())
	}
	// resolving again constructs a fresh backend
	if _, ok, _ := reg.Resolve("default").Get(ctx, "k"); ok {
		t.Fatalf("state leaked across Close")
	}
}
