package bincache

import (
	"context"
	"fmt"

	c "github.com/unkn0wn-root/bincache/codec"
)

type cache[V any] struct {
	reg        *Registry
	codec      c.Codec[V]
	log        Logger
	hooks      Hooks
	defaultBin string
	extraBins  func() []string
	enabled    bool
	ownsReg    bool
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Codec == nil {
		return nil, fmt.Errorf("bincache: codec is required")
	}
	if opts.Registry == nil && opts.Factory == nil {
		return nil, fmt.Errorf("bincache: factory or registry is required")
	}

	ca := &cache[V]{
		reg:       opts.Registry,
		codec:     opts.Codec,
		extraBins: opts.ExtraBins,
		enabled:   !opts.Disabled,
	}
	if ca.reg == nil {
		ca.reg = NewRegistry(opts.Factory)
		ca.ownsReg = true
	}

	ca.log = coalesce[Logger](opts.Logger, NopLogger{})
	ca.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	ca.defaultBin = coalesce[string](opts.DefaultBin, DefaultBin)
	return ca, nil
}

func (ca *cache[V]) Enabled() bool { return ca.enabled }

// Close releases backends only when the registry is private to this cache.
// A shared registry belongs to the application.
func (ca *cache[V]) Close(ctx context.Context) error {
	if ca.ownsReg {
		return ca.reg.Close(ctx)
	}
	return nil
}

func (ca *cache[V]) bin(bin string) string {
	if bin == "" {
		return ca.defaultBin
	}
	return bin
}

func (ca *cache[V]) Get(ctx context.Context, bin, cid string) (V, bool, error) {
	var zero V
	if !ca.enabled {
		return zero, false, nil
	}
	bin = ca.bin(bin)
	b := ca.reg.Resolve(bin)

	raw, ok, err := b.Get(ctx, cid)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		ca.log.Debug("cache MISS", Fields{"bin": bin, "cid": cid})
		ca.hooks.Miss(bin, cid)
		return zero, false, nil
	}
	v, derr := ca.codec.Decode(raw)
	if derr != nil {
		// undecodable entry is as good as absent; drop it
		_ = b.Clear(ctx, cid, false)
		ca.hooks.SelfHeal(bin, cid, "value_decode")
		ca.log.Debug("cache MISS", Fields{"bin": bin, "cid": cid})
		ca.hooks.Miss(bin, cid)
		return zero, false, nil
	}
	ca.log.Debug("cache HIT", Fields{"bin": bin, "cid": cid})
	ca.hooks.Hit(bin, cid)
	return v, true, nil
}

func (ca *cache[V]) GetMultiple(ctx context.Context, bin string, cids []string) (map[string]V, []string, error) {
	out := make(map[string]V, len(cids))
	if !ca.enabled {
		return out, append([]string(nil), cids...), nil
	}
	if len(cids) == 0 {
		return out, nil, nil
	}
	bin = ca.bin(bin)
	b := ca.reg.Resolve(bin)

	found, missing, err := b.GetMultiple(ctx, cids)
	if err != nil {
		return out, missing, err
	}
	for _, cid := range cids {
		raw, ok := found[cid]
		if !ok {
			continue
		}
		v, derr := ca.codec.Decode(raw)
		if derr != nil {
			_ = b.Clear(ctx, cid, false)
			ca.hooks.SelfHeal(bin, cid, "value_decode")
			missing = append(missing, cid)
			continue
		}
		out[cid] = v
	}
	ca.log.Debug("cache multi-get", Fields{
		"bin": bin, "requested": len(cids), "hits": len(out),
	})
	return out, missing, nil
}

func (ca *cache[V]) Set(ctx context.Context, bin, cid string, value V, exp Expiration) (bool, error) {
	if !ca.enabled {
		return false, nil
	}
	bin = ca.bin(bin)

	payload, err := ca.codec.Encode(value)
	if err != nil {
		return false, err
	}
	ok, err := ca.reg.Resolve(bin).Set(ctx, cid, payload, exp)
	if err != nil {
		return false, err
	}
	if !ok {
		// quiet by contract: a failed write must not disturb the caller
		ca.hooks.SetRejected(bin, cid)
		return false, nil
	}
	ca.log.Debug("cache SET", Fields{"bin": bin, "cid": cid, "expire": exp.String()})
	return true, nil
}

func (ca *cache[V]) Clear(ctx context.Context, bin, cid string, wildcard bool) error {
	if !ca.enabled {
		return nil
	}
	bin = ca.bin(bin)
	if err := ca.reg.Resolve(bin).Clear(ctx, cid, wildcard); err != nil {
		return err
	}
	if cid == "" {
		ca.hooks.Sweep(bin)
	}
	ca.log.Debug("cache CLEAR", Fields{"bin": bin, "cid": cid, "wildcard": wildcard})
	return nil
}

// ClearAll sweeps expirable entries out of every known bin, including bins
// that were resolved at runtime but never listed by a collaborator. Per-bin
// failures are collected; surviving bins are still swept.
func (ca *cache[V]) ClearAll(ctx context.Context) error {
	if !ca.enabled {
		return nil
	}
	bins := ca.Bins()
	seen := make(map[string]struct{}, len(bins))
	for _, bin := range bins {
		seen[bin] = struct{}{}
	}
	for _, bin := range ca.reg.Bins() {
		if _, ok := seen[bin]; !ok {
			bins = append(bins, bin)
		}
	}

	var sweepErr *SweepError
	for _, bin := range bins {
		if err := ca.reg.Resolve(bin).Clear(ctx, "", false); err != nil {
			if sweepErr == nil {
				sweepErr = &SweepError{Failures: make(map[string]error)}
			}
			sweepErr.Failures[bin] = err
			continue
		}
		ca.hooks.Sweep(bin)
	}
	if sweepErr != nil {
		return sweepErr
	}
	return nil
}

func (ca *cache[V]) IsEmpty(ctx context.Context, bin string) (bool, error) {
	if !ca.enabled {
		return true, nil
	}
	return ca.reg.Resolve(ca.bin(bin)).IsEmpty(ctx)
}

func (ca *cache[V]) Bins() []string {
	out := []string{ca.defaultBin}
	if ca.extraBins == nil {
		return out
	}
	seen := map[string]struct{}{ca.defaultBin: {}}
	for _, bin := range ca.extraBins() {
		if _, ok := seen[bin]; ok || bin == "" {
			continue
		}
		seen[bin] = struct{}{}
		out = append(out, bin)
	}
	return out
}
