package bincache

import (
	"fmt"
	"sort"
	"strings"
)

// SweepError reports the bins a ClearAll sweep could not clear. Bins absent
// from Failures were swept normally.
type SweepError struct {
	Failures map[string]error // bin -> failure
}

func (e *SweepError) Error() string {
	if len(e.Failures) == 0 {
		return "clear all bins: unknown error"
	}
	bins := make([]string, 0, len(e.Failures))
	for bin := range e.Failures {
		bins = append(bins, bin)
	}
	sort.Strings(bins)

	var sb strings.Builder
	fmt.Fprintf(&sb, "clear all bins: %d bin(s) failed:", len(bins))
	for _, bin := range bins {
		fmt.Fprintf(&sb, " %s=%v;", bin, e.Failures[bin])
	}
	return strings.TrimSuffix(sb.String(), ";")
}

func (e *SweepError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		errs = append(errs, err)
	}
	return errs
}
