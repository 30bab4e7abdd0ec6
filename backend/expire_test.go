package backend

import (
	"testing"
	"time"
)

func TestExpirationZeroValueIsPermanent(t *testing.T) {
	var e Expiration
	if !e.IsPermanent() || e.IsTemporary() {
		t.Fatalf("zero Expiration is not Permanent: %v", e)
	}
	if e.Sweepable(time.Now()) {
		t.Fatalf("Permanent must not be sweepable")
	}
}

func TestExpirationClasses(t *testing.T) {
	now := time.Now()
	past := ExpiresAt(now.Add(-time.Minute))
	future := ExpiresAt(now.Add(time.Minute))

	cases := []struct {
		name      string
		e         Expiration
		expired   bool
		sweepable bool
	}{
		{"permanent", Permanent(), false, false},
		{"temporary", Temporary(), false, true},
		{"past deadline", past, true, true},
		{"future deadline", future, false, false},
	}
	for _, tc := range cases {
		if got := tc.e.Expired(now); got != tc.expired {
			t.Errorf("%s: Expired=%v want %v", tc.name, got, tc.expired)
		}
		if got := tc.e.Sweepable(now); got != tc.sweepable {
			t.Errorf("%s: Sweepable=%v want %v", tc.name, got, tc.sweepable)
		}
	}
}

func TestExpirationUnixRoundTrip(t *testing.T) {
	if got := Permanent().Unix(); got != 0 {
		t.Fatalf("Permanent encodes to %d, want 0", got)
	}
	if got := Temporary().Unix(); got != -1 {
		t.Fatalf("Temporary encodes to %d, want -1", got)
	}

	at := time.Unix(1735689600, 0) // an ordinary future-ish instant
	e := FromUnix(ExpiresAt(at).Unix())
	d, ok := e.Deadline()
	if !ok || !d.Equal(at) {
		t.Fatalf("deadline round trip: ok=%v d=%v want %v", ok, d, at)
	}

	if !FromUnix(0).IsPermanent() {
		t.Fatalf("FromUnix(0) not Permanent")
	}
	if !FromUnix(-1).IsTemporary() {
		t.Fatalf("FromUnix(-1) not Temporary")
	}
}

func TestDeadlineOnlyForTimestamped(t *testing.T) {
	if _, ok := Permanent().Deadline(); ok {
		t.Fatalf("Permanent has a deadline")
	}
	if _, ok := Temporary().Deadline(); ok {
		t.Fatalf("Temporary has a deadline")
	}
}
