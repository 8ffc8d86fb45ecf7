package kvstorage

import (
	"testing"
	"time"
)

func TestNewElementZeroExpireIsPersistent(t *testing.T) {
	now := time.Unix(0, 0)
	e := newElement("k", []byte("v"), 0, 0, now)
	if !e.Flags.has(FlagPersistent) {
		t.Fatalf("expire=0 should force FlagPersistent")
	}
	if e.Expired(now.Add(time.Hour * 24 * 365)) {
		t.Fatalf("persistent element reported expired")
	}
}

func TestElementExpiredBoundary(t *testing.T) {
	now := time.Unix(0, 0)
	e := newElement("k", []byte("v"), 0, 5*time.Second, now)

	if e.Expired(now.Add(4 * time.Second)) {
		t.Fatalf("element reported expired before its expiry instant")
	}
	if !e.Expired(now.Add(5 * time.Second)) {
		t.Fatalf("element at exactly its expiry instant should report expired")
	}
}

func TestElementNegativeAgeTreatedAsNotExpired(t *testing.T) {
	now := time.Unix(100, 0)
	e := newElement("k", []byte("v"), 0, 5*time.Second, now)

	// Clock skew: "now" moves backward relative to insertedAt.
	if e.Expired(now.Add(-time.Hour)) {
		t.Fatalf("clock skew should be treated as not expired")
	}
}

func TestElementLifetimeReportsConfiguredExpire(t *testing.T) {
	now := time.Unix(0, 0)
	e := newElement("k", []byte("v"), 0, 10*time.Second, now)
	if got := e.lifetime(now); got != 10*time.Second {
		t.Fatalf("lifetime = %v, want 10s", got)
	}

	p := newElement("p", []byte("v"), FlagPersistent, 0, now)
	if got := p.lifetime(now); got != 0 {
		t.Fatalf("persistent element lifetime = %v, want 0", got)
	}
}
