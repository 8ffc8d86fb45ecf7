package kvstorage

import (
	"testing"
	"time"
)

func newTestStorage(maxElts int, maxMemory int64, clk Clock) *Storage {
	return New(1, "test", NewHashCache(), nil, NewLRUExpire(), maxElts, maxMemory, WithClock(clk))
}

func TestInsertLookupEvictsOnCapacity(t *testing.T) {
	clk := newFakeClock(time.Unix(0, 0))
	s := newTestStorage(2, 0, clk)

	if ok, err := s.Insert("a", []byte("1"), 0, 10*time.Second); !ok || err != nil {
		t.Fatalf("insert a: ok=%v err=%v", ok, err)
	}
	if ok, err := s.Insert("b", []byte("2"), 0, 10*time.Second); !ok || err != nil {
		t.Fatalf("insert b: ok=%v err=%v", ok, err)
	}
	if ok, err := s.Insert("c", []byte("3"), 0, 10*time.Second); !ok || err != nil {
		t.Fatalf("insert c: ok=%v err=%v", ok, err)
	}

	if _, ok := s.Lookup("a"); ok {
		t.Fatalf("lookup a: expected absent after eviction")
	}
	if e, ok := s.Lookup("b"); !ok || string(e.Payload) != "2" {
		t.Fatalf("lookup b: got %+v ok=%v", e, ok)
	}
	if e, ok := s.Lookup("c"); !ok || string(e.Payload) != "3" {
		t.Fatalf("lookup c: got %+v ok=%v", e, ok)
	}

	if got := s.Stats().CurrentElements; got != 2 {
		t.Fatalf("elts = %d, want 2", got)
	}
}

func TestLookupReportsExpiredWithoutEviction(t *testing.T) {
	clk := newFakeClock(time.Unix(0, 0))
	s := newTestStorage(0, 0, clk)

	if ok, err := s.Insert("x", []byte("v"), 0, 5*time.Second); !ok || err != nil {
		t.Fatalf("insert: ok=%v err=%v", ok, err)
	}

	clk.Advance(4 * time.Second)
	if e, ok := s.Lookup("x"); !ok || string(e.Payload) != "v" {
		t.Fatalf("lookup at t=4: got %+v ok=%v", e, ok)
	}

	clk.Advance(2 * time.Second)
	if _, ok := s.Lookup("x"); ok {
		t.Fatalf("lookup at t=6: expected absent")
	}
	if got := s.Stats().CurrentElements; got != 1 {
		t.Fatalf("expired entry should not be physically evicted by Lookup, elts = %d", got)
	}
}

func TestPersistentElementSurvivesLargeClockAdvance(t *testing.T) {
	clk := newFakeClock(time.Unix(0, 0))
	s := newTestStorage(0, 0, clk)

	if ok, _ := s.Insert("p", []byte("1"), 0, 0); !ok {
		t.Fatalf("insert p failed")
	}
	clk.Advance(time.Duration(1e9) * time.Second)

	if e, ok := s.Lookup("p"); !ok || string(e.Payload) != "1" {
		t.Fatalf("persistent lookup after huge advance: got %+v ok=%v", e, ok)
	}
}

func TestArrayInsertGetSetRoundTrip(t *testing.T) {
	clk := newFakeClock(time.Unix(0, 0))
	s := newTestStorage(0, 0, clk)

	data := []byte{0, 0, 0, 1, 0, 0, 0, 2}
	if ok, err := s.InsertArray("arr", 4, data, 0, 0); !ok || err != nil {
		t.Fatalf("insert array: ok=%v err=%v", ok, err)
	}

	got, ok := s.GetArray("arr", 1)
	if !ok {
		t.Fatalf("get array index 1: absent")
	}
	want := []byte{0, 0, 0, 2}
	if string(got) != string(want) {
		t.Fatalf("get array index 1 = %v, want %v", got, want)
	}

	if err := s.SetArray("arr", 0, []byte{9, 9, 9, 9}); err != nil {
		t.Fatalf("set array: %v", err)
	}
	got, ok = s.GetArray("arr", 0)
	if !ok || string(got) != string([]byte{9, 9, 9, 9}) {
		t.Fatalf("get array index 0 after set = %v ok=%v", got, ok)
	}
}

func TestDuplicateKeyInsertLeavesOneElement(t *testing.T) {
	clk := newFakeClock(time.Unix(0, 0))
	s := newTestStorage(0, 0, clk)

	if ok, _ := s.Insert("k", []byte("v"), 0, 10*time.Second); !ok {
		t.Fatalf("first insert failed")
	}
	if ok, _ := s.Insert("k", []byte("v2"), 0, 10*time.Second); !ok {
		t.Fatalf("second insert failed")
	}

	if got := s.Stats().CurrentElements; got != 1 {
		t.Fatalf("elts after duplicate insert = %d, want 1", got)
	}
	e, ok := s.Lookup("k")
	if !ok || string(e.Payload) != "v2" {
		t.Fatalf("lookup after duplicate insert = %+v ok=%v", e, ok)
	}
}

func TestRadixCacheValidatesIPv4Keys(t *testing.T) {
	clk := newFakeClock(time.Unix(0, 0))
	s := New(1, "radix-test", NewRadixCache(), nil, NewLRUExpire(), 0, 0, WithClock(clk))

	if ok, err := s.Insert("10.0.0.1", []byte("v"), 0, 0); !ok || err != nil {
		t.Fatalf("insert valid ipv4: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.Insert("not-an-ip", []byte("v"), 0, 0); ok {
		t.Fatalf("insert invalid key unexpectedly succeeded")
	}
	if e, ok := s.Lookup("10.0.0.1"); !ok || string(e.Payload) != "v" {
		t.Fatalf("lookup 10.0.0.1 = %+v ok=%v", e, ok)
	}
}

func TestInsertOversizedValueFails(t *testing.T) {
	clk := newFakeClock(time.Unix(0, 0))
	s := newTestStorage(0, 10, clk)

	ok, err := s.Insert("big", make([]byte, 100), 0, 0)
	if ok || err != ErrTooLarge {
		t.Fatalf("insert oversized: ok=%v err=%v, want ErrTooLarge", ok, err)
	}
	if got := s.Stats().CurrentElements; got != 0 {
		t.Fatalf("state changed on rejected insert, elts = %d", got)
	}
}

func TestInsertFailsWhenAllEntriesPinned(t *testing.T) {
	clk := newFakeClock(time.Unix(0, 0))
	s := newTestStorage(11, 0, clk)

	for i := 0; i < 11; i++ {
		key := string(rune('a' + i))
		if ok, _ := s.Insert(key, []byte("v"), FlagPersistent|FlagDirty, 0); !ok {
			t.Fatalf("insert pinned entry %d failed", i)
		}
	}

	ok, err := s.Insert("overflow", []byte("v"), 0, 10*time.Second)
	if ok || err != ErrStorageFull {
		t.Fatalf("insert with 11 pinned heads: ok=%v err=%v, want ErrStorageFull", ok, err)
	}
	if got := s.Stats().CurrentElements; got != 11 {
		t.Fatalf("no eviction expected, elts = %d, want 11", got)
	}
}

func TestDeleteThenLookupAbsent(t *testing.T) {
	clk := newFakeClock(time.Unix(0, 0))
	s := newTestStorage(0, 0, clk)

	s.Insert("k", []byte("v"), 0, 10*time.Second)
	if _, ok := s.Delete("k"); !ok {
		t.Fatalf("delete k: not found")
	}
	if _, ok := s.Lookup("k"); ok {
		t.Fatalf("lookup after delete: expected absent")
	}
}

func TestLookupAdmitsFromBackend(t *testing.T) {
	clk := newFakeClock(time.Unix(0, 0))
	backend := NewMemoryBackend()
	s := New(1, "backend-test", NewHashCache(), backend, NewLRUExpire(), 0, 0, WithClock(clk))

	// Seed the backend directly, bypassing the cache, to simulate a
	// process restart that lost the in-memory index but kept the backend.
	seed := newElement("k", []byte("from-backend"), 0, 10*time.Second, clk.Now())
	backend.Insert("k", seed)

	e, ok := s.Lookup("k")
	if !ok || string(e.Payload) != "from-backend" {
		t.Fatalf("lookup admitted from backend: got %+v ok=%v", e, ok)
	}
	if got := s.Stats().CurrentElements; got != 1 {
		t.Fatalf("backend hit should admit into cache, elts = %d", got)
	}
}
