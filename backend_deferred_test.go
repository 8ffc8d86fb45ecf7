package kvstorage

import (
	"testing"
	"time"
)

func TestDeferredBackendClearsDirtyAfterWrite(t *testing.T) {
	inner := NewMemoryBackend()
	d := NewDeferredBackend(inner, 2, 4, nil)
	defer d.Destroy()

	e := &Element{Key: "k", Payload: []byte("v")}
	if err := d.Insert("k", e); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !e.hasFlag(FlagDirty) {
		t.Fatalf("element should be DIRTY immediately after a deferred insert")
	}

	deadline := time.Now().Add(time.Second)
	for e.hasFlag(FlagDirty) {
		if time.Now().After(deadline) {
			t.Fatalf("DIRTY flag was never cleared by the worker")
		}
		time.Sleep(time.Millisecond)
	}

	if _, ok := inner.Lookup("k"); !ok {
		t.Fatalf("wrapped backend never received the deferred write")
	}
}

func TestDeferredBackendHonorsNeedFree(t *testing.T) {
	inner := NewMemoryBackend()
	d := NewDeferredBackend(inner, 1, 4, nil)
	defer d.Destroy()

	e := &Element{Key: "k", Payload: []byte("v"), Flags: FlagNeedFree}
	d.Insert("k", e)

	deadline := time.Now().Add(time.Second)
	for e.hasFlag(FlagDirty) {
		if time.Now().After(deadline) {
			t.Fatalf("DIRTY flag was never cleared by the worker")
		}
		time.Sleep(time.Millisecond)
	}
	if e.hasFlag(FlagNeedFree) {
		t.Fatalf("NEED_FREE should be cleared once the deferred write completes")
	}
}
