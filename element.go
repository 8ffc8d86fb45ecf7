package kvstorage

import (
	"sync"
	"time"
)

// Flags bitset carried by every Element.
type Flags uint8

const (
	// FlagPersistent marks an element exempt from LRU eviction. Set
	// automatically when Expire is zero; may also be set explicitly.
	FlagPersistent Flags = 1 << iota
	// FlagDirty marks an element whose backend write is still in flight.
	// A dirty element must not be freed until the write completes.
	FlagDirty
	// FlagNeedFree marks an element that was disposed of while dirty; the
	// party that clears FlagDirty is responsible for finishing disposal.
	FlagNeedFree
	// FlagArray marks an element whose payload is a fixed-stride array,
	// laid out per InsertArray.
	FlagArray
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// hasFlag, setFlag, and clearFlag are the synchronized accessors for
// Flags; use these instead of the bare field from any code path that is
// not already serialized by the façade's RWMutex.
func (e *Element) hasFlag(bit Flags) bool {
	e.flagsMu.Lock()
	defer e.flagsMu.Unlock()
	return e.Flags.has(bit)
}

func (e *Element) setFlag(bit Flags) {
	e.flagsMu.Lock()
	defer e.flagsMu.Unlock()
	e.Flags |= bit
}

func (e *Element) clearFlag(bit Flags) {
	e.flagsMu.Lock()
	defer e.flagsMu.Unlock()
	e.Flags &^= bit
}

// Element is the storage engine's value carrier. Once constructed its Key
// and timestamps are immutable; Payload and Flags may change in place
// (SetArray mutates Payload under the façade's lock; Flags also change
// through the synchronized flag accessors).
type Element struct {
	Key     string
	Payload []byte
	Flags   Flags

	// flagsMu guards Flags specifically. Every other field is touched only
	// under the façade's RWMutex, but Flags also transitions asynchronously
	// from a DeferredBackend's worker goroutines (DIRTY clear, NEED_FREE
	// handling) outside that lock, so it needs its own small mutex.
	flagsMu sync.Mutex

	// hash is the cached xxhash of Key (case-folded), computed once at
	// construction, kept for parity with the original record layout (a
	// cached hash field) even though HashCache's Go map indexes by the
	// folded key string directly rather than by this value.
	hash uint64

	// insertedAt is the element's creation timestamp, stamped from the
	// Storage's Clock at Insert time.
	insertedAt time.Time
	// expiresAt is the absolute expiry instant; the zero Time means no
	// expiry (equivalent to the original's expire == 0, which also forces
	// FlagPersistent).
	expiresAt time.Time

	// node is the expire queue's back-pointer for O(1) removal. nil for
	// elements not tracked by an Expire plug-in; LRUExpire.Delete treats
	// that as a no-op.
	node *expireNode
}

func newElement(key string, payload []byte, flags Flags, expire time.Duration, now time.Time) *Element {
	e := &Element{
		Key:        key,
		Payload:    payload,
		Flags:      flags,
		hash:       hashKey(key),
		insertedAt: now,
	}
	if expire == 0 {
		e.Flags |= FlagPersistent
	} else {
		e.expiresAt = now.Add(expire)
	}
	return e
}

// Expired reports whether the element's expiry instant has passed as of now.
// Persistent elements are never expired.
func (e *Element) Expired(now time.Time) bool {
	if e.hasFlag(FlagPersistent) {
		return false
	}
	if e.expiresAt.IsZero() {
		return false
	}
	return !now.Before(e.expiresAt)
}

// Age returns how long ago the element was inserted, relative to now.
func (e *Element) Age(now time.Time) time.Duration {
	return now.Sub(e.insertedAt)
}

// lifetime returns the configured expire duration the element was created
// with (0 for persistent/no-expiry elements), independent of how much of
// it remains as of now. Re-admitting a record via InsertInternal resets
// its age to now but preserves this original lifetime.
func (e *Element) lifetime(now time.Time) time.Duration {
	if e.hasFlag(FlagPersistent) || e.expiresAt.IsZero() {
		return 0
	}
	d := e.expiresAt.Sub(e.insertedAt)
	if d < 0 {
		return 0
	}
	return d
}
