package kvstorage

import "time"

// Expire is the eviction-order plug-in. It tracks elements in an order
// private to the strategy (insertion order, for LRUExpire) and exposes a
// single-pass Step that the façade drives, bounded by MaxExpireSteps.
type Expire interface {
	// Insert records e in the eviction structure. Called once per element
	// admitted to the cache.
	Insert(e *Element)

	// Delete unlinks e from the eviction structure. Called whenever an
	// element leaves the cache through any path (delete, steal, replace).
	Delete(e *Element)

	// Step inspects the front of the eviction order and evicts zero or
	// more victims from s, using now as the expiry reference. forced
	// allows evicting PERSISTENT/DIRTY heads; the façade's makeRoom always
	// passes false. Returns true if the head
	// was inspected (the façade uses its own step counter, not this
	// return value, as the loop's termination condition).
	Step(s *Storage, now time.Time, forced bool) bool

	// Destroy releases resources. The Expire must not be used afterward.
	Destroy()
}

// MaxExpireSteps bounds the façade's evict-until-room loop.
const MaxExpireSteps = 10
