package kvstorage

// Cache is the primary key→element index plug-in. Implementations decide
// how keys are validated and indexed; the façade does not know which
// strategy is in use.
//
// steal must remove an element from the index without freeing it —
// ownership transfers to the caller, who is responsible for the
// DIRTY/NEED_FREE disposal discipline.
type Cache interface {
	// Insert indexes a freshly constructed element under its Key.
	// Hashed caches steal-and-replace an existing entry for the same key;
	// radix caches are idempotent and return the pre-existing element
	// unchanged. ok is false only on a cache-internal refusal (e.g. an
	// invalid radix key).
	Insert(e *Element) (inserted *Element, ok bool)

	// Replace overwrites the entry for an already-present key. Returns
	// the previous element (for disposal by the caller) and whether the
	// key existed.
	Replace(key string, e *Element) (previous *Element, ok bool)

	// Lookup returns the element indexed under key, if any.
	Lookup(key string) (*Element, bool)

	// Delete removes and returns the element indexed under key.
	Delete(key string) (*Element, bool)

	// Steal removes the element indexed under key from the index without
	// any disposal side effects.
	Steal(key string) (*Element, bool)

	// Len reports the number of entries currently indexed.
	Len() int

	// Destroy releases any resources held by the cache. The cache must
	// not be used afterward.
	Destroy()
}
