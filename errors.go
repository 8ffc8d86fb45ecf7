package kvstorage

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Storage operations. Callers should use
// errors.Is against these rather than comparing error strings.
var (
	// ErrTooLarge is returned when a value's encoded size exceeds the
	// storage's configured maximum memory bound on its own.
	ErrTooLarge = errors.New("kvstorage: value exceeds max memory")

	// ErrStorageFull is returned when the expire strategy could not make
	// room for a new element within MaxExpireSteps attempts.
	ErrStorageFull = errors.New("kvstorage: storage full, could not evict enough room")

	// ErrCacheRejected is returned when the cache plug-in refuses a key,
	// e.g. a non-IPv4 key presented to RadixCache.
	ErrCacheRejected = errors.New("kvstorage: cache rejected key")

	// ErrMalformedArray is returned by the array-entry helpers when an
	// element's flags, stride, or index are inconsistent with an array
	// layout.
	ErrMalformedArray = errors.New("kvstorage: malformed array entry")

	// ErrClosed names the state of a backend whose worker pool has been
	// shut down. No operation in this package returns it: DeferredBackend
	// has no closed-state check, and its Insert or Replace after Destroy
	// panics on the closed job channel.
	ErrClosed = errors.New("kvstorage: backend closed")
)

// BackendError wraps a failure returned by a Backend plug-in. The cache
// index remains authoritative even when a BackendError is returned —
// callers should log it and continue, not roll back the cache mutation.
type BackendError struct {
	Op  string
	Key string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("kvstorage: backend %s(%q): %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func wrapBackendErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Key: key, Err: err}
}
