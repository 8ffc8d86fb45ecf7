package kvstorage

import (
	"encoding/binary"
	"time"

	"go.uber.org/zap"
)

// arrayStride returns the stride header and element count encoded in an
// ARRAY-flagged payload, or ok=false if the payload is not a
// well-formed array layout.
func arrayStride(e *Element) (stride uint32, n int, ok bool) {
	if !e.hasFlag(FlagArray) || len(e.Payload) < 4 {
		return 0, 0, false
	}
	stride = binary.LittleEndian.Uint32(e.Payload[:4])
	if stride == 0 {
		return 0, 0, false
	}
	rem := len(e.Payload) - 4
	if rem%int(stride) != 0 {
		return 0, 0, false
	}
	return stride, rem / int(stride), true
}

// InsertArray stores data as a fixed-stride array payload: a 4-byte
// little-endian stride prefix followed by len(data)/stride elements of
// exactly stride bytes each. It admits the record via the same
// bounds/expire path as InsertInternal, then requests a backend insert.
func (s *Storage) InsertArray(key string, stride uint32, data []byte, flags Flags, expire time.Duration) (bool, error) {
	if stride == 0 || len(data)%int(stride) != 0 {
		return false, ErrMalformedArray
	}
	payload := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(payload[:4], stride)
	copy(payload[4:], data)

	elt, err := s.InsertInternal(key, payload, flags|FlagArray, expire)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ok := true
	var berr error
	if s.backend != nil {
		if e := s.backend.Insert(key, elt); e != nil {
			ok = false
			berr = wrapBackendErr("insert", key, e)
			s.logger.Warn("backend insert failed", zap.String("key", key), zap.Error(e))
		}
	}
	return ok, berr
}

// SetArray overwrites the element at index within key's array payload
// in place — the only payload mutation this engine permits outside of
// Insert/Replace — then requests a backend replace.
func (s *Storage) SetArray(key string, index int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cache.Lookup(key)
	if !ok || e.Expired(s.clock.Now()) {
		return ErrMalformedArray
	}
	stride, n, ok := arrayStride(e)
	if !ok || uint32(len(data)) != stride || index < 0 || index >= n {
		return ErrMalformedArray
	}

	off := 4 + index*int(stride)
	copy(e.Payload[off:off+int(stride)], data)

	if s.backend != nil {
		if err := s.backend.Replace(key, e); err != nil {
			s.logger.Warn("backend replace failed", zap.String("key", key), zap.Error(err))
			return wrapBackendErr("replace", key, err)
		}
	}
	return nil
}

// GetArray returns a copy of the stride-byte slot at index within key's
// array payload. ok is false if key is absent, expired, not an array, or
// index is out of range.
func (s *Storage) GetArray(key string, index int) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.cache.Lookup(key)
	if !ok || e.Expired(s.clock.Now()) {
		return nil, false
	}
	stride, n, ok := arrayStride(e)
	if !ok || index < 0 || index >= n {
		return nil, false
	}
	off := 4 + index*int(stride)
	out := make([]byte, stride)
	copy(out, e.Payload[off:off+int(stride)])
	return out, true
}
