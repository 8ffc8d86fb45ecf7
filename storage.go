package kvstorage

import (
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// recordOverhead approximates the per-element bookkeeping cost added on
// top of payload size when accounting against MaxMemory, standing in for
// the original single-allocation record header.
const recordOverhead int64 = 48

// Storage is the façade orchestrating a Cache, an Expire policy, and an
// optional Backend under a single reader/writer lock. Construct with New.
type Storage struct {
	mu sync.RWMutex

	id   int
	name string

	cache   Cache
	backend Backend
	expire  Expire

	maxElts   int
	maxMemory int64

	elts   int64
	memory int64

	clock  Clock
	logger Logger
	stats  atomicStats

	coalesceLookups bool
	sf              singleflight.Group
}

// New constructs a Storage. maxElts == 0 disables the element-count bound;
// maxMemory == 0 disables the memory bound. If name is empty, the decimal
// rendering of id is used.
func New(id int, name string, cache Cache, backend Backend, expire Expire, maxElts int, maxMemory int64, opts ...Option) *Storage {
	if name == "" {
		name = strconv.Itoa(id)
	}
	s := &Storage{
		id:              id,
		name:            name,
		cache:           cache,
		backend:         backend,
		expire:          expire,
		maxElts:         maxElts,
		maxMemory:       maxMemory,
		clock:           RealClock{},
		logger:          noopLogger{},
		coalesceLookups: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func recordSize(e *Element) int64 {
	return int64(len(e.Payload)) + recordOverhead
}

func (s *Storage) overBound(size int64) bool {
	if s.maxMemory > 0 && s.memory+size > s.maxMemory {
		return true
	}
	if s.maxElts > 0 && s.elts >= int64(s.maxElts) {
		return true
	}
	return false
}

// makeRoom runs the bound-check/evict loop described in §4.1 step 2,
// capped at MaxExpireSteps.
func (s *Storage) makeRoom(size int64) error {
	if s.maxMemory > 0 && size > s.maxMemory {
		s.logger.Info("insert rejected, value exceeds max memory",
			zap.Int64("size", size), zap.Int64("max_memory", s.maxMemory))
		return ErrTooLarge
	}
	steps := 0
	for s.overBound(size) {
		if steps >= MaxExpireSteps {
			s.logger.Warn("storage full, could not evict enough room",
				zap.String("storage", s.name), zap.Int("steps", steps))
			return ErrStorageFull
		}
		if s.expire != nil {
			s.expire.Step(s, s.clock.Now(), false)
		}
		steps++
	}
	return nil
}

// disposeVictim removes e from the cache and expire structures and
// applies the DIRTY/NEED_FREE disposal rule. Called by Expire
// implementations from within Step.
func (s *Storage) disposeVictim(e *Element, expired bool) {
	s.cache.Steal(e.Key)
	s.expire.Delete(e)
	s.elts--
	s.memory -= recordSize(e)
	if e.hasFlag(FlagDirty) {
		e.setFlag(FlagNeedFree)
	}
	if expired {
		s.stats.recordExpiration()
	} else {
		s.stats.recordEviction()
	}
}

// stealPrevious removes and disposes of an existing entry for key ahead of
// an Insert, per §4.1 step 3.
func (s *Storage) stealPrevious(key string) {
	old, ok := s.cache.Steal(key)
	if !ok {
		return
	}
	s.expire.Delete(old)
	s.elts--
	s.memory -= recordSize(old)
	if old.hasFlag(FlagDirty) {
		old.setFlag(FlagNeedFree)
	}
}

// Insert stores data under key, evicting via Expire as needed to satisfy
// the configured bounds. It returns false if the backend rejected the
// write, even though the cache/expire bookkeeping has already been
// committed (the cache is authoritative; the backend is best-effort).
func (s *Storage) Insert(key string, data []byte, flags Flags, expire time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := int64(len(data))
	if err := s.makeRoom(size); err != nil {
		return false, err
	}

	s.stealPrevious(key)

	now := s.clock.Now()
	elt := newElement(key, append([]byte(nil), data...), flags, expire, now)
	inserted, ok := s.cache.Insert(elt)
	if !ok {
		s.logger.Info("cache rejected insert", zap.String("key", key))
		return false, ErrCacheRejected
	}

	ok = true
	var err error
	if s.backend != nil {
		if berr := s.backend.Insert(key, inserted); berr != nil {
			ok = false
			err = wrapBackendErr("insert", key, berr)
			s.logger.Warn("backend insert failed", zap.String("key", key), zap.Error(berr))
		}
	}

	s.expire.Insert(inserted)
	s.elts++
	s.memory += recordSize(inserted)
	s.stats.recordSet()
	return ok, err
}

// InsertInternal admits a backend-sourced record into the cache without
// the pre-existing-key steal and without re-entering the backend. Used
// internally by Lookup on a backend hit, and exposed for callers who
// resolve misses themselves.
func (s *Storage) InsertInternal(key string, data []byte, flags Flags, expire time.Duration) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertInternalLocked(key, data, flags, expire)
}

func (s *Storage) insertInternalLocked(key string, data []byte, flags Flags, expire time.Duration) (*Element, error) {
	size := int64(len(data))
	if err := s.makeRoom(size); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	elt := newElement(key, append([]byte(nil), data...), flags, expire, now)
	inserted, ok := s.cache.Insert(elt)
	if !ok {
		return nil, ErrCacheRejected
	}
	s.expire.Insert(inserted)
	s.elts++
	s.memory += recordSize(inserted)
	s.stats.recordSet()
	return inserted, nil
}

// Replace overwrites an already-present key's payload. It fails with
// ErrCacheRejected if key is absent — unlike Insert, Replace never creates
// a new entry.
func (s *Storage) Replace(key string, data []byte, flags Flags, expire time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := int64(len(data))
	if err := s.makeRoom(size); err != nil {
		return false, err
	}

	now := s.clock.Now()
	elt := newElement(key, append([]byte(nil), data...), flags, expire, now)
	prev, ok := s.cache.Replace(key, elt)
	if !ok {
		return false, ErrCacheRejected
	}

	s.expire.Delete(prev)
	s.elts--
	s.memory -= recordSize(prev)
	if prev.hasFlag(FlagDirty) {
		prev.setFlag(FlagNeedFree)
	}

	ok = true
	var err error
	if s.backend != nil {
		if berr := s.backend.Replace(key, elt); berr != nil {
			ok = false
			err = wrapBackendErr("replace", key, berr)
			s.logger.Warn("backend replace failed", zap.String("key", key), zap.Error(berr))
		}
	}

	s.expire.Insert(elt)
	s.elts++
	s.memory += recordSize(elt)
	s.stats.recordSet()
	return ok, err
}

// Lookup returns the element indexed under key. A cache miss falls
// through to the backend (coalesced across concurrent callers for the
// same key via singleflight when enabled), admitting a backend hit into
// the cache before returning it. An entry whose logical expiry has
// passed is reported absent without being physically evicted — that
// remains the Expire policy's job.
func (s *Storage) Lookup(key string) (*Element, bool) {
	now := s.clock.Now()

	s.mu.RLock()
	if e, ok := s.cache.Lookup(key); ok {
		s.mu.RUnlock()
		return s.finishLookup(e, now)
	}
	s.mu.RUnlock()

	if s.backend == nil {
		s.stats.recordMiss()
		return nil, false
	}

	resolve := func() (interface{}, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if e, ok := s.cache.Lookup(key); ok {
			return e, nil
		}
		be, ok := s.backend.Lookup(key)
		if !ok {
			return nil, nil
		}
		admitted, ierr := s.insertInternalLocked(be.Key, be.Payload, be.Flags&^(FlagDirty|FlagNeedFree), be.lifetime(now))
		if ierr != nil {
			return nil, ierr
		}
		// be's payload is already deep-copied into admitted; the backend
		// keeps its durable record and be itself just falls out of scope.
		return admitted, nil
	}

	var v interface{}
	var err error
	if s.coalesceLookups {
		v, err, _ = s.sf.Do(key, resolve)
	} else {
		v, err = resolve()
	}
	if err != nil || v == nil {
		s.stats.recordMiss()
		return nil, false
	}
	return s.finishLookup(v.(*Element), now)
}

func (s *Storage) finishLookup(e *Element, now time.Time) (*Element, bool) {
	if e.Expired(now) {
		s.stats.recordMiss()
		return nil, false
	}
	s.stats.recordHit()
	return e, true
}

// Delete removes key from the cache and, if configured, requests backend
// deletion. The removed element is handed back to the caller.
func (s *Storage) Delete(key string) (*Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cache.Delete(key)
	if !ok {
		s.stats.recordMiss()
		return nil, false
	}

	if s.backend != nil {
		if err := s.backend.Delete(key); err != nil {
			s.logger.Warn("backend delete failed", zap.String("key", key), zap.Error(err))
		}
	}

	s.expire.Delete(e)
	s.elts--
	s.memory -= recordSize(e)
	s.stats.recordDelete()
	return e, true
}

// Destroy tears the plug-ins down in cache → backend → expire order. The
// Storage must not be used afterward.
func (s *Storage) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Destroy()
	if s.backend != nil {
		s.backend.Destroy()
	}
	s.expire.Destroy()
}

// Stats returns a snapshot of the façade's counters.
func (s *Storage) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats.snapshot(s.elts, s.memory)
}
