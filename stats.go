package kvstorage

import "sync/atomic"

// Stats is a point-in-time snapshot of a Storage's counters.
type Stats struct {
	Hits            int64
	Misses          int64
	Sets            int64
	Deletes         int64
	Evictions       int64
	Expirations     int64
	CurrentElements int64
	CurrentMemory   int64
}

// atomicStats holds the lock-free secondary counters. These are purely
// informational: the authoritative elts/memory bookkeeping that the
// façade's invariants depend on lives under the façade's RWMutex, not here.
type atomicStats struct {
	hits        atomic.Int64
	misses      atomic.Int64
	sets        atomic.Int64
	deletes     atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
}

func (s *atomicStats) recordHit()        { s.hits.Add(1) }
func (s *atomicStats) recordMiss()       { s.misses.Add(1) }
func (s *atomicStats) recordSet()        { s.sets.Add(1) }
func (s *atomicStats) recordDelete()     { s.deletes.Add(1) }
func (s *atomicStats) recordEviction()   { s.evictions.Add(1) }
func (s *atomicStats) recordExpiration() { s.expirations.Add(1) }

func (s *atomicStats) snapshot(elts, memory int64) Stats {
	return Stats{
		Hits:            s.hits.Load(),
		Misses:          s.misses.Load(),
		Sets:            s.sets.Load(),
		Deletes:         s.deletes.Load(),
		Evictions:       s.evictions.Load(),
		Expirations:     s.expirations.Load(),
		CurrentElements: elts,
		CurrentMemory:   memory,
	}
}
