package kvstorage

import (
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type deferredOp int

const (
	opInsert deferredOp = iota
	opReplace
)

type writeJob struct {
	op  deferredOp
	key string
	elt *Element
}

// DeferredBackend wraps a Backend and performs its Insert/Replace calls on
// a bounded worker pool instead of inline, proving the concurrency
// contract that no façade operation may block on backend I/O while
// holding the lock. It marks an element DIRTY before handing it to a
// worker and clears DIRTY (honoring NEED_FREE) once the write returns.
type DeferredBackend struct {
	wrapped Backend
	jobs    chan writeJob
	group   *errgroup.Group
	logger  Logger
}

// NewDeferredBackend starts workers goroutines draining a queueSize-deep
// job channel, each performing wrapped's Insert/Replace calls.
func NewDeferredBackend(wrapped Backend, workers, queueSize int, logger Logger) *DeferredBackend {
	if logger == nil {
		logger = noopLogger{}
	}
	d := &DeferredBackend{
		wrapped: wrapped,
		jobs:    make(chan writeJob, queueSize),
		group:   &errgroup.Group{},
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		d.group.Go(d.runWorker)
	}
	return d
}

func (d *DeferredBackend) runWorker() error {
	for job := range d.jobs {
		var err error
		switch job.op {
		case opInsert:
			err = d.wrapped.Insert(job.key, job.elt)
		case opReplace:
			err = d.wrapped.Replace(job.key, job.elt)
		}
		if err != nil {
			d.logger.Warn("deferred backend write failed",
				zap.String("key", job.key), zap.Error(err))
		}
		d.finishWrite(job.elt)
	}
	return nil
}

// finishWrite completes the DIRTY/NEED_FREE handshake once a deferred
// write returns. Go has no manual free; honoring NEED_FREE here means
// only "this was the last party with a reason to keep the element alive"
// — the garbage collector reclaims it once all references are dropped.
func (d *DeferredBackend) finishWrite(e *Element) {
	if e.hasFlag(FlagNeedFree) {
		e.clearFlag(FlagNeedFree)
	}
	e.clearFlag(FlagDirty)
}

func (d *DeferredBackend) Insert(key string, e *Element) error {
	e.setFlag(FlagDirty)
	d.jobs <- writeJob{op: opInsert, key: key, elt: e}
	return nil
}

func (d *DeferredBackend) Replace(key string, e *Element) error {
	e.setFlag(FlagDirty)
	d.jobs <- writeJob{op: opReplace, key: key, elt: e}
	return nil
}

func (d *DeferredBackend) Lookup(key string) (*Element, bool) {
	return d.wrapped.Lookup(key)
}

func (d *DeferredBackend) Delete(key string) error {
	return d.wrapped.Delete(key)
}

// Destroy closes the job queue and waits for in-flight writes to finish
// before tearing down the wrapped backend.
func (d *DeferredBackend) Destroy() {
	close(d.jobs)
	_ = d.group.Wait()
	d.wrapped.Destroy()
}
