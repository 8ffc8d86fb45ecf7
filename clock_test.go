package kvstorage

import "time"

// fakeClock is a manually-advanced Clock used across this package's tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
