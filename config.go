package kvstorage

// Option configures a Storage at construction time. Modeled on the
// functional-options builder pattern used throughout this codebase's
// configuration surfaces.
type Option func(*Storage)

// WithClock overrides the default RealClock, primarily for deterministic
// tests.
func WithClock(c Clock) Option {
	return func(s *Storage) { s.clock = c }
}

// WithLogger overrides the default no-op Logger.
func WithLogger(l Logger) Option {
	return func(s *Storage) { s.logger = l }
}

// WithCoalescedLookups toggles singleflight-based coalescing of concurrent
// backend lookups that miss on the same key. Enabled by default.
func WithCoalescedLookups(enabled bool) Option {
	return func(s *Storage) { s.coalesceLookups = enabled }
}
