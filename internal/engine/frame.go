package engine

// FrameScheduler holds at most one pending frame callback. Scheduling
// replaces whatever is pending; the host drains it once per animation frame.
type FrameScheduler struct {
	pending func()
}

// Schedule sets fn as the pending callback and reports whether an earlier
// one was dropped.
func (s *FrameScheduler) Schedule(fn func()) bool {
	replaced := s.pending != nil
	s.pending = fn
	return replaced
}

// Cancel drops the pending callback, if any.
func (s *FrameScheduler) Cancel() {
	s.pending = nil
}

// Pending reports whether a callback is waiting for the next frame.
func (s *FrameScheduler) Pending() bool { return s.pending != nil }

// Flush runs the pending callback and reports whether there was one.
func (s *FrameScheduler) Flush() bool {
	fn := s.pending
	if fn == nil {
		return false
	}
	s.pending = nil
	fn()
	return true
}
