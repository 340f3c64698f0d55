package manager

// tryBeginRun reserves the single in-flight slot without waiting. Overlapping
// runs are rejected, never queued. Returns a release func to be deferred.
func (m *Manager) tryBeginRun() (func(), error) {
	select {
	case m.runSlot <- struct{}{}:
		return func() { <-m.runSlot }, nil
	default:
		return func() {}, validation(ReasonBusy)
	}
}

// Inflight reports whether a run holds the slot.
func (m *Manager) Inflight() bool { return len(m.runSlot) > 0 }
