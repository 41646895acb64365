package streamio

import (
	"go.uber.org/atomic"

	"github.com/cairn-systems/streamio/status"
)

// Lifecycle is the open/closed/failed state mixin every stream object in
// this package embeds. It tracks the four states the data model names
// (open-healthy, open-failed, closed-healthy, closed-failed) and latches the
// first failure reported to it, the same way readerImpl in the reference
// zstd-seekable reader uses an atomic.Bool to make Close idempotent under a
// CAS rather than a mutex.
type Lifecycle struct {
	closed  atomic.Bool
	failed  *status.Status
}

// Healthy reports whether the object has neither failed nor closed.
func (l *Lifecycle) Healthy() bool {
	return !l.closed.Load() && l.failed == nil
}

// Closed reports whether Close has already run (successfully or not).
func (l *Lifecycle) Closed() bool {
	return l.closed.Load()
}

// Status returns the latched failure, or nil if none has been recorded.
func (l *Lifecycle) Status() *status.Status {
	return l.failed
}

// Fail latches s as the object's failure if none is latched yet, and always
// returns the (possibly pre-existing) latched status. Once failed, a stream
// object stays failed: later calls to Fail with a different status do not
// overwrite the first one, matching "failure latches" in the data model.
// Callers are single-threaded per the package's concurrency model (see
// README), so this needs no synchronization of its own.
func (l *Lifecycle) Fail(s *status.Status) *status.Status {
	if s == nil {
		return l.failed
	}
	if l.failed == nil {
		l.failed = s
	}
	return l.failed
}

// CloseOnce runs fn exactly once across however many times Close is called
// on the embedding object, and reports whether this call was the one that
// ran it. Idempotence (invariant 6: Close() called twice behaves as once)
// falls out of the CAS guard.
func (l *Lifecycle) CloseOnce(fn func() *status.Status) (ran bool, result *status.Status) {
	if !l.closed.CompareAndSwap(false, true) {
		return false, l.Status()
	}
	if s := fn(); s != nil {
		l.Fail(s)
	}
	return true, l.Status()
}
