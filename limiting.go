package streamio

import (
	"go.uber.org/zap"

	"github.com/cairn-systems/streamio/status"
)

// LimitingWriter wraps an inner Writer and rejects any write that would push
// the absolute position past maxPos. In Exact mode, Close additionally fails
// unless the final position equals maxPos exactly.
//
// Per the data model, annotation is fully delegated to the inner writer:
// LimitingWriter never wraps the inner status's message with its own
// context, so a composed stack's error reads as if this layer were not
// there.
type LimitingWriter struct {
	Window
	Lifecycle

	inner   Dep[Writer]
	maxPos  Position
	exact   bool

	o limitingOptions
}

// NewLimitingWriter wraps inner, capping its absolute position at maxPos.
// maxPos must be >= inner's current position.
func NewLimitingWriter(inner Dep[Writer], maxPos Position, exact bool, opts ...LOption) (*LimitingWriter, *status.Status) {
	if maxPos < inner.Get().Pos() {
		return nil, status.Newf(status.InvalidArgument,
			"limiting writer: max position %d is before inner's current position %d", uint64(maxPos), uint64(inner.Get().Pos()))
	}
	lw := &LimitingWriter{inner: inner, maxPos: maxPos, exact: exact}
	lw.o.setDefault()
	for _, opt := range opts {
		opt(&lw.o)
	}
	lw.pullWindow()
	lw.o.logger.Debug("limiting writer opened", zap.Uint64("max_pos", uint64(maxPos)), zap.Bool("exact", exact))
	return lw, nil
}

// remaining is how many more bytes may be written before hitting maxPos.
func (l *LimitingWriter) remaining() uint64 {
	return uint64(l.maxPos.Sub(l.Pos()))
}

// pullWindow re-acquires the inner's window (callers run syncToInner first),
// narrowed so the producer can never be handed more room than maxPos allows.
func (l *LimitingWriter) pullWindow() bool {
	inner := l.inner.Get()
	free := inner.Free()
	rem := uint64(l.maxPos.Sub(inner.Pos()))
	if uint64(len(free)) > rem {
		free = free[:rem]
	}
	l.Window.buf = inner.Free()[:len(free):len(free)]
	l.Window.cursor = 0
	l.Window.limit = len(free)
	l.Window.startPos = inner.Pos()
	return true
}

// Push ensures the inner has at least minLength bytes available, then
// narrows what it exposes to respect maxPos.
func (l *LimitingWriter) Push(minLength, recommended int) bool {
	if !l.Healthy() {
		return false
	}
	if uint64(minLength) > l.remaining() {
		l.failOverrun(uint64(minLength),
			"position limit exceeded: requested %d bytes with only %d remaining before the limit", minLength, l.remaining())
		return false
	}
	if !l.syncToInner() {
		return false
	}
	inner := l.inner.Get()
	if !inner.Push(minLength, recommended) {
		l.Fail(inner.Status())
		return false
	}
	l.pullWindow()
	return true
}

// failOverrun logs the overrun at Warn (the teacher logs per-frame detail at
// Debug; an overrun is the one condition in this layer worth surfacing
// louder by default) and latches the resource-exhausted status.
func (l *LimitingWriter) failOverrun(requested uint64, format string, args ...interface{}) {
	l.o.logger.Warn("position limit exceeded",
		zap.Uint64("requested", requested),
		zap.Uint64("max_pos", uint64(l.maxPos)),
		zap.Uint64("remaining", l.remaining()),
	)
	l.Fail(status.Newf(status.ResourceExhausted, format, args...))
}

// syncToInner publishes this layer's window bytes to the inner writer by
// advancing the inner's own window to match (the inner's memory is the same
// memory this layer exposed, so no copy is needed — only bookkeeping).
func (l *LimitingWriter) syncToInner() bool {
	inner := l.inner.Get()
	n := l.Window.StartToCursor()
	if n > 0 {
		inner.Advance(n)
	}
	l.Window.cursor = 0
	l.Window.limit = 0
	l.Window.startPos = inner.Pos()
	return true
}

func (l *LimitingWriter) Write(p []byte) bool {
	if !l.Healthy() {
		return false
	}
	if l.Window.tryFastWrite(p) {
		return true
	}
	return l.writeSlow(p)
}

// writeSlow handles the case tryFastWrite could not: either p simply
// overflows the current window (still fits under maxPos) or p overruns
// maxPos entirely. On overrun, per the data model, the inner is left
// positioned exactly at maxPos: the allowed prefix of p (remaining() bytes)
// is still delivered before the failure latches.
func (l *LimitingWriter) writeSlow(p []byte) bool {
	if uint64(len(p)) > l.remaining() {
		allowed := p[:l.remaining()]
		if !l.syncToInner() {
			return false
		}
		inner := l.inner.Get()
		if len(allowed) > 0 && !inner.Write(allowed) {
			l.Fail(inner.Status())
			return false
		}
		l.pullWindow()
		l.failOverrun(uint64(len(p)), "position limit exceeded: %d bytes would pass limit %d", len(p), uint64(l.maxPos))
		return false
	}
	if !l.syncToInner() {
		return false
	}
	inner := l.inner.Get()
	if !inner.Write(p) {
		l.Fail(inner.Status())
		return false
	}
	l.pullWindow()
	return true
}

func (l *LimitingWriter) WriteRope(r *Rope) bool {
	if !l.Healthy() {
		return false
	}
	if uint64(r.Size()) > l.remaining() {
		allowed := r.Flatten()[:l.remaining()]
		if !l.syncToInner() {
			return false
		}
		inner := l.inner.Get()
		if len(allowed) > 0 && !inner.Write(allowed) {
			l.Fail(inner.Status())
			return false
		}
		l.pullWindow()
		l.failOverrun(uint64(r.Size()), "position limit exceeded: rope of %d bytes would pass limit %d", r.Size(), uint64(l.maxPos))
		return false
	}
	if !l.syncToInner() {
		return false
	}
	inner := l.inner.Get()
	if !inner.WriteRope(r) {
		l.Fail(inner.Status())
		return false
	}
	l.pullWindow()
	return true
}

func (l *LimitingWriter) WriteZeros(n int) bool {
	if !l.Healthy() {
		return false
	}
	if uint64(n) > l.remaining() {
		allowed := int(l.remaining())
		if !l.syncToInner() {
			return false
		}
		inner := l.inner.Get()
		if allowed > 0 && !inner.WriteZeros(allowed) {
			l.Fail(inner.Status())
			return false
		}
		l.pullWindow()
		l.failOverrun(uint64(n), "position limit exceeded: %d zero bytes would pass limit %d", n, uint64(l.maxPos))
		return false
	}
	if !l.syncToInner() {
		return false
	}
	inner := l.inner.Get()
	if !inner.WriteZeros(n) {
		l.Fail(inner.Status())
		return false
	}
	l.pullWindow()
	return true
}

func (l *LimitingWriter) Flush(scope FlushScope) bool {
	if !l.Healthy() {
		return false
	}
	l.syncToInner()
	inner := l.inner.Get()
	ok := inner.Flush(scope)
	l.pullWindow()
	if !ok {
		// A transient flush failure need not latch (§7); surface it
		// without failing this layer unless the inner itself failed.
		if !inner.Healthy() {
			l.Fail(inner.Status())
		}
		return false
	}
	return true
}

func (l *LimitingWriter) SupportsRandomAccess() bool { return l.inner.Get().SupportsRandomAccess() }
func (l *LimitingWriter) SupportsSize() bool         { return l.inner.Get().SupportsSize() }
func (l *LimitingWriter) SupportsTruncate() bool     { return l.inner.Get().SupportsTruncate() }
func (l *LimitingWriter) SupportsReadMode() bool     { return l.inner.Get().SupportsReadMode() }
func (l *LimitingWriter) PrefersCopying() bool       { return l.inner.Get().PrefersCopying() }

func (l *LimitingWriter) Size() (Position, bool) {
	if !l.SupportsSize() {
		return 0, false
	}
	l.syncToInner()
	sz, ok := l.inner.Get().Size()
	l.pullWindow()
	if !ok {
		return 0, false
	}
	return MinPosition(sz, l.maxPos), true
}

func (l *LimitingWriter) Seek(newPos Position) bool {
	if !l.SupportsRandomAccess() {
		l.Fail(status.New(status.Unimplemented, "seek unsupported"))
		return false
	}
	if newPos > l.maxPos {
		l.Fail(status.Newf(status.InvalidArgument, "seek target %d past limit %d", uint64(newPos), uint64(l.maxPos)))
		return false
	}
	l.syncToInner()
	ok := l.inner.Get().Seek(newPos)
	l.pullWindow()
	if !ok {
		l.Fail(l.inner.Get().Status())
	}
	return ok
}

func (l *LimitingWriter) Truncate(newSize Position) bool {
	if !l.SupportsTruncate() {
		l.Fail(status.New(status.Unimplemented, "truncate unsupported"))
		return false
	}
	target := MinPosition(newSize, l.maxPos)
	l.syncToInner()
	ok := l.inner.Get().Truncate(target)
	l.pullWindow()
	if !ok {
		l.Fail(l.inner.Get().Status())
	}
	return ok
}

func (l *LimitingWriter) EnterReadMode(initialPos Position) (Reader, bool) {
	if !l.SupportsReadMode() {
		l.Fail(status.New(status.Unimplemented, "read mode unsupported"))
		return nil, false
	}
	l.syncToInner()
	r, ok := l.inner.Get().EnterReadMode(initialPos)
	l.pullWindow()
	if !ok {
		l.Fail(l.inner.Get().Status())
	}
	return r, ok
}

func (l *LimitingWriter) Close() bool {
	_, result := l.Lifecycle.CloseOnce(func() *status.Status {
		l.syncToInner()
		short := l.exact && l.Pos() != l.maxPos
		innerStatus := l.inner.CloseIfOwned()
		if short {
			return status.Newf(status.InvalidArgument, "Not enough data: expected %d", uint64(l.maxPos))
		}
		return innerStatus
	})
	return result == nil
}
