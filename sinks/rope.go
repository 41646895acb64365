// Package sinks holds the concrete terminal writers that compose beneath
// LimitingWriter, snappyframe.Writer and the other layers: RopeWriter, an
// in-memory sink built directly on a streamio.Rope, and FDWriter, a
// buffered-scaffold sink over a POSIX file descriptor.
package sinks

import (
	streamio "github.com/cairn-systems/streamio"
	"github.com/cairn-systems/streamio/status"
)

// RopeWriter is the canonical "sink exposes its own memory" writer: it
// hands out the spare capacity of its current segment directly as the
// window's free region, appending a new segment only when that capacity
// runs out. Writes that straddle a rope segment boundary walk forward one
// segment at a time.
type RopeWriter struct {
	streamio.Window
	streamio.Lifecycle

	rope *streamio.Rope
	// cur holds the unpublished spare-capacity tail while in append mode
	// (segIndex == -1); its front has already been sliced off by commits.
	cur []byte
	// segIndex is the index of the rope segment the window currently
	// overwrites in place, or -1 while appending into cur.
	segIndex int
}

var _ streamio.Writer = (*RopeWriter)(nil)

// NewRopeWriter wraps rope (which may already hold content) for further
// writing, starting positioned at its current end.
func NewRopeWriter(rope *streamio.Rope) *RopeWriter {
	rw := &RopeWriter{rope: rope, segIndex: -1}
	rw.Window.ResetEmpty(streamio.Position(rope.Size()))
	return rw
}

// commitIfAppending publishes whatever the producer wrote into the current
// append-mode buffer as a new rope segment, keeping the unused remainder of
// cur available for the next write. A no-op while overwriting an existing
// segment in place, since that memory is already part of the rope.
func (rw *RopeWriter) commitIfAppending() {
	if rw.segIndex != -1 {
		return
	}
	n := rw.Window.StartToCursor()
	if n > 0 {
		pos := rw.Window.Pos()
		rw.rope.AppendSegment(rw.cur[:n])
		rw.cur = rw.cur[n:]
		rw.Window.Reset(rw.cur, pos)
	}
}

// advance publishes the current window, then moves to the next existing
// rope segment if one remains, or switches to (or stays in) append mode with
// a freshly sized buffer otherwise.
func (rw *RopeWriter) advance(minLength, recommended int) bool {
	pos := rw.Window.Pos()
	rw.commitIfAppending()

	if rw.segIndex >= 0 {
		next := rw.segIndex + 1
		if next < rw.rope.NumSegments() {
			rw.segIndex = next
			rw.Window.Reset(rw.rope.Segment(next), pos)
			return true
		}
		rw.segIndex = -1
		rw.cur = nil
	}

	size := minLength
	if recommended > size {
		size = recommended
	}
	if size < 4096 {
		size = 4096
	}
	rw.cur = make([]byte, size)
	rw.Window.Reset(rw.cur, pos)
	return true
}

func (rw *RopeWriter) Push(minLength, recommended int) bool {
	if !rw.Healthy() {
		return false
	}
	for rw.Window.Avail() < minLength {
		if !rw.advance(minLength, recommended) {
			return false
		}
	}
	return true
}

func (rw *RopeWriter) Write(p []byte) bool {
	if !rw.Healthy() {
		return false
	}
	if len(p) == 0 {
		return true
	}
	if rw.Window.Avail() >= len(p) {
		copy(rw.Window.Free(), p)
		rw.Window.Advance(len(p))
		return true
	}
	remaining := p
	for len(remaining) > 0 {
		if rw.Window.Avail() == 0 {
			if !rw.advance(1, len(remaining)) {
				return false
			}
		}
		n := min(len(remaining), rw.Window.Avail())
		copy(rw.Window.Free(), remaining[:n])
		rw.Window.Advance(n)
		remaining = remaining[n:]
	}
	return true
}

func (rw *RopeWriter) WriteRope(r *streamio.Rope) bool {
	ok := true
	r.ForEachSegment(func(seg []byte) {
		if ok {
			ok = rw.Write(seg)
		}
	})
	return ok
}

func (rw *RopeWriter) WriteZeros(n int) bool {
	zeros := make([]byte, 4096)
	for n > 0 {
		chunk := min(n, len(zeros))
		if !rw.Write(zeros[:chunk]) {
			return false
		}
		n -= chunk
	}
	return true
}

func (rw *RopeWriter) Flush(streamio.FlushScope) bool {
	if !rw.Healthy() {
		return false
	}
	rw.commitIfAppending()
	return true
}

func (rw *RopeWriter) SupportsRandomAccess() bool { return true }
func (rw *RopeWriter) SupportsSize() bool         { return true }
func (rw *RopeWriter) SupportsTruncate() bool     { return true }
func (rw *RopeWriter) SupportsReadMode() bool     { return true }
func (rw *RopeWriter) PrefersCopying() bool       { return false }

func (rw *RopeWriter) Size() (streamio.Position, bool) {
	if !rw.Healthy() {
		return 0, false
	}
	rw.commitIfAppending()
	return streamio.Position(rw.rope.Size()), true
}

func (rw *RopeWriter) Seek(newPos streamio.Position) bool {
	if !rw.Healthy() {
		return false
	}
	rw.commitIfAppending()
	if uint64(newPos) > uint64(rw.rope.Size()) {
		rw.Fail(status.Newf(status.InvalidArgument, "seek target %d past current size %d", uint64(newPos), uint64(rw.rope.Size())))
		return false
	}
	idx, off, ok := rw.rope.Locate(int(newPos))
	if !ok {
		rw.Fail(status.Newf(status.InvalidArgument, "seek target %d not locatable", uint64(newPos)))
		return false
	}
	if idx == rw.rope.NumSegments() {
		rw.segIndex = -1
		rw.cur = nil
		rw.Window.ResetEmpty(newPos)
		return true
	}
	rw.segIndex = idx
	rw.Window.Reset(rw.rope.Segment(idx)[off:], newPos)
	return true
}

func (rw *RopeWriter) Truncate(newSize streamio.Position) bool {
	if !rw.Healthy() {
		return false
	}
	rw.commitIfAppending()
	if !rw.rope.TruncateTo(int(newSize)) {
		rw.Fail(status.Newf(status.InvalidArgument, "cannot truncate to %d", uint64(newSize)))
		return false
	}
	rw.segIndex = -1
	rw.cur = nil
	rw.Window.ResetEmpty(newSize)
	return true
}

func (rw *RopeWriter) EnterReadMode(initialPos streamio.Position) (streamio.Reader, bool) {
	// A closed RopeWriter still holds its rope, so read mode is available
	// after Close; only a latched failure refuses it.
	if rw.Status() != nil {
		return nil, false
	}
	rw.commitIfAppending()
	if uint64(initialPos) > uint64(rw.rope.Size()) {
		rw.Fail(status.Newf(status.InvalidArgument, "read-mode start %d past size %d", uint64(initialPos), uint64(rw.rope.Size())))
		return nil, false
	}
	return &ropeReader{rope: rw.rope, pos: initialPos}, true
}

func (rw *RopeWriter) Close() bool {
	_, result := rw.Lifecycle.CloseOnce(func() *status.Status {
		rw.commitIfAppending()
		return nil
	})
	return result == nil
}

// ropeReader is the streamio.Reader EnterReadMode hands back: a plain
// forward/backward cursor over the rope's segments.
type ropeReader struct {
	rope   *streamio.Rope
	pos    streamio.Position
	failed *status.Status
}

var _ streamio.Reader = (*ropeReader)(nil)

func (r *ropeReader) Read(p []byte) (int, bool) {
	if r.failed != nil {
		return 0, false
	}
	if uint64(r.pos) >= uint64(r.rope.Size()) {
		return 0, true
	}
	idx, off, ok := r.rope.Locate(int(r.pos))
	if !ok {
		r.failed = status.Newf(status.DataLoss, "rope reader: position %d not locatable", uint64(r.pos))
		return 0, false
	}
	seg := r.rope.Segment(idx)
	n := copy(p, seg[off:])
	r.pos = r.pos.SaturatingAdd(uint64(n))
	return n, true
}

func (r *ropeReader) Pos() streamio.Position { return r.pos }

func (r *ropeReader) Seek(pos streamio.Position) bool {
	if uint64(pos) > uint64(r.rope.Size()) {
		r.failed = status.Newf(status.InvalidArgument, "seek target %d past size %d", uint64(pos), uint64(r.rope.Size()))
		return false
	}
	r.pos = pos
	return true
}

func (r *ropeReader) Status() *status.Status { return r.failed }
func (r *ropeReader) Healthy() bool          { return r.failed == nil }
