// Package streamio implements the composable byte-writer abstraction this
// module is built around: a movable cursor window (Window) backed by some
// underlying resource, the Writer contract every concrete layer
// (LimitingWriter, snappyframe.Writer, sinks.RopeWriter, sinks.FDWriter)
// implements, and the supporting primitives (Position, Buffer, Rope,
// Lifecycle, Dep, Scratch, BufferedWriter) every layer composes from.
package streamio

import "github.com/cairn-systems/streamio/status"

// FlushScope distinguishes how far a Flush must push bytes before it may
// return: only far enough for this layer to no longer be holding them
// in-process, far enough that the operating system has them, or far enough
// that the OS has persisted them to stable storage.
type FlushScope int

const (
	// FlushFromObject requires only that this layer's own window has
	// surfaced its bytes to its inner writer.
	FlushFromObject FlushScope = iota
	// FlushFromProcess additionally asks the inner writer to surface
	// bytes to the OS.
	FlushFromProcess
	// FlushFromMachine additionally asks the OS to persist bytes to
	// stable storage (fsync-equivalent).
	FlushFromMachine
)

// Reader is the symmetric read-side counterpart a Writer may expose via
// EnterReadMode.
type Reader interface {
	// Read copies up to len(p) bytes into p, returning how many were
	// read. ok is false only on failure; a short read that is not a
	// failure (e.g. end of available data) still reports ok true with
	// n possibly 0, distinguishable via Healthy().
	Read(p []byte) (n int, ok bool)
	Pos() Position
	Seek(pos Position) bool
	Status() *status.Status
	Healthy() bool
}

// Writer is the central abstraction of this package: a movable cursor
// window backed by some inner resource, plus the operations that cross the
// window/resource boundary. Every concrete layer (LimitingWriter,
// snappyframe.Writer, sinks.RopeWriter, sinks.FDWriter) implements it.
//
// Producers calling Push write directly into the memory Free() exposes
// between Push and the next boundary-crossing call; this is the fast path
// the whole design exists for. Write/WriteRope/WriteZeros exist for
// producers that already have a value to append rather than a destination
// to fill.
type Writer interface {
	// Push ensures at least minLength bytes are available in the
	// window (recommended is an optional larger hint the writer may or
	// may not honor), returning false iff the writer has failed. The
	// caller then writes into Free() and calls Advance.
	Push(minLength, recommended int) bool

	// Free returns the region a producer may write into after a
	// successful Push, and Advance records how much of it was used.
	Free() []byte
	Advance(n int)

	// Write appends p in full. Fast path when p fits in Free();
	// otherwise delegates to the concrete writer's slow path.
	Write(p []byte) bool
	// WriteRope appends every segment of r in order.
	WriteRope(r *Rope) bool
	// WriteZeros appends n zero bytes.
	WriteZeros(n int) bool

	// Flush surfaces buffered bytes to the scope requested. A transient
	// flush failure at FlushFromMachine does not necessarily latch the
	// writer; all other failures do.
	Flush(scope FlushScope) bool

	// Pos is the writer's current logical position: the inner writer's
	// position plus the bytes buffered in this layer's window.
	Pos() Position
	Status() *status.Status
	Healthy() bool
	Closed() bool

	SupportsRandomAccess() bool
	SupportsSize() bool
	SupportsTruncate() bool
	SupportsReadMode() bool
	PrefersCopying() bool

	// Size reports the current stream size if SupportsSize.
	Size() (Position, bool)
	// Seek repositions the cursor if SupportsRandomAccess.
	Seek(newPos Position) bool
	// Truncate resizes the stream if SupportsTruncate.
	Truncate(newSize Position) bool
	// EnterReadMode returns a Reader positioned at initialPos if
	// SupportsReadMode.
	EnterReadMode(initialPos Position) (Reader, bool)

	// Close is idempotent. The first call synchronizes every layer,
	// releases resources, and cascades to the inner writer iff this
	// writer owns it.
	Close() bool
}

// Window is the movable cursor window described in the data model: bytes
// [0:cursor) of buf have been written by the producer and not yet
// necessarily synced to the resource; bytes [cursor:limit) are available for
// the producer to fill. startPos is the absolute stream position
// corresponding to buf[0].
type Window struct {
	buf      []byte
	cursor   int
	limit    int
	startPos Position
}

// Reset installs buf as the window's backing memory, starting at startPos,
// with the full length of buf available to the producer (limit == len(buf)).
// Concrete writers call this from their make-buffer step.
func (w *Window) Reset(buf []byte, startPos Position) {
	w.buf = buf
	w.cursor = 0
	w.limit = len(buf)
	w.startPos = startPos
}

// ResetEmpty installs an empty window at startPos, used when a writer has
// nothing further to offer until the next Push (e.g. right after sync).
func (w *Window) ResetEmpty(startPos Position) {
	w.buf = nil
	w.cursor = 0
	w.limit = 0
	w.startPos = startPos
}

// Avail is the number of bytes free for the producer to write into.
func (w *Window) Avail() int { return w.limit - w.cursor }

// Bytes returns the unflushed bytes written into this window so far
// (buf[0:cursor]) — the data a sync-buffer step must publish to the sink.
func (w *Window) Bytes() []byte { return w.buf[:w.cursor] }

// Free returns the region the producer may write into next.
func (w *Window) Free() []byte { return w.buf[w.cursor:w.limit] }

// Advance records that the producer has written n bytes into Free().
func (w *Window) Advance(n int) { w.cursor += n }

// StartToCursor is the number of bytes written into this window since it was
// last reset — exactly the data model's start_to_cursor.
func (w *Window) StartToCursor() int { return w.cursor }

// Pos is startPos + StartToCursor(): the writer's logical position.
func (w *Window) Pos() Position { return w.startPos.SaturatingAdd(uint64(w.cursor)) }

// StartPos is the absolute position corresponding to buf[0].
func (w *Window) StartPos() Position { return w.startPos }

// tryFastWrite copies p into Free() if it fits, advancing the cursor.
// Reports whether it handled the write; false means the caller must fall
// back to its own slow path.
func (w *Window) tryFastWrite(p []byte) bool {
	if len(p) > w.Avail() {
		return false
	}
	copy(w.Free(), p)
	w.Advance(len(p))
	return true
}
