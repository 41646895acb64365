package streamio

import "github.com/cairn-systems/streamio/status"

// BufferedHost is implemented by a concrete sink whose underlying resource
// only accepts data through a write(2)-style call: WriteInternal is handed
// the buffered-writer scaffold's full buffer and must write as much of it as
// it can in one underlying call, returning how many bytes it actually
// consumed (a short write is not itself a failure — the scaffold loops).
// Transient interruption (EINTR) is the host's concern to retry internally;
// sinks.FDWriter does this with golang.org/x/sys/unix.
type BufferedHost interface {
	WriteInternal(p []byte) (n int, s *status.Status)
}

// BufferedWriter is the reusable scaffold (C6) for writers that must copy
// into their own buffer before handing bytes to a sink with a write(2)-style
// API. It owns a private byte slice of bufSize bytes; concrete sinks
// (sinks.FDWriter) embed it and supply WriteInternal.
type BufferedWriter struct {
	Window
	Lifecycle

	host    BufferedHost
	bufSize int
	mem     []byte
}

// Init allocates the scaffold's private buffer and positions the window at
// startPos. Must be called once before use.
func (b *BufferedWriter) Init(host BufferedHost, bufSize int, startPos Position) {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	b.host = host
	b.bufSize = bufSize
	b.mem = make([]byte, bufSize)
	b.Window.Reset(b.mem, startPos)
}

// EnsureSpace is the scaffold's Push: if the window is full, it syncs first.
// A minLength larger than bufSize can never be satisfied contiguously by
// this scaffold (callers needing that should sit behind the pushable
// scratch instead), so it reports failure via status rather than looping
// forever.
func (b *BufferedWriter) EnsureSpace(minLength, recommended int) bool {
	if !b.Healthy() {
		return false
	}
	if minLength > b.bufSize {
		b.Fail(status.Newf(status.InvalidArgument,
			"requested push of %d bytes exceeds buffered-writer capacity %d", minLength, b.bufSize))
		return false
	}
	if b.Avail() >= minLength {
		return true
	}
	if !b.SyncBuffer() {
		return false
	}
	return b.Avail() >= minLength
}

// SyncBuffer is the scaffold's sync-buffer step: it hands the window's
// unflushed bytes to the host, looping over short writes, then re-acquires a
// fresh full buffer (the make-buffer step) starting at the new position.
func (b *BufferedWriter) SyncBuffer() bool {
	pending := b.Window.Bytes()
	pos := b.StartPos()
	for len(pending) > 0 {
		n, s := b.host.WriteInternal(pending)
		if s != nil {
			b.Fail(s)
			return false
		}
		if n == 0 {
			b.Fail(status.New(status.Unknown, "buffered writer: WriteInternal made no progress"))
			return false
		}
		next, st := AddChecked(pos, uint64(n))
		if st != nil {
			b.Fail(st)
			return false
		}
		pos = next
		pending = pending[n:]
	}
	b.Window.Reset(b.mem, pos)
	return true
}

// Reposition resets the scaffold's window to start at pos over its existing
// buffer, discarding any unsynced content. Used by hosts that perform their
// own out-of-band repositioning of the underlying resource (sinks.FDWriter's
// Seek) after already calling SyncBuffer themselves.
func (b *BufferedWriter) Reposition(pos Position) {
	b.Window.Reset(b.mem, pos)
}
