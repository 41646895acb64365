package snappyframe

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/s2"
	"go.uber.org/zap"

	streamio "github.com/cairn-systems/streamio"
	"github.com/cairn-systems/streamio/status"
)

// Writer encodes a framed-Snappy stream to an inner streamio.Writer. It
// accumulates pushed bytes into an owned block buffer of at most
// MaxBlockSize and emits one compressed-or-literal chunk per block, on every
// Flush and at Close. A push larger than MaxBlockSize in one call is served
// by the pushable-writer scratch (streamio.Scratch), which this type hosts.
type Writer struct {
	streamio.Window
	streamio.Lifecycle

	scratch streamio.Scratch
	dest    streamio.Dep[streamio.Writer]

	block               streamio.Buffer
	emittedUncompressed streamio.Position
	initialDestPos      streamio.Position

	o writerOptions
}

var (
	_ streamio.Writer     = (*Writer)(nil)
	_ streamio.ScratchHost = (*Writer)(nil)
)

// NewWriter wraps dest, emitting the 10-byte stream identifier immediately
// if dest currently sits at position 0 (a fresh stream). sizeHint, if
// positive, right-sizes the initial block buffer; it is clamped to
// MaxBlockSize.
func NewWriter(dest streamio.Dep[streamio.Writer], sizeHint int, opts ...WOption) (*Writer, *status.Status) {
	w := &Writer{dest: dest}
	w.o.setDefault()
	for _, opt := range opts {
		opt(&w.o)
	}
	w.scratch.Init(w)

	w.initialDestPos = dest.Get().Pos()
	if w.initialDestPos == 0 {
		if !dest.Get().Write(streamID) {
			return nil, dest.Get().Status()
		}
	}

	initial := sizeHint
	if initial <= 0 || initial > MaxBlockSize {
		initial = MaxBlockSize
	}
	w.block.Set(make([]byte, 0, initial))
	w.Window.ResetEmpty(0)
	return w, nil
}

// NativeMax implements streamio.ScratchHost.
func (w *Writer) NativeMax() int { return MaxBlockSize }

// NativePush implements streamio.ScratchHost: it commits whatever the
// producer already wrote into win, emits the current block if there is not
// enough room left in it for min more bytes, then grows the block buffer and
// exposes the new room as win.
func (w *Writer) NativePush(win *streamio.Window, min, recommended int) bool {
	w.commitWindow(win)

	if w.block.Len()+min > MaxBlockSize {
		if !w.emitBlock() {
			return false
		}
	}

	room := MaxBlockSize - w.block.Len()
	want := min
	if recommended > want && recommended <= room {
		want = recommended
	}
	if want > room {
		want = room
	}
	if want < min {
		w.Fail(status.Newf(status.FailedPrecondition, "snappyframe: cannot satisfy push of %d bytes", min))
		return false
	}

	dst := w.block.Grow(want)
	startPos := w.emittedUncompressed.SaturatingAdd(uint64(w.block.Len()))
	win.Reset(dst, startPos)
	return true
}

// DrainScratch implements streamio.ScratchHost: it re-chunks an arbitrarily
// large scratch buffer back into MaxBlockSize-sized native blocks.
func (w *Writer) DrainScratch(content []byte) bool {
	for len(content) > 0 {
		room := MaxBlockSize - w.block.Len()
		if room == 0 {
			if !w.emitBlock() {
				return false
			}
			room = MaxBlockSize
		}
		take := len(content)
		if take > room {
			take = room
		}
		dst := w.block.Grow(take)
		copy(dst, content[:take])
		w.block.UnsafeAppend(take)
		content = content[take:]
		if w.block.Len() == MaxBlockSize {
			if !w.emitBlock() {
				return false
			}
		}
	}
	return true
}

// commitWindow folds whatever the producer wrote into win since the last
// sync into the owned block buffer, then empties win.
func (w *Writer) commitWindow(win *streamio.Window) {
	n := win.StartToCursor()
	if n > 0 {
		w.block.UnsafeAppend(n)
	}
	win.ResetEmpty(win.Pos())
}

// pushInternal is PushInternal from the component design: it ensures
// start_to_cursor == 0 afterwards by committing the window and emitting
// whatever block that produces.
func (w *Writer) pushInternal() bool {
	if w.scratch.InScratch() {
		if !w.scratch.Sync(&w.Window) {
			return false
		}
	} else {
		w.commitWindow(&w.Window)
	}
	return w.emitBlock()
}

// emitBlock compresses and writes out the current block as one chunk, then
// resets the block buffer to empty. A no-op if the block is empty.
func (w *Writer) emitBlock() bool {
	n := w.block.Len()
	if n == 0 {
		return true
	}
	uncompressed := w.block.Bytes()
	crc := maskCRC(crc32cOf(uncompressed))
	compressed := s2.EncodeSnappy(nil, uncompressed)

	chunkType := byte(chunkUncompressed)
	payload := uncompressed
	if len(compressed) < n {
		chunkType = chunkCompressed
		payload = compressed
	}

	header := make([]byte, 8)
	length := uint32(len(payload) + 4)
	header[0] = chunkType
	header[1] = byte(length)
	header[2] = byte(length >> 8)
	header[3] = byte(length >> 16)
	binary.LittleEndian.PutUint32(header[4:], crc)

	dest := w.dest.Get()
	if !dest.Write(header) || !dest.Write(payload) {
		w.Fail(status.Annotatef(dest.Status(), "framed-snappy: writing block at uncompressed offset %d", uint64(w.emittedUncompressed)))
		return false
	}

	w.o.logger.Debug("emitted framed-snappy block",
		zap.Uint8("chunk_type", chunkType),
		zap.Int("uncompressed_size", n),
		zap.Int("payload_size", len(payload)),
		zap.Uint64("offset", uint64(w.emittedUncompressed)),
		zap.Uint64("content_xxhash", xxhash.Sum64(uncompressed)),
	)

	w.emittedUncompressed = w.emittedUncompressed.SaturatingAdd(uint64(n))
	w.block.Reset()
	return true
}

func (w *Writer) Push(minLength, recommended int) bool {
	if !w.Healthy() {
		return false
	}
	if !w.scratch.Push(&w.Window, minLength, recommended) {
		return false
	}
	return w.Healthy()
}

func (w *Writer) Write(p []byte) bool {
	if !w.Healthy() {
		return false
	}
	if len(p) == 0 {
		return true
	}
	if len(p) <= w.Window.Avail() {
		copy(w.Window.Free(), p)
		w.Window.Advance(len(p))
		return true
	}
	if !w.Push(len(p), 0) {
		return false
	}
	copy(w.Window.Free(), p)
	w.Window.Advance(len(p))
	return true
}

func (w *Writer) WriteRope(r *streamio.Rope) bool {
	ok := true
	r.ForEachSegment(func(seg []byte) {
		if ok {
			ok = w.Write(seg)
		}
	})
	return ok
}

func (w *Writer) WriteZeros(n int) bool {
	zeros := make([]byte, 4096)
	for n > 0 {
		chunk := n
		if chunk > len(zeros) {
			chunk = len(zeros)
		}
		if !w.Write(zeros[:chunk]) {
			return false
		}
		n -= chunk
	}
	return true
}

func (w *Writer) Flush(scope streamio.FlushScope) bool {
	if !w.Healthy() {
		return false
	}
	if !w.pushInternal() {
		return false
	}
	if scope > streamio.FlushFromObject || w.dest.IsOwning() {
		dest := w.dest.Get()
		if !dest.Flush(scope) {
			if !dest.Healthy() {
				w.Fail(dest.Status())
				return false
			}
			return false
		}
	}
	return true
}

func (w *Writer) SupportsRandomAccess() bool { return false }
func (w *Writer) SupportsSize() bool         { return false }
func (w *Writer) SupportsTruncate() bool     { return false }
func (w *Writer) SupportsReadMode() bool     { return false }
func (w *Writer) PrefersCopying() bool       { return true }

func (w *Writer) Size() (streamio.Position, bool) { return 0, false }

func (w *Writer) Seek(streamio.Position) bool {
	w.Fail(status.New(status.Unimplemented, "framed-snappy writer does not support seek"))
	return false
}

func (w *Writer) Truncate(streamio.Position) bool {
	w.Fail(status.New(status.Unimplemented, "framed-snappy writer does not support truncate"))
	return false
}

func (w *Writer) EnterReadMode(streamio.Position) (streamio.Reader, bool) {
	w.Fail(status.New(status.Unimplemented, "framed-snappy writer does not support read mode"))
	return nil, false
}

func (w *Writer) Close() bool {
	_, result := w.Lifecycle.CloseOnce(func() *status.Status {
		var errs []error
		if !w.pushInternal() {
			errs = append(errs, w.Status())
		}
		if s := w.dest.CloseIfOwned(); s != nil {
			errs = append(errs, s)
		}
		return status.CombineClose(errs...)
	})
	return result == nil
}
