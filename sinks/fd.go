package sinks

import (
	"io"
	"math"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	streamio "github.com/cairn-systems/streamio"
	"github.com/cairn-systems/streamio/status"
)

// FD is satisfied by *os.File and anything else exposing its file
// descriptor the way os.File does.
type FD interface {
	Fd() uintptr
}

// FDWriter is a streamio.Writer over a POSIX file descriptor, built on the
// buffered-writer scaffold (C6) since write(2) requires its own copy of the
// data rather than accepting a producer-owned window directly. write(2) is
// retried on EINTR and on no other error; fsync, fstat, lseek and ftruncate
// are not retried at all, so an EINTR from them fails the writer.
type FDWriter struct {
	streamio.BufferedWriter

	fdNum  int
	closer func() error

	o fdOptions
}

var (
	_ streamio.Writer       = (*FDWriter)(nil)
	_ streamio.BufferedHost = (*FDWriter)(nil)
)

// NewFDWriter wraps f for buffered writing starting at startPos (the
// caller's responsibility to make agree with f's actual current offset). If
// f implements io.Closer, Close cascades to it.
func NewFDWriter(f FD, bufSize int, startPos streamio.Position, opts ...FOption) *FDWriter {
	fw := &FDWriter{fdNum: int(f.Fd())}
	if c, ok := f.(io.Closer); ok {
		fw.closer = c.Close
	}
	fw.o.setDefault()
	for _, opt := range opts {
		opt(&fw.o)
	}
	fw.BufferedWriter.Init(fw, bufSize, startPos)
	return fw
}

// WriteInternal implements streamio.BufferedHost, retrying only on EINTR; any
// other error, including a partial write, is reported to the scaffold as-is.
func (fw *FDWriter) WriteInternal(p []byte) (int, *status.Status) {
	for {
		n, err := unix.Write(fw.fdNum, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return n, status.Wrap(status.Unknown, "write(2) failed", err)
		}
		fw.o.logger.Debug("write(2)", zap.Int("fd", fw.fdNum), zap.Int("bytes", n), zap.Uint64("content_xxhash", xxhash.Sum64(p[:n])))
		return n, nil
	}
}

func (fw *FDWriter) Push(minLength, recommended int) bool {
	if !fw.Healthy() {
		return false
	}
	return fw.EnsureSpace(minLength, recommended)
}

func (fw *FDWriter) Write(p []byte) bool {
	if !fw.Healthy() {
		return false
	}
	if len(p) == 0 {
		return true
	}
	if len(p) <= fw.Window.Avail() {
		copy(fw.Window.Free(), p)
		fw.Window.Advance(len(p))
		return true
	}
	for len(p) > 0 {
		if !fw.EnsureSpace(1, len(p)) {
			return false
		}
		n := min(len(p), fw.Window.Avail())
		copy(fw.Window.Free(), p[:n])
		fw.Window.Advance(n)
		p = p[n:]
	}
	return true
}

func (fw *FDWriter) WriteRope(r *streamio.Rope) bool {
	ok := true
	r.ForEachSegment(func(seg []byte) {
		if ok {
			ok = fw.Write(seg)
		}
	})
	return ok
}

func (fw *FDWriter) WriteZeros(n int) bool {
	zeros := make([]byte, 4096)
	for n > 0 {
		chunk := min(n, len(zeros))
		if !fw.Write(zeros[:chunk]) {
			return false
		}
		n -= chunk
	}
	return true
}

func (fw *FDWriter) Flush(scope streamio.FlushScope) bool {
	if !fw.Healthy() {
		return false
	}
	if !fw.SyncBuffer() {
		return false
	}
	if scope >= streamio.FlushFromMachine {
		if err := unix.Fsync(fw.fdNum); err != nil {
			fw.Fail(status.Wrap(status.Unknown, "fsync failed", err))
			return false
		}
		fw.o.logger.Debug("fsync", zap.Int("fd", fw.fdNum))
	}
	return true
}

func (fw *FDWriter) SupportsRandomAccess() bool { return true }
func (fw *FDWriter) SupportsSize() bool         { return true }
func (fw *FDWriter) SupportsTruncate() bool     { return true }
func (fw *FDWriter) SupportsReadMode() bool     { return false }
func (fw *FDWriter) PrefersCopying() bool       { return true }

func (fw *FDWriter) Size() (streamio.Position, bool) {
	if !fw.Healthy() {
		return 0, false
	}
	if !fw.SyncBuffer() {
		return 0, false
	}
	var stat unix.Stat_t
	if err := unix.Fstat(fw.fdNum, &stat); err != nil {
		fw.Fail(status.Wrap(status.Unknown, "fstat failed", err))
		return 0, false
	}
	if stat.Size < 0 {
		fw.Fail(status.New(status.Unknown, "fstat reported a negative size"))
		return 0, false
	}
	return streamio.Position(stat.Size), true
}

func (fw *FDWriter) Seek(newPos streamio.Position) bool {
	if !fw.Healthy() {
		return false
	}
	if uint64(newPos) > math.MaxInt64 {
		fw.Fail(status.Newf(status.InvalidArgument, "seek target %d exceeds the platform's maximum file offset", uint64(newPos)))
		return false
	}
	if !fw.SyncBuffer() {
		return false
	}
	off, err := unix.Seek(fw.fdNum, int64(newPos), 0)
	if err != nil {
		fw.Fail(status.Wrap(status.Unknown, "seek failed", err))
		return false
	}
	fw.BufferedWriter.Reposition(streamio.Position(off))
	return true
}

func (fw *FDWriter) Truncate(newSize streamio.Position) bool {
	if !fw.Healthy() {
		return false
	}
	if uint64(newSize) > math.MaxInt64 {
		fw.Fail(status.Newf(status.InvalidArgument, "truncate target %d exceeds the platform's maximum file offset", uint64(newSize)))
		return false
	}
	if !fw.SyncBuffer() {
		return false
	}
	if err := unix.Ftruncate(fw.fdNum, int64(newSize)); err != nil {
		fw.Fail(status.Wrap(status.Unknown, "truncate failed", err))
		return false
	}
	return true
}

func (fw *FDWriter) EnterReadMode(streamio.Position) (streamio.Reader, bool) {
	fw.Fail(status.New(status.Unimplemented, "fd writer does not support read mode"))
	return nil, false
}

func (fw *FDWriter) Close() bool {
	_, result := fw.Lifecycle.CloseOnce(func() *status.Status {
		var errs []error
		if !fw.SyncBuffer() {
			errs = append(errs, fw.Status())
		}
		if fw.closer != nil {
			if err := fw.closer(); err != nil {
				errs = append(errs, status.Wrap(status.Unknown, "closing file descriptor", err))
			}
		}
		return status.CombineClose(errs...)
	})
	return result == nil
}
