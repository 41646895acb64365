package streamio

// ScratchHost is implemented by a concrete writer whose native window is
// bounded to some maximum contiguous size (the framed-Snappy writer's
// accumulation block, capped at 65536 bytes) and that therefore cannot, by
// itself, satisfy a Push asking for more than that in one call.
type ScratchHost interface {
	// NativeMax is the largest window NativePush can ever expose in one
	// call.
	NativeMax() int
	// NativePush acquires a native window of at least min bytes (min
	// must be <= NativeMax()) into w, returning false on failure. It
	// may need to flush existing window content first to make room.
	NativePush(w *Window, min, recommended int) bool
	// DrainScratch is called once synthetic scratch content must be
	// handed back to the host: content may be arbitrarily larger than
	// NativeMax(), so the host must push it through its native path in
	// as many pieces as required (for the framed-Snappy writer: one
	// emitted block per NativeMax()-sized piece).
	DrainScratch(content []byte) bool
}

// Scratch implements the pushable-writer scratch (C5): when a Push asks for
// more than the host's native maximum, Scratch switches the exposed window
// to a private buffer large enough to satisfy it, and transparently drains
// that buffer back into the host's native path on the next boundary
// operation. From the producer's side the window is seamless; the host
// never sees a Push bigger than its own NativeMax().
type Scratch struct {
	host   ScratchHost
	active bool
	buf    Buffer
}

// Init binds the scratch helper to its host. Must be called before Push.
func (s *Scratch) Init(host ScratchHost) {
	s.host = host
}

// InScratch reports whether the window is currently backed by the synthetic
// scratch buffer rather than the host's native memory.
func (s *Scratch) InScratch() bool {
	return s.active
}

// Push ensures w exposes at least minLength free bytes, using scratch when
// minLength exceeds the host's native maximum.
func (s *Scratch) Push(w *Window, minLength, recommended int) bool {
	if s.active {
		return s.growScratch(w, minLength, recommended)
	}
	if minLength <= s.host.NativeMax() {
		return s.host.NativePush(w, minLength, recommended)
	}
	return s.enterScratch(w, minLength, recommended)
}

func (s *Scratch) enterScratch(w *Window, minLength, recommended int) bool {
	// Preserve whatever the host had already buffered natively; it
	// becomes the prefix of the scratch content.
	pending := append([]byte(nil), w.Bytes()...)
	startPos := w.StartPos()

	size := minLength
	if recommended > size {
		size = recommended
	}
	s.buf.Reset()
	dst := s.buf.Grow(len(pending) + size)
	copy(dst, pending)
	s.buf.UnsafeAppend(len(pending))
	s.buf.UnsafeAppend(size)

	s.active = true
	w.Reset(s.buf.Bytes(), startPos)
	w.Advance(len(pending))
	return true
}

func (s *Scratch) growScratch(w *Window, minLength, recommended int) bool {
	want := minLength
	if recommended > want {
		want = recommended
	}
	if w.Avail() >= want {
		return true
	}
	startPos := w.StartPos()
	written := w.Bytes()
	extra := want - w.Avail()
	dst := s.buf.Grow(extra)
	_ = dst
	s.buf.UnsafeAppend(extra)
	w.Reset(s.buf.Bytes(), startPos)
	w.Advance(len(written))
	return true
}

// Sync drains any active scratch content back into the host via
// DrainScratch, then re-acquires a fresh native window. Must be called at
// every boundary-crossing operation (Flush, Close, Seek, ...) before the
// host touches its native path, mirroring the sync-buffer step in the
// Writer contract. No-op if the window is already native.
func (s *Scratch) Sync(w *Window) bool {
	if !s.active {
		return true
	}
	content := append([]byte(nil), w.Bytes()...)
	pos := w.Pos()
	s.active = false
	// Empty the window before handing content to the host: the host's
	// NativePush (called below) always
	// commits whatever the window currently holds into its own native
	// storage, which must not see this already-drained scratch content a
	// second time.
	w.ResetEmpty(pos)
	if !s.host.DrainScratch(content) {
		return false
	}
	return s.host.NativePush(w, 0, 0)
}
