package streamio

import "io"

// Rope is a byte sequence held as a slice of owned segments rather than one
// contiguous allocation. Writers that can accept data without copying it
// into their own window (sinks.RopeWriter chief among them) pass Ropes
// around instead of flattening to a single []byte. It is unrelated to
// Abseil's Cord beyond sharing the name used in the data model: a plain
// slice-of-slices with a cached total size.
type Rope struct {
	segs []([]byte)
	size int
}

// AppendSegment appends p to the rope without copying it; the caller must
// not mutate p afterwards.
func (r *Rope) AppendSegment(p []byte) {
	if len(p) == 0 {
		return
	}
	r.segs = append(r.segs, p)
	r.size += len(p)
}

// Size returns the total number of bytes across all segments.
func (r *Rope) Size() int {
	return r.size
}

// NumSegments returns the number of segments.
func (r *Rope) NumSegments() int {
	return len(r.segs)
}

// ForEachSegment calls fn with each segment in order.
func (r *Rope) ForEachSegment(fn func([]byte)) {
	for _, s := range r.segs {
		fn(s)
	}
}

// Flatten copies the rope's contents into a single contiguous slice. Prefer
// ForEachSegment/WriteTo on the fast path; Flatten exists for callers (tests,
// LimitingWriter.WriteRope's overrun path) that need one []byte.
func (r *Rope) Flatten() []byte {
	out := make([]byte, 0, r.size)
	for _, s := range r.segs {
		out = append(out, s...)
	}
	return out
}

// WriteTo implements io.WriterTo, writing every segment in order.
func (r *Rope) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, s := range r.segs {
		n, err := w.Write(s)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Reset empties the rope, keeping the capacity of its segment slice.
func (r *Rope) Reset() {
	r.segs = r.segs[:0]
	r.size = 0
}

// Segment returns the i'th segment's bytes.
func (r *Rope) Segment(i int) []byte {
	return r.segs[i]
}

// Locate finds which segment contains absolute offset, returning the
// segment index and the byte offset within it. offset == Size() is the
// legal one-past-the-end position and reports idx == NumSegments().
func (r *Rope) Locate(offset int) (idx, off int, ok bool) {
	if offset < 0 || offset > r.size {
		return 0, 0, false
	}
	if offset == r.size {
		return len(r.segs), 0, true
	}
	acc := 0
	for i, s := range r.segs {
		if offset < acc+len(s) {
			return i, offset - acc, true
		}
		acc += len(s)
	}
	return 0, 0, false
}

// TruncateTo shortens the rope so its total size becomes n, dropping or
// re-slicing segments as needed. Reports false if n exceeds the current
// size.
func (r *Rope) TruncateTo(n int) bool {
	if n > r.size || n < 0 {
		return false
	}
	if n == r.size {
		return true
	}
	acc := 0
	for i, s := range r.segs {
		if acc+len(s) >= n {
			keep := n - acc
			if keep == 0 {
				r.segs = r.segs[:i]
			} else {
				r.segs = r.segs[:i+1]
				r.segs[i] = s[:keep]
			}
			r.size = n
			return true
		}
		acc += len(s)
	}
	return false
}
