// Package chunk implements the record-chunk format: a sequence of records
// concatenated into one values buffer alongside a sorted table of their end
// offsets, so a reader can seek to any record without parsing the ones
// before it. Encoder is the write-side producer; Decoder (the harder,
// read-side piece) parses a chunk back into records, optionally filtering
// proto messages down to a set of top-level field numbers, and supports
// recovering from one unparsable record without losing the rest.
package chunk

import (
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"

	streamio "github.com/cairn-systems/streamio"
	"github.com/cairn-systems/streamio/status"
)

// Encoder accumulates records into one values buffer and a parallel limits
// table, producing the encoded chunk bytes a Decoder can parse back.
type Encoder struct {
	values streamio.Buffer
	limits []uint64
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// AppendBytes appends p as the next record.
func (e *Encoder) AppendBytes(p []byte) {
	e.values.Append(p)
	e.limits = append(e.limits, uint64(e.values.Len()))
}

// AppendRope appends every segment of r, in order, as one record.
func (e *Encoder) AppendRope(r *streamio.Rope) {
	r.ForEachSegment(func(seg []byte) {
		e.values.Append(seg)
	})
	e.limits = append(e.limits, uint64(e.values.Len()))
}

// AppendMessage marshals msg and appends it as the next record.
func (e *Encoder) AppendMessage(msg proto.Message) *status.Status {
	data, err := proto.Marshal(msg)
	if err != nil {
		return status.Wrap(status.InvalidArgument, "chunk: marshaling record", err)
	}
	e.AppendBytes(data)
	return nil
}

// NumRecords returns how many records have been appended so far.
func (e *Encoder) NumRecords() int {
	return len(e.limits)
}

// Finish returns the encoded chunk: varint record count, varint values size,
// the limits table as consecutive varints, then the raw values buffer. The
// Encoder may continue to be used afterwards; Finish does not reset it.
func (e *Encoder) Finish() []byte {
	out := protowire.AppendVarint(nil, uint64(len(e.limits)))
	out = protowire.AppendVarint(out, uint64(e.values.Len()))
	for _, l := range e.limits {
		out = protowire.AppendVarint(out, l)
	}
	out = append(out, e.values.Bytes()...)
	return out
}

// Reset empties the encoder for reuse.
func (e *Encoder) Reset() {
	e.values.Reset()
	e.limits = e.limits[:0]
}
