package chunk

import (
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"

	streamio "github.com/cairn-systems/streamio"
	"github.com/cairn-systems/streamio/status"
)

// FieldFilter restricts ReadRecordMessage to a set of top-level proto field
// numbers; raw-bytes reads (ReadRecordBytes/String/Rope) ignore it entirely.
// A nil filter retains every field.
type FieldFilter map[protowire.Number]bool

// NewFieldFilter builds a FieldFilter retaining exactly the given field
// numbers.
func NewFieldFilter(nums ...int32) FieldFilter {
	f := make(FieldFilter, len(nums))
	for _, n := range nums {
		f[protowire.Number(n)] = true
	}
	return f
}

// Decoder parses a chunk produced by Encoder and yields its records in
// order. A Decoder is reused across chunks via Reset; it is not
// concurrency-safe.
type Decoder struct {
	values []byte
	limits []uint64
	index  int
	cursor uint64

	filter      FieldFilter
	failed      *status.Status
	recoverable bool
}

// NewDecoder returns a Decoder with no chunk loaded; call Reset before
// reading records.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// SetFieldFilter installs the filter applied to subsequent
// ReadRecordMessage calls. Pass nil to retain every field.
func (d *Decoder) SetFieldFilter(f FieldFilter) {
	d.filter = f
}

// Healthy reports whether the decoder has not latched a failure.
func (d *Decoder) Healthy() bool { return d.failed == nil }

// Status returns the latched failure, or nil.
func (d *Decoder) Status() *status.Status { return d.failed }

// Recoverable reports whether the latched failure can be cleared by
// Recover (true only right after a failed ReadRecordMessage).
func (d *Decoder) Recoverable() bool { return d.recoverable }

// NumRecords returns N, the record count of the currently loaded chunk.
func (d *Decoder) NumRecords() int { return len(d.limits) }

// Index returns the index of the next record ReadRecord* will return.
func (d *Decoder) Index() int { return d.index }

// Reset parses chunk (varint record count, varint values size, that many
// varint limits, then the values buffer) and positions the decoder at
// record 0. Failure latches a status and leaves the decoder unusable until
// the next successful Reset.
func (d *Decoder) Reset(chunkBytes []byte) bool {
	d.failed = nil
	d.recoverable = false
	d.index = 0
	d.cursor = 0
	d.values = nil
	d.limits = nil

	n, nLen := protowire.ConsumeVarint(chunkBytes)
	if nLen < 0 {
		d.failed = status.New(status.DataLoss, "chunk: malformed record-count varint")
		return false
	}
	chunkBytes = chunkBytes[nLen:]

	size, sLen := protowire.ConsumeVarint(chunkBytes)
	if sLen < 0 {
		d.failed = status.New(status.DataLoss, "chunk: malformed values-size varint")
		return false
	}
	chunkBytes = chunkBytes[sLen:]

	limits := make([]uint64, 0, n)
	for i := uint64(0); i < n; i++ {
		v, vLen := protowire.ConsumeVarint(chunkBytes)
		if vLen < 0 {
			d.failed = status.Newf(status.DataLoss, "chunk: malformed limit varint at record %d", i)
			return false
		}
		chunkBytes = chunkBytes[vLen:]
		if v > size {
			d.failed = status.Newf(status.DataLoss, "chunk: limit %d at record %d exceeds values size %d", v, i, size)
			return false
		}
		if i > 0 && v < limits[i-1] {
			d.failed = status.Newf(status.DataLoss, "chunk: limits not sorted at record %d", i)
			return false
		}
		limits = append(limits, v)
	}
	if n > 0 && limits[n-1] != size {
		d.failed = status.Newf(status.DataLoss, "chunk: final limit %d does not match values size %d", limits[n-1], size)
		return false
	}
	if uint64(len(chunkBytes)) != size {
		d.failed = status.Newf(status.DataLoss, "chunk: values buffer is %d bytes, header declared %d", len(chunkBytes), size)
		return false
	}

	d.values = chunkBytes
	d.limits = limits
	return true
}

// ReadRecordBytes returns the next record's bytes without copying (valid
// until the next Reset). Never fails the decoder: returns false only at EOF
// (index == N) or when the decoder is already unhealthy, distinguishable via
// Healthy().
func (d *Decoder) ReadRecordBytes() ([]byte, bool) {
	if !d.Healthy() || d.index >= len(d.limits) {
		return nil, false
	}
	start := d.cursor
	limit := d.limits[d.index]
	out := d.values[start:limit]
	d.cursor = limit
	d.index++
	return out, true
}

// ReadRecordString is ReadRecordBytes with the result copied into a string.
func (d *Decoder) ReadRecordString() (string, bool) {
	b, ok := d.ReadRecordBytes()
	if !ok {
		return "", false
	}
	return string(b), true
}

// ReadRecordRope appends the next record to out as one segment (no copy;
// out must not be mutated afterwards in a way that would corrupt the
// decoder's values buffer). An empty record adds no segment.
func (d *Decoder) ReadRecordRope(out *streamio.Rope) bool {
	b, ok := d.ReadRecordBytes()
	if !ok {
		return false
	}
	out.AppendSegment(b)
	return true
}

// ReadRecordMessage parses the next record as a proto message under the
// installed field filter. The values cursor advances regardless of parse
// outcome, matching the data model's note that a successful Recover leaves
// index already past the unparsable record. On parse failure the decoder
// latches a data-loss status naming the record index and becomes
// Recoverable.
func (d *Decoder) ReadRecordMessage(msg proto.Message) bool {
	if !d.Healthy() || d.index >= len(d.limits) {
		return false
	}
	start := d.cursor
	limit := d.limits[d.index]
	data := d.values[start:limit]
	recordIndex := d.index
	d.cursor = limit
	d.index++

	payload := data
	if d.filter != nil {
		filtered, err := applyFieldFilter(data, d.filter)
		if err != nil {
			d.failed = status.Newf(status.DataLoss, "record %d: malformed proto while filtering fields", recordIndex)
			d.recoverable = true
			return false
		}
		payload = filtered
	}
	if err := proto.Unmarshal(payload, msg); err != nil {
		d.failed = status.Newf(status.DataLoss, "record %d: invalid proto payload", recordIndex)
		d.recoverable = true
		return false
	}
	return true
}

// Recover clears a Recoverable failure, allowing reads to continue at the
// record after the one that failed to parse. Returns false if the latched
// failure (if any) is not recoverable.
func (d *Decoder) Recover() bool {
	if !d.recoverable {
		return false
	}
	d.failed = nil
	d.recoverable = false
	return true
}

// SetIndex repositions the values cursor to the start of record i, clamped
// to [0, N]. Precondition: Healthy().
func (d *Decoder) SetIndex(i int) bool {
	if !d.Healthy() {
		return false
	}
	if i < 0 {
		i = 0
	}
	if i > len(d.limits) {
		i = len(d.limits)
	}
	d.index = i
	if i == 0 {
		d.cursor = 0
	} else {
		d.cursor = d.limits[i-1]
	}
	return true
}

// applyFieldFilter copies only the top-level fields in allowed from data,
// preserving wire order, so the result can be unmarshaled as if the other
// fields were never present.
func applyFieldFilter(data []byte, allowed FieldFilter) ([]byte, error) {
	var out []byte
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		m := protowire.ConsumeFieldValue(num, typ, b[n:])
		if m < 0 {
			return nil, protowire.ParseError(m)
		}
		total := n + m
		if allowed[num] {
			out = append(out, b[:total]...)
		}
		b = b[total:]
	}
	return out, nil
}
