package chunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"

	streamio "github.com/cairn-systems/streamio"
	"github.com/cairn-systems/streamio/chunk"
	"github.com/cairn-systems/streamio/status"
)

// Property 9 / 4: Decoder.Reset(Encoder.Finish()) reproduces the original
// records in order, and reading exactly N records exhausts the chunk
// without failing the decoder.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	records := [][]byte{
		[]byte("first"),
		[]byte(""),
		[]byte("third record, a bit longer"),
		{0x00, 0x01, 0x02, 0xff},
	}

	enc := chunk.NewEncoder()
	for _, r := range records {
		enc.AppendBytes(r)
	}
	require.Equal(t, len(records), enc.NumRecords())

	dec := chunk.NewDecoder()
	require.True(t, dec.Reset(enc.Finish()))
	require.Equal(t, len(records), dec.NumRecords())

	for i, want := range records {
		got, ok := dec.ReadRecordBytes()
		require.True(t, ok, "record %d", i)
		assert.Equal(t, want, got, "record %d", i)
	}

	_, ok := dec.ReadRecordBytes()
	assert.False(t, ok)
	assert.True(t, dec.Healthy(), "EOF must not be reported as a failure")
}

// S5: a chunk with three records where the middle one is not a valid proto
// message. Recover() lets the decoder continue past it.
func TestRecoverAfterUnparsableRecord(t *testing.T) {
	enc := chunk.NewEncoder()
	require.Nil(t, enc.AppendMessage(wrapperspb.String("alpha")))
	enc.AppendBytes([]byte{0x80}) // truncated varint tag: never a valid message
	require.Nil(t, enc.AppendMessage(wrapperspb.String("gamma")))

	dec := chunk.NewDecoder()
	require.True(t, dec.Reset(enc.Finish()))

	var msg wrapperspb.StringValue
	require.True(t, dec.ReadRecordMessage(&msg))
	assert.Equal(t, "alpha", msg.GetValue())

	msg.Reset()
	assert.False(t, dec.ReadRecordMessage(&msg))
	assert.False(t, dec.Healthy())
	assert.True(t, dec.Recoverable())
	s := dec.Status()
	require.NotNil(t, s)
	assert.Equal(t, status.DataLoss, s.Code())

	require.True(t, dec.Recover())
	assert.True(t, dec.Healthy())

	msg.Reset()
	require.True(t, dec.ReadRecordMessage(&msg))
	assert.Equal(t, "gamma", msg.GetValue())
}

// S6: raw-bytes reads (bytes/string/rope) never fail, even over a record
// that would fail to parse as a message.
func TestRawReadsNeverFail(t *testing.T) {
	enc := chunk.NewEncoder()
	require.Nil(t, enc.AppendMessage(wrapperspb.String("alpha")))
	enc.AppendBytes([]byte{0x80})
	require.Nil(t, enc.AppendMessage(wrapperspb.String("gamma")))
	wire := enc.Finish()

	dec := chunk.NewDecoder()
	require.True(t, dec.Reset(wire))

	for i := 0; i < 3; i++ {
		s, ok := dec.ReadRecordString()
		require.True(t, ok, "record %d", i)
		_ = s
		assert.True(t, dec.Healthy())
	}

	dec2 := chunk.NewDecoder()
	require.True(t, dec2.Reset(wire))
	var rope streamio.Rope
	for i := 0; i < 3; i++ {
		require.True(t, dec2.ReadRecordRope(&rope))
	}
	assert.True(t, dec2.Healthy())
	assert.Equal(t, 3, rope.NumSegments())
}

func TestSetIndex(t *testing.T) {
	enc := chunk.NewEncoder()
	enc.AppendBytes([]byte("a"))
	enc.AppendBytes([]byte("bb"))
	enc.AppendBytes([]byte("ccc"))

	dec := chunk.NewDecoder()
	require.True(t, dec.Reset(enc.Finish()))

	require.True(t, dec.SetIndex(2))
	got, ok := dec.ReadRecordBytes()
	require.True(t, ok)
	assert.Equal(t, []byte("ccc"), got)

	require.True(t, dec.SetIndex(0))
	got, ok = dec.ReadRecordBytes()
	require.True(t, ok)
	assert.Equal(t, []byte("a"), got)
}

func TestFieldFilterRetainsOnlyChosenFields(t *testing.T) {
	enc := chunk.NewEncoder()
	require.Nil(t, enc.AppendMessage(wrapperspb.String("hello")))

	dec := chunk.NewDecoder()
	require.True(t, dec.Reset(enc.Finish()))
	// wrapperspb.StringValue has a single field, number 1; filtering it out
	// leaves the message empty without failing the parse.
	dec.SetFieldFilter(chunk.NewFieldFilter(2))

	var msg wrapperspb.StringValue
	require.True(t, dec.ReadRecordMessage(&msg))
	assert.Equal(t, "", msg.GetValue())
}
