package snappyframe_test

import (
	"bytes"
	"hash/crc32"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	streamio "github.com/cairn-systems/streamio"
	"github.com/cairn-systems/streamio/sinks"
	"github.com/cairn-systems/streamio/snappyframe"
)

func newRopeBackedWriter(t *testing.T) (*snappyframe.Writer, *streamio.Rope) {
	t.Helper()
	rope := &streamio.Rope{}
	rw := sinks.NewRopeWriter(rope)
	w, s := snappyframe.NewWriter(streamio.Own[streamio.Writer](rw), 0)
	require.Nil(t, s)
	return w, rope
}

func maskedCRC(p []byte) uint32 {
	crc := crc32.Checksum(p, crc32.MakeTable(crc32.Castagnoli))
	return ((crc >> 15) | (crc << 17)) + 0xa282ead8
}

var wantStreamID = []byte{0xff, 0x06, 0x00, 0x00, 0x73, 0x4e, 0x61, 0x50, 0x70, 0x59}

// S1: empty stream.
func TestEmptyStream(t *testing.T) {
	w, rope := newRopeBackedWriter(t)
	require.True(t, w.Close())
	assert.Equal(t, wantStreamID, rope.Flatten())
}

// S2: one small uncompressible byte.
func TestOneByteUncompressible(t *testing.T) {
	w, rope := newRopeBackedWriter(t)
	require.True(t, w.Write([]byte{0x41}))
	require.True(t, w.Close())

	got := rope.Flatten()
	require.Equal(t, wantStreamID, got[:10])

	rest := got[10:]
	require.Len(t, rest, 4+4+1)
	assert.Equal(t, byte(0x01), rest[0])
	assert.Equal(t, []byte{0x05, 0x00, 0x00}, rest[1:4])
	wantCRC := maskedCRC([]byte{0x41})
	gotCRC := uint32(rest[4]) | uint32(rest[5])<<8 | uint32(rest[6])<<16 | uint32(rest[7])<<24
	assert.Equal(t, wantCRC, gotCRC)
	assert.Equal(t, byte(0x41), rest[8])
}

// S3: exact block size plus one byte straddles a block boundary.
func TestExactBlockPlusOne(t *testing.T) {
	w, rope := newRopeBackedWriter(t)
	n := snappyframe.MaxBlockSize + 1
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	require.True(t, w.Write(data))
	require.True(t, w.Close())

	roundTripped := decodeAll(t, rope.Flatten())
	assert.Equal(t, data, roundTripped)
}

// Property 3: round-trip across a spread of sizes around the block boundary,
// including empty input.
func TestRoundTripSizes(t *testing.T) {
	sizes := []int{0, 1, snappyframe.MaxBlockSize - 1, snappyframe.MaxBlockSize, snappyframe.MaxBlockSize + 1, 3 * snappyframe.MaxBlockSize}
	for _, n := range sizes {
		n := n
		t.Run("", func(t *testing.T) {
			w, rope := newRopeBackedWriter(t)
			data := make([]byte, n)
			for i := range data {
				data[i] = byte(i * 7)
			}
			require.True(t, w.Write(data))
			require.True(t, w.Close())
			assert.Equal(t, data, decodeAll(t, rope.Flatten()))
		})
	}
}

func decodeAll(t *testing.T, wire []byte) []byte {
	t.Helper()
	r := snappyframe.NewReader(bytes.NewReader(wire))
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return out
}
