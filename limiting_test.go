package streamio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	streamio "github.com/cairn-systems/streamio"
	"github.com/cairn-systems/streamio/sinks"
	"github.com/cairn-systems/streamio/status"
)

func newLimited(t *testing.T, maxPos streamio.Position, exact bool) (*streamio.LimitingWriter, *streamio.Rope) {
	t.Helper()
	rope := &streamio.Rope{}
	rw := sinks.NewRopeWriter(rope)
	lw, s := streamio.NewLimitingWriter(streamio.Own[streamio.Writer](rw), maxPos, exact)
	require.Nil(t, s)
	return lw, rope
}

// S4: exact mode at the limit succeeds.
func TestLimitingExactSuccess(t *testing.T) {
	lw, rope := newLimited(t, 10, true)
	require.True(t, lw.Write(make([]byte, 10)))
	require.True(t, lw.Close())
	assert.Equal(t, 10, rope.Size())
}

// S4: exact mode short of the limit fails invalid-argument on Close.
func TestLimitingExactShortfall(t *testing.T) {
	lw, _ := newLimited(t, 10, true)
	require.True(t, lw.Write(make([]byte, 9)))
	assert.False(t, lw.Close())
	s := lw.Status()
	require.NotNil(t, s)
	assert.Equal(t, status.InvalidArgument, s.Code())
	assert.Contains(t, s.Error(), "Not enough data: expected 10")
}

// S4 / invariant 5: writing past the limit fails resource-exhausted and
// leaves the inner at exactly max_pos, never beyond.
func TestLimitingOverrun(t *testing.T) {
	lw, _ := newLimited(t, 10, false)
	ok := lw.Write(make([]byte, 11))
	assert.False(t, ok)
	assert.False(t, lw.Healthy())
	s := lw.Status()
	require.NotNil(t, s)
	assert.Equal(t, status.ResourceExhausted, s.Code())

	sz, ok := lw.Size()
	require.True(t, ok)
	assert.Equal(t, streamio.Position(10), sz)
}

// Invariant 5: pos() never exceeds max_pos across any call sequence.
func TestLimitingNeverExceedsMaxPos(t *testing.T) {
	lw, _ := newLimited(t, 100, false)
	for i := 0; i < 20; i++ {
		lw.Write(make([]byte, 7))
		assert.LessOrEqual(t, uint64(lw.Pos()), uint64(100))
	}
}
