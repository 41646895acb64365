package sinks_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	streamio "github.com/cairn-systems/streamio"
	"github.com/cairn-systems/streamio/sinks"
)

func TestFDWriterWriteFlushReadBack(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "fdwriter-*.bin")
	require.NoError(t, err)

	w := sinks.NewFDWriter(f, 4096, 0)
	want := []byte("the quick brown fox jumps over the lazy dog")
	require.True(t, w.Write(want))
	require.True(t, w.Flush(streamio.FlushFromMachine))

	sz, ok := w.Size()
	require.True(t, ok)
	assert.Equal(t, streamio.Position(len(want)), sz)

	require.True(t, w.Close())

	got, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFDWriterSeekOverwrite(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "fdwriter-*.bin")
	require.NoError(t, err)

	w := sinks.NewFDWriter(f, 4096, 0)
	require.True(t, w.Write([]byte("0123456789")))
	require.True(t, w.Seek(2))
	require.True(t, w.Write([]byte("XY")))
	require.True(t, w.Close())

	got, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, []byte("01XY456789"), got)
}

func TestFDWriterTruncate(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "fdwriter-*.bin")
	require.NoError(t, err)

	w := sinks.NewFDWriter(f, 4096, 0)
	require.True(t, w.Write([]byte("0123456789")))
	require.True(t, w.Truncate(4))
	require.True(t, w.Close())

	got, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, []byte("0123"), got)
}

func TestFDWriterWritePastBufferSize(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "fdwriter-*.bin")
	require.NoError(t, err)

	w := sinks.NewFDWriter(f, 8, 0)
	want := make([]byte, 1000)
	for i := range want {
		want[i] = byte(i)
	}
	require.True(t, w.Write(want))
	require.True(t, w.Close())

	got, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
