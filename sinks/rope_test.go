package sinks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	streamio "github.com/cairn-systems/streamio"
	"github.com/cairn-systems/streamio/sinks"
)

// Property 8: writing N bytes through a RopeWriter and reading them back via
// EnterReadMode reproduces the original bytes, for writes that land exactly
// on, and straddle, rope segment boundaries.
func TestRopeWriterRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		chunks  [][]byte
	}{
		{"single small write", [][]byte{seq(0, 10)}},
		{"many small writes", [][]byte{seq(0, 100), seq(100, 50), seq(150, 4096 - 150)}},
		{"write straddles a fresh segment boundary", [][]byte{seq(0, 4096), seq(4096, 4096), seq(8192, 1)}},
		{"one write spanning several segments worth of bytes", [][]byte{seq(0, 20000)}},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			rope := &streamio.Rope{}
			w := sinks.NewRopeWriter(rope)

			var want []byte
			for _, c := range c.chunks {
				require.True(t, w.Write(c))
				want = append(want, c...)
			}
			require.True(t, w.Close())

			assert.Equal(t, len(want), rope.Size())

			r, ok := w.EnterReadMode(0)
			require.True(t, ok)
			got := make([]byte, len(want))
			total := 0
			for total < len(got) {
				n, ok := r.Read(got[total:])
				require.True(t, ok)
				if n == 0 {
					break
				}
				total += n
			}
			assert.Equal(t, want, got[:total])
			require.True(t, w.Close())
		})
	}
}

func TestRopeWriterSeekOverwrite(t *testing.T) {
	rope := &streamio.Rope{}
	w := sinks.NewRopeWriter(rope)
	require.True(t, w.Write(seq(0, 100)))
	require.True(t, w.Seek(10))
	require.True(t, w.Write([]byte{0xff, 0xff}))
	require.True(t, w.Close())

	r, ok := w.EnterReadMode(0)
	require.True(t, ok)
	got := make([]byte, 100)
	n, ok := r.Read(got)
	require.True(t, ok)
	require.Equal(t, 100, n)

	want := seq(0, 100)
	want[10] = 0xff
	want[11] = 0xff
	assert.Equal(t, want, got)
}

func seq(start, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte((start + i) & 0xff)
	}
	return out
}
