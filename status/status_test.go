package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotatefPreservesCode(t *testing.T) {
	inner := New(ResourceExhausted, "position limit exceeded")
	outer := Annotatef(inner, "writing frame 3")

	assert.Equal(t, ResourceExhausted, outer.Code())
	assert.Equal(t, "resource_exhausted: writing frame 3: position limit exceeded", outer.Error())
	assert.True(t, errors.Is(outer, inner))
}

func TestAnnotatefNilCause(t *testing.T) {
	assert.Nil(t, Annotatef(nil, "context"))
}

func TestIsWalksChain(t *testing.T) {
	inner := New(DataLoss, "bad record")
	outer := Wrap(DataLoss, "chunk 2", inner)

	assert.True(t, Is(outer, DataLoss))
	assert.False(t, Is(outer, InvalidArgument))
}

func TestFromError(t *testing.T) {
	s := New(Unimplemented, "seek")
	wrapped := fmt.Errorf("while opening reader: %w", s)

	found, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Equal(t, Unimplemented, found.Code())
}

func TestNilStatusIsOK(t *testing.T) {
	var s *Status
	assert.Equal(t, OK, s.Code())
	assert.Equal(t, "ok", s.Error())
	assert.Nil(t, s.Unwrap())
}
