package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameBufferDropsOldest(t *testing.T) {
	fb := NewFrameBuffer(4)
	fb.Write([]byte{1, 2, 3})
	fb.Write([]byte{4, 5})
	assert.Equal(t, 4, fb.Len())

	dst := make([]byte, 8)
	n := fb.ReadInto(dst)
	assert.Equal(t, []byte{2, 3, 4, 5}, dst[:n])
	assert.Zero(t, fb.Len())
}

func TestFrameBufferOversizedWrite(t *testing.T) {
	fb := NewFrameBuffer(3)
	fb.Write([]byte{1, 2, 3, 4, 5})

	dst := make([]byte, 2)
	assert.Equal(t, 2, fb.ReadInto(dst))
	assert.Equal(t, []byte{3, 4}, dst)
	assert.Equal(t, 1, fb.Len())

	fb.Reset()
	assert.Zero(t, fb.Len())
}

func TestFrameBufferDisabled(t *testing.T) {
	fb := NewFrameBuffer(0)
	fb.Write([]byte{1})
	assert.Zero(t, fb.Len())
}
