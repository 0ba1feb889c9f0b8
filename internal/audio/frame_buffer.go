package audio

import (
	"bytes"
)

// FrameBuffer holds captured bytes that arrived while no buffer was enqueued.
type FrameBuffer struct {
	buf           bytes.Buffer
	maxBufferSize int
}

func NewFrameBuffer(maxBufferSize int) *FrameBuffer {
	return &FrameBuffer{
		maxBufferSize: maxBufferSize,
	}
}

// Write keeps at most maxBufferSize bytes, dropping the oldest.
func (f *FrameBuffer) Write(data []byte) {
	if f.maxBufferSize <= 0 {
		return
	}
	if len(data) > f.maxBufferSize {
		data = data[len(data)-f.maxBufferSize:]
	}

	if f.buf.Len()+len(data) > f.maxBufferSize {
		excessData := f.buf.Len() + len(data) - f.maxBufferSize
		f.buf.Next(excessData)
	}
	f.buf.Write(data)
}

// ReadInto moves as many buffered bytes as fit into dst.
func (f *FrameBuffer) ReadInto(dst []byte) int {
	n, _ := f.buf.Read(dst)
	return n
}

func (f *FrameBuffer) Len() int {
	return f.buf.Len()
}

func (f *FrameBuffer) Reset() {
	f.buf.Reset()
}
