package audio

import "errors"

var (
	ErrQueueBusy      = errors.New("buffer queue already holds a buffer")
	ErrDeviceReleased = errors.New("device released")
)

// CompletionFunc is invoked from the driver goroutine when the outstanding buffer has been
// consumed (output) or filled (input). It must not block.
type CompletionFunc func()

// BufferQueue is a device with a single-slot buffer queue. Output queues play the enqueued
// bytes; input queues fill the enqueued buffer completely before completing it.
type BufferQueue interface {
	Enqueue(buf []byte) error
	SetState(DeviceState) error
	State() DeviceState
	Destroy()
}

// Backend builds device object graphs.
type Backend interface {
	OpenOutput(f Format, done CompletionFunc) (BufferQueue, error)
	OpenInput(f Format, done CompletionFunc) (BufferQueue, error)
}
