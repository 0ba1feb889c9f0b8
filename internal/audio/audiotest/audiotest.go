// Package audiotest provides a scripted Backend whose buffer completions are driven by the
// test instead of a sound card.
package audiotest

import (
	"errors"
	"sync"
	"time"

	"voicebox/internal/audio"
)

// Backend records every device graph it creates.
type Backend struct {
	// FailOpen makes the next Open call fail with the given error.
	FailOpen error

	mu      sync.Mutex
	outputs []*Queue
	inputs  []*Queue
}

func (b *Backend) OpenOutput(f audio.Format, done audio.CompletionFunc) (audio.BufferQueue, error) {
	return b.open(f, done, false)
}

func (b *Backend) OpenInput(f audio.Format, done audio.CompletionFunc) (audio.BufferQueue, error) {
	return b.open(f, done, true)
}

func (b *Backend) open(f audio.Format, done audio.CompletionFunc, input bool) (audio.BufferQueue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.FailOpen; err != nil {
		b.FailOpen = nil
		return nil, err
	}
	q := &Queue{
		format:   f,
		done:     done,
		enqueued: make(chan struct{}, 1024),
	}
	if input {
		b.inputs = append(b.inputs, q)
	} else {
		b.outputs = append(b.outputs, q)
	}
	return q, nil
}

// Output returns the i-th output queue created, or nil.
func (b *Backend) Output(i int) *Queue {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.outputs) {
		return nil
	}
	return b.outputs[i]
}

// Input returns the i-th input queue created, or nil.
func (b *Backend) Input(i int) *Queue {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.inputs) {
		return nil
	}
	return b.inputs[i]
}

func (b *Backend) Outputs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.outputs)
}

func (b *Backend) Inputs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inputs)
}

// Queue is a single-slot buffer queue. Nothing completes until the test calls Consume or Fill.
type Queue struct {
	format   audio.Format
	done     audio.CompletionFunc
	enqueued chan struct{}

	mu        sync.Mutex
	state     audio.DeviceState
	pending   []byte
	submitted [][]byte
	busy      int
	destroyed int
}

func (q *Queue) Enqueue(buf []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.destroyed > 0 {
		return audio.ErrDeviceReleased
	}
	if q.pending != nil {
		q.busy++
		return audio.ErrQueueBusy
	}
	q.pending = buf
	q.submitted = append(q.submitted, append([]byte(nil), buf...))
	q.enqueued <- struct{}{}
	return nil
}

func (q *Queue) SetState(state audio.DeviceState) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed > 0 {
		return audio.ErrDeviceReleased
	}
	q.state = state
	if state == audio.DeviceStopped {
		q.pending = nil
	}
	return nil
}

func (q *Queue) State() audio.DeviceState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

func (q *Queue) Destroy() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.destroyed++
	q.pending = nil
}

func (q *Queue) Format() audio.Format {
	return q.format
}

// Consume completes the outstanding output buffer. It reports false if none was enqueued.
func (q *Queue) Consume() bool {
	q.mu.Lock()
	if q.pending == nil {
		q.mu.Unlock()
		return false
	}
	q.pending = nil
	q.mu.Unlock()

	q.done()
	return true
}

// Fill copies data into the outstanding input buffer and completes it.
func (q *Queue) Fill(data []byte) bool {
	q.mu.Lock()
	if q.pending == nil {
		q.mu.Unlock()
		return false
	}
	copy(q.pending, data)
	q.pending = nil
	q.mu.Unlock()

	q.done()
	return true
}

// Enqueued receives one value per successful Enqueue call.
func (q *Queue) Enqueued() <-chan struct{} {
	return q.enqueued
}

var ErrTimeout = errors.New("timed out waiting for enqueue")

// WaitEnqueue blocks until the next Enqueue call has happened.
func (q *Queue) WaitEnqueue(timeout time.Duration) error {
	select {
	case <-q.enqueued:
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// Submitted returns copies of every buffer passed to Enqueue, in order.
func (q *Queue) Submitted() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][]byte, len(q.submitted))
	copy(out, q.submitted)
	return out
}

// Busy counts Enqueue calls rejected because a buffer was already outstanding.
func (q *Queue) Busy() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

func (q *Queue) Destroyed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.destroyed
}
