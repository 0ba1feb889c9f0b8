package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// CaptureDevice fills one enqueued buffer at a time. Input that arrives while no buffer is
// enqueued is carried over, up to one second, into the next buffer.
type CaptureDevice struct {
	device *malgo.Device
	swap   bool
	done   CompletionFunc

	mu       sync.Mutex
	status   DeviceState
	pending  []byte
	offset   int
	carry    *FrameBuffer
	released bool
}

func (e *AudioEngine) newCaptureDevice(f Format, done CompletionFunc) (*CaptureDevice, error) {
	capture := &CaptureDevice{
		swap:  f.NeedsSwap(),
		done:  done,
		carry: NewFrameBuffer(f.PlaybackQuantum()),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatType(f.SampleFormat())
	deviceConfig.Capture.Channels = uint32(f.Channels)
	deviceConfig.SampleRate = uint32(f.SampleRate)
	deviceConfig.PerformanceProfile = malgo.LowLatency
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(e.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			capture.receive(input)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	capture.device = device
	return capture, nil
}

func (c *CaptureDevice) receive(input []byte) {
	c.mu.Lock()
	if c.pending == nil {
		c.carry.Write(input)
		c.mu.Unlock()
		return
	}

	n := copy(c.pending[c.offset:], input)
	c.offset += n
	c.carry.Write(input[n:])
	finished := c.offset >= len(c.pending)
	if finished {
		if c.swap {
			swap16(c.pending)
		}
		c.pending = nil
		c.offset = 0
	}
	c.mu.Unlock()

	if finished {
		c.done()
	}
}

func (c *CaptureDevice) Enqueue(buf []byte) error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return ErrDeviceReleased
	}
	if c.pending != nil {
		c.mu.Unlock()
		return ErrQueueBusy
	}

	// The carry holds host-order bytes; the buffer is converted once it is full.
	n := c.carry.ReadInto(buf)
	if n >= len(buf) {
		if c.swap {
			swap16(buf)
		}
		c.mu.Unlock()
		c.done()
		return nil
	}
	c.pending = buf
	c.offset = n
	c.mu.Unlock()
	return nil
}

func (c *CaptureDevice) SetState(state DeviceState) error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return ErrDeviceReleased
	}
	if c.status == state {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	var err error
	if state == DeviceRunning {
		err = c.device.Start()
	} else {
		err = c.device.Stop()
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.status = state
	if state == DeviceStopped {
		c.pending = nil
		c.offset = 0
		c.carry.Reset()
	}
	c.mu.Unlock()
	return nil
}

func (c *CaptureDevice) State() DeviceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *CaptureDevice) Destroy() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	c.status = DeviceStopped
	c.pending = nil
	c.mu.Unlock()

	c.device.Uninit()
}
