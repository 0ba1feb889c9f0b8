package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// PlaybackDevice plays one enqueued buffer at a time and reports when it has been consumed.
// While nothing is enqueued it outputs silence.
type PlaybackDevice struct {
	device *malgo.Device
	format FormatType
	swap   bool
	done   CompletionFunc

	mu       sync.Mutex
	status   DeviceState
	pending  []byte
	offset   int
	released bool
}

func (e *AudioEngine) newPlaybackDevice(f Format, done CompletionFunc) (*PlaybackDevice, error) {
	playback := &PlaybackDevice{
		format: f.SampleFormat(),
		swap:   f.NeedsSwap(),
		done:   done,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatType(playback.format)
	deviceConfig.Playback.Channels = uint32(f.Channels)
	deviceConfig.SampleRate = uint32(f.SampleRate)
	deviceConfig.PerformanceProfile = malgo.LowLatency
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(e.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			playback.fill(output)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init playback device: %w", err)
	}

	playback.device = device
	return playback, nil
}

func (p *PlaybackDevice) fill(output []byte) {
	p.mu.Lock()
	n := 0
	finished := false
	if p.pending != nil {
		n = copy(output, p.pending[p.offset:])
		p.offset += n
		if p.offset >= len(p.pending) {
			p.pending = nil
			p.offset = 0
			finished = true
		}
	}
	p.mu.Unlock()

	if p.swap {
		swap16(output[:n&^1])
	}
	fillSilence(output[n:], p.format)

	if finished {
		p.done()
	}
}

func (p *PlaybackDevice) Enqueue(buf []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return ErrDeviceReleased
	}
	if p.pending != nil {
		return ErrQueueBusy
	}
	p.pending = buf
	p.offset = 0
	return nil
}

func (p *PlaybackDevice) SetState(state DeviceState) error {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return ErrDeviceReleased
	}
	if p.status == state {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	var err error
	if state == DeviceRunning {
		err = p.device.Start()
	} else {
		err = p.device.Stop()
	}
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.status = state
	if state == DeviceStopped {
		p.pending = nil
		p.offset = 0
	}
	p.mu.Unlock()
	return nil
}

func (p *PlaybackDevice) State() DeviceState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *PlaybackDevice) Destroy() {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return
	}
	p.released = true
	p.status = DeviceStopped
	p.pending = nil
	p.mu.Unlock()

	p.device.Uninit()
}
