package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
	"github.com/sirupsen/logrus"
)

// AudioEngine owns the malgo context that every device graph is created from.
type AudioEngine struct {
	ctx *malgo.AllocatedContext
	log *logrus.Entry
}

func NewAudioEngine(backend string, log *logrus.Entry) (*AudioEngine, error) {
	backends, err := parseBackend(backend)
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, func(message string) {
		log.Debug(strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	return &AudioEngine{
		ctx: ctx,
		log: log,
	}, nil
}

func parseBackend(name string) ([]malgo.Backend, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return nil, nil
	case "null":
		return []malgo.Backend{malgo.BackendNull}, nil
	case "alsa":
		return []malgo.Backend{malgo.BackendAlsa}, nil
	case "pulseaudio", "pulse":
		return []malgo.Backend{malgo.BackendPulseaudio}, nil
	case "coreaudio":
		return []malgo.Backend{malgo.BackendCoreaudio}, nil
	case "wasapi":
		return []malgo.Backend{malgo.BackendWasapi}, nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", name)
}

// DeviceInfo describes one playback or capture endpoint.
type DeviceInfo struct {
	Name      string
	IsDefault bool
}

func (e *AudioEngine) Devices(capture bool) ([]DeviceInfo, error) {
	kind := malgo.Playback
	if capture {
		kind = malgo.Capture
	}
	infos, err := e.ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		devices = append(devices, DeviceInfo{
			Name:      infos[i].Name(),
			IsDefault: infos[i].IsDefault != 0,
		})
	}
	return devices, nil
}

func (e *AudioEngine) OpenOutput(f Format, done CompletionFunc) (BufferQueue, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return e.newPlaybackDevice(f, done)
}

func (e *AudioEngine) OpenInput(f Format, done CompletionFunc) (BufferQueue, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return e.newCaptureDevice(f, done)
}

func (e *AudioEngine) Close() {
	_ = e.ctx.Uninit()
	e.ctx.Free()
}
