package stream

import (
	"fmt"

	"voicebox/internal/audio"
)

// Engine owns one Player and one Recorder and routes control calls by direction.
type Engine struct {
	bus      *Bus
	player   *Player
	recorder *Recorder
}

func NewEngine(backend audio.Backend, opts ...Option) *Engine {
	bus := NewBus()
	return &Engine{
		bus:      bus,
		player:   NewPlayer(backend, bus, opts...),
		recorder: NewRecorder(backend, bus, opts...),
	}
}

func (e *Engine) Player() *Player {
	return e.player
}

func (e *Engine) Recorder() *Recorder {
	return e.recorder
}

// Subscribe attaches a new listener for started and stopped events of both directions.
func (e *Engine) Subscribe() *Subscription {
	return e.bus.Subscribe()
}

func (e *Engine) Start(dir Direction, req Request) error {
	switch dir {
	case Playback:
		return e.player.Start(req.Path, req.Format)
	case Recording:
		return e.recorder.Start(req.Path, req.Format.Endianness)
	}
	return fmt.Errorf("%w: %d", ErrUnknownDirection, dir)
}

func (e *Engine) Stop(dir Direction) error {
	switch dir {
	case Playback:
		e.player.Stop()
	case Recording:
		e.recorder.Stop()
	default:
		return fmt.Errorf("%w: %d", ErrUnknownDirection, dir)
	}
	return nil
}

func (e *Engine) Release(dir Direction) error {
	switch dir {
	case Playback:
		e.player.Release()
	case Recording:
		e.recorder.Release()
	default:
		return fmt.Errorf("%w: %d", ErrUnknownDirection, dir)
	}
	return nil
}

func (e *Engine) State(dir Direction) State {
	switch dir {
	case Playback:
		return e.player.State()
	case Recording:
		return e.recorder.State()
	}
	return StateIdle
}

// Close stops and releases both directions.
func (e *Engine) Close() {
	e.recorder.Release()
	e.player.Release()
}
