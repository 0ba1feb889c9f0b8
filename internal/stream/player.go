package stream

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"voicebox/internal/audio"
)

// Player streams a raw PCM file into an output buffer queue, one quantum at a time.
type Player struct {
	backend audio.Backend
	bus     *Bus
	opts    *options

	mu      sync.Mutex
	current *playSession
}

type playSession struct {
	session
	open   OpenFunc
	format audio.Format

	// guarded by session.mu
	file    io.ReadCloser
	refills int
}

func NewPlayer(backend audio.Backend, bus *Bus, opts ...Option) *Player {
	return &Player{
		backend: backend,
		bus:     bus,
		opts:    newOptions(opts),
	}
}

// Start begins playing path. An active session is stopped and its device graph released
// before the new one is created. The first buffer is submitted before Start returns.
func (p *Player) Start(path string, f audio.Format) error {
	if err := f.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if prev := p.current; prev != nil {
		prev.stop()
		prev.release()
		p.current = nil
	}

	s := &playSession{
		open:   p.opts.open,
		format: f,
	}
	s.init(Playback, path, p.bus, p.opts)

	queue, err := p.backend.OpenOutput(f, s.worker.signal)
	if err != nil {
		s.metrics.DeviceError(Playback.String(), "open")
		s.log.WithError(err).Error("create output device")
		return fmt.Errorf("open output device: %w", err)
	}
	s.queue = queue
	if err := queue.SetState(audio.DeviceRunning); err != nil {
		queue.Destroy()
		s.metrics.DeviceError(Playback.String(), "set_state")
		return fmt.Errorf("start output device: %w", err)
	}

	s.mu.Lock()
	s.buf = make([]byte, f.PlaybackQuantum())
	s.state = StateActive
	s.mu.Unlock()

	p.current = s
	s.log.WithFields(logrus.Fields{
		"format":  f.String(),
		"quantum": len(s.buf),
	}).Debug("output device ready")

	s.worker.run(s.consumed)
	s.started(path)
	s.refill()
	return nil
}

// Stop halts the active session. It is a no-op when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.stop()
	}
}

// Release destroys the device graph, stopping the session first if it is still active.
func (p *Player) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.stop()
		p.current.release()
	}
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return StateIdle
	}
	return p.current.State()
}

func (s *playSession) consumed() bool {
	s.metrics.Completion(Playback.String())
	return s.refill()
}

// refill reads the next quantum and submits it. It reports whether the session is still
// streaming.
func (s *playSession) refill() bool {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return false
	}
	s.refills++

	if s.file == nil {
		f, err := s.open(s.path)
		if err != nil {
			s.metrics.FileError(Playback.String(), "open")
			s.log.WithError(err).Warn("open backing file")
		} else {
			s.file = f
		}
	}

	n := 0
	if s.file != nil {
		var err error
		n, err = io.ReadFull(s.file, s.buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			s.metrics.FileError(Playback.String(), "read")
			s.log.WithError(err).Warn("read backing file")
		}
	}

	if n == 0 {
		path := s.teardownLocked()
		s.mu.Unlock()
		s.stopped(path, ReasonEOF)
		return false
	}

	buf := s.buf[:n]
	refills := s.refills
	s.mu.Unlock()

	s.metrics.Transferred(Playback.String(), n)
	if err := s.queue.Enqueue(buf); err != nil {
		s.metrics.DeviceError(Playback.String(), "enqueue")
		s.log.WithError(err).Warn("submit buffer")
		s.abort()
		return false
	}
	s.log.WithFields(logrus.Fields{"bytes": n, "refill": refills}).Debug("buffer submitted")
	return true
}

// teardownLocked releases the file and buffer and returns the path that was playing.
func (s *playSession) teardownLocked() string {
	s.state = StateStopping
	s.closeFile(s.file)
	s.file = nil
	s.buf = nil
	path := s.path
	s.path = ""
	s.state = StateStopped
	s.log.WithField("refills", s.refills).Debug("playback torn down")
	return path
}

func (s *playSession) stop() {
	if s.State() == StateReleased {
		return
	}
	s.setDeviceState(audio.DeviceStopped)
	s.end(ReasonStop)
	s.worker.halt()
	s.worker.wait()
}

// abort ends a session whose device refused a buffer.
func (s *playSession) abort() {
	s.end(ReasonDevice)
}

func (s *playSession) end(reason string) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	path := s.teardownLocked()
	s.mu.Unlock()
	s.stopped(path, reason)
}
