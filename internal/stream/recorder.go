package stream

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"voicebox/internal/audio"
)

// Recorder appends captured quanta from an input buffer queue to a raw PCM file.
type Recorder struct {
	backend audio.Backend
	bus     *Bus
	opts    *options

	mu      sync.Mutex
	current *recordSession
}

type recordSession struct {
	session
	create CreateFunc

	// guarded by session.mu
	file     io.WriteCloser
	captures int
}

func NewRecorder(backend audio.Backend, bus *Bus, opts ...Option) *Recorder {
	return &Recorder{
		backend: backend,
		bus:     bus,
		opts:    newOptions(opts),
	}
}

// Format returns the capture format used for the given byte order.
func (r *Recorder) Format(endianness audio.Endianness) audio.Format {
	return audio.Format{
		Channels:      1,
		SampleRate:    r.opts.recordRate,
		BitsPerSample: 16,
		Layout:        audio.LayoutMono,
		Endianness:    endianness,
	}
}

// Start begins capturing into path. It fails with ErrAlreadyRecording while another
// recording is active.
func (r *Recorder) Start(path string, endianness audio.Endianness) error {
	f := r.Format(endianness)
	if err := f.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && r.current.State() == StateActive {
		return ErrAlreadyRecording
	}

	s := &recordSession{create: r.opts.create}
	s.init(Recording, path, r.bus, r.opts)

	queue, err := r.backend.OpenInput(f, s.worker.signal)
	if err != nil {
		s.metrics.DeviceError(Recording.String(), "open")
		s.log.WithError(err).Error("create input device")
		return fmt.Errorf("open input device: %w", err)
	}
	s.queue = queue

	s.mu.Lock()
	s.buf = make([]byte, r.opts.recordQuantum)
	s.state = StateActive
	buf := s.buf
	s.mu.Unlock()

	if err := queue.SetState(audio.DeviceRunning); err != nil {
		s.metrics.DeviceError(Recording.String(), "set_state")
		s.discard()
		return fmt.Errorf("start input device: %w", err)
	}

	s.worker.run(s.capture)
	if err := queue.Enqueue(buf); err != nil {
		s.metrics.DeviceError(Recording.String(), "enqueue")
		s.worker.halt()
		s.worker.wait()
		s.discard()
		return fmt.Errorf("submit capture buffer: %w", err)
	}

	r.current = s
	s.log.WithFields(logrus.Fields{
		"format":  f.String(),
		"quantum": len(buf),
	}).Debug("input device ready")
	s.started(path)
	return nil
}

// Stop ends the active recording and releases its device graph. Audio captured but not yet
// delivered by the device is dropped.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.stop()
	}
}

// Release is Stop: a recording keeps no device graph after it stops.
func (r *Recorder) Release() {
	r.Stop()
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return StateIdle
	}
	return r.current.State()
}

// capture appends the filled buffer to the file and hands it back to the device.
func (s *recordSession) capture() bool {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return false
	}

	if s.file == nil {
		f, err := s.create(s.path)
		if err != nil {
			s.metrics.FileError(Recording.String(), "open")
			s.log.WithError(err).Warn("create backing file")
		} else {
			s.file = f
		}
	}
	if s.file != nil {
		n, err := s.file.Write(s.buf)
		s.metrics.Transferred(Recording.String(), n)
		if err != nil {
			s.metrics.FileError(Recording.String(), "write")
			s.log.WithError(err).Warn("write backing file")
		}
	}
	s.captures++
	captures := s.captures
	buf := s.buf
	s.mu.Unlock()

	s.metrics.Completion(Recording.String())
	if s.queue.State() == audio.DeviceStopped {
		return false
	}
	if err := s.queue.Enqueue(buf); err != nil {
		s.metrics.DeviceError(Recording.String(), "enqueue")
		s.log.WithError(err).Warn("resubmit capture buffer")
		return false
	}
	s.log.WithField("capture", captures).Debug("quantum written")
	return true
}

func (s *recordSession) stop() {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	path := s.path
	s.mu.Unlock()

	s.setDeviceState(audio.DeviceStopped)
	s.worker.halt()
	s.worker.wait()

	s.mu.Lock()
	s.closeFile(s.file)
	s.file = nil
	s.buf = nil
	s.path = ""
	s.state = StateStopped
	captures := s.captures
	s.mu.Unlock()

	s.release()
	s.log.WithField("captures", captures).Debug("recording torn down")
	s.stopped(path, ReasonStop)
}

// discard drops a session that never started streaming.
func (s *recordSession) discard() {
	s.mu.Lock()
	s.buf = nil
	s.state = StateStopped
	s.mu.Unlock()
	s.release()
}
