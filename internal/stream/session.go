package stream

import (
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voicebox/internal/audio"
	"voicebox/internal/metrics"
)

// worker services buffer completions of one session on its own goroutine.
type worker struct {
	complete chan struct{}
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once
}

func newWorker() *worker {
	return &worker{
		complete: make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// signal is handed to the device as its CompletionFunc.
func (w *worker) signal() {
	select {
	case w.complete <- struct{}{}:
	default:
	}
}

// run calls service once per completion until it returns false or halt is called.
func (w *worker) run(service func() bool) {
	go func() {
		defer close(w.done)
		for {
			select {
			case <-w.complete:
				if !service() {
					return
				}
			case <-w.quit:
				return
			}
		}
	}()
}

func (w *worker) halt() {
	w.quitOnce.Do(func() {
		close(w.quit)
	})
}

func (w *worker) wait() {
	<-w.done
}

// session is the state shared by both directions.
type session struct {
	id        string
	direction Direction
	log       *logrus.Entry
	bus       *Bus
	metrics   *metrics.Metrics
	worker    *worker
	queue     audio.BufferQueue

	mu    sync.Mutex
	state State
	path  string
	buf   []byte

	releaseOnce sync.Once
}

func (s *session) init(direction Direction, path string, bus *Bus, o *options) {
	s.id = uuid.NewString()
	s.direction = direction
	s.path = path
	s.bus = bus
	s.metrics = o.metrics
	s.worker = newWorker()
	s.log = o.log.WithFields(logrus.Fields{
		"component": "stream",
		"direction": direction.String(),
		"session":   s.id,
	})
}

func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) started(path string) {
	s.metrics.SessionStarted(s.direction.String())
	s.log.WithField("path", path).Info("session started")
	s.bus.Publish(Event{
		Kind:      EventStarted,
		Direction: s.direction,
		SessionID: s.id,
		Path:      path,
	})
}

// stopped publishes the stop notification. Callers have already moved state off active.
func (s *session) stopped(path, reason string) {
	s.worker.halt()
	s.metrics.SessionStopped(s.direction.String(), reason)
	s.log.WithFields(logrus.Fields{"path": path, "reason": reason}).Info("session stopped")
	s.bus.Publish(Event{
		Kind:      EventStopped,
		Direction: s.direction,
		SessionID: s.id,
		Path:      path,
		Reason:    reason,
	})
}

func (s *session) setDeviceState(state audio.DeviceState) {
	if err := s.queue.SetState(state); err != nil {
		s.metrics.DeviceError(s.direction.String(), "set_state")
		s.log.WithError(err).WithField("state", state.String()).Warn("device state change failed")
	}
}

// release destroys the device graph exactly once.
func (s *session) release() {
	s.releaseOnce.Do(func() {
		s.queue.Destroy()
		s.mu.Lock()
		s.state = StateReleased
		s.mu.Unlock()
		s.log.Debug("device released")
	})
}

func (s *session) closeFile(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		s.metrics.FileError(s.direction.String(), "close")
		s.log.WithError(err).Warn("close backing file")
	}
}
