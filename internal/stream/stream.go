// Package stream implements the buffered PCM streaming pipeline: a Player that refills a
// single output buffer from a file each time the device consumes it, a Recorder that appends
// each filled input buffer to a file, and an Engine that addresses both by direction.
//
// Every session owns one transfer buffer, one backing file and one device graph. Device
// completions are posted into a depth-1 channel and serviced by a worker goroutine per
// session, so the driver goroutine never performs file I/O and at most one buffer is ever
// outstanding. State transitions are published on a Bus that never blocks the publisher.
package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"voicebox/internal/audio"
	"voicebox/internal/log"
	"voicebox/internal/metrics"
)

type Direction uint8

const (
	Playback Direction = iota + 1
	Recording
)

func (d Direction) String() string {
	switch d {
	case Playback:
		return "play"
	case Recording:
		return "record"
	}
	return fmt.Sprintf("direction(%d)", d)
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "play", "playback":
		return Playback, nil
	case "record", "recording":
		return Recording, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// State is the lifecycle position of a session.
type State uint8

const (
	StateIdle State = iota
	StateActive
	StateStopping
	StateStopped
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateReleased:
		return "released"
	}
	return fmt.Sprintf("state(%d)", s)
}

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrUnknownDirection = errors.New("unknown stream direction")
)

// Request carries the parameters of a start call.
type Request struct {
	Path   string
	Format audio.Format
}

// OpenFunc opens a backing file for playback.
type OpenFunc func(path string) (io.ReadCloser, error)

// CreateFunc creates a backing file for recording.
type CreateFunc func(path string) (io.WriteCloser, error)

const (
	DefaultRecordSampleRate = 44100
	DefaultRecordQuantum    = 44100
)

type options struct {
	log           *logrus.Entry
	metrics       *metrics.Metrics
	open          OpenFunc
	create        CreateFunc
	recordRate    int
	recordQuantum int
}

type Option func(*options)

func WithLogger(l *logrus.Entry) Option {
	return func(o *options) {
		o.log = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func WithOpener(open OpenFunc) Option {
	return func(o *options) {
		o.open = open
	}
}

func WithCreator(create CreateFunc) Option {
	return func(o *options) {
		o.create = create
	}
}

// WithRecordFormat sets the capture sample rate and the byte size of one recording quantum.
func WithRecordFormat(sampleRate, quantum int) Option {
	return func(o *options) {
		if sampleRate > 0 {
			o.recordRate = sampleRate
		}
		if quantum > 0 {
			o.recordQuantum = quantum
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		log: log.Discard(),
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
		create: func(path string) (io.WriteCloser, error) {
			return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		},
		recordRate:    DefaultRecordSampleRate,
		recordQuantum: DefaultRecordQuantum,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
