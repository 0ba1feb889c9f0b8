// Package control exposes a stream engine over a websocket: clients send JSON commands and
// receive replies plus the started and stopped events of both directions.
package control

import (
	"time"

	"voicebox/internal/audio"
	"voicebox/internal/stream"
)

// Command operations.
const (
	OpStart   = "start"
	OpStop    = "stop"
	OpRelease = "release"
	OpState   = "state"
)

// Message types.
const (
	TypeReply = "reply"
	TypeEvent = "event"
)

type Command struct {
	ID        int64       `json:"id"`
	Op        string      `json:"op"`
	Direction string      `json:"direction"`
	Path      string      `json:"path,omitempty"`
	Format    *FormatSpec `json:"format,omitempty"`
}

// FormatSpec overrides fields of the server's default play format. Zero fields keep the default.
type FormatSpec struct {
	Channels   int    `json:"channels,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Bits       int    `json:"bits,omitempty"`
	Layout     string `json:"layout,omitempty"`
	Endianness string `json:"endianness,omitempty"`
}

// apply returns base with the override's non-zero fields applied.
func (s *FormatSpec) apply(base audio.Format) (audio.Format, error) {
	if s == nil {
		return base, nil
	}
	if s.Channels != 0 {
		base.Channels = s.Channels
	}
	if s.SampleRate != 0 {
		base.SampleRate = s.SampleRate
	}
	if s.Bits != 0 {
		base.BitsPerSample = s.Bits
	}
	if s.Layout != "" {
		l, err := audio.ParseLayout(s.Layout)
		if err != nil {
			return audio.Format{}, err
		}
		base.Layout = l
	}
	if s.Endianness != "" {
		e, err := audio.ParseEndianness(s.Endianness)
		if err != nil {
			return audio.Format{}, err
		}
		base.Endianness = e
	}
	return base, nil
}

type Message struct {
	Type  string `json:"type"`
	ID    int64  `json:"id,omitempty"`
	State string `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
	Event *Event `json:"event,omitempty"`
}

type Event struct {
	Kind      string    `json:"kind"`
	Direction string    `json:"direction"`
	Session   string    `json:"session"`
	Path      string    `json:"path"`
	Reason    string    `json:"reason,omitempty"`
	Time      time.Time `json:"time"`
}

func eventMessage(e stream.Event) Message {
	return Message{
		Type: TypeEvent,
		Event: &Event{
			Kind:      e.Kind.String(),
			Direction: e.Direction.String(),
			Session:   e.SessionID,
			Path:      e.Path,
			Reason:    e.Reason,
			Time:      e.Time,
		},
	}
}
