package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

type FormatType uint8

const (
	FormatUnknown FormatType = iota
	FormatU8
	FormatS16
	FormatS24
	FormatS32
	FormatF32
)

func FormatSize(format FormatType) int {
	if format < 4 {
		return int(format)
	}
	return 4
}

// DeviceState is the run state of a buffer queue device.
type DeviceState uint8

const (
	DeviceStopped DeviceState = iota
	DeviceRunning
)

func (s DeviceState) String() string {
	if s == DeviceRunning {
		return "running"
	}
	return "stopped"
}

type ChannelLayout uint8

const (
	LayoutUnknown ChannelLayout = iota
	LayoutMono
	LayoutStereo
)

func (l ChannelLayout) String() string {
	switch l {
	case LayoutMono:
		return "mono"
	case LayoutStereo:
		return "stereo"
	}
	return fmt.Sprintf("layout(%d)", l)
}

type Endianness uint8

const (
	EndianUnknown Endianness = iota
	BigEndian
	LittleEndian
)

func (e Endianness) String() string {
	switch e {
	case BigEndian:
		return "big"
	case LittleEndian:
		return "little"
	}
	return fmt.Sprintf("endianness(%d)", e)
}

var hostEndianness = func() Endianness {
	var probe [2]byte
	binary.NativeEndian.PutUint16(probe[:], 1)
	if probe[0] == 1 {
		return LittleEndian
	}
	return BigEndian
}()

// NativeEndianness reports the byte order of the host.
func NativeEndianness() Endianness {
	return hostEndianness
}

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ConfigError reports a format parameter that has no hardware mapping.
type ConfigError struct {
	Field string
	Value any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %v", ErrUnsupportedFormat, e.Field, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return ErrUnsupportedFormat
}

// Format describes raw headerless PCM as it is stored in a backing file. Layout must agree
// with Channels: mono is one channel, stereo two.
type Format struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	// ContainerSize is the storage width of one sample in bits. Zero means BitsPerSample.
	ContainerSize int
	Layout        ChannelLayout
	Endianness    Endianness
}

func (f Format) Validate() error {
	switch {
	case f.Channels <= 0:
		return &ConfigError{Field: "channels", Value: f.Channels}
	case f.SampleRate <= 0:
		return &ConfigError{Field: "sample rate", Value: f.SampleRate}
	case f.BitsPerSample != 8 && f.BitsPerSample != 16:
		return &ConfigError{Field: "bits per sample", Value: f.BitsPerSample}
	case f.ContainerSize != 0 && f.ContainerSize != f.BitsPerSample:
		return &ConfigError{Field: "container size", Value: f.ContainerSize}
	case f.Layout != LayoutMono && f.Layout != LayoutStereo:
		return &ConfigError{Field: "channel layout", Value: f.Layout}
	case f.Layout == LayoutMono && f.Channels != 1, f.Layout == LayoutStereo && f.Channels != 2:
		return &ConfigError{Field: "channels", Value: fmt.Sprintf("%d for %s layout", f.Channels, f.Layout)}
	case f.Endianness != BigEndian && f.Endianness != LittleEndian:
		return &ConfigError{Field: "endianness", Value: f.Endianness}
	}
	return nil
}

func (f Format) SampleFormat() FormatType {
	if f.BitsPerSample == 8 {
		return FormatU8
	}
	return FormatS16
}

func (f Format) BytesPerSample() int {
	return FormatSize(f.SampleFormat())
}

// PlaybackQuantum is the transfer size for one second of audio in this format.
func (f Format) PlaybackQuantum() int {
	return f.SampleRate * f.BytesPerSample() * f.Channels
}

// NeedsSwap reports whether samples must be byte-swapped between the file and the host.
func (f Format) NeedsSwap() bool {
	return f.BytesPerSample() > 1 && f.Endianness != NativeEndianness()
}

func (f Format) String() string {
	return fmt.Sprintf("%dch %dHz %dbit %s %s-endian", f.Channels, f.SampleRate, f.BitsPerSample, f.Layout, f.Endianness)
}

func ParseLayout(s string) (ChannelLayout, error) {
	switch strings.ToLower(s) {
	case "mono", "1":
		return LayoutMono, nil
	case "stereo", "2":
		return LayoutStereo, nil
	}
	return LayoutUnknown, &ConfigError{Field: "channel layout", Value: s}
}

func ParseEndianness(s string) (Endianness, error) {
	switch strings.ToLower(s) {
	case "big", "be":
		return BigEndian, nil
	case "little", "le":
		return LittleEndian, nil
	case "native", "":
		return NativeEndianness(), nil
	}
	return EndianUnknown, &ConfigError{Field: "endianness", Value: s}
}

func swap16(b []byte) {
	for i := 0; i+1 < len(b); i += 2 {
		b[i], b[i+1] = b[i+1], b[i]
	}
}

func silence(format FormatType) byte {
	if format == FormatU8 {
		return 0x80
	}
	return 0
}

func fillSilence(b []byte, format FormatType) {
	v := silence(format)
	for i := range b {
		b[i] = v
	}
}
