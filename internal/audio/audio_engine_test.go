package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebox/internal/log"
)

func newNullEngine(t *testing.T) *AudioEngine {
	t.Helper()
	e, err := NewAudioEngine("null", log.Discard())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("buffer never completed")
	}
}

var nullFormat = Format{
	Channels:      1,
	SampleRate:    8000,
	BitsPerSample: 16,
	Layout:        LayoutMono,
	Endianness:    LittleEndian,
}

func TestNullBackendPlayback(t *testing.T) {
	e := newNullEngine(t)

	done := make(chan struct{}, 1)
	q, err := e.OpenOutput(nullFormat, func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	assert.Equal(t, DeviceStopped, q.State())

	require.NoError(t, q.SetState(DeviceRunning))
	assert.Equal(t, DeviceRunning, q.State())
	require.NoError(t, q.Enqueue(make([]byte, 64)))
	waitDone(t, done)

	require.NoError(t, q.SetState(DeviceStopped))
	assert.Equal(t, DeviceStopped, q.State())
	q.Destroy()
	q.Destroy()
	assert.ErrorIs(t, q.Enqueue(make([]byte, 2)), ErrDeviceReleased)
	assert.ErrorIs(t, q.SetState(DeviceRunning), ErrDeviceReleased)
}

func TestNullBackendCapture(t *testing.T) {
	e := newNullEngine(t)

	done := make(chan struct{}, 1)
	q, err := e.OpenInput(nullFormat, func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	require.NoError(t, q.SetState(DeviceRunning))
	require.NoError(t, q.Enqueue(make([]byte, 64)))
	waitDone(t, done)

	require.NoError(t, q.SetState(DeviceStopped))
	q.Destroy()
	assert.ErrorIs(t, q.Enqueue(make([]byte, 2)), ErrDeviceReleased)
}

func TestOpenRejectsInvalidFormat(t *testing.T) {
	e := newNullEngine(t)

	f := nullFormat
	f.Endianness = EndianUnknown
	_, err := e.OpenOutput(f, func() {})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = e.OpenInput(f, func() {})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestNullBackendDevices(t *testing.T) {
	e := newNullEngine(t)
	_, err := e.Devices(false)
	assert.NoError(t, err)
	_, err = e.Devices(true)
	assert.NoError(t, err)
}

func TestParseBackend(t *testing.T) {
	for _, name := range []string{"", "auto", "null", "ALSA", "pulse", "coreaudio", "wasapi"} {
		_, err := parseBackend(name)
		assert.NoError(t, err, name)
	}
	_, err := parseBackend("oss")
	assert.Error(t, err)
}
