package control_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"voicebox/internal/audio"
	"voicebox/internal/audio/audiotest"
	"voicebox/internal/control"
	"voicebox/internal/log"
	"voicebox/internal/stream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var playFormat = audio.Format{
	Channels:      1,
	SampleRate:    10,
	BitsPerSample: 8,
	Layout:        audio.LayoutMono,
	Endianness:    audio.LittleEndian,
}

type fixture struct {
	backend *audiotest.Backend
	engine  *stream.Engine
	client  *control.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := &audiotest.Backend{}
	engine := stream.NewEngine(backend)
	srv := httptest.NewServer(control.NewServer(engine, playFormat, audio.LittleEndian, log.Discard()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := control.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		srv.Close()
		engine.Close()
	})
	return &fixture{backend: backend, engine: engine, client: client}
}

func nextEvent(t *testing.T, c *control.Client) control.Event {
	t.Helper()
	select {
	case e, ok := <-c.Events():
		require.True(t, ok)
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
	return control.Event{}
}

func TestPlaybackOverWebsocket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "clip.pcm")
	require.NoError(t, os.WriteFile(path, make([]byte, 30), 0o644))

	reply, err := f.client.Start(ctx, "play", path, nil)
	require.NoError(t, err)
	assert.Equal(t, control.TypeReply, reply.Type)
	assert.Equal(t, "active", reply.State)

	e := nextEvent(t, f.client)
	assert.Equal(t, "started", e.Kind)
	assert.Equal(t, "play", e.Direction)
	assert.Equal(t, path, e.Path)
	assert.Equal(t, playFormat, f.backend.Output(0).Format())

	reply, err = f.client.Stop(ctx, "play")
	require.NoError(t, err)
	assert.Equal(t, "stopped", reply.State)

	e = nextEvent(t, f.client)
	assert.Equal(t, "stopped", e.Kind)
	assert.Equal(t, stream.ReasonStop, e.Reason)

	reply, err = f.client.Release(ctx, "play")
	require.NoError(t, err)
	assert.Equal(t, "released", reply.State)
}

func TestFormatOverride(t *testing.T) {
	f := newFixture(t)

	path := filepath.Join(t.TempDir(), "clip.pcm")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o644))

	_, err := f.client.Start(context.Background(), "play", path, &control.FormatSpec{
		Channels:   2,
		Bits:       16,
		Layout:     "stereo",
		Endianness: "big",
	})
	require.NoError(t, err)

	got := f.backend.Output(0).Format()
	assert.Equal(t, 2, got.Channels)
	assert.Equal(t, 10, got.SampleRate)
	assert.Equal(t, 16, got.BitsPerSample)
	assert.Equal(t, audio.BigEndian, got.Endianness)
}

func TestRecordingOverWebsocket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := t.TempDir()

	_, err := f.client.Start(ctx, "record", filepath.Join(dir, "a.pcm"), nil)
	require.NoError(t, err)
	assert.Equal(t, audio.LittleEndian, f.backend.Input(0).Format().Endianness)

	_, err = f.client.Start(ctx, "record", filepath.Join(dir, "b.pcm"), nil)
	var remote *control.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Message, stream.ErrAlreadyRecording.Error())

	reply, err := f.client.Stop(ctx, "record")
	require.NoError(t, err)
	assert.Equal(t, "released", reply.State)
}

func TestCommandErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  control.Command
		want string
	}{
		{"direction", control.Command{Op: control.OpStop, Direction: "sideways"}, "unknown stream direction"},
		{"op", control.Command{Op: "rewind", Direction: "play"}, "unknown op"},
		{"path", control.Command{Op: control.OpStart, Direction: "play"}, "path is required"},
		{"format", control.Command{Op: control.OpStart, Direction: "play", Path: "x.pcm", Format: &control.FormatSpec{Bits: 24}}, "bits per sample"},
		{"layout", control.Command{Op: control.OpStart, Direction: "play", Path: "x.pcm", Format: &control.FormatSpec{Layout: "quad"}}, "channel layout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.client.Do(ctx, tt.cmd)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	reply, err := f.client.State(ctx, "play")
	require.NoError(t, err)
	assert.Equal(t, "idle", reply.State)
	assert.Zero(t, f.backend.Outputs())
}

func TestClientAfterClose(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.client.Close())

	_, err := f.client.State(context.Background(), "play")
	assert.ErrorIs(t, err, control.ErrClientClosed)
}
