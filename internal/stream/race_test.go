package stream_test

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebox/internal/audio"
	"voicebox/internal/audio/audiotest"
	"voicebox/internal/stream"
)

const raceRounds = 50

func TestPlaybackStopDuringConsume(t *testing.T) {
	data := pattern(10 * 100000)
	path := writeFile(t, data)

	for round := range raceRounds {
		backend := &audiotest.Backend{}
		bus := stream.NewBus()
		sub := bus.Subscribe()
		p := stream.NewPlayer(backend, bus)
		require.NoError(t, p.Start(path, tenByteFormat))
		q := backend.Output(0)

		quit := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-quit:
					return
				case <-q.Enqueued():
					q.Consume()
				}
			}
		}()

		time.Sleep(time.Duration(round%5) * 100 * time.Microsecond)
		if round%2 == 0 {
			p.Stop()
		}
		p.Release()
		close(quit)
		wg.Wait()

		assert.Equal(t, stream.EventStarted, nextEvent(t, sub).Kind)
		stopped := nextEvent(t, sub)
		assert.Equal(t, stream.EventStopped, stopped.Kind)
		assert.Equal(t, stream.ReasonStop, stopped.Reason)
		expectNoEvent(t, sub)

		assert.Equal(t, 1, q.Destroyed(), "round %d", round)
		assert.Zero(t, q.Busy(), "round %d", round)
		played := bytes.Join(q.Submitted(), nil)
		assert.Equal(t, data[:len(played)], played, "round %d", round)
		assert.Equal(t, stream.StateReleased, p.State())
		sub.Close()
	}
}

func TestRecordingStopDuringFill(t *testing.T) {
	const size = 4

	for round := range raceRounds {
		path := filepath.Join(t.TempDir(), "take.pcm")
		backend := &audiotest.Backend{}
		bus := stream.NewBus()
		sub := bus.Subscribe()
		r := stream.NewRecorder(backend, bus, stream.WithRecordFormat(0, size))
		require.NoError(t, r.Start(path, audio.LittleEndian))
		q := backend.Input(0)

		quit := make(chan struct{})
		var (
			wg     sync.WaitGroup
			filled [][]byte
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 1; ; {
				select {
				case <-quit:
					return
				case <-q.Enqueued():
					data := quantum(size, byte(i))
					if q.Fill(data) {
						filled = append(filled, data)
						i++
					}
				}
			}
		}()

		time.Sleep(time.Duration(round%5) * 100 * time.Microsecond)
		if round%2 == 0 {
			r.Stop()
		} else {
			r.Release()
		}
		close(quit)
		wg.Wait()

		assert.Equal(t, stream.EventStarted, nextEvent(t, sub).Kind)
		assert.Equal(t, stream.ReasonStop, nextEvent(t, sub).Reason)
		expectNoEvent(t, sub)
		assert.Equal(t, 1, q.Destroyed(), "round %d", round)

		got, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			got, err = nil, nil
		}
		require.NoError(t, err)
		require.Zero(t, len(got)%size, "round %d", round)

		// Only the quantum in flight at stop may be missing; the rest arrive in delivery order.
		written := len(got) / size
		assert.GreaterOrEqual(t, written, len(filled)-1, "round %d", round)
		assert.LessOrEqual(t, written, len(filled), "round %d", round)
		assert.Equal(t, bytes.Join(filled[:written], nil), got, "round %d", round)
		sub.Close()
	}
}
