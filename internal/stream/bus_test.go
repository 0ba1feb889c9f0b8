package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebox/internal/stream"
)

func TestBusPreservesOrder(t *testing.T) {
	bus := stream.NewBus()
	first := bus.Subscribe()
	defer first.Close()
	second := bus.Subscribe()
	defer second.Close()

	for i := range 100 {
		bus.Publish(stream.Event{Kind: stream.EventStarted, SessionID: string(rune('a' + i%26))})
	}

	for _, sub := range []*stream.Subscription{first, second} {
		for i := range 100 {
			e := nextEvent(t, sub)
			assert.Equal(t, string(rune('a'+i%26)), e.SessionID)
			assert.False(t, e.Time.IsZero())
		}
	}
}

func TestBusCloseDetaches(t *testing.T) {
	bus := stream.NewBus()
	sub := bus.Subscribe()
	bus.Publish(stream.Event{Kind: stream.EventStopped})
	sub.Close()
	sub.Close()

	bus.Publish(stream.Event{Kind: stream.EventStarted})
	for range sub.C() {
	}
	_, ok := <-sub.C()
	require.False(t, ok)
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	stream.NewBus().Publish(stream.Event{Kind: stream.EventStarted})
}
