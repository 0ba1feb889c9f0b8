package stream

import (
	"fmt"
	"sync"
	"time"
)

type EventKind uint8

const (
	EventStarted EventKind = iota + 1
	EventStopped
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	}
	return fmt.Sprintf("event(%d)", k)
}

// Stop reasons carried by EventStopped.
const (
	ReasonEOF    = "eof"
	ReasonStop   = "stop"
	ReasonDevice = "device"
)

type Event struct {
	Kind      EventKind
	Direction Direction
	SessionID string
	Path      string
	Reason    string
	Time      time.Time
}

// Bus fans session events out to subscribers. Publish never blocks: every subscription keeps
// its own unbounded queue drained by a pump goroutine.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		s.push(e)
	}
}

func (b *Bus) Subscribe() *Subscription {
	s := &Subscription{
		bus:    b,
		c:      make(chan Event),
		signal: make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.pump()
	return s
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

type Subscription struct {
	bus    *Bus
	c      chan Event
	signal chan struct{}
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	queue []Event
}

// C delivers events in publish order. It is closed by Close.
func (s *Subscription) C() <-chan Event {
	return s.c
}

// Close detaches the subscription and drops undelivered events.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
		close(s.quit)
	})
	<-s.done
}

func (s *Subscription) push(e Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.done)
	defer close(s.c)

	for {
		select {
		case <-s.signal:
		case <-s.quit:
			return
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			e := s.queue[0]
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.c <- e:
			case <-s.quit:
				return
			}
		}
	}
}
