package control

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"voicebox/internal/transport/ws"
)

// ErrClientClosed is returned by calls made after the connection ended.
var ErrClientClosed = errors.New("control connection closed")

// RemoteError is an error reported by the server for one command.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Op + ": " + e.Message
}

// Client sends commands to a control Server and receives its events.
type Client struct {
	conn   *ws.Conn
	nextID atomic.Int64
	events chan Event
	done   chan struct{}

	mu      sync.Mutex
	pending map[int64]chan Message
	err     error
}

func Dial(ctx context.Context, url string) (*Client, error) {
	conn, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:    conn,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		pending: make(map[int64]chan Message),
	}
	go c.readLoop()
	return c, nil
}

// Events delivers server events until the connection ends. Events are dropped while the
// buffer is full.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		var m Message
		if err := c.conn.ReadJSON(context.Background(), &m); err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
		switch m.Type {
		case TypeEvent:
			if m.Event == nil {
				continue
			}
			select {
			case c.events <- *m.Event:
			default:
			}
		case TypeReply:
			c.mu.Lock()
			ch, ok := c.pending[m.ID]
			delete(c.pending, m.ID)
			c.mu.Unlock()
			if ok {
				ch <- m
			}
		}
	}
}

// Do sends cmd and waits for its reply. A reply carrying an error is returned as *RemoteError.
func (c *Client) Do(ctx context.Context, cmd Command) (Message, error) {
	cmd.ID = c.nextID.Add(1)
	ch := make(chan Message, 1)

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return Message{}, ErrClientClosed
	}
	c.pending[cmd.ID] = ch
	c.mu.Unlock()

	if err := c.conn.WriteJSON(ctx, cmd); err != nil {
		c.forget(cmd.ID)
		return Message{}, err
	}

	select {
	case m := <-ch:
		if m.Error != "" {
			return m, &RemoteError{Op: cmd.Op, Message: m.Error}
		}
		return m, nil
	case <-c.done:
		return Message{}, ErrClientClosed
	case <-ctx.Done():
		c.forget(cmd.ID)
		return Message{}, ctx.Err()
	}
}

func (c *Client) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) Start(ctx context.Context, direction, path string, f *FormatSpec) (Message, error) {
	return c.Do(ctx, Command{Op: OpStart, Direction: direction, Path: path, Format: f})
}

func (c *Client) Stop(ctx context.Context, direction string) (Message, error) {
	return c.Do(ctx, Command{Op: OpStop, Direction: direction})
}

func (c *Client) Release(ctx context.Context, direction string) (Message, error) {
	return c.Do(ctx, Command{Op: OpRelease, Direction: direction})
}

func (c *Client) State(ctx context.Context, direction string) (Message, error) {
	return c.Do(ctx, Command{Op: OpState, Direction: direction})
}

// Close performs the closing handshake and waits for the read loop to finish.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}
