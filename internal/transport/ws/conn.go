package ws

import (
	"context"
	"errors"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Conn carries JSON messages over a websocket. Writes may be issued from several goroutines;
// reads must come from one.
type Conn struct {
	conn *websocket.Conn
}

func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

func Dial(ctx context.Context, url string) (*Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewConn(conn), nil
}

func (c *Conn) WriteJSON(ctx context.Context, v any) error {
	return wsjson.Write(ctx, c.conn, v)
}

func (c *Conn) ReadJSON(ctx context.Context, v any) error {
	return wsjson.Read(ctx, c.conn, v)
}

func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "closed")
}

func (c *Conn) CloseNow() error {
	return c.conn.CloseNow()
}

// IsClosed reports whether err ends a connection that was closed normally by either side.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
