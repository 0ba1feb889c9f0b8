package control

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"voicebox/internal/audio"
	"voicebox/internal/pcmfile"
	"voicebox/internal/stream"
	"voicebox/internal/transport/ws"
)

// Server handles websocket control connections for one engine.
type Server struct {
	engine *stream.Engine
	play   audio.Format
	record audio.Endianness
	log    *logrus.Entry
}

// NewServer returns a handler that starts raw playback in play unless a command overrides it,
// and records in the record byte order.
func NewServer(engine *stream.Engine, play audio.Format, record audio.Endianness, log *logrus.Entry) *Server {
	return &Server{
		engine: engine,
		play:   play,
		record: record,
		log:    log.WithField("component", "control"),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("accept control connection")
		return
	}
	conn := ws.NewConn(c)
	defer conn.CloseNow()

	log := s.log.WithField("remote", r.RemoteAddr)
	log.Info("control client connected")
	if err := s.serve(r.Context(), conn, log); err != nil && !ws.IsClosed(err) {
		log.WithError(err).Warn("control connection failed")
		return
	}
	log.Info("control client disconnected")
}

func (s *Server) serve(ctx context.Context, conn *ws.Conn, log *logrus.Entry) error {
	sub := s.engine.Subscribe()
	defer sub.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			var cmd Command
			if err := conn.ReadJSON(ctx, &cmd); err != nil {
				return err
			}
			reply := s.handle(cmd)
			log.WithFields(logrus.Fields{
				"op":        cmd.Op,
				"direction": cmd.Direction,
				"error":     reply.Error,
			}).Debug("command handled")
			if err := conn.WriteJSON(ctx, reply); err != nil {
				return err
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case e, ok := <-sub.C():
				if !ok {
					return nil
				}
				if err := conn.WriteJSON(ctx, eventMessage(e)); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}

func (s *Server) handle(cmd Command) Message {
	reply := Message{Type: TypeReply, ID: cmd.ID}
	dir, err := stream.ParseDirection(cmd.Direction)
	if err != nil {
		reply.Error = err.Error()
		return reply
	}

	switch cmd.Op {
	case OpStart:
		err = s.start(dir, cmd)
	case OpStop:
		err = s.engine.Stop(dir)
	case OpRelease:
		err = s.engine.Release(dir)
	case OpState:
	default:
		err = fmt.Errorf("unknown op %q", cmd.Op)
	}
	if err != nil {
		reply.Error = err.Error()
	}
	reply.State = s.engine.State(dir).String()
	return reply
}

func (s *Server) start(dir stream.Direction, cmd Command) error {
	if cmd.Path == "" {
		return fmt.Errorf("%s: path is required", cmd.Op)
	}

	base := s.play
	switch {
	case dir == stream.Recording:
		base = audio.Format{Endianness: s.record}
	case pcmfile.IsWAV(cmd.Path):
		probed, err := pcmfile.Probe(cmd.Path)
		if err != nil {
			return err
		}
		base = probed
	}
	f, err := cmd.Format.apply(base)
	if err != nil {
		return err
	}
	return s.engine.Start(dir, stream.Request{Path: cmd.Path, Format: f})
}
