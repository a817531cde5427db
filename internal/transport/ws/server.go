package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"arborcraft.ai/internal/protocol"
	"arborcraft.ai/internal/sim/world"
)

type Server struct {
	world   *world.World
	log     *log.Logger
	welcome protocol.WelcomeMsg

	upgrader websocket.Upgrader
}

// NewServer serves w. welcome is the template sent after every handshake;
// the session id is filled in per connection.
func NewServer(w *world.World, welcome protocol.WelcomeMsg, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	welcome.Type = protocol.TypeWelcome
	welcome.ProtocolVersion = protocol.Version
	return &Server{
		world:   w,
		log:     logger,
		welcome: welcome,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		session, ok := s.handshake(conn)
		if !ok {
			return
		}
		logger := s.log.With("session", session)
		logger.Debug("client connected", "remote", r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 16)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			res := s.handle(ctx, msg)
			b, err := json.Marshal(res)
			if err != nil {
				logger.Error("encode result", "err", err)
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		<-writerDone
		logger.Debug("client disconnected")
	}
}

func (s *Server) handle(ctx context.Context, msg []byte) protocol.ResultMsg {
	var cmd protocol.CommandMsg
	_ = json.Unmarshal(msg, &cmd)
	if err := protocol.Validate(msg); err != nil {
		return protocol.Fail(cmd.ID, protocol.CodeFor(err), err.Error())
	}
	if !protocol.IsCommand(cmd.Type) {
		return protocol.Fail(cmd.ID, protocol.ErrBadRequest, "expected a command, got "+cmd.Type)
	}
	if cmd.ProtocolVersion != protocol.Version {
		return protocol.Fail(cmd.ID, protocol.ErrBadRequest, "bad protocol_version")
	}
	res := s.world.Execute(ctx, cmd)
	if !res.OK {
		s.log.Debug("command failed", "type", cmd.Type, "pos", cmd.Pos, "code", res.Code, "err", res.Message)
	}
	return res
}

func (s *Server) handshake(conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", false
	}
	if err := protocol.Validate(msg); err != nil {
		closeWith(conn, "malformed HELLO")
		return "", false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", false
	}

	welcome := s.welcome
	welcome.SessionID = uuid.NewString()
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}
	return welcome.SessionID, true
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
