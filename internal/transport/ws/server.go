package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/loguhan/FactoryGame/internal/protocol"
	"github.com/loguhan/FactoryGame/internal/sim/world"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/rates"
)

type Config struct {
	// MaxCommandsPerSecond caps CMD messages per connection; extra commands
	// are answered with E_RATE_LIMIT without reaching the world.
	MaxCommandsPerSecond int
	// OutQueue is the per-session frame buffer.
	OutQueue int
}

type Server struct {
	world *world.World
	log   *log.Logger
	cfg   Config

	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewServer(w *world.World, cfg Config, logger *log.Logger) *Server {
	if cfg.MaxCommandsPerSecond <= 0 {
		cfg.MaxCommandsPerSecond = 30
	}
	if cfg.OutQueue <= 0 {
		cfg.OutQueue = 16
	}
	return &Server{
		world: w,
		log:   logger,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		now: time.Now,
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}
		s.logf("session %s connected from %s", sessionID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		var (
			winStart uint64
			winCount int
		)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeCmd {
				continue
			}
			var cmd protocol.CmdMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				s.reject(out, cmd.ID, protocol.ErrProtoBadRequest, "malformed CMD")
				continue
			}
			if cmd.ProtocolVersion != protocol.Version {
				s.reject(out, cmd.ID, protocol.ErrProtoBadRequest, "bad protocol_version")
				continue
			}
			nowMs := uint64(s.now().UnixMilli())
			var ok bool
			winStart, winCount, ok, _ = rates.Allow(nowMs, winStart, winCount, 1000, s.cfg.MaxCommandsPerSecond)
			if !ok {
				s.reject(out, cmd.ID, protocol.ErrRateLimit, "too many commands")
				continue
			}
			select {
			case s.world.Inbox() <- world.CommandEnvelope{SessionID: sessionID, Cmd: cmd}:
			case <-s.world.Done():
				cancel()
			}
			if ctx.Err() != nil {
				break
			}
		}

		select {
		case s.world.Leave() <- sessionID:
		case <-s.world.Done():
		}
		s.logf("session %s disconnected", sessionID)
	}
}

// reject answers a command the transport refused. The frame is dropped when
// the session queue is full.
func (s *Server) reject(out chan []byte, id, code, message string) {
	b, err := json.Marshal(protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          id,
		Accepted:        false,
		Code:            code,
		Message:         message,
		WorldID:         s.world.ID(),
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func versionSupported(h protocol.HelloMsg) bool {
	if h.ProtocolVersion == protocol.Version {
		return true
	}
	for _, v := range h.SupportedVersions {
		if v == protocol.Version {
			return true
		}
	}
	return false
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return "", nil
	}
	if !versionSupported(hello) {
		closeWith(conn, "bad protocol_version")
		return "", nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	out = make(chan []byte, s.cfg.OutQueue)
	respCh := make(chan world.JoinResponse, 1)
	req := world.JoinRequest{
		SessionID: uuid.NewString(),
		Name:      hello.ClientName,
		Role:      hello.Role,
		Out:       out,
		Resp:      respCh,
	}
	select {
	case s.world.Join() <- req:
	case <-s.world.Done():
		closeWith(conn, "world stopped")
		return "", nil
	}
	var resp world.JoinResponse
	select {
	case resp = <-respCh:
	case <-s.world.Done():
		closeWith(conn, "world stopped")
		return "", nil
	}

	// Welcome and catalogs go out before any queued frame.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		return "", nil
	}
	for _, c := range resp.Catalogs {
		if err := writeJSON(conn, c); err != nil {
			return "", nil
		}
	}
	return resp.Welcome.SessionID, out
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

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
