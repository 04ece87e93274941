package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"voxelbuilder.ai/internal/observerproto"
	"voxelbuilder.ai/internal/protocol"
	"voxelbuilder.ai/internal/sim/world"
	"voxelbuilder.ai/internal/transport/loopback"
)

const (
	handshakeWait = 5 * time.Second
	idleWait      = 60 * time.Second
	writeWait     = 5 * time.Second
)

// Host is the part of the world the control channel drives.
type Host interface {
	Submit(ctx context.Context, cmd world.Command) (world.CommandResult, error)
	Config() world.WorldConfig
	CurrentTick() uint64
	Builders() []observerproto.BuilderInfo
}

// Server accepts control connections: one owner per connection, one
// command at a time, each answered after the tick that applied it.
type Server struct {
	host Host
	log  *logrus.Entry

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	// CommandTimeout bounds how long a command may wait for its tick.
	CommandTimeout time.Duration
}

func NewServer(h Host, logger *logrus.Entry) *Server {
	return &Server{
		host: h,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		CommandTimeout: 5 * time.Second,
	}
}

// Handler serves one control session. Commands are handled in order and
// each RESULT is written before the next frame is read.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		// HELLO.owner is taken on trust, so only local clients may connect.
		if !loopback.Allow(rw, r) {
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		owner, ok := s.handshake(conn)
		if !ok {
			return
		}
		log := s.log.WithField("owner", owner)
		log.Info("control session opened")
		defer log.Info("control session closed")

		ctx := r.Context()
		for ctx.Err() == nil {
			_ = conn.SetReadDeadline(time.Now().Add(idleWait))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := writeJSON(conn, s.handleMessage(ctx, owner, raw)); err != nil {
				log.WithError(err).Debug("write result")
				return
			}
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, owner string, msg []byte) protocol.ResultMsg {
	res := protocol.ResultMsg{Type: protocol.TypeResult, ProtocolVersion: protocol.Version}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeCmd || base.ProtocolVersion != protocol.Version {
		res.Code = protocol.ErrProtoBadRequest
		res.Message = "expected CMD"
		return res
	}
	var cmd protocol.CmdMsg
	if err := json.Unmarshal(msg, &cmd); err != nil {
		res.Code = protocol.ErrProtoBadRequest
		res.Message = err.Error()
		return res
	}
	res.CmdID = cmd.CmdID

	wc := toWorldCommand(cmd)
	wc.Actor = owner
	cctx, cancel := context.WithTimeout(ctx, s.CommandTimeout)
	defer cancel()
	r, err := s.host.Submit(cctx, wc)
	res.Accepted = r.Accepted
	if hasBuilderStatus(wc, err) {
		res.Status = r.Status.String()
	}
	if err != nil {
		res.Code = codeFor(err)
		res.Message = err.Error()
		return res
	}
	res.OK = true
	return res
}

func toWorldCommand(m protocol.CmdMsg) world.Command {
	return world.Command{
		Kind:      world.CommandKind(strings.ToUpper(m.Kind)),
		BuilderID: m.BuilderID,
		Mode:      m.Mode,
		Slot:      m.Slot,
		Ref:       m.Ref,
		WorldID:   m.WorldID,
		Pos:       m.Pos,
		Material:  m.Material,
		Count:     m.Count,
		Amount:    m.Amount,
		Powered:   m.Powered,
	}
}

// hasBuilderStatus reports whether the result carries a real builder status.
func hasBuilderStatus(cmd world.Command, err error) bool {
	if cmd.Kind == world.CmdMarkLocation {
		return false
	}
	if err == nil {
		return true
	}
	return !errors.Is(err, world.ErrUnknownBuilder) &&
		!errors.Is(err, world.ErrWorldNotRunning) &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, context.Canceled)
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, world.ErrUnknownBuilder):
		return protocol.ErrUnknownBuilder
	case errors.Is(err, world.ErrNotOwner):
		return protocol.ErrNoPermission
	case errors.Is(err, world.ErrRunning):
		return protocol.ErrRunning
	case errors.Is(err, world.ErrUnknownMarker):
		return protocol.ErrUnknownMarker
	case errors.Is(err, world.ErrRejectedItem):
		return protocol.ErrRejectedItem
	case errors.Is(err, world.ErrWorldNotRunning):
		return protocol.ErrWorldNotRunning
	case errors.Is(err, context.DeadlineExceeded):
		return protocol.ErrWorldBusy
	}
	return protocol.ErrBadRequest
}

func (s *Server) handshake(conn *websocket.Conn) (owner string, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeWait))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}
	var hello protocol.HelloMsg
	if base, err := protocol.DecodeBase(raw); err != nil || base.Type != protocol.TypeHello {
		return "", reject(conn, "expected HELLO")
	}
	if err := json.Unmarshal(raw, &hello); err != nil {
		return "", reject(conn, "malformed HELLO")
	}
	if hello.ProtocolVersion != protocol.Version {
		return "", reject(conn, "bad protocol_version")
	}
	if owner = strings.TrimSpace(hello.Owner); owner == "" {
		return "", reject(conn, "missing owner")
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       fmt.Sprintf("C%d", s.nextID.Add(1)),
		WorldID:         s.host.Config().ID,
		Tick:            s.host.CurrentTick(),
		Builders:        []string{},
	}
	for _, b := range s.host.Builders() {
		if b.Owner == owner {
			welcome.Builders = append(welcome.Builders, b.ID)
		}
	}
	return owner, writeJSON(conn, welcome) == nil
}

// reject closes the connection with a policy violation. It always returns
// false so handshake can return it directly.
func reject(conn *websocket.Conn, reason string) bool {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
	return false
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
