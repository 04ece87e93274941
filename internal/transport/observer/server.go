package observer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"voxelbuilder.ai/internal/observerproto"
	"voxelbuilder.ai/internal/sim/world"
	"voxelbuilder.ai/internal/sim/world/store"
	"voxelbuilder.ai/internal/transport/loopback"
)

var errBadSubscribe = errors.New("observer: bad SUBSCRIBE")

// Host is the read-only view of the world the observer needs.
type Host interface {
	Config() world.WorldConfig
	CurrentTick() uint64
	BlockPalette() []string
	Builders() []observerproto.BuilderInfo
}

// Server streams per-tick builder status to loopback websocket clients. It
// is registered on the world as a TickObserver; slow sessions lose ticks
// rather than stall the world goroutine.
type Server struct {
	host Host
	log  *logrus.Entry

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu       sync.Mutex
	sessions map[string]*session

	dropped atomic.Uint64
}

type session struct {
	id  string
	out chan []byte

	mu  sync.Mutex
	sub observerproto.SubscribeMsg
}

func (s *session) filter() observerproto.SubscribeMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

func (s *session) setFilter(sub observerproto.SubscribeMsg) {
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
}

func NewServer(h Host, logger *logrus.Entry) *Server {
	return &Server{
		host: h,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[string]*session{},
	}
}

// Sessions returns the number of connected observers.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Dropped returns how many tick messages were discarded for slow sessions.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

// ObserveTick fans msg out to every session. Called from the world goroutine.
func (s *Server) ObserveTick(msg observerproto.TickMsg) {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		b, err := json.Marshal(filterTick(msg, sess.filter()))
		if err != nil {
			continue
		}
		select {
		case sess.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

func filterTick(msg observerproto.TickMsg, sub observerproto.SubscribeMsg) observerproto.TickMsg {
	if !sub.IncludeAudits {
		msg.Audits = nil
	}
	if len(sub.Builders) == 0 {
		return msg
	}
	want := make(map[string]bool, len(sub.Builders))
	for _, id := range sub.Builders {
		want[id] = true
	}
	out := msg
	out.Builders = make([]observerproto.BuilderStatusMsg, 0, len(sub.Builders))
	for _, b := range msg.Builders {
		if want[b.ID] {
			out.Builders = append(out.Builders, b)
		}
	}
	out.Transitions = nil
	for _, tr := range msg.Transitions {
		if want[tr.BuilderID] {
			out.Transitions = append(out.Transitions, tr)
		}
	}
	out.Audits = nil
	for _, a := range msg.Audits {
		if want[a.Actor] {
			out.Audits = append(out.Audits, a)
		}
	}
	return out
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !loopback.Allow(rw, r) {
			return
		}

		cfg := s.host.Config()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         cfg.ID,
			Tick:            s.host.CurrentTick(),
			WorldParams: observerproto.WorldParams{
				TickRateHz: cfg.TickRateHz,
				ChunkSize:  [3]int{store.ChunkSize, store.ChunkSize, cfg.Height},
				Height:     cfg.Height,
				Seed:       cfg.Seed,
				BoundaryR:  cfg.BoundaryR,
			},
			BlockPalette: s.host.BlockPalette(),
			Builders:     s.host.Builders(),
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

const (
	handshakeWait = 5 * time.Second
	idleWait      = 60 * time.Second
	writeWait     = 5 * time.Second
)

// WSHandler upgrades loopback clients. The first frame must be a SUBSCRIBE;
// later SUBSCRIBE frames replace the session filter.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !loopback.Allow(rw, r) {
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sub, err := readSubscribe(conn)
		if err != nil {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}
		sess := s.join(sub)
		defer s.leave(sess)
		log := s.log.WithField("session", sess.id)
		log.WithField("builders", sub.Builders).Debug("observer subscribed")

		stop := make(chan struct{})
		pumped := make(chan struct{})
		go func() {
			defer close(pumped)
			sess.pump(conn, stop)
		}()
		for {
			_ = conn.SetReadDeadline(time.Now().Add(idleWait))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if next, ok := decodeSubscribe(raw); ok {
				sess.setFilter(next)
			}
		}
		close(stop)
		closeWith(conn, websocket.CloseNormalClosure, "bye")
		select {
		case <-pumped:
		case <-time.After(500 * time.Millisecond):
		}
		log.Debug("observer left")
	}
}

func (s *Server) join(sub observerproto.SubscribeMsg) *session {
	sess := &session{
		id:  fmt.Sprintf("O%d", s.nextID.Add(1)),
		out: make(chan []byte, 8),
		sub: sub,
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

func (s *Server) leave(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
}

// pump writes queued tick frames until stop closes or a write fails.
func (sess *session) pump(conn *websocket.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case frame := <-sess.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}
}

func readSubscribe(conn *websocket.Conn) (observerproto.SubscribeMsg, error) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeWait))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return observerproto.SubscribeMsg{}, err
	}
	sub, ok := decodeSubscribe(raw)
	if !ok {
		return sub, errBadSubscribe
	}
	return sub, nil
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func decodeSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	normalizeSubscribe(&sub)
	return sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	seen := map[string]bool{}
	ids := sub.Builders[:0]
	for _, id := range sub.Builders {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) > 256 {
		ids = ids[:256]
	}
	sub.Builders = ids
}

var _ world.TickObserver = (*Server)(nil)
