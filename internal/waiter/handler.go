package waiter

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/darkden-lab/tableside/internal/auth"
	"github.com/darkden-lab/tableside/internal/httputil"
	logx "github.com/darkden-lab/tableside/internal/log"
	"github.com/darkden-lab/tableside/internal/ws"
)

// Handler serves the waiter namespace WebSocket endpoint.
type Handler struct {
	ctx      context.Context
	relay    *Relay
	gate     *auth.Gate
	hub      *ws.Hub
	upgrader *websocket.Upgrader
	logger   zerolog.Logger

	sessions sessionSet
}

// ErrDrainTimeout is returned by Shutdown when sessions are still open as its
// context ends.
var ErrDrainTimeout = errors.New("waiter sessions still open at shutdown deadline")

// sessionSet counts open sessions and signals when the last one closes after
// draining has started.
type sessionSet struct {
	mu       sync.Mutex
	active   int
	draining bool
	idle     chan struct{}
}

func (s *sessionSet) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return false
	}
	s.active++
	return true
}

func (s *sessionSet) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	if s.draining && s.active == 0 {
		close(s.idle)
	}
}

// drain stops new sessions and returns a channel closed once none are open.
func (s *sessionSet) drain() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.draining {
		s.draining = true
		s.idle = make(chan struct{})
		if s.active == 0 {
			close(s.idle)
		}
	}
	return s.idle
}

func (s *sessionSet) open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// NewHandler creates the waiter endpoint. Sessions live under ctx, which is
// cancelled on server shutdown.
func NewHandler(ctx context.Context, relay *Relay, gate *auth.Gate, hub *ws.Hub, upgrader *websocket.Upgrader) *Handler {
	return &Handler{
		ctx:      ctx,
		relay:    relay,
		gate:     gate,
		hub:      hub,
		upgrader: upgrader,
		logger:   logx.WithComponent("waiter"),
	}
}

// RegisterRoutes wires the WebSocket endpoint.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/waiter", h.ServeWS).Methods(http.MethodGet)
}

// ServeWS authorizes the caller, upgrades the connection and opens a relay
// session for it. The session is closed when the connection goes away.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := h.gate.Authorize(r)
	if err != nil {
		h.logger.Debug().Err(err).Str(logx.FieldRemoteAddr, r.RemoteAddr).Msg("waiter connection rejected")
		httputil.WriteError(w, auth.StatusForError(err), err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader already wrote the error response.
		return
	}

	client := ws.NewClient(h.hub, conn, claims.StaffID)
	if !h.hub.Register(client) {
		return
	}
	go client.WritePump()

	if !h.sessions.acquire() {
		h.hub.Unregister(client)
		return
	}

	session, err := h.relay.Open(h.ctx, client.ID, claims.Identity(), client)
	if err != nil {
		_ = client.Emit(EventError, errorArg("subscription setup failed"))
		h.hub.Unregister(client)
		h.sessions.release()
		return
	}

	go func() {
		defer h.sessions.release()
		client.ReadPump(session.HandleRequest)
		session.Close()
	}()
}

// Shutdown refuses new sessions, disconnects every waiter and waits until
// each session has released its subscriptions. The bus must stay open until
// it returns.
func (h *Handler) Shutdown(ctx context.Context) error {
	idle := h.sessions.drain()
	h.hub.CloseAll()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		h.logger.Warn().Int("open_sessions", h.sessions.open()).Msg("shutdown deadline reached with sessions open")
		return ErrDrainTimeout
	}
}
