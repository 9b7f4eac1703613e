package ws

import (
	"sync"

	"github.com/rs/zerolog"

	logx "github.com/darkden-lab/tableside/internal/log"
)

// Hub tracks the live WebSocket clients. It is safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closing bool
	logger  zerolog.Logger
}

// NewHub allocates and initialises a Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logx.WithComponent("ws"),
	}
}

// Register adds a client to the hub. After CloseAll the hub refuses new
// clients: the client is closed and Register reports false.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		c.closeSend()
		if c.conn != nil {
			c.conn.Close()
		}
		h.logger.Debug().Str(logx.FieldSessionID, c.ID).Msg("client refused, hub closing")
		return false
	}
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Str(logx.FieldSessionID, c.ID).Int64(logx.FieldStaffID, c.StaffID).Int("clients", n).Msg("client registered")
	return true
}

// Unregister removes a client and closes its send queue. Unregistering a
// client twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()

	c.closeSend()
	if ok {
		h.logger.Debug().Str(logx.FieldSessionID, c.ID).Msg("client unregistered")
	}
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every registered connection and refuses later
// registrations. The read pumps of closed clients then run the normal
// disconnect path.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closing = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if c.conn != nil {
			c.conn.Close()
		}
	}
}
