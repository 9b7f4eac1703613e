package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	logx "github.com/darkden-lab/tableside/internal/log"
)

const (
	// writeWait is the maximum time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// pongWait is the maximum time to wait for a pong reply from the peer.
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize is the maximum inbound message size in bytes.
	maxMessageSize = 4096
	// sendBuffer is the number of outbound frames queued per client.
	sendBuffer = 256
)

var (
	ErrClientClosed = errors.New("client connection closed")
	ErrSlowClient   = errors.New("client send buffer full")
)

// Client represents a single WebSocket connection.
type Client struct {
	ID      string
	StaffID int64

	conn   *websocket.Conn
	hub    *Hub
	logger zerolog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient creates a Client for conn. It is not registered with the hub.
func NewClient(hub *Hub, conn *websocket.Conn, staffID int64) *Client {
	id := uuid.New().String()
	return &Client{
		ID:      id,
		StaffID: staffID,
		conn:    conn,
		hub:     hub,
		logger: logx.WithComponent("ws").With().
			Str(logx.FieldSessionID, id).
			Int64(logx.FieldStaffID, staffID).
			Logger(),
		send: make(chan []byte, sendBuffer),
	}
}

// Emit queues an event for the peer without blocking. It fails when the
// client is closed or its send buffer is full.
func (c *Client) Emit(event string, args ...any) error {
	data, err := EncodeFrame(event, args...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSlowClient
	}
}

// closeSend stops further emission and lets WritePump say goodbye. It is
// safe to call more than once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Close unregisters the client and closes the connection.
func (c *Client) Close() {
	if c.hub != nil {
		c.hub.Unregister(c)
	} else {
		c.closeSend()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// ReadPump reads frames from the connection and hands each one to onFrame.
// Frames that cannot be decoded are answered with an error event. It returns
// when the connection fails or is closed, after unregistering the client.
func (c *Client) ReadPump(onFrame func(Frame)) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read failed")
			}
			return
		}

		frame, err := DecodeFrame(msg)
		if err != nil {
			c.logger.Debug().Err(err).Msg("invalid frame")
			if err := c.Emit(EventError, ErrorArg{Message: "malformed frame"}); err != nil {
				c.logger.Debug().Err(err).Msg("could not answer invalid frame")
			}
			continue
		}
		onFrame(frame)
	}
}

// WritePump pumps queued frames to the WebSocket connection and keeps it alive
// with pings. It runs in its own goroutine per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Client closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
