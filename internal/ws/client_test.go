package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestClient_EmitQueuesFrame(t *testing.T) {
	c := newTestClient(nil, "c1")
	if err := c.Emit("ongoingOrdersCount", 3); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	select {
	case data := <-c.send:
		if string(data) != `{"event":"ongoingOrdersCount","args":[3]}` {
			t.Errorf("unexpected frame %s", data)
		}
	default:
		t.Fatal("expected a queued frame")
	}
}

func TestClient_SlowClientDropsFrames(t *testing.T) {
	c := &Client{ID: "slow", send: make(chan []byte, 1)}
	if err := c.Emit("a"); err != nil {
		t.Fatalf("first emit failed: %v", err)
	}
	if err := c.Emit("b"); !errors.Is(err, ErrSlowClient) {
		t.Errorf("expected ErrSlowClient, got %v", err)
	}
}

func TestClient_CloseWithoutHub(t *testing.T) {
	c := newTestClient(nil, "c1")
	c.Close()
	c.Close()
	if err := c.Emit("a"); !errors.Is(err, ErrClientClosed) {
		t.Errorf("expected ErrClientClosed, got %v", err)
	}
}

// echoServer upgrades connections and echoes each frame's event name back
// as an "echo" event.
func echoServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := NewUpgrader(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(hub, conn, 7)
		hub.Register(c)
		go c.WritePump()
		go c.ReadPump(func(f Frame) {
			_ = c.Emit("echo", f.Event, len(f.Args))
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestClient_PumpsRoundTrip(t *testing.T) {
	hub := NewHub()
	srv := echoServer(t, hub)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"getDiningTableStatus","args":[4]}`)))
	f := readFrame(t, conn)
	require.Equal(t, "echo", f.Event)
	require.JSONEq(t, `"getDiningTableStatus"`, string(f.Args[0]))
	require.JSONEq(t, `1`, string(f.Args[1]))
	require.Equal(t, 1, hub.Count())
}

func TestClient_MalformedFrameGetsErrorEvent(t *testing.T) {
	hub := NewHub()
	srv := echoServer(t, hub)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`garbage`)))
	f := readFrame(t, conn)
	require.Equal(t, EventError, f.Event)

	var arg ErrorArg
	require.NoError(t, json.Unmarshal(f.Args[0], &arg))
	require.Equal(t, "malformed frame", arg.Message)
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	srv := echoServer(t, hub)
	conn := dial(t, srv)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseAllDisconnectsPeers(t *testing.T) {
	hub := NewHub()
	srv := echoServer(t, hub)
	conn := dial(t, srv)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.CloseAll()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}
