package connection

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) (string, int) {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/game" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func TestManager_WebSocketTransport(t *testing.T) {
	received := make(chan string, 1)

	host, port := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("WELCOME tok\r\nROOM_LIST 0\r\n"))
		conn.WriteMessage(websocket.TextMessage, []byte("PING\n"))

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(data)

		// Keep the connection open until the client leaves.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	cfg := testConfig()
	cfg.Transport = TransportWebSocket
	cfg.WSPath = "/game"

	rec := &recorder{}
	m := NewManager(cfg, rec, nil)
	if err := m.Connect(context.Background(), host, port); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer m.Disconnect()

	waitFor(t, 2*time.Second, "three lines", func() bool { return len(rec.received()) == 3 })
	want := []string{"WELCOME tok", "ROOM_LIST 0", "PING"}
	if got := rec.received(); !reflect.DeepEqual(got, want) {
		t.Errorf("received %q, want %q", got, want)
	}

	if err := m.Send("PONG"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	select {
	case got := <-received:
		if got != "PONG\r\n" {
			t.Errorf("server got %q, want PONG with CRLF", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server received nothing")
	}
}

func TestManager_WebSocketBadPath(t *testing.T) {
	host, port := mockWSServer(t, func(*websocket.Conn) {})

	cfg := testConfig()
	cfg.Transport = TransportWebSocket
	cfg.WSPath = "/elsewhere"

	m := NewManager(cfg, nil, nil)
	err := m.Connect(context.Background(), host, port)
	if err == nil {
		m.Disconnect()
		t.Fatal("expected handshake failure")
	}
	if _, ok := err.(*TransportError); !ok {
		t.Errorf("error = %T, want *TransportError", err)
	}
}

func TestManager_WebSocketServerClose(t *testing.T) {
	host, port := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
	})

	cfg := testConfig()
	cfg.Transport = TransportWebSocket
	cfg.WSPath = "/game"

	rec := &recorder{}
	m := NewManager(cfg, rec, nil)
	if err := m.Connect(context.Background(), host, port); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer m.Disconnect()

	waitFor(t, 2*time.Second, "OnDisconnect", func() bool { return rec.disconnect.Load() == 1 })
}

func TestSplitFrame(t *testing.T) {
	tests := []struct {
		payload string
		want    []string
	}{
		{"", nil},
		{"PING", []string{"PING"}},
		{"PING\r\n", []string{"PING"}},
		{"A\r\nB\r\n", []string{"A", "B"}},
		{"A\nB", []string{"A", "B"}},
		{"\r\n", []string{""}},
	}
	for _, tt := range tests {
		if got := splitFrame(tt.payload); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitFrame(%q) = %q, want %q", tt.payload, got, tt.want)
		}
	}
}
