package server

import (
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voxbridge/config"
	"voxbridge/metrics"
	"voxbridge/session"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestServer(t *testing.T, allowedOrigins []string) *Server {
	t.Helper()

	cfg := &config.Config{
		Port:           0,
		UpstreamURL:    "ws://localhost:9005",
		MaxSessions:    4,
		SessionTimeout: time.Minute,
		DialTimeout:    time.Second,
		AllowedOrigins: allowedOrigins,
	}

	registry := prometheus.NewRegistry()
	manager, err := session.NewManager(cfg, metrics.New(registry))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(manager.Shutdown)

	return NewServerWebsocket(cfg, manager, registry)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, []string{"*"})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"status":"ok"`) || !strings.Contains(body, `"bridges":0`) {
		t.Errorf("body = %s", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, []string{"*"})

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "voxbridge_sessions_active") {
		t.Error("metrics output missing voxbridge_sessions_active")
	}
}

func TestWebSocketUpstreamFailureTerminatesSilently(t *testing.T) {
	// Reserve a port and close it so the upstream dial is refused.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	cfg := &config.Config{
		UpstreamURL:    "ws://" + addr,
		MaxSessions:    4,
		SessionTimeout: time.Minute,
		DialTimeout:    time.Second,
		AllowedOrigins: []string{"*"},
	}
	registry := prometheus.NewRegistry()
	manager, err := session.NewManager(cfg, metrics.New(registry))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(manager.Shutdown)
	s := NewServerWebsocket(cfg, manager, registry)

	srv := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// The client sees only the closed socket: no error frame, no close code.
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	if err == nil {
		t.Fatal("expected the connection to terminate")
	}
	if websocket.IsCloseError(err, websocket.CloseTryAgainLater, websocket.CloseNormalClosure) {
		t.Fatalf("got explicit close frame: %v, want silent termination", err)
	}
}

func TestWebSocketOriginCheck(t *testing.T) {
	s := newTestServer(t, []string{"http://allowed.example"})

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Origin", "http://evil.example")

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != 403 {
		t.Fatalf("status = %d for disallowed origin, want 403", rec.Code)
	}
}
