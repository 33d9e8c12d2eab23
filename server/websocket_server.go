package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"voxbridge/config"
	"voxbridge/session"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer    *http.Server
	upgrader      websocket.Upgrader
	bridgeManager *session.Manager
	config        *config.Config
}

func NewServerWebsocket(cfg *config.Config, bridgeManager *session.Manager, reg *prometheus.Registry) *Server {
	s := &Server{
		bridgeManager: bridgeManager,
		config:        cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024, // 64KB for audio chunks
			WriteBufferSize: 64 * 1024, // 64KB for audio chunks
			CheckOrigin: func(r *http.Request) bool {
				// Check allowed origins
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: upgraded connections stream for the whole session.
	}

	return s
}

// Start begins listening for connections
func (s *Server) Start() error {
	log.Printf("🚀 Bridge listening on port %d", s.config.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%d/", s.config.Port)
	log.Printf("🎯 Upstream voice server: %s", s.config.UpstreamURL)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("🛑 Shutting down server...")
	s.bridgeManager.Shutdown()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade HTTP to WebSocket
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	// Dial the upstream and pair the two sockets. A dial failure aborts the
	// client connection silently: there is nothing to bridge to and the
	// client gets no error frame, only the closed socket.
	bridge, err := s.bridgeManager.CreateBridge(context.Background(), conn)
	if err != nil {
		log.Printf("Failed to create bridge: %v", err)
		conn.Close()
		return
	}

	log.Printf("✅ New bridge created: %s (client %s)", bridge.ID, r.RemoteAddr)

	// Run blocks until both pumps have exited.
	bridge.Run()

	_ = s.bridgeManager.RemoveBridge(context.Background(), bridge.ID)
	log.Printf("🔌 Bridge closed: %s", bridge.ID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","bridges":%d}`, s.bridgeManager.GetActiveBridgeCount())
}
