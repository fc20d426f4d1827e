package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/jafish/Networked-Games-Testbed/internal/config"
	"github.com/jafish/Networked-Games-Testbed/internal/game"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the hub that carries the game protocol.
type Server struct {
	engine      *game.Engine
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer wires a hub to engine and builds the router. It registers the
// hub as the engine's event sink.
//
// No listener is opened until Start, so tests can use Router() directly.
func NewServer(engine *game.Engine, cfg config.ServerConfig) *Server {
	hubCfg := DefaultHubConfig()
	hubCfg.SendBuffer = cfg.SendBuffer
	hubCfg.InboundRate = cfg.InboundRate
	hubCfg.InboundBurst = cfg.InboundBurst
	hubCfg.AllowedOrigins = cfg.AllowedOrigins

	s := &Server{
		engine:      engine,
		hub:         NewHub(engine, hubCfg),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}
	engine.SetSink(s.hub)

	s.router = NewRouter(RouterConfig{
		Engine:         engine,
		Clients:        s.hub,
		RateLimiter:    s.rateLimiter,
		CORSOrigins:    cfg.AllowedOrigins,
		StaticFilesDir: cfg.StaticDir,
	})

	s.setupWebSocketRoutes()

	return s
}

// setupWebSocketRoutes adds the routes that need the hub instance
func (s *Server) setupWebSocketRoutes() {
	// Socket.IO-style path kept for existing browser clients
	s.router.Get("/socket.io/", s.handleSocketIO)
	s.router.Get("/ws", s.hub.HandleWebSocket)
}

// Start listens on addr and blocks until Shutdown. A clean shutdown
// returns nil.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	log.Info("🌐 API server starting", "addr", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Shutdown stops accepting requests, detaches every player and stops the
// background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.hub.Close()
	s.rateLimiter.Stop()
	return err
}

func (s *Server) handleSocketIO(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.hub.HandleWebSocket(w, r)
		return
	}

	// No long-polling fallback
	writeError(w, "use websocket", http.StatusNotFound)
}
