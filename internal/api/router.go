package api

import (
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jafish/Networked-Games-Testbed/internal/game"
	"github.com/jafish/Networked-Games-Testbed/internal/render"
)

// EngineInterface defines the read-only engine methods used by the HTTP API.
// Keep this minimal so tests can mock it without running the game loop.
type EngineInterface interface {
	// GetSnapshot returns the latest immutable snapshot
	GetSnapshot() *game.GameSnapshot
	// Leaderboard ranks the players of the latest snapshot
	Leaderboard() []game.LeaderboardEntry
	// GetEventLogStats reports the audit log counters
	GetEventLogStats() game.EventLogStats
	TickCount() uint64
	PlayerCount() int
}

// ClientCounter reports live WebSocket connections
type ClientCounter interface {
	ClientCount() int
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// Clients reports the connection count for /api/stats. Optional.
	Clients ClientCounter

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	// If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, only localhost origins are allowed.
	CORSOrigins []string

	// StaticFilesDir holds the browser client. Skipped when it doesn't exist.
	StaticFilesDir string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	engine  EngineInterface
	clients ClientCounter
	preview *render.Preview
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// NewRouter has no side effects beyond the rate limiter's cleanup goroutine
// when no limiter is passed in: no listeners are opened, so it is safe to
// use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  log.StandardLog(),
			NoColor: true,
		}))
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := []string{"http://localhost:*", "http://127.0.0.1:*"}
	if cfg.CORSOrigins != nil {
		corsOrigins = append(corsOrigins, cfg.CORSOrigins...)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	h := &routerHandlers{
		engine:  cfg.Engine,
		clients: cfg.Clients,
		preview: render.NewPreview(cfg.Engine),
	}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/leaderboard", h.handleGetLeaderboard)
		r.Get("/preview.png", h.handlePreview)
	})

	if dir := cfg.StaticFilesDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(dir)))
		} else {
			log.Warn("⚠️ Static directory not found, browser client disabled", "dir", dir)
		}
	}

	return r
}
