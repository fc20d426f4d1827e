package api

import (
	"net/http"
	"net/http/pprof"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jafish/Networked-Games-Testbed/internal/game"
)

// Metrics with bounded cardinality (no per-player labels)
var (
	// Simulation metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.0167},
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_player_count",
		Help: "Current number of connected players",
	})

	rallyLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_rally_length",
		Help: "Counted paddle touches in the current rally",
	})

	goalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_goals_total",
		Help: "Goals scored, attributed or not",
	})

	paddleHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_paddle_hits_total",
		Help: "Paddle touches that counted toward a rally",
	})

	floorResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_floor_resets_total",
		Help: "Times the ball touched the floor",
	})

	// Event log metrics
	eventLogTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_log_total",
		Help: "Total audit records accepted",
	})

	eventLogDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_log_dropped_total",
		Help: "Audit records dropped due to rate limiting or buffer full",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter, origin check or capacity",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit", "arena_full"

	// HTTP metrics, endpoint is the chi route pattern
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})

	wsMessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_dropped_total",
		Help: "Outbound messages dropped because a client's queue was full",
	})

	wsInboundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_inbound_total",
		Help: "Inbound client messages by event and outcome",
	}, []string{"event", "outcome"}) // event: playerUpdate, playerName, other; outcome: ok, invalid, rate_limited
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST be localhost in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:       true,
		ListenAddr:    "127.0.0.1:6060",
		BasicAuthUser: os.Getenv("DEBUG_USER"),
		BasicAuthPass: os.Getenv("DEBUG_PASS"),
	}
}

// StartDebugServer starts the pprof and metrics server in the background.
// It returns nil when disabled.
func StartDebugServer(cfg ObservabilityConfig) *http.Server {
	if !cfg.Enabled {
		log.Info("📊 Debug server disabled")
		return nil
	}

	if !isLoopbackAddr(cfg.ListenAddr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Warn("⚠️ Debug server forced to localhost", "requested", cfg.ListenAddr)
		cfg.ListenAddr = "127.0.0.1:6060"
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("📊 Debug server starting",
			"pprof", "http://"+cfg.ListenAddr+"/debug/pprof/",
			"metrics", "http://"+cfg.ListenAddr+"/metrics")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("⚠️ Debug server error", "err", err)
		}
	}()

	return srv
}

func isLoopbackAddr(addr string) bool {
	for _, prefix := range []string{"127.0.0.1:", "localhost:", "[::1]:"} {
		if len(addr) > len(prefix) && addr[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records one simulation tick. Wire it to Engine.OnTick.
func RecordTick(stats game.TickStats) {
	tickDuration.Observe(stats.Duration.Seconds())
	playerCount.Set(float64(stats.Players))
	rallyLength.Set(float64(stats.Rally))
	if stats.Goals > 0 {
		goalsTotal.Add(float64(stats.Goals))
	}
	if stats.PaddleHits > 0 {
		paddleHitsTotal.Add(float64(stats.PaddleHits))
	}
	if stats.FloorResets > 0 {
		floorResetsTotal.Add(float64(stats.FloorResets))
	}
}

// eventLogTracker turns the event log's cumulative totals into counter deltas
var eventLogTracker struct {
	sync.Mutex
	total, dropped uint64
}

// UpdateEventLogStats feeds the event log counters from a stats sample.
// Prometheus counters only go up, so only the growth since the previous
// sample is added.
func UpdateEventLogStats(stats game.EventLogStats) {
	eventLogTracker.Lock()
	defer eventLogTracker.Unlock()

	if stats.Total > eventLogTracker.total {
		eventLogTotal.Add(float64(stats.Total - eventLogTracker.total))
	}
	if stats.Dropped > eventLogTracker.dropped {
		eventLogDropped.Add(float64(stats.Dropped - eventLogTracker.dropped))
	}
	eventLogTracker.total = stats.Total
	eventLogTracker.dropped = stats.Dropped
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of the bounded values listed on connectionRejected.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// metricsMiddleware records every request under its route pattern, so
// arbitrary paths cannot blow up label cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

// RecordWSDropped counts an outbound message lost to a full client queue
func RecordWSDropped() {
	wsMessagesDropped.Inc()
}

// RecordInbound counts a client message. Unknown event names collapse
// into "other".
func RecordInbound(event, outcome string) {
	switch event {
	case game.EventPlayerUpdate, game.EventPlayerName:
	default:
		event = "other"
	}
	wsInboundTotal.WithLabelValues(event, outcome).Inc()
}
