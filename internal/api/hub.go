package api

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/jafish/Networked-Games-Testbed/internal/game"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// GameEngine is the part of the engine the hub drives. Each method is a
// connection lifecycle callback; events come back through Deliver.
type GameEngine interface {
	Connect(id string) (game.Welcome, error)
	UpdatePaddle(id string, u game.PaddleUpdate)
	SetName(id, name string)
	Disconnect(id string)
}

// HubConfig bounds connection counts and per-connection traffic
type HubConfig struct {
	MaxConnections int
	MaxPerIP       int
	SendBuffer     int     // queued outbound frames per client
	InboundRate    float64 // inbound messages per second per client
	InboundBurst   int
	AllowedOrigins []string
}

// DefaultHubConfig returns production defaults
func DefaultHubConfig() HubConfig {
	return HubConfig{
		MaxConnections: MaxWSConnectionsTotal,
		MaxPerIP:       MaxWSConnectionsPerIP,
		SendBuffer:     512,
		InboundRate:    120,
		InboundBurst:   60,
	}
}

// client is one WebSocket connection and the player it controls
type client struct {
	id      string
	ip      string
	conn    *websocket.Conn
	codec   Codec
	send    chan []byte
	limiter *rate.Limiter

	// ready flips once initialState has been queued; nothing older than
	// the welcome reaches the client.
	ready atomic.Bool
}

// Hub manages all WebSocket connections and fans engine events out to them.
// It implements game.Sink.
type Hub struct {
	engine    GameEngine
	cfg       HubConfig
	upgrader  websocket.Upgrader
	wsLimiter *WebSocketRateLimiter

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

// NewHub creates a hub bound to engine. The caller must also register the
// hub as the engine's sink.
func NewHub(engine GameEngine, cfg HubConfig) *Hub {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = MaxWSConnectionsTotal
	}
	if cfg.MaxPerIP <= 0 {
		cfg.MaxPerIP = MaxWSConnectionsPerIP
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 512
	}

	h := &Hub{
		engine:    engine,
		cfg:       cfg,
		clients:   make(map[string]*client),
		wsLimiter: NewWebSocketRateLimiter(cfg.MaxPerIP),
	}

	origins := NewOriginChecker(cfg.AllowedOrigins)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if origins.Check(r) {
				return true
			}
			log.Warn("⚠️ WebSocket connection rejected", "origin", r.Header.Get("Origin"))
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Deliver fans events out to their targets. Each event is encoded at most
// once per codec. A client whose queue is full loses the frame.
func (h *Hub) Deliver(events []game.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	for _, ev := range events {
		var frames map[string][]byte

		for _, c := range h.clients {
			if !ev.Targets(c.id) {
				continue
			}
			if !c.ready.Load() {
				if ev.Name != game.EventInitialState {
					continue
				}
				c.ready.Store(true)
			}

			frame, ok := frames[c.codec.Name()]
			if !ok {
				var err error
				frame, err = c.codec.Encode(ev.Name, ev.Data)
				if err != nil {
					log.Error("Failed to encode event", "event", ev.Name, "codec", c.codec.Name(), "err", err)
					continue
				}
				if frames == nil {
					frames = make(map[string][]byte, 2)
				}
				frames[c.codec.Name()] = frame
			}

			select {
			case c.send <- frame:
			default:
				RecordWSDropped()
			}
		}
	}
}

// HandleWebSocket upgrades the request and attaches a new player.
// ?codec=msgpack selects binary frames.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.RLock()
	total, closed := len(h.clients), h.closed
	h.mu.RUnlock()

	if closed {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	if total >= h.cfg.MaxConnections {
		log.Warn("⚠️ WebSocket connection rejected: total limit reached", "total", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		log.Warn("⚠️ WebSocket connection rejected: per-IP limit reached", "ip", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", "ip", ip, "err", err)
		h.wsLimiter.Release(ip)
		return
	}

	inRate := rate.Inf
	if h.cfg.InboundRate > 0 {
		inRate = rate.Limit(h.cfg.InboundRate)
	}
	c := &client{
		id:      uuid.NewString(),
		ip:      ip,
		conn:    conn,
		codec:   CodecFor(r.URL.Query().Get("codec")),
		send:    make(chan []byte, h.cfg.SendBuffer),
		limiter: rate.NewLimiter(inRate, h.cfg.InboundBurst),
	}

	// Registered before Connect so the welcome is queued on c.send
	if !h.register(c) {
		closeWith(conn, websocket.CloseGoingAway, "server shutting down")
		h.wsLimiter.Release(ip)
		return
	}

	if _, err := h.engine.Connect(c.id); err != nil {
		reason := "connect failed"
		if errors.Is(err, game.ErrArenaFull) {
			reason = "arena full"
			RecordConnectionRejected("arena_full")
		}
		log.Warn("⚠️ Player rejected", "id", c.id, "reason", reason)
		h.remove(c)
		closeWith(conn, websocket.ClosePolicyViolation, reason)
		return
	}

	log.Info("📱 Player connected", "id", c.id, "ip", ip, "codec", c.codec.Name())
	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	UpdateWSConnections(len(h.clients))
	return true
}

// remove detaches c and reports whether it was still attached. The send
// channel is closed under the write lock so Deliver never sends on it.
func (h *Hub) remove(c *client) bool {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, c.id)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.wsLimiter.Release(c.ip)
	UpdateWSConnections(count)
	return true
}

// unregister detaches c and tells the engine. The engine is called outside
// the hub lock because it delivers events back into the hub.
func (h *Hub) unregister(c *client) {
	if !h.remove(c) {
		return
	}
	h.engine.Disconnect(c.id)
	log.Info("📱 Player disconnected", "id", c.id, "remaining", h.ClientCount())
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("WebSocket read error", "id", c.id, "err", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		h.dispatch(c, frame)
	}
}

// dispatch routes one inbound frame to the engine. Malformed or
// rate-limited messages are dropped without closing the connection.
func (h *Hub) dispatch(c *client, frame []byte) {
	in, err := c.codec.Decode(frame)
	if err != nil {
		RecordInbound("", "invalid")
		return
	}
	if !c.limiter.Allow() {
		RecordInbound(in.Event, "rate_limited")
		return
	}

	switch in.Event {
	case game.EventPlayerUpdate:
		var u game.PaddleUpdate
		if err := in.Bind(&u); err != nil || !u.Finite() {
			RecordInbound(in.Event, "invalid")
			return
		}
		h.engine.UpdatePaddle(c.id, u)

	case game.EventPlayerName:
		name, ok := bindName(in)
		if !ok {
			RecordInbound(in.Event, "invalid")
			return
		}
		h.engine.SetName(c.id, name)

	default:
		RecordInbound(in.Event, "invalid")
		return
	}
	RecordInbound(in.Event, "ok")
}

// bindName accepts either a bare string or {"name": "..."}
func bindName(in Inbound) (string, bool) {
	var name string
	if err := in.Bind(&name); err == nil {
		return name, true
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := in.Bind(&obj); err != nil {
		return "", false
	}
	return obj.Name, true
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(c.codec.FrameType(), frame); err != nil {
				return
			}
			IncrementWSMessages()

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close detaches every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	detached := make([]*client, 0, len(h.clients))
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
		detached = append(detached, c)
	}
	h.mu.Unlock()

	for _, c := range detached {
		h.wsLimiter.Release(c.ip)
		h.engine.Disconnect(c.id)
	}
	UpdateWSConnections(0)
	log.Info("📱 WebSocket hub closed", "detached", len(detached))
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
}
