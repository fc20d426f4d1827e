package game

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jafish/Networked-Games-Testbed/internal/config"
)

var (
	// ErrArenaFull is returned by Connect when MaxPlayers are already connected.
	ErrArenaFull = errors.New("arena is full")
	// ErrPlayerExists is returned by Connect for an id that is already in the arena.
	ErrPlayerExists = errors.New("player already connected")
)

// Sink receives the events produced by the engine, in order.
// Deliver must not block: it runs on the simulation goroutine.
type Sink interface {
	Deliver(events []Event)
}

// EngineConfig configures a new Engine.
type EngineConfig struct {
	Physics    config.PhysicsConfig
	Arena      config.ArenaConfig
	MaxPlayers int   // 0 means unlimited
	Seed       int64 // 0 picks a time-based seed
}

// TickStats describes one completed simulation tick.
type TickStats struct {
	Tick        uint64
	Duration    time.Duration
	Players     int
	Rally       int
	Goals       uint64 // goals detected this tick
	PaddleHits  uint64 // counted paddle touches this tick
	FloorResets uint64 // floor resets this tick
}

// Engine owns the World and drives it from a fixed-rate ticker.
// Every access to the world, from the tick or from a connection callback,
// happens under a single mutex.
type Engine struct {
	mu    sync.Mutex
	world *World

	// deliverMu is taken before mu is released so events reach the sink in
	// the order they were produced, without holding the world lock during
	// delivery.
	deliverMu sync.Mutex
	sink      Sink
	onTick    func(TickStats)

	physics    config.PhysicsConfig
	maxPlayers int
	now        func() time.Time

	tickCount uint64
	running   bool
	stopped   bool // an engine cannot be restarted
	ticker    *time.Ticker
	stopChan  chan struct{}
	doneChan  chan struct{}

	snapshots *SnapshotStore
	eventLog  *EventLog
}

// NewEngine creates an engine with an empty arena
func NewEngine(cfg EngineConfig) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		world:      NewWorld(cfg.Physics, cfg.Arena, seed),
		physics:    cfg.Physics,
		maxPlayers: cfg.MaxPlayers,
		now:        time.Now,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
		snapshots:  NewSnapshotStore(),
		eventLog:   NewEventLog(),
	}
	e.world.SetRecorder(e.eventLog)
	e.snapshots.Publish(e.world.snapshot(0, e.now()))
	return e
}

// SetSink attaches the event consumer. Call before Start.
func (e *Engine) SetSink(s Sink) {
	e.mu.Lock()
	e.sink = s
	e.mu.Unlock()
}

// OnTick registers a callback run after every tick, outside the world lock.
func (e *Engine) OnTick(fn func(TickStats)) {
	e.mu.Lock()
	e.onTick = fn
	e.mu.Unlock()
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running || e.stopped {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(time.Second / time.Duration(e.physics.TickRate))
	e.mu.Unlock()

	go func() {
		defer close(e.doneChan)
		for {
			select {
			case <-e.ticker.C:
				e.Step(e.now())
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Info("🎮 Game engine started", "tps", e.physics.TickRate, "substeps", e.physics.SubSteps)
}

// Stop halts the game loop and waits for the in-flight tick to finish.
// Calling it more than once, or before Start, is harmless.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.stopped = true
	e.ticker.Stop()
	close(e.stopChan)
	e.mu.Unlock()

	<-e.doneChan
	log.Info("🛑 Game engine stopped", "ticks", e.TickCount())
}

// Step runs one full simulation frame as of now.
func (e *Engine) Step(now time.Time) {
	e.mu.Lock()
	start := time.Now()
	w := e.world

	e.tickCount++
	e.eventLog.SetTick(e.tickCount)
	before := w.Totals

	for i := 0; i < e.physics.SubSteps; i++ {
		w.integrateSubStep()
		w.resolvePaddles(now)
	}
	w.resizeArena()
	w.checkGoal()

	w.emit(Event{Name: EventUpdateBall, Data: w.Ball.View()})
	w.emit(Event{Name: EventRallyCount, Data: RallyPayload{Count: w.Match.Rally}})
	w.emit(Event{Name: EventScores, Data: w.scores()})

	e.snapshots.Publish(w.snapshot(e.tickCount, now))

	stats := TickStats{
		Tick:        e.tickCount,
		Players:     len(w.Players),
		Rally:       w.Match.Rally,
		Goals:       w.Totals.Goals - before.Goals,
		PaddleHits:  w.Totals.PaddleHits - before.PaddleHits,
		FloorResets: w.Totals.FloorResets - before.FloorResets,
	}
	onTick := e.onTick
	events := w.drain()
	stats.Duration = time.Since(start)

	e.unlockAndDeliver(events)

	if onTick != nil {
		onTick(stats)
	}
}

// unlockAndDeliver releases the world lock and hands events to the sink.
func (e *Engine) unlockAndDeliver(events []Event) {
	sink := e.sink
	e.deliverMu.Lock()
	e.mu.Unlock()
	defer e.deliverMu.Unlock()

	if sink != nil && len(events) > 0 {
		sink.Deliver(events)
	}
}

// =============================================================================
// CONNECTION CALLBACKS
// =============================================================================

// Connect adds a player for a new connection. The welcome state goes to the
// new connection only, the new player to everyone else and the resized
// arena to all.
func (e *Engine) Connect(id string) (Welcome, error) {
	e.mu.Lock()
	w := e.world

	if _, ok := w.Players[id]; ok {
		e.mu.Unlock()
		return Welcome{}, ErrPlayerExists
	}
	if e.maxPlayers > 0 && len(w.Players) >= e.maxPlayers {
		e.mu.Unlock()
		log.Warn("⚠️ Player limit reached, rejecting connection", "id", id, "max", e.maxPlayers)
		return Welcome{}, ErrArenaFull
	}

	p := w.addPlayer(id, e.now())
	w.resizeArena()
	welcome := w.welcome(id)

	events := append([]Event{
		{Name: EventInitialState, Data: welcome, To: id},
		{Name: EventNewPlayer, Data: p.View(), Except: id},
	}, w.drain()...)
	count := len(w.Players)

	e.unlockAndDeliver(events)

	log.Info("👤 Player joined", "id", id, "players", count)
	return welcome, nil
}

// UpdatePaddle merges a reported paddle pose. Unknown ids and poses with
// NaN or infinite coordinates are ignored.
func (e *Engine) UpdatePaddle(id string, u PaddleUpdate) {
	e.mu.Lock()
	p, ok := e.world.updatePaddle(id, u, e.now())
	if !ok {
		e.mu.Unlock()
		return
	}
	e.world.emit(Event{Name: EventPlayerUpdate, Data: p.View()})
	e.unlockAndDeliver(e.world.drain())
}

// SetName stores a display name. Unknown ids are ignored.
func (e *Engine) SetName(id, name string) {
	e.mu.Lock()
	stored, ok := e.world.setName(id, name, e.now())
	if !ok {
		e.mu.Unlock()
		return
	}
	e.world.emit(Event{Name: EventPlayerName, Data: NamePayload{ID: id, Name: stored}})
	e.unlockAndDeliver(e.world.drain())
}

// Disconnect removes every trace of the player before the next tick can run.
func (e *Engine) Disconnect(id string) {
	e.mu.Lock()
	w := e.world
	if !w.removePlayer(id) {
		e.mu.Unlock()
		return
	}
	w.emit(Event{Name: EventPlayerDisconnected, Data: id})
	w.resizeArena()
	count := len(w.Players)
	e.unlockAndDeliver(w.drain())

	log.Info("👋 Player left", "id", id, "players", count)
}

// =============================================================================
// READ ACCESS
// =============================================================================

// GetSnapshot returns the latest immutable snapshot without taking the world lock
func (e *Engine) GetSnapshot() *GameSnapshot {
	return e.snapshots.Latest()
}

// Leaderboard ranks the players of the latest snapshot
func (e *Engine) Leaderboard() []LeaderboardEntry {
	return BuildLeaderboard(e.snapshots.Latest())
}

// TickCount returns the number of completed ticks
func (e *Engine) TickCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickCount
}

// PlayerCount returns the number of connected players
func (e *Engine) PlayerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.world.Players)
}

// StartEventLog initializes the audit log
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog flushes and closes the audit log
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns audit log statistics for monitoring
func (e *Engine) GetEventLogStats() EventLogStats {
	return e.eventLog.Stats()
}
