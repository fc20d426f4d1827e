package game

import (
	"math/rand"
	"sort"
	"time"

	"github.com/jafish/Networked-Games-Testbed/internal/config"
)

// MatchState holds the rally bookkeeping shared by every player.
type MatchState struct {
	Rally       int             // Paddle touches since the last goal or floor reset
	FloorHits   int             // Consecutive floor resets without a paddle touch
	Cooldowns   map[string]bool // Players whose paddle is still inside the contact that was counted
	LastHit     string          // Player who most recently touched the ball, "" when cleared
	GoalCenterY float64
}

// MatchTotals counts notable events since the world was created.
type MatchTotals struct {
	Goals       uint64
	PaddleHits  uint64
	FloorResets uint64
}

// Recorder receives audit records for notable simulation events.
type Recorder interface {
	Record(eventType EventType, playerID string, payload interface{})
}

// World is the single authoritative aggregate: ball, players, match state
// and arena. It is not safe for concurrent use; Engine serialises access.
type World struct {
	physics config.PhysicsConfig
	arena   config.ArenaConfig

	Ball    Ball
	Players map[string]*Player
	ids     []string // sorted player ids, keeps per-tick iteration deterministic
	Match   MatchState
	Totals  MatchTotals
	Width   float64
	HostID  string

	rng      *rand.Rand
	recorder Recorder
	pending  []Event
}

// NewWorld creates an empty arena with the ball at its spawn point.
func NewWorld(physics config.PhysicsConfig, arena config.ArenaConfig, seed int64) *World {
	w := &World{
		physics: physics,
		arena:   arena,
		Players: make(map[string]*Player),
		Match: MatchState{
			Cooldowns: make(map[string]bool),
		},
		rng: rand.New(rand.NewSource(seed)),
	}
	w.Ball = Ball{
		X:      arena.BallSpawnX,
		Y:      arena.BallSpawnY,
		VX:     arena.BallStartVX,
		VY:     arena.BallStartVY,
		Radius: physics.BallRadius,
	}
	w.Width = ArenaWidth(arena, 0)
	w.Match.GoalCenterY = w.randomGoalCenter()
	return w
}

// SetRecorder attaches an audit recorder. nil disables recording.
func (w *World) SetRecorder(r Recorder) {
	w.recorder = r
}

func (w *World) record(eventType EventType, playerID string, payload interface{}) {
	if w.recorder != nil {
		w.recorder.Record(eventType, playerID, payload)
	}
}

func (w *World) emit(ev Event) {
	w.pending = append(w.pending, ev)
}

// drain returns and clears the events produced since the last drain.
func (w *World) drain() []Event {
	if len(w.pending) == 0 {
		return nil
	}
	out := w.pending
	w.pending = nil
	return out
}

// addPlayer creates a player with a randomized spawn x on the ground line.
func (w *World) addPlayer(id string, now time.Time) *Player {
	if p, ok := w.Players[id]; ok {
		return p
	}

	a := w.arena
	p := &Player{
		ID: id,
		Pose: Pose{
			X: a.PlayerSpawnXMin + w.rng.Float64()*(a.PlayerSpawnXMax-a.PlayerSpawnXMin),
			Y: a.PlayerGroundY,
		},
		LastActivity: now,
	}
	w.Players[id] = p

	i := sort.SearchStrings(w.ids, id)
	w.ids = append(w.ids, "")
	copy(w.ids[i+1:], w.ids[i:])
	w.ids[i] = id

	if w.HostID == "" {
		w.HostID = id
		w.emit(Event{Name: EventHostChanged, Data: id})
	}

	w.record(EventTypePlayerJoin, id, PlayerJoinPayload{PlayerID: id, SpawnX: p.Pose.X, SpawnY: p.Pose.Y})
	return p
}

// removePlayer drops every trace of the player. Returns false for unknown ids.
func (w *World) removePlayer(id string) bool {
	if _, ok := w.Players[id]; !ok {
		return false
	}
	delete(w.Players, id)
	delete(w.Match.Cooldowns, id)

	if i := sort.SearchStrings(w.ids, id); i < len(w.ids) && w.ids[i] == id {
		w.ids = append(w.ids[:i], w.ids[i+1:]...)
	}

	// The attribution is left in place: a goal credited to a vanished id is ignored.
	if w.HostID == id {
		w.HostID = ""
		if len(w.ids) > 0 {
			w.HostID = w.ids[0]
		}
		w.emit(Event{Name: EventHostChanged, Data: w.HostID})
	}

	w.record(EventTypePlayerLeave, id, PlayerLeavePayload{PlayerID: id})
	return true
}

// updatePaddle merges a reported pose into the player and its history.
// Non-finite poses are dropped.
func (w *World) updatePaddle(id string, u PaddleUpdate, now time.Time) (*Player, bool) {
	p, ok := w.Players[id]
	if !ok || !u.Finite() {
		return nil, false
	}

	at := now
	if u.Timestamp > 0 {
		at = time.UnixMilli(u.Timestamp)
	}

	p.Pose = Pose{X: u.X, Y: u.Y, Rotation: u.Rotation}
	p.LastActivity = now
	p.History.Push(PoseSample{Pose: p.Pose, At: at})
	return p, true
}

// setName stores a display name truncated to the configured rune count.
func (w *World) setName(id, name string, now time.Time) (string, bool) {
	p, ok := w.Players[id]
	if !ok {
		return "", false
	}
	if r := []rune(name); len(r) > w.arena.MaxNameLength {
		name = string(r[:w.arena.MaxNameLength])
	}
	p.Name = name
	p.LastActivity = now
	return name, true
}

// clearAttribution forgets who touched the ball last and resets every cooldown.
func (w *World) clearAttribution() {
	w.Match.LastHit = ""
	for id := range w.Match.Cooldowns {
		delete(w.Match.Cooldowns, id)
	}
}

// resetRally zeroes the rally counter and cues clients.
func (w *World) resetRally() {
	w.Match.Rally = 0
	w.emit(Event{Name: EventRallyReset, Data: RallyPayload{Count: 0}})
}

// scores returns a copy of every player's score keyed by id.
func (w *World) scores() map[string]int {
	out := make(map[string]int, len(w.Players))
	for id, p := range w.Players {
		out[id] = p.Score
	}
	return out
}

// combos returns a copy of every player's combo keyed by id.
func (w *World) combos() map[string]int {
	out := make(map[string]int, len(w.Players))
	for id, p := range w.Players {
		out[id] = p.Combo
	}
	return out
}

func (w *World) goalView() GoalView {
	return GoalView{
		X:          GoalX(w.arena, w.Width),
		Y:          w.Match.GoalCenterY,
		HalfHeight: w.arena.GoalHalfHeight,
		Depth:      w.arena.GoalDepth,
	}
}

func (w *World) arenaView() ArenaView {
	return ArenaView{Width: w.Width, Height: w.arena.Height}
}

// welcome builds the initial state delivered to a newly connected client.
func (w *World) welcome(id string) Welcome {
	players := make([]PlayerView, 0, len(w.ids))
	for _, pid := range w.ids {
		players = append(players, w.Players[pid].View())
	}
	return Welcome{
		ID:      id,
		HostID:  w.HostID,
		Players: players,
		Ball:    w.Ball.View(),
		Scores:  w.scores(),
		Combos:  w.combos(),
		Goal:    w.goalView(),
		Arena:   w.arenaView(),
		Rally:   w.Match.Rally,
	}
}
