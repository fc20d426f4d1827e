package game

import (
	"sync/atomic"
	"time"
)

// PaddleGeometry describes the paddle rectangle shared by every player.
type PaddleGeometry struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Offset float64 `json:"offset"`
}

// GameSnapshot is an immutable copy of the world taken at the end of a tick.
// Readers outside the simulation (HTTP handlers, the preview renderer) only
// ever see snapshots, never the live world.
type GameSnapshot struct {
	Sequence   uint64    `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
	TickNumber uint64    `json:"tick"`

	Ball    BallView       `json:"ball"`
	Players []PlayerView   `json:"players"` // sorted by id
	Goal    GoalView       `json:"goal"`
	Arena   ArenaView      `json:"arena"`
	Paddle  PaddleGeometry `json:"paddle"`

	HostID    string `json:"hostId"`
	LastHit   string `json:"lastHit"`
	Rally     int    `json:"rally"`
	FloorHits int    `json:"floorHits"`
}

// SnapshotStore publishes the latest snapshot for lock-free readers.
// Each publish swaps in a freshly built value so readers never observe a
// snapshot being rewritten.
type SnapshotStore struct {
	current  atomic.Pointer[GameSnapshot]
	sequence atomic.Uint64
}

// NewSnapshotStore creates an empty store
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Publish stamps the snapshot with the next sequence number and makes it current
func (s *SnapshotStore) Publish(snap *GameSnapshot) {
	snap.Sequence = s.sequence.Add(1)
	s.current.Store(snap)
}

// Latest returns the most recent snapshot, or nil before the first publish
func (s *SnapshotStore) Latest() *GameSnapshot {
	return s.current.Load()
}

// snapshot copies the world into a new GameSnapshot
func (w *World) snapshot(tick uint64, now time.Time) *GameSnapshot {
	players := make([]PlayerView, 0, len(w.ids))
	for _, id := range w.ids {
		players = append(players, w.Players[id].View())
	}
	return &GameSnapshot{
		Timestamp:  now,
		TickNumber: tick,
		Ball:       w.Ball.View(),
		Players:    players,
		Goal:       w.goalView(),
		Arena:      w.arenaView(),
		Paddle: PaddleGeometry{
			Width:  w.physics.PaddleWidth,
			Height: w.physics.PaddleHeight,
			Offset: w.physics.PaddleOffset,
		},
		HostID:    w.HostID,
		LastHit:   w.Match.LastHit,
		Rally:     w.Match.Rally,
		FloorHits: w.Match.FloorHits,
	}
}
