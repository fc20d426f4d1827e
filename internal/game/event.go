package game

import (
	"encoding/json"
	"time"
)

// =============================================================================
// OUTBOUND BROADCAST EVENTS
// =============================================================================

// Event is one outbound message produced by the core. The transport layer
// serialises and delivers it; the core never touches connections.
type Event struct {
	Name   string
	Data   interface{}
	To     string // deliver only to this connection when set
	Except string // skip this connection when set
}

// Targets reports whether the event should reach connection id.
func (e Event) Targets(id string) bool {
	if e.To != "" {
		return e.To == id
	}
	return e.Except != id
}

// Event names, shared with the browser client.
const (
	EventInitialState       = "initialState"
	EventNewPlayer          = "newPlayer"
	EventPlayerUpdate       = "playerUpdate"
	EventPlayerName         = "playerName"
	EventPlayerDisconnected = "playerDisconnected"
	EventHostChanged        = "hostChanged"
	EventUpdateBall         = "updateBall"
	EventRallyCount         = "rallyCount"
	EventScores             = "scores"
	EventGoal               = "goal"
	EventGoalPosition       = "goalPosition"
	EventCombos             = "combos"
	EventComboReset         = "comboReset"
	EventPaddleHit          = "paddleHit"
	EventRallyReset         = "rallyReset"
	EventArenaSize          = "arenaSize"
)

// PlayerView is a player as seen by clients.
type PlayerView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"paddleRotation"`
	Score    int     `json:"score"`
	Combo    int     `json:"combo"`
}

// BallView is the ball state pushed every tick.
type BallView struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Radius float64 `json:"radius"`
}

// GoalView locates the goal band.
type GoalView struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	HalfHeight float64 `json:"halfHeight"`
	Depth      float64 `json:"depth"`
}

// ArenaView carries the arena dimensions.
type ArenaView struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Welcome is delivered to a new connection only.
type Welcome struct {
	ID      string         `json:"id"`
	HostID  string         `json:"hostId"`
	Players []PlayerView   `json:"players"`
	Ball    BallView       `json:"ball"`
	Scores  map[string]int `json:"scores"`
	Combos  map[string]int `json:"combos"`
	Goal    GoalView       `json:"goal"`
	Arena   ArenaView      `json:"arena"`
	Rally   int            `json:"rally"`
}

// RallyPayload carries the rally counter.
type RallyPayload struct {
	Count int `json:"count"`
}

// PaddleHitPayload is the sound cue for a counted paddle touch.
type PaddleHitPayload struct {
	PlayerID string `json:"playerId"`
	Rally    int    `json:"rally"`
}

// GoalPayload announces an attributed goal.
type GoalPayload struct {
	PlayerID string `json:"playerId"`
	Points   int    `json:"points"`
	Combo    int    `json:"combo"`
	Score    int    `json:"score"`
}

// NamePayload associates a display name with a player.
type NamePayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ComboResetPayload announces the floor-reset combo decay.
type ComboResetPayload struct {
	FloorHits int `json:"floorHits"`
}

// =============================================================================
// AUDIT EVENTS (event log)
// =============================================================================

// EventType enum for audit record classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypePlayerJoin
	EventTypePlayerLeave
	EventTypePaddleHit
	EventTypeGoal
	EventTypeFloorReset
	EventTypeComboReset
)

// EventVersion for backwards compatibility when reading old logs
const EventVersion uint8 = 1

// Record is one line of the audit log
type Record struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`
	TickNum   uint64    `json:"tickNum"`
	PlayerID  string    `json:"playerId,omitempty"`
	Payload   []byte    `json:"payload"` // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypePlayerJoin:
		return "player_join"
	case EventTypePlayerLeave:
		return "player_leave"
	case EventTypePaddleHit:
		return "paddle_hit"
	case EventTypeGoal:
		return "goal"
	case EventTypeFloorReset:
		return "floor_reset"
	case EventTypeComboReset:
		return "combo_reset"
	default:
		return "unknown"
	}
}

// PlayerJoinPayload records a join
type PlayerJoinPayload struct {
	PlayerID string  `json:"playerId"`
	SpawnX   float64 `json:"spawnX"`
	SpawnY   float64 `json:"spawnY"`
}

// PlayerLeavePayload records a disconnect
type PlayerLeavePayload struct {
	PlayerID string `json:"playerId"`
}

// PaddleHitRecord records a counted paddle touch
type PaddleHitRecord struct {
	PlayerID  string  `json:"playerId"`
	Rally     int     `json:"rally"`
	BallSpeed float64 `json:"ballSpeed"`
}

// GoalRecord records a goal; PlayerID is empty or stale when nothing was awarded
type GoalRecord struct {
	PlayerID string `json:"playerId"`
	Points   int    `json:"points"`
	Combo    int    `json:"combo"`
	Score    int    `json:"score"`
	Rally    int    `json:"rally"`
}

// FloorResetPayload records a floor reset
type FloorResetPayload struct {
	FloorHits int `json:"floorHits"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewRecord creates a new audit record with the current timestamp
func NewRecord(eventType EventType, tickNum uint64, playerID string, payload interface{}) Record {
	return Record{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		PlayerID:  playerID,
		Payload:   EncodePayload(payload),
	}
}
