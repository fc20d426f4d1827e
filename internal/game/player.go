package game

import (
	"math"
	"time"
)

// Pose is a paddle pose as reported by its client: the anchor point and
// the paddle rotation in radians.
type Pose struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"paddleRotation"`
}

// PaddleUpdate is an inbound paddle report. Timestamp is the client's
// unix time in milliseconds; zero means "use the server clock".
type PaddleUpdate struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"paddleRotation"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// Finite reports whether every coordinate is a real number. A NaN or
// infinite pose would poison the ball through the collision response.
func (u PaddleUpdate) Finite() bool {
	for _, v := range [...]float64{u.X, u.Y, u.Rotation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Player is the engine's authoritative record of one connection.
// Inbound updates merge into it; they never replace it.
type Player struct {
	ID           string
	Name         string
	Pose         Pose
	Score        int
	Combo        int
	LastActivity time.Time // tracked, not enforced
	History      PoseHistory
}

// View returns the wire representation of the player.
func (p *Player) View() PlayerView {
	return PlayerView{
		ID:       p.ID,
		Name:     p.Name,
		X:        p.Pose.X,
		Y:        p.Pose.Y,
		Rotation: p.Pose.Rotation,
		Score:    p.Score,
		Combo:    p.Combo,
	}
}
