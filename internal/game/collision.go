package game

import (
	"math"
	"time"

	"github.com/jafish/Networked-Games-Testbed/internal/config"
)

// collidePaddle tests the ball against one paddle pose and, on overlap,
// applies the contact response in place. Returns whether they overlapped.
//
// The ball is moved into the paddle's rotated frame and tested as a box of
// side 2r (plus margin) against the paddle rectangle. The response acts
// only along the contact normal: an approaching ball has its normal
// velocity reflected and scaled by the restitution, a separating one gets
// a small nudge. The ball is then pushed out along the normal by the
// local-Y penetration plus a buffer.
func collidePaddle(b *Ball, pose Pose, p config.PhysicsConfig) bool {
	cx := pose.X
	cy := pose.Y - p.PaddleOffset

	cos, sin := math.Cos(pose.Rotation), math.Sin(pose.Rotation)
	dx, dy := b.X-cx, b.Y-cy
	localX := dx*cos + dy*sin
	localY := -dx*sin + dy*cos

	halfW := p.PaddleWidth / 2
	halfH := p.PaddleHeight / 2
	reach := b.Radius + p.CollisionMargin

	if math.Abs(localX) > halfW+reach || math.Abs(localY) > halfH+reach {
		return false
	}

	// Paddle face normal: local up rotated into the world, flipped when the
	// ball sits on the underside.
	nx, ny := sin, -cos
	if localY > 0 {
		nx, ny = -nx, -ny
	}

	dot := b.VX*nx + b.VY*ny
	if dot < 0 {
		j := -(1 + p.Restitution) * dot
		b.VX += j * nx
		b.VY += j * ny
	} else {
		b.VX += p.Nudge * nx
		b.VY += p.Nudge * ny
	}

	if overlap := halfH + b.Radius - math.Abs(localY); overlap > 0 {
		push := overlap + p.PushBuffer
		b.X += nx * push
		b.Y += ny * push
	}

	return true
}

// resolvePaddles runs the collision test for every player in id order.
func (w *World) resolvePaddles(now time.Time) {
	for _, id := range w.ids {
		w.resolvePaddle(w.Players[id], now)
	}
}

// resolvePaddle collides the ball with one player's paddle and counts the
// hit once per continuous contact.
func (w *World) resolvePaddle(p *Player, now time.Time) {
	if p == nil {
		return
	}

	pose := p.History.Interpolated(p.Pose, now)
	if !collidePaddle(&w.Ball, pose, w.physics) {
		delete(w.Match.Cooldowns, p.ID)
		return
	}

	if w.Match.Cooldowns[p.ID] {
		return
	}
	w.Match.Cooldowns[p.ID] = true
	w.registerHit(p.ID)
}

// registerHit attributes a counted paddle touch.
func (w *World) registerHit(id string) {
	w.Match.Rally++
	w.Match.LastHit = id
	w.Match.FloorHits = 0
	w.Totals.PaddleHits++

	w.emit(Event{Name: EventPaddleHit, Data: PaddleHitPayload{PlayerID: id, Rally: w.Match.Rally}})
	w.record(EventTypePaddleHit, id, PaddleHitRecord{PlayerID: id, Rally: w.Match.Rally, BallSpeed: w.Ball.Speed()})
}
