package game

import "math"

// Ball is the server-owned ball. Only the simulation tick mutates it.
type Ball struct {
	X, Y   float64
	VX, VY float64
	Radius float64
}

// Speed returns the velocity magnitude.
func (b *Ball) Speed() float64 {
	return math.Sqrt(b.VX*b.VX + b.VY*b.VY)
}

// View returns the wire representation.
func (b *Ball) View() BallView {
	return BallView{X: b.X, Y: b.Y, VX: b.VX, VY: b.VY, Radius: b.Radius}
}

func (b *Ball) place(x, y, vx, vy float64) {
	b.X, b.Y = x, y
	b.VX, b.VY = vx, vy
}

// clampSpeed scales the velocity down uniformly when it exceeds max.
func clampSpeed(b *Ball, max float64) {
	sq := b.VX*b.VX + b.VY*b.VY
	if sq <= max*max {
		return
	}
	s := max / math.Sqrt(sq)
	b.VX *= s
	b.VY *= s
}

// integrateSubStep advances the ball by one of the frame's sub-steps:
// gravity, motion, wall bounces, drag, speed cap, then the floor rule.
func (w *World) integrateSubStep() {
	p := w.physics
	b := &w.Ball
	n := float64(p.SubSteps)

	b.VY += p.Gravity / n
	b.X += b.VX / n
	b.Y += b.VY / n

	w.reflectWalls()

	b.VX *= p.Drag
	b.VY *= p.Drag

	clampSpeed(b, p.MaxSpeed)

	if b.Y+b.Radius > w.arena.Height {
		w.floorReset()
	}
}

// reflectWalls bounces the ball off the left, right and top edges,
// losing energy on each bounce.
func (w *World) reflectWalls() {
	b := &w.Ball
	damp := w.physics.WallDamping

	if b.X-b.Radius < 0 {
		b.X = b.Radius
		b.VX = math.Abs(b.VX) * damp
	} else if b.X+b.Radius > w.Width {
		b.X = w.Width - b.Radius
		b.VX = -math.Abs(b.VX) * damp
	}

	if b.Y-b.Radius < 0 {
		b.Y = b.Radius
		b.VY = math.Abs(b.VY) * damp
	}
}

// floorReset respawns the ball after it crossed the bottom edge.
// Every Nth consecutive reset without a paddle touch decays all combos.
func (w *World) floorReset() {
	a := w.arena
	w.Ball.place(a.BallSpawnX, a.BallSpawnY, a.BallStartVX, a.BallStartVY)
	w.clearAttribution()
	w.Match.FloorHits++
	w.Totals.FloorResets++
	w.resetRally()

	w.record(EventTypeFloorReset, "", FloorResetPayload{FloorHits: w.Match.FloorHits})

	if w.Match.FloorHits%a.ComboDecayFloorHits == 0 {
		w.decayCombos()
	}
}
