package game

import "math"

// inGoal reports whether the ball sits inside the scoring band: a strip just
// inside the right edge, limited vertically by the current goal band.
func (w *World) inGoal() bool {
	a := w.arena
	gx := GoalX(a, w.Width)
	if w.Ball.X < gx-a.GoalDepth {
		return false
	}
	return math.Abs(w.Ball.Y-w.Match.GoalCenterY) <= a.GoalHalfHeight
}

// checkGoal scores, respawns and moves the goal when the ball is in the band.
// A goal attributed to a player that no longer exists awards nothing.
func (w *World) checkGoal() bool {
	if !w.inGoal() {
		return false
	}

	w.Totals.Goals++
	scorer := w.Match.LastHit
	if p, ok := w.Players[scorer]; ok && scorer != "" {
		p.Combo++
		points := 1 + p.Combo
		p.Score += points

		w.emit(Event{Name: EventGoal, Data: GoalPayload{PlayerID: scorer, Points: points, Combo: p.Combo, Score: p.Score}})
		w.record(EventTypeGoal, scorer, GoalRecord{PlayerID: scorer, Points: points, Combo: p.Combo, Score: p.Score, Rally: w.Match.Rally})
	} else {
		w.record(EventTypeGoal, "", GoalRecord{PlayerID: scorer, Rally: w.Match.Rally})
	}

	w.respawnAfterGoal()
	w.clearAttribution()
	w.Match.GoalCenterY = w.randomGoalCenter()
	w.resetRally()

	w.emit(Event{Name: EventGoalPosition, Data: w.goalView()})
	w.emit(Event{Name: EventCombos, Data: w.combos()})
	w.emit(Event{Name: EventScores, Data: w.scores()})
	return true
}

// respawnAfterGoal puts the ball on its spawn point with a random velocity.
func (w *World) respawnAfterGoal() {
	a := w.arena
	speed := a.RespawnSpeedMin + w.rng.Float64()*(a.RespawnSpeedMax-a.RespawnSpeedMin)
	angle := a.RespawnAngleMin + w.rng.Float64()*(a.RespawnAngleMax-a.RespawnAngleMin)
	w.Ball.place(a.BallSpawnX, a.BallSpawnY, speed*math.Cos(angle), speed*math.Sin(angle))
}

func (w *World) randomGoalCenter() float64 {
	a := w.arena
	return a.GoalCenterMin + w.rng.Float64()*(a.GoalCenterMax-a.GoalCenterMin)
}

// decayCombos zeroes every player's combo.
func (w *World) decayCombos() {
	for _, p := range w.Players {
		p.Combo = 0
	}
	w.emit(Event{Name: EventCombos, Data: w.combos()})
	w.emit(Event{Name: EventComboReset, Data: ComboResetPayload{FloorHits: w.Match.FloorHits}})
	w.record(EventTypeComboReset, "", ComboResetPayload{FloorHits: w.Match.FloorHits})
}
