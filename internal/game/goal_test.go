package game

import (
	"testing"
)

// putInGoal places the ball in the middle of the current scoring band
func putInGoal(w *World) {
	gx := GoalX(w.arena, w.Width)
	w.Ball.place(gx-w.arena.GoalDepth/2, w.Match.GoalCenterY, 4, 0)
}

func TestInGoal(t *testing.T) {
	w := newTestWorld(t)
	addTestPlayer(w, "p1") // width 800, goal x 780, band x >= 750
	w.Match.GoalCenterY = 300

	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{"band centre", 770, 300, true},
		{"band left edge", 750, 300, true},
		{"left of band", 749, 300, false},
		{"top edge inclusive", 770, 250, true},
		{"above band", 770, 249, false},
		{"below band", 770, 351, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w.Ball.place(tt.x, tt.y, 0, 0)
			if got := w.inGoal(); got != tt.want {
				t.Errorf("inGoal at (%v,%v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestGoalAwardsComboPoints(t *testing.T) {
	w := newTestWorld(t)
	p1 := addTestPlayer(w, "p1")
	a := w.arena

	w.Match.LastHit = "p1"
	w.Match.Cooldowns["p1"] = true
	w.Match.Rally = 4
	putInGoal(w)
	w.drain()

	if !w.checkGoal() {
		t.Fatal("expected a goal")
	}

	if p1.Combo != 1 || p1.Score != 2 {
		t.Errorf("combo=%d score=%d, want 1 and 2", p1.Combo, p1.Score)
	}
	if w.Ball.X != a.BallSpawnX || w.Ball.Y != a.BallSpawnY {
		t.Errorf("ball at (%v,%v), want spawn", w.Ball.X, w.Ball.Y)
	}
	if s := w.Ball.Speed(); s < a.RespawnSpeedMin-eps || s > a.RespawnSpeedMax+eps {
		t.Errorf("respawn speed %v outside [%v,%v]", s, a.RespawnSpeedMin, a.RespawnSpeedMax)
	}
	if c := w.Match.GoalCenterY; c < a.GoalCenterMin || c > a.GoalCenterMax {
		t.Errorf("goal centre %v outside [%v,%v]", c, a.GoalCenterMin, a.GoalCenterMax)
	}
	if w.Match.LastHit != "" || len(w.Match.Cooldowns) != 0 || w.Match.Rally != 0 {
		t.Errorf("match state not reset: %+v", w.Match)
	}

	names := eventNames(w.drain())
	for _, want := range []string{EventGoal, EventRallyReset, EventGoalPosition, EventCombos, EventScores} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing %q in %v", want, names)
		}
	}
}

// Consecutive goals by the same player score 2, 3, 4...
func TestGoalPointsIncreaseWithCombo(t *testing.T) {
	w := newTestWorld(t)
	p1 := addTestPlayer(w, "p1")

	wantScore := 0
	for k := 1; k <= 5; k++ {
		w.Match.LastHit = "p1"
		putInGoal(w)
		w.drain()

		w.checkGoal()

		wantScore += 1 + k
		if p1.Combo != k || p1.Score != wantScore {
			t.Fatalf("goal %d: combo=%d score=%d, want %d and %d", k, p1.Combo, p1.Score, k, wantScore)
		}
		ev, _ := findEvent(w.drain(), EventGoal)
		if got := ev.Data.(GoalPayload).Points; got != 1+k {
			t.Fatalf("goal %d: points = %d, want %d", k, got, 1+k)
		}
	}
}

func TestGoalWithoutAttributionAwardsNothing(t *testing.T) {
	w := newTestWorld(t)
	p1 := addTestPlayer(w, "p1")
	putInGoal(w)
	w.drain()

	if !w.checkGoal() {
		t.Fatal("expected the ball to be respawned")
	}
	if p1.Score != 0 || p1.Combo != 0 {
		t.Errorf("score=%d combo=%d, want untouched", p1.Score, p1.Combo)
	}
	if _, ok := findEvent(w.drain(), EventGoal); ok {
		t.Error("unattributed goal must not emit a goal event")
	}
}

// The last hitter disconnects mid-rally, then the ball goes in.
func TestGoalCreditedToVanishedPlayer(t *testing.T) {
	w := newTestWorld(t)
	addTestPlayer(w, "p1")
	p2 := addTestPlayer(w, "p2")
	w.Match.LastHit = "p1"

	w.removePlayer("p1")
	w.resizeArena()
	putInGoal(w)
	w.drain()

	if !w.checkGoal() {
		t.Fatal("expected a goal")
	}
	if _, ok := w.Players["p1"]; ok {
		t.Fatal("vanished player reappeared")
	}
	if _, ok := w.scores()["p1"]; ok {
		t.Error("vanished player must not get a score entry")
	}
	if p2.Score != 0 {
		t.Errorf("p2 score = %d, want 0", p2.Score)
	}
	if w.Match.LastHit != "" {
		t.Errorf("LastHit = %q, want cleared", w.Match.LastHit)
	}
}

func TestNoGoalOutsideBand(t *testing.T) {
	w := newTestWorld(t)
	addTestPlayer(w, "p1")
	w.Match.GoalCenterY = 300
	w.Match.LastHit = "p1"
	w.Ball.place(770, 420, 0, 0)

	if w.checkGoal() {
		t.Error("ball outside the goal band scored")
	}
	if w.Match.LastHit != "p1" {
		t.Error("attribution must survive a miss")
	}
}
