package game

import (
	"testing"
)

func TestClampSpeed(t *testing.T) {
	tests := []struct {
		name   string
		vx, vy float64
		max    float64
		wantVX float64
		wantVY float64
	}{
		{"below cap untouched", 3, 4, 18, 3, 4},
		{"at cap untouched", 6, 8, 10, 6, 8},
		{"above cap scaled uniformly", 30, 40, 10, 6, 8},
		{"negative components keep sign", -30, 40, 10, -6, 8},
		{"zero velocity", 0, 0, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Ball{VX: tt.vx, VY: tt.vy}
			clampSpeed(&b, tt.max)
			if !almostEqual(b.VX, tt.wantVX) || !almostEqual(b.VY, tt.wantVY) {
				t.Errorf("clampSpeed(%v,%v) = (%v,%v), want (%v,%v)", tt.vx, tt.vy, b.VX, b.VY, tt.wantVX, tt.wantVY)
			}
		})
	}
}

// TestSpeedNeverExceedsCap drives the integrator from absurd velocities
func TestSpeedNeverExceedsCap(t *testing.T) {
	starts := [][2]float64{{100, -100}, {-250, 0}, {0, -400}, {17, -17}}

	for _, v := range starts {
		w := newTestWorld(t)
		w.Ball.VX, w.Ball.VY = v[0], v[1]
		limit := w.physics.MaxSpeed

		for i := 0; i < 6*600; i++ {
			w.integrateSubStep()
			if s := w.Ball.Speed(); s > limit+eps {
				t.Fatalf("start %v: sub-step %d speed %v exceeds cap %v", v, i, s, limit)
			}
		}
	}
}

func TestGravityAndDragPerSubStep(t *testing.T) {
	w := newTestWorld(t)
	w.Ball.place(300, 300, 0, 0)

	w.integrateSubStep()

	p := w.physics
	wantVY := p.Gravity / float64(p.SubSteps) * p.Drag
	if !almostEqual(w.Ball.VY, wantVY) {
		t.Errorf("VY = %v, want %v", w.Ball.VY, wantVY)
	}
	wantY := 300 + p.Gravity/float64(p.SubSteps)/float64(p.SubSteps)
	if !almostEqual(w.Ball.Y, wantY) {
		t.Errorf("Y = %v, want %v", w.Ball.Y, wantY)
	}
}

func TestWallReflection(t *testing.T) {
	tests := []struct {
		name           string
		x, y, vx, vy   float64
		wantX, wantY   float64
		wantVXPositive bool
	}{
		{"left wall", 5, 300, -4, 0, 10, -1, true},
		{"right wall", 595, 300, 6, 0, 590, -1, false},
		{"ceiling", 300, 5, 0, -6, -1, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t)
			w.Ball.place(tt.x, tt.y, tt.vx, tt.vy)
			before := w.Ball

			w.integrateSubStep()

			if tt.wantX >= 0 && !almostEqual(w.Ball.X, tt.wantX) {
				t.Errorf("X = %v, want clamped to %v", w.Ball.X, tt.wantX)
			}
			if tt.wantY >= 0 && !almostEqual(w.Ball.Y, tt.wantY) {
				t.Errorf("Y = %v, want clamped to %v", w.Ball.Y, tt.wantY)
			}
			if tt.vx != 0 {
				if (w.Ball.VX > 0) != tt.wantVXPositive {
					t.Errorf("VX = %v, want reflected", w.Ball.VX)
				}
				if abs(w.Ball.VX) >= abs(before.VX) {
					t.Errorf("|VX| = %v, want energy lost from %v", abs(w.Ball.VX), abs(before.VX))
				}
			}
			if tt.vy < 0 && w.Ball.VY <= 0 {
				t.Errorf("VY = %v, want reflected downward", w.Ball.VY)
			}
		})
	}
}

func TestFloorResetClearsAttribution(t *testing.T) {
	w := newTestWorld(t)
	addTestPlayer(w, "p1")
	w.Match.LastHit = "p1"
	w.Match.Cooldowns["p1"] = true
	w.Match.Rally = 3
	w.Ball.place(400, 595, 0, 5)

	w.integrateSubStep()

	a := w.arena
	if w.Ball.X != a.BallSpawnX || w.Ball.Y != a.BallSpawnY {
		t.Errorf("ball at (%v,%v), want spawn (%v,%v)", w.Ball.X, w.Ball.Y, a.BallSpawnX, a.BallSpawnY)
	}
	if w.Ball.VX != a.BallStartVX || w.Ball.VY != a.BallStartVY {
		t.Errorf("ball velocity (%v,%v), want (%v,%v)", w.Ball.VX, w.Ball.VY, a.BallStartVX, a.BallStartVY)
	}
	if w.Match.LastHit != "" {
		t.Errorf("LastHit = %q, want cleared", w.Match.LastHit)
	}
	if len(w.Match.Cooldowns) != 0 {
		t.Errorf("Cooldowns = %v, want empty", w.Match.Cooldowns)
	}
	if w.Match.FloorHits != 1 {
		t.Errorf("FloorHits = %d, want 1", w.Match.FloorHits)
	}
	if w.Match.Rally != 0 {
		t.Errorf("Rally = %d, want 0", w.Match.Rally)
	}
	if _, ok := findEvent(w.drain(), EventRallyReset); !ok {
		t.Error("expected rallyReset event")
	}
}

func TestFloorDecayOnFifthReset(t *testing.T) {
	w := newTestWorld(t)
	p1 := addTestPlayer(w, "p1")
	p2 := addTestPlayer(w, "p2")
	p1.Combo, p2.Combo = 3, 1

	for i := 1; i <= 4; i++ {
		w.floorReset()
		if p1.Combo != 3 || p2.Combo != 1 {
			t.Fatalf("combos decayed after %d floor resets", i)
		}
	}
	w.drain()

	w.floorReset()
	if p1.Combo != 0 || p2.Combo != 0 {
		t.Errorf("combos = (%d,%d) after 5 floor resets, want zeroed", p1.Combo, p2.Combo)
	}
	if _, ok := findEvent(w.drain(), EventComboReset); !ok {
		t.Error("expected comboReset event")
	}
}

func TestFloorDecayInterruptedByHit(t *testing.T) {
	w := newTestWorld(t)
	p1 := addTestPlayer(w, "p1")
	p1.Combo = 2

	for i := 0; i < 4; i++ {
		w.floorReset()
	}
	w.registerHit("p1")
	if w.Match.FloorHits != 0 {
		t.Fatalf("FloorHits = %d after hit, want 0", w.Match.FloorHits)
	}

	w.floorReset()
	if p1.Combo != 2 {
		t.Fatalf("combo = %d, decay must not trigger after 4 resets + hit + 1 reset", p1.Combo)
	}

	for i := 0; i < 4; i++ {
		w.floorReset()
	}
	if p1.Combo != 0 {
		t.Errorf("combo = %d, want decay after 5 consecutive resets", p1.Combo)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
