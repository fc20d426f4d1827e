package game

import (
	"sync"
	"testing"
	"time"
)

func TestSnapshotStoreSequence(t *testing.T) {
	s := NewSnapshotStore()
	if s.Latest() != nil {
		t.Fatal("empty store should return nil")
	}

	for i := uint64(1); i <= 3; i++ {
		s.Publish(&GameSnapshot{TickNumber: i})
		got := s.Latest()
		if got.Sequence != i || got.TickNumber != i {
			t.Errorf("publish %d: got seq=%d tick=%d", i, got.Sequence, got.TickNumber)
		}
	}
}

// Snapshots are copies: later world changes must not leak into them.
func TestSnapshotIsolation(t *testing.T) {
	w := newTestWorld(t)
	p := addTestPlayer(w, "p1")
	p.Score = 1

	snap := w.snapshot(1, time.Now())
	p.Score = 99
	w.Ball.X = -50

	if snap.Players[0].Score != 1 {
		t.Errorf("snapshot score = %d, want 1", snap.Players[0].Score)
	}
	if snap.Ball.X == -50 {
		t.Error("snapshot ball aliased to the world")
	}
}

func TestSnapshotConcurrentReaders(t *testing.T) {
	e, _ := newTestEngine(t, 0)
	e.Connect("p1")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := e.GetSnapshot()
				if snap.Sequence < last {
					t.Errorf("sequence went backwards: %d < %d", snap.Sequence, last)
					return
				}
				last = snap.Sequence
			}
		}()
	}

	for i := 0; i < 200; i++ {
		e.Step(time.Now())
	}
	close(stop)
	wg.Wait()
}

func TestBuildLeaderboardNil(t *testing.T) {
	if got := BuildLeaderboard(nil); got == nil || len(got) != 0 {
		t.Errorf("BuildLeaderboard(nil) = %v, want empty slice", got)
	}
}
