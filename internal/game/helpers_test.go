package game

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jafish/Networked-Games-Testbed/internal/config"
)

const eps = 1e-9

// recordingSink collects delivered events for assertions
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Deliver(events []Event) {
	s.mu.Lock()
	s.events = append(s.events, events...)
	s.mu.Unlock()
}

func (s *recordingSink) take() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.events
	s.events = nil
	return out
}

func eventNames(events []Event) []string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Name
	}
	return names
}

func findEvent(events []Event, name string) (Event, bool) {
	for _, ev := range events {
		if ev.Name == name {
			return ev, true
		}
	}
	return Event{}, false
}

func newTestWorld(t testing.TB) *World {
	t.Helper()
	return NewWorld(config.DefaultPhysics(), config.DefaultArena(), 1)
}

// addTestPlayer adds a player and recomputes the arena, as Connect does
func addTestPlayer(w *World, id string) *Player {
	p := w.addPlayer(id, time.Unix(0, 0))
	w.resizeArena()
	return p
}

func newTestEngine(t testing.TB, maxPlayers int) (*Engine, *recordingSink) {
	t.Helper()
	e := NewEngine(EngineConfig{
		Physics:    config.DefaultPhysics(),
		Arena:      config.DefaultArena(),
		MaxPlayers: maxPlayers,
		Seed:       1,
	})
	sink := &recordingSink{}
	e.SetSink(sink)
	return e, sink
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
