package game

import "github.com/jafish/Networked-Games-Testbed/internal/config"

// ArenaWidth is a pure function of the player count.
func ArenaWidth(a config.ArenaConfig, players int) float64 {
	return a.MinWidth + a.WidthPerPlayer*float64(players)
}

// GoalX anchors the goal a fixed inset from the current right edge.
func GoalX(a config.ArenaConfig, width float64) float64 {
	return width - a.GoalInset
}

// resizeArena recomputes the width from the live player count and emits
// an arenaSize event when it changed.
func (w *World) resizeArena() bool {
	width := ArenaWidth(w.arena, len(w.Players))
	if width == w.Width {
		return false
	}
	w.Width = width
	w.emit(Event{Name: EventArenaSize, Data: w.arenaView()})
	return true
}
