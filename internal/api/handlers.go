package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"tick":   h.engine.TickCount(),
	})
}

// handleGetState serves the latest snapshot as-is
func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.GetSnapshot()
	if snap == nil {
		writeError(w, "Game not started", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"tick":        h.engine.TickCount(),
		"playerCount": h.engine.PlayerCount(),
		"eventLog":    h.engine.GetEventLogStats(),
	}
	if h.clients != nil {
		stats["connections"] = h.clients.ClientCount()
	}
	if snap := h.engine.GetSnapshot(); snap != nil {
		stats["rally"] = snap.Rally
		stats["floorHits"] = snap.FloorHits
		stats["arenaWidth"] = snap.Arena.Width
		stats["hostId"] = snap.HostID
	}
	writeJSON(w, stats)
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	board := h.engine.Leaderboard()
	if len(board) > limit {
		board = board[:limit]
	}
	writeJSON(w, board)
}

func (h *routerHandlers) handlePreview(w http.ResponseWriter, r *http.Request) {
	img, err := h.preview.PNG()
	if err != nil {
		log.Warn("Preview render failed", "err", err)
		writeError(w, "Preview unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
