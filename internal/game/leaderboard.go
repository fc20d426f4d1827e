package game

import "sort"

// LeaderboardEntry represents a player in the leaderboard
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name,omitempty"`
	Score    int    `json:"score"`
	Combo    int    `json:"combo"`
	Host     bool   `json:"host,omitempty"`
}

// BuildLeaderboard ranks the snapshot's players by score (descending), then
// by combo, then by id for a stable order. Equal score and combo share a rank.
func BuildLeaderboard(snap *GameSnapshot) []LeaderboardEntry {
	if snap == nil {
		return []LeaderboardEntry{}
	}

	players := make([]PlayerView, len(snap.Players))
	copy(players, snap.Players)

	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		if players[i].Combo != players[j].Combo {
			return players[i].Combo > players[j].Combo
		}
		return players[i].ID < players[j].ID
	})

	entries := make([]LeaderboardEntry, len(players))
	for i, p := range players {
		rank := i + 1
		if i > 0 && p.Score == players[i-1].Score && p.Combo == players[i-1].Combo {
			rank = entries[i-1].Rank
		}
		entries[i] = LeaderboardEntry{
			Rank:     rank,
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
			Combo:    p.Combo,
			Host:     p.ID == snap.HostID,
		}
	}
	return entries
}
