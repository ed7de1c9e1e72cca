package app

import (
	"sort"

	"live-trivia-service/internal/domain"
)

const (
	totalTopN = 15
	fastTopN  = 5
)

// totalLeaderboard derives the cumulative ranking: score descending, ties
// broken by display name ascending. Recomputed on demand, never cached.
func totalLeaderboard(players map[string]*domain.Player) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, domain.LeaderboardEntry{
			ConnID: p.ConnID,
			Name:   p.Name,
			Score:  p.Score,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// fastCorrectTop ranks the correct answers to question qIndex by latency:
// elapsed ascending, then points descending, then name ascending, capped to n.
func fastCorrectTop(players map[string]*domain.Player, qIndex, n int) []domain.FastEntry {
	entries := make([]domain.FastEntry, 0, len(players))
	for _, p := range players {
		a := p.LastAnswer
		if a != nil && a.QuestionIndex == qIndex && a.Correct {
			entries = append(entries, domain.FastEntry{
				Name:      p.Name,
				ElapsedMs: a.ElapsedMs,
				Points:    a.Points,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ElapsedMs != entries[j].ElapsedMs {
			return entries[i].ElapsedMs < entries[j].ElapsedMs
		}
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// rankOf returns the 1-based position of connID in the full ordering, or 0 if
// absent. Observational only; never persisted.
func rankOf(entries []domain.LeaderboardEntry, connID string) int {
	for i, e := range entries {
		if e.ConnID == connID {
			return i + 1
		}
	}
	return 0
}

func truncate(entries []domain.LeaderboardEntry, n int) []domain.LeaderboardEntry {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}
