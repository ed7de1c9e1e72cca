package app

import (
	"fmt"
	"testing"

	"live-trivia-service/internal/domain"
)

func TestTotalLeaderboardOrderingAndCap(t *testing.T) {
	players := make(map[string]*domain.Player)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("conn-%02d", i)
		players[id] = &domain.Player{ConnID: id, Name: fmt.Sprintf("p%02d", i), Score: i * 10}
	}

	entries := totalLeaderboard(players)
	if len(entries) != 20 {
		t.Fatalf("expected all players ranked, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Score > entries[i-1].Score {
			t.Fatalf("not sorted by score at %d: %+v", i, entries[i-1:i+1])
		}
	}
	if entries[0].Name != "p19" {
		t.Fatalf("expected highest scorer first, got %+v", entries[0])
	}

	capped := truncate(entries, totalTopN)
	if len(capped) != totalTopN {
		t.Fatalf("expected cap at %d, got %d", totalTopN, len(capped))
	}
}

func TestFastCorrectTopFiltersAndCaps(t *testing.T) {
	players := make(map[string]*domain.Player)
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("conn-%d", i)
		players[id] = &domain.Player{
			ConnID: id,
			Name:   fmt.Sprintf("p%d", i),
			LastAnswer: &domain.AnswerRecord{
				QuestionIndex: 3,
				ElapsedMs:     int64(1000 - i*100),
				Correct:       i%2 == 0,
				Points:        500,
			},
		}
	}
	// Answer for a different question must be ignored.
	players["stale"] = &domain.Player{
		ConnID:     "stale",
		Name:       "stale",
		LastAnswer: &domain.AnswerRecord{QuestionIndex: 2, ElapsedMs: 1, Correct: true, Points: 999},
	}
	// No answer at all.
	players["idle"] = &domain.Player{ConnID: "idle", Name: "idle"}

	entries := fastCorrectTop(players, 3, fastTopN)
	if len(entries) != 4 {
		t.Fatalf("expected the 4 correct answers for question 3, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].ElapsedMs < entries[i-1].ElapsedMs {
			t.Fatalf("not sorted by latency at %d: %+v", i, entries[i-1:i+1])
		}
	}
}

func TestRankOf(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		{ConnID: "a", Name: "A", Score: 30},
		{ConnID: "b", Name: "B", Score: 20},
		{ConnID: "c", Name: "C", Score: 10},
	}
	if got := rankOf(entries, "b"); got != 2 {
		t.Fatalf("rank of b: %d", got)
	}
	if got := rankOf(entries, "missing"); got != 0 {
		t.Fatalf("rank of missing: %d", got)
	}
}
