package domain

import "fmt"

// Question is a single multiple-choice question. Questions carry no ID of
// their own; they are identified by their position in the catalog.
type Question struct {
	Text         string   `json:"text" yaml:"text"`
	Choices      []string `json:"choices" yaml:"choices"`
	CorrectIndex int      `json:"correctIndex" yaml:"correctIndex"`
	TimeLimitSec int      `json:"timeLimitSec" yaml:"timeLimitSec"`
}

// Catalog is the ordered question list a service instance runs with.
// It is loaded once at startup and read-only afterwards.
type Catalog struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Validate checks the structural invariants every question must satisfy.
func (c Catalog) Validate() error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("catalog %q: no questions", c.ID)
	}
	for i, q := range c.Questions {
		if q.Text == "" {
			return fmt.Errorf("catalog %q: question %d has empty text", c.ID, i)
		}
		if len(q.Choices) < 2 {
			return fmt.Errorf("catalog %q: question %d needs at least 2 choices", c.ID, i)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
			return fmt.Errorf("catalog %q: question %d correct index %d out of range", c.ID, i, q.CorrectIndex)
		}
		if q.TimeLimitSec <= 0 {
			return fmt.Errorf("catalog %q: question %d has non-positive time limit", c.ID, i)
		}
	}
	return nil
}

// AnswerRecord is a participant's single accepted answer for one question.
// ElapsedMs is stored as measured, even past the nominal limit; the scoring
// formula caps it when computing points.
type AnswerRecord struct {
	QuestionIndex int
	ChoiceIndex   int
	ElapsedMs     int64
	Correct       bool
	Points        int
}

// Player is a room participant, keyed by the connection that joined it.
type Player struct {
	ConnID     string
	Name       string
	Score      int
	LastAnswer *AnswerRecord
}

// RoomState is the public room snapshot broadcast on every state change.
type RoomState struct {
	Code    string `json:"code"`
	Started bool   `json:"started"`
	Ended   bool   `json:"ended"`
	QIndex  int    `json:"qIndex"`
	Total   int    `json:"total"`
}

// QuestionStart announces a question cycle. StartedAtMs is the absolute wall
// clock time the answer window opens, so clients self-synchronize against it
// instead of a relative countdown.
type QuestionStart struct {
	QIndex       int      `json:"qIndex"`
	Total        int      `json:"total"`
	Text         string   `json:"text"`
	Choices      []string `json:"choices"`
	TimeLimitSec int      `json:"timeLimitSec"`
	StartedAtMs  int64    `json:"startedAtMs"`
	PreDelayMs   int64    `json:"preDelayMs"`
}

// LeaderboardEntry is one row of the cumulative leaderboard. The connection
// id stays server-side; it is only used to resolve a caller's rank.
type LeaderboardEntry struct {
	ConnID string `json:"-"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

// FastEntry is one row of the per-question fastest-correct ranking.
type FastEntry struct {
	Name      string `json:"name"`
	ElapsedMs int64  `json:"elapsedMs"`
	Points    int    `json:"points"`
}

// QuestionEnd reveals a question's outcome.
type QuestionEnd struct {
	QIndex       int                `json:"qIndex"`
	CorrectIndex int                `json:"correctIndex"`
	TotalTop15   []LeaderboardEntry `json:"totalTop15"`
	FastTop5     []FastEntry        `json:"fastTop5"`
	PopupShowMs  int64              `json:"popupShowMs"`
}

// GameEnd carries the final standings at quiz completion.
type GameEnd struct {
	TotalTop15   []LeaderboardEntry `json:"totalTop15"`
	TotalPlayers int                `json:"totalPlayers"`
}

// Progress is the live answered-count update sent after each accepted answer.
type Progress struct {
	Answered     int `json:"answered"`
	TotalPlayers int `json:"totalPlayers"`
}

// PlayerCount is broadcast whenever room membership changes.
type PlayerCount struct {
	Count int `json:"count"`
}

// AnswerResult acknowledges an accepted answer to its submitter.
type AnswerResult struct {
	Correct    bool `json:"correct"`
	Points     int  `json:"points"`
	TotalScore int  `json:"totalScore"`
	Rank       int  `json:"rank"`
}

// Event is the outbound message envelope fanned out to room members.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Outbound event types.
const (
	EventRoomState     = "room:state"
	EventQuestionStart = "question:start"
	EventQuestionEnd   = "question:end"
	EventGameEnd       = "game:end"
	EventProgress      = "question:progress"
	EventPlayerCount   = "players:count"
)
