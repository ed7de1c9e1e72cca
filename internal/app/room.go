package app

import (
	"strings"
	"sync"
	"time"

	"live-trivia-service/internal/domain"
)

const maxNameLen = 24

// Timing groups the pacing knobs shared by every room.
type Timing struct {
	// PreDelay is the fixed gap between a question announcement and the
	// opening of its answer window, giving clients time to cue up in
	// lock-step.
	PreDelay time.Duration
	// PopupShow is how long clients display the fastest-correct popup.
	PopupShow time.Duration
	// MaxPoints is the score for an instant correct answer.
	MaxPoints int
	// Retention is how long a normally completed room stays resident and
	// queryable before it is evicted. Zero disables eviction.
	Retention time.Duration
}

func (t Timing) withDefaults() Timing {
	if t.PreDelay <= 0 {
		t.PreDelay = 500 * time.Millisecond
	}
	if t.PopupShow <= 0 {
		t.PopupShow = 7 * time.Second
	}
	if t.MaxPoints <= 0 {
		t.MaxPoints = 1000
	}
	return t
}

// Room is one live quiz session. All state transitions and derived views run
// under a single mutex, so operations on the same room are totally ordered;
// distinct rooms never contend. At most one timer is armed per room at any
// instant: arming and reveal both cancel the previous timer first, and a
// callback that fired anyway re-checks its cycle under the lock.
type Room struct {
	code       string
	hostConnID string
	createdAt  time.Time
	now        func() time.Time
	catalog    domain.Catalog
	timing     Timing
	evict      func()

	mu            sync.Mutex
	started       bool
	ended         bool
	revealed      bool
	qIndex        int
	cycle         int
	windowOpensAt time.Time
	timer         *time.Timer
	players       map[string]*domain.Player
	subscribers   map[chan domain.Event]struct{}
}

func newRoom(code, hostConnID string, catalog domain.Catalog, timing Timing, now func() time.Time, evict func()) *Room {
	return &Room{
		code:        code,
		hostConnID:  hostConnID,
		createdAt:   now(),
		now:         now,
		catalog:     catalog,
		timing:      timing,
		evict:       evict,
		players:     make(map[string]*domain.Player),
		subscribers: make(map[chan domain.Event]struct{}),
	}
}

// Code returns the room's join code.
func (r *Room) Code() string { return r.code }

// HostConnID returns the connection that owns this room.
func (r *Room) HostConnID() string { return r.hostConnID }

// State returns the public room snapshot.
func (r *Room) State() domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Room) stateLocked() domain.RoomState {
	return domain.RoomState{
		Code:    r.code,
		Started: r.started,
		Ended:   r.ended,
		QIndex:  r.qIndex,
		Total:   len(r.catalog.Questions),
	}
}

// start begins the first question cycle. Valid exactly once.
func (r *Room) start(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hostConnID != connID {
		return domain.ErrNotHost
	}
	if r.started {
		return domain.ErrAlreadyStarted
	}
	r.started = true
	r.ended = false
	r.qIndex = 0
	r.beginCycleLocked()
	return nil
}

// beginCycleLocked opens a new question cycle: anchors the answer window at
// now+PreDelay, clears every player's last answer, announces the question and
// arms the reveal timer for PreDelay + time limit.
func (r *Room) beginCycleLocked() {
	r.stopTimerLocked()
	r.revealed = false
	r.cycle++
	r.windowOpensAt = r.now().Add(r.timing.PreDelay)
	for _, p := range r.players {
		p.LastAnswer = nil
	}
	r.publishLocked(domain.Event{Type: domain.EventQuestionStart, Payload: r.questionPayloadLocked()})

	q := r.catalog.Questions[r.qIndex]
	cycle := r.cycle
	r.timer = time.AfterFunc(r.timing.PreDelay+time.Duration(q.TimeLimitSec)*time.Second, func() {
		r.revealExpired(cycle)
	})

	r.publishLocked(domain.Event{Type: domain.EventRoomState, Payload: r.stateLocked()})
}

func (r *Room) questionPayloadLocked() domain.QuestionStart {
	q := r.catalog.Questions[r.qIndex]
	return domain.QuestionStart{
		QIndex:       r.qIndex,
		Total:        len(r.catalog.Questions),
		Text:         q.Text,
		Choices:      q.Choices,
		TimeLimitSec: q.TimeLimitSec,
		StartedAtMs:  r.windowOpensAt.UnixMilli(),
		PreDelayMs:   r.timing.PreDelay.Milliseconds(),
	}
}

// reveal force-closes the current question. Idempotent: a cycle already
// revealed, or a room already ended, is left untouched, so the timer firing
// after a host-forced reveal is harmless.
func (r *Room) reveal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revealLocked()
}

// revealExpired is the deadline timer callback. Stop cannot cancel a callback
// that already fired and is waiting on the mutex, so the armed cycle is
// re-checked under the lock; a timer from an earlier question must not touch
// the cycle that replaced it.
func (r *Room) revealExpired(cycle int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cycle != r.cycle {
		return
	}
	r.revealLocked()
}

func (r *Room) revealLocked() {
	if r.ended || r.revealed {
		return
	}
	r.revealed = true
	r.stopTimerLocked()

	q := r.catalog.Questions[r.qIndex]
	r.publishLocked(domain.Event{Type: domain.EventQuestionEnd, Payload: domain.QuestionEnd{
		QIndex:       r.qIndex,
		CorrectIndex: q.CorrectIndex,
		TotalTop15:   truncate(totalLeaderboard(r.players), totalTopN),
		FastTop5:     fastCorrectTop(r.players, r.qIndex, fastTopN),
		PopupShowMs:  r.timing.PopupShow.Milliseconds(),
	}})
	r.publishLocked(domain.Event{Type: domain.EventRoomState, Payload: r.stateLocked()})
}

// advance reveals the current question if needed, then moves to the next one
// or ends the quiz once past the last index.
func (r *Room) advance(connID string) (ended bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hostConnID != connID {
		return false, domain.ErrNotHost
	}
	if !r.started {
		return false, domain.ErrNotStarted
	}
	if r.ended {
		return false, domain.ErrRoomEnded
	}

	r.revealLocked()
	r.qIndex++
	if r.qIndex >= len(r.catalog.Questions) {
		r.endLocked()
		if r.timing.Retention > 0 {
			// Reuse the single timer slot for the retention countdown;
			// the question timer is already stopped.
			r.timer = time.AfterFunc(r.timing.Retention, r.evict)
		}
		return true, nil
	}
	r.beginCycleLocked()
	return false, nil
}

func (r *Room) endLocked() {
	r.ended = true
	r.stopTimerLocked()

	total := totalLeaderboard(r.players)
	r.publishLocked(domain.Event{Type: domain.EventGameEnd, Payload: domain.GameEnd{
		TotalTop15:   truncate(total, totalTopN),
		TotalPlayers: len(total),
	}})
	r.publishLocked(domain.Event{Type: domain.EventRoomState, Payload: r.stateLocked()})
}

// endForHostDisconnect terminates the room because its host dropped. The
// registry eviction itself is the caller's job.
func (r *Room) endForHostDisconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		r.stopTimerLocked()
		return
	}
	r.endLocked()
}

// join registers a participant. Names are trimmed and capped at 24 runes; a
// blank result is rejected before any state changes. If a question is running
// the caller gets its payload back for unicast so late joiners can still
// answer within the remaining window.
func (r *Room) join(connID, name string) (*domain.QuestionStart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return nil, domain.ErrRoomEnded
	}
	clean := strings.TrimSpace(name)
	if runes := []rune(clean); len(runes) > maxNameLen {
		clean = string(runes[:maxNameLen])
	}
	if clean == "" {
		return nil, domain.ErrEmptyName
	}

	r.players[connID] = &domain.Player{ConnID: connID, Name: clean}
	r.publishLocked(domain.Event{Type: domain.EventPlayerCount, Payload: domain.PlayerCount{Count: len(r.players)}})
	r.publishLocked(domain.Event{Type: domain.EventRoomState, Payload: r.stateLocked()})

	if r.started {
		payload := r.questionPayloadLocked()
		return &payload, nil
	}
	return nil, nil
}

// submitAnswer runs the admission checks in order and, on acceptance, scores
// the answer and records it. All validation happens before any mutation.
func (r *Room) submitAnswer(connID string, choiceIndex int) (domain.AnswerResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.ended {
		return domain.AnswerResult{}, domain.ErrRoomNotActive
	}
	p, ok := r.players[connID]
	if !ok {
		return domain.AnswerResult{}, domain.ErrNotJoined
	}
	now := r.now()
	if now.Before(r.windowOpensAt) {
		return domain.AnswerResult{}, domain.ErrWindowNotOpen
	}
	if p.LastAnswer != nil && p.LastAnswer.QuestionIndex == r.qIndex {
		return domain.AnswerResult{}, domain.ErrAlreadyAnswered
	}

	q := r.catalog.Questions[r.qIndex]
	elapsed := now.Sub(r.windowOpensAt)
	correct := choiceIndex == q.CorrectIndex
	pts := domain.ComputePoints(correct, elapsed, time.Duration(q.TimeLimitSec)*time.Second, r.timing.MaxPoints)

	p.Score += pts
	p.LastAnswer = &domain.AnswerRecord{
		QuestionIndex: r.qIndex,
		ChoiceIndex:   choiceIndex,
		ElapsedMs:     elapsed.Milliseconds(),
		Correct:       correct,
		Points:        pts,
	}

	answered := 0
	for _, pl := range r.players {
		if pl.LastAnswer != nil && pl.LastAnswer.QuestionIndex == r.qIndex {
			answered++
		}
	}
	r.publishLocked(domain.Event{Type: domain.EventProgress, Payload: domain.Progress{
		Answered:     answered,
		TotalPlayers: len(r.players),
	}})

	return domain.AnswerResult{
		Correct:    correct,
		Points:     pts,
		TotalScore: p.Score,
		Rank:       rankOf(totalLeaderboard(r.players), connID),
	}, nil
}

// removePlayer drops a participant on disconnect. Reports whether the
// connection was a member.
func (r *Room) removePlayer(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[connID]; !ok {
		return false
	}
	delete(r.players, connID)
	r.publishLocked(domain.Event{Type: domain.EventPlayerCount, Payload: domain.PlayerCount{Count: len(r.players)}})
	r.publishLocked(domain.Event{Type: domain.EventRoomState, Payload: r.stateLocked()})
	return true
}

func (r *Room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// subscribe attaches an event channel and immediately delivers the current
// room snapshot. The snapshot goes into the fresh buffer while the lock is
// still held, so it always precedes any concurrently published event. The
// caller must invoke cancel to avoid leaks.
func (r *Room) subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 64)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	ch <- domain.Event{Type: domain.EventRoomState, Payload: r.stateLocked()}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Room) publishLocked(event domain.Event) {
	for ch := range r.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest queued event rather than block the room on a
			// slow subscriber.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
