package app

import (
	"context"
	"crypto/rand"
	"time"

	"live-trivia-service/internal/domain"
)

// RoomRegistry owns the code→room mapping. Insert must be atomic so
// concurrent creations can retry on code collision.
type RoomRegistry interface {
	Insert(code string, room *Room) bool
	Get(code string) (*Room, bool)
	Delete(code string)
	All() []*Room
}

// CatalogRepository loads quiz content (from cache/backing store). The
// service resolves its catalog through one at startup.
type CatalogRepository interface {
	GetCatalog(ctx context.Context, id string) (domain.Catalog, error)
}

// Room codes use an unambiguous alphabet: no I, O, 0 or 1.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// RoomService exposes the operations that mutate rooms and is the only
// component that touches the registry.
type RoomService struct {
	registry RoomRegistry
	catalog  domain.Catalog
	timing   Timing
	now      func() time.Time
}

func NewRoomService(registry RoomRegistry, catalog domain.Catalog, timing Timing) *RoomService {
	return NewRoomServiceWithClock(registry, catalog, timing, time.Now)
}

// NewRoomServiceWithClock is test-only for deterministic timestamps.
func NewRoomServiceWithClock(registry RoomRegistry, catalog domain.Catalog, timing Timing, now func() time.Time) *RoomService {
	return &RoomService{
		registry: registry,
		catalog:  catalog,
		timing:   timing.withDefaults(),
		now:      now,
	}
}

// Catalog returns the fixed question list this service runs with.
func (s *RoomService) Catalog() domain.Catalog { return s.catalog }

// CreateRoom allocates a room under a fresh code owned by hostConnID.
// Collisions against live rooms are retried with a new code.
func (s *RoomService) CreateRoom(hostConnID string) (string, error) {
	for {
		code, err := newCode()
		if err != nil {
			return "", err
		}
		room := newRoom(code, hostConnID, s.catalog, s.timing, s.now, func() {
			s.registry.Delete(code)
		})
		if s.registry.Insert(code, room) {
			return code, nil
		}
	}
}

// Start begins the quiz in the given room.
func (s *RoomService) Start(code, connID string) error {
	room, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.start(connID)
}

// Reveal force-closes the current question ahead of its timer.
func (s *RoomService) Reveal(code, connID string) error {
	room, ok := s.registry.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if room.HostConnID() != connID {
		return domain.ErrNotHost
	}
	room.reveal()
	return nil
}

// Next reveals the current question if still open and advances to the next
// one, ending the quiz past the last index.
func (s *RoomService) Next(code, connID string) (ended bool, err error) {
	room, ok := s.registry.Get(code)
	if !ok {
		return false, domain.ErrRoomNotFound
	}
	return room.advance(connID)
}

// Join adds a participant to a room. When a question is mid-flight the
// returned payload must be unicast to the joiner so they can still answer.
func (s *RoomService) Join(code, connID, name string) (*domain.QuestionStart, error) {
	room, ok := s.registry.Get(code)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room.join(connID, name)
}

// SubmitAnswer records one answer for the current question.
func (s *RoomService) SubmitAnswer(code, connID string, choiceIndex int) (domain.AnswerResult, error) {
	room, ok := s.registry.Get(code)
	if !ok {
		return domain.AnswerResult{}, domain.ErrRoomNotFound
	}
	return room.submitAnswer(connID, choiceIndex)
}

// Subscribe returns the event stream for a room. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *RoomService) Subscribe(code string) (<-chan domain.Event, func(), error) {
	room, ok := s.registry.Get(code)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	ch, cancel := room.subscribe()
	return ch, cancel, nil
}

// RoomExists reports whether a code resolves to a live room.
func (s *RoomService) RoomExists(code string) bool {
	_, ok := s.registry.Get(code)
	return ok
}

// Disconnect handles a dropped connection. A host's rooms are force-ended
// (final leaderboard broadcast) and evicted immediately; a participant is
// only removed from the rooms it joined.
func (s *RoomService) Disconnect(connID string) {
	for _, room := range s.registry.All() {
		if room.HostConnID() == connID {
			room.endForHostDisconnect()
			s.registry.Delete(room.Code())
			continue
		}
		room.removePlayer(connID)
	}
}

func newCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
