package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code fails registry lookup.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomEnded is returned on joins to a finished room.
	ErrRoomEnded = errors.New("room already ended")
	// ErrRoomNotActive is returned on answers outside a running question cycle.
	ErrRoomNotActive = errors.New("room not active")
	// ErrAlreadyStarted is returned when a host starts a room twice.
	ErrAlreadyStarted = errors.New("room already started")
	// ErrNotStarted is returned when a host advances a room that never started.
	ErrNotStarted = errors.New("room not started")
	// ErrNotHost is returned when a host operation comes from a connection
	// that does not own the room.
	ErrNotHost = errors.New("not the host of this room")
	// ErrHostRequired is returned when a host operation lacks host privilege.
	ErrHostRequired = errors.New("host privilege required")
	// ErrNotJoined is returned when a connection answers before joining.
	ErrNotJoined = errors.New("not joined to this room")
	// ErrEmptyName rejects joins with a blank display name.
	ErrEmptyName = errors.New("display name required")
	// ErrWindowNotOpen rejects answers submitted during the pre-delay.
	ErrWindowNotOpen = errors.New("answer window not open yet")
	// ErrAlreadyAnswered rejects duplicate answers for the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrCatalogNotFound indicates the question catalog could not be loaded.
	ErrCatalogNotFound = errors.New("catalog not found")
)
