package repository

import (
	"context"
	"time"

	"github.com/classmate-app/classmate/internal/model"
)

// UserStore persists user identities. Implementations must enforce
// username uniqueness atomically at the storage layer.
type UserStore interface {
	// Create inserts a new user and returns its id. The username is
	// stored as given (callers normalize case/whitespace); a duplicate
	// yields ErrUsernameExists.
	Create(ctx context.Context, username, passwordHash string, role model.Role) (uint64, error)
	// GetByUsername fetches a user by exact username or ErrUserNotFound.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByID fetches a user by id or ErrUserNotFound.
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	// ListMonitors returns the public identities of all monitor users,
	// ordered by username.
	ListMonitors(ctx context.Context) ([]model.PublicUser, error)
}

// SessionStore persists tutoring sessions and their participant sets.
// Capacity and status invariants are enforced with single-record
// conditional writes inside the store, never with read-then-write in the
// callers, so concurrent joins and overlapping sweeps stay safe.
type SessionStore interface {
	// Create inserts s and populates its ID and timestamps.
	Create(ctx context.Context, s *model.Session) error
	// GetByID fetches a session with its participant count populated,
	// or ErrSessionNotFound.
	GetByID(ctx context.Context, id uint64) (*model.Session, error)
	// Update persists every monitor-editable field of s. Status is
	// excluded: it only moves through ActivateDue/CompleteElapsed, so
	// a patch built from a stale read cannot rewind a transition. The
	// caller is expected to have loaded the session first and applied
	// its patch.
	Update(ctx context.Context, s *model.Session) error
	// Delete removes the session and its participant rows.
	Delete(ctx context.Context, id uint64) error

	// ListByOwner returns all sessions owned by the given monitor,
	// newest scheduled first.
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Session, error)
	// ListByParticipant returns sessions where the user is currently a
	// participant and the status is one of the given values.
	ListByParticipant(ctx context.Context, userID uint64, statuses ...model.SessionStatus) ([]model.Session, error)
	// ListAvailable returns joinable sessions: SCHEDULED, scheduled in
	// the future of now, and below capacity, ascending by scheduled
	// date. A non-zero ownerID scopes the result to one monitor.
	ListAvailable(ctx context.Context, now time.Time, ownerID uint64) ([]model.Session, error)

	// AddParticipant appends the user to the session's participant set.
	// The append is conditional on the session existing, being
	// SCHEDULED, the user not already being present and the capacity
	// not being reached; failures are reported as ErrSessionNotFound,
	// ErrNotJoinable, ErrAlreadyJoined or ErrSessionFull respectively.
	// Two concurrent calls can never push the set past capacity.
	AddParticipant(ctx context.Context, sessionID, userID uint64) error
	// RemoveParticipant drops the user from the participant set or
	// returns ErrNotParticipant. Leaving is allowed in any status.
	RemoveParticipant(ctx context.Context, sessionID, userID uint64) error
	// Participants returns the public identities of the session's
	// current participants.
	Participants(ctx context.Context, sessionID uint64) ([]model.PublicUser, error)

	// ActivateDue flips SCHEDULED sessions whose scheduled date has
	// passed to ACTIVE and returns how many changed. The status is both
	// predicate and target, so re-running or overlapping calls cannot
	// double-apply.
	ActivateDue(ctx context.Context, now time.Time) (int64, error)
	// CompleteElapsed flips ACTIVE sessions whose end time has passed
	// to COMPLETED and returns how many changed.
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)
}
