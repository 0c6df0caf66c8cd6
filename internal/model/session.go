package model

import "time"

// SessionStatus is the lifecycle state of a session. Transitions move
// forward only: SCHEDULED -> ACTIVE -> COMPLETED. CANCELLED is a terminal
// state reserved for explicit monitor action; no endpoint sets it today
// but the enum keeps it closed so every transition site handles it.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "SCHEDULED"
	StatusActive    SessionStatus = "ACTIVE"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusCancelled SessionStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle step. The switch is exhaustive over the enum so an unknown
// status can never silently pass.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusScheduled:
		return next == StatusActive || next == StatusCancelled
	case StatusActive:
		return next == StatusCompleted
	case StatusCompleted, StatusCancelled:
		return false
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// SessionType distinguishes one-on-one slots from group slots. PERSONAL
// sessions always have capacity 1.
type SessionType string

const (
	TypePersonal SessionType = "PERSONAL"
	TypeGroup    SessionType = "GROUP"
)

// Valid reports whether t is one of the known session types.
func (t SessionType) Valid() bool {
	switch t {
	case TypePersonal, TypeGroup:
		return true
	}
	return false
}

// Defaults applied when a session is created without explicit values.
const (
	DefaultDurationMinutes = 60
	DefaultGroupCapacity   = 30
	PersonalCapacity       = 1
)

// ResolveCapacity returns the max participant count a session of the
// given type must carry. PERSONAL forces 1 regardless of the requested
// value; GROUP keeps an explicit positive request and falls back to the
// default otherwise.
func ResolveCapacity(t SessionType, requested int) int {
	if t == TypePersonal {
		return PersonalCapacity
	}
	if requested > 0 {
		return requested
	}
	return DefaultGroupCapacity
}

// Session represents a scheduled tutoring slot as stored in the
// `sessions` table. Participants live in the session_participants join
// table; ParticipantCount is populated by repository queries and
// Participants only when the caller asks for resolved identities.
//
// Invariants the store enforces:
//  - ParticipantCount <= MaxParticipants at all times.
//  - Type == PERSONAL implies MaxParticipants == 1.
//  - Status only moves forward (see CanTransitionTo).
type Session struct {
	ID               uint64        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description,omitempty"`
	OwnerID          uint64        `json:"owner_id"`
	ScheduledDate    time.Time     `json:"scheduled_date"`
	DurationMinutes  int           `json:"duration_minutes"`
	Status           SessionStatus `json:"status"`
	Type             SessionType   `json:"session_type"`
	MaxParticipants  int           `json:"max_participants"`
	ParticipantCount int           `json:"participant_count"`
	Room             string        `json:"room,omitempty"`
	Subject          string        `json:"subject,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	Participants []PublicUser `json:"participants,omitempty"`
}

// EndsAt returns the instant the session is over.
func (s *Session) EndsAt() time.Time {
	return s.ScheduledDate.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Full reports whether the session has reached capacity.
func (s *Session) Full() bool {
	return s.ParticipantCount >= s.MaxParticipants
}
