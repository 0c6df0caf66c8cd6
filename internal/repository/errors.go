// Package repository defines the storage contracts for users and
// sessions plus the error values shared by every implementation. The
// sentinels let handlers distinguish failure scenarios without knowing
// which backend produced them: ErrSessionFull maps to HTTP 409,
// ErrSessionNotFound to 404, and so on.
package repository

import "errors"

// ErrUsernameExists is returned when registration would violate the
// unique username constraint. The constraint lives in the store itself,
// not in application pre-checks, so two concurrent registrations of the
// same name resolve to exactly one winner.
var ErrUsernameExists = errors.New("username already exists")

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrSessionNotFound is returned when no session matches the given id.
var ErrSessionNotFound = errors.New("session not found")

// ErrNotJoinable is returned when a join targets a session whose status
// is no longer SCHEDULED. Active, completed and cancelled sessions all
// reject joins.
var ErrNotJoinable = errors.New("session not joinable")

// ErrAlreadyJoined is returned when the caller is already a participant
// of the session they are trying to join.
var ErrAlreadyJoined = errors.New("already joined")

// ErrSessionFull is returned when a join would exceed max_participants.
var ErrSessionFull = errors.New("session full")

// ErrNotParticipant is returned when a leave targets a session the
// caller is not currently part of.
var ErrNotParticipant = errors.New("not a participant")
