package model

import "time"

// Role is the closed set of account roles. Monitors create and manage
// tutoring sessions; students browse, join and leave them.
type Role string

const (
	RoleMonitor Role = "MONITOR"
	RoleStudent Role = "STUDENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMonitor, RoleStudent:
		return true
	}
	return false
}

// User represents an application user record as stored in the `users`
// table. The password hash is bcrypt and never leaves the repository
// layer; handlers expose PublicUser instead.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  Role         – MONITOR or STUDENT, immutable after registration.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// PublicUser is the identity shape safe to return to clients. Role and
// password hash are deliberately absent.
type PublicUser struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// Identity is the authenticated caller resolved from a token. It is what
// the auth middleware attaches to the request context and what every
// policy check consumes.
type Identity struct {
	ID       uint64
	Username string
	Role     Role
}
