// Package queue defines message payloads exchanged over the message
// broker and the background consumer that records them.
package queue

// Membership actions carried by SessionEvent.
const (
	ActionJoined = "joined"
	ActionLeft   = "left"
)

// SessionEvent is published after a student joins or leaves a session.
// It carries enough context for downstream consumers to log or notify
// without querying the primary database.
type SessionEvent struct {
	Action       string `json:"action"` // "joined" or "left"
	SessionID    uint64 `json:"session_id"`
	Title        string `json:"title"`
	OwnerID      uint64 `json:"owner_id"`
	UserID       uint64 `json:"user_id"`
	Username     string `json:"username"`
	ScheduledAt  string `json:"scheduled_at"`
	Participants int    `json:"participants"`
	Capacity     int    `json:"capacity"`
	OccurredAt   string `json:"occurred_at"`
}
