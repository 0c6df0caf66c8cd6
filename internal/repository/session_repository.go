package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/classmate-app/classmate/internal/model"
)

// SessionRepo is the MySQL implementation of SessionStore. Sessions live
// in the `sessions` table; memberships live in `session_participants`
// with a composite primary key (session_id, user_id) so a user can
// appear at most once per session. All timestamps are stored in UTC.
//
// Every invariant is local to a single session row, so no cross-record
// transactions are needed: capacity and status checks ride on
// conditional single-statement writes.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

var _ SessionStore = (*SessionRepo)(nil)

// selectCols is the column list shared by every session query. The
// participant count is computed inline so list views and capacity
// reporting never need a second round trip.
const selectCols = `s.id, s.title, s.description, s.owner_id, s.scheduled_date,
	s.duration_minutes, s.status, s.session_type, s.max_participants,
	s.room, s.subject, s.notes, s.created_at, s.updated_at,
	(SELECT COUNT(*) FROM session_participants p WHERE p.session_id = s.id)`

// Create inserts the session and reads back the generated id and
// timestamps.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions
		   (title, description, owner_id, scheduled_date, duration_minutes,
		    status, session_type, max_participants, room, subject, notes)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		s.Title, nullable(s.Description), s.OwnerID, s.ScheduledDate.UTC(),
		s.DurationMinutes, string(s.Status), string(s.Type), s.MaxParticipants,
		nullable(s.Room), nullable(s.Subject), nullable(s.Notes))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)

	created, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

// GetByID fetches one session with its participant count.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+selectCols+" FROM sessions s WHERE s.id = ?", id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Update persists every field a monitor can edit. Status is deliberately
// not in the column list: it only ever advances through the conditional
// lifecycle updates, so a patch carrying a stale copy of the record can
// never rewind a transition the sweep applied in between. Ownership is
// checked by the caller; a vanished row surfaces as ErrSessionNotFound.
func (r *SessionRepo) Update(ctx context.Context, s *model.Session) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET title=?, description=?, scheduled_date=?,
		   duration_minutes=?, session_type=?, max_participants=?,
		   room=?, subject=?, notes=?
		 WHERE id=?`,
		s.Title, nullable(s.Description), s.ScheduledDate.UTC(),
		s.DurationMinutes, string(s.Type), s.MaxParticipants,
		nullable(s.Room), nullable(s.Subject), nullable(s.Notes), s.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Zero affected rows is ambiguous in MySQL (no change vs no
		// row), so confirm existence before reporting not found.
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete hard-deletes the session. Participant rows go with it via the
// ON DELETE CASCADE foreign key.
func (r *SessionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListByOwner returns every session owned by the monitor, most recently
// scheduled first.
func (r *SessionRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Session, error) {
	return r.list(ctx,
		"SELECT "+selectCols+" FROM sessions s WHERE s.owner_id = ? ORDER BY s.scheduled_date DESC",
		ownerID)
}

// ListByParticipant returns sessions the user currently belongs to,
// restricted to the given statuses, ascending by scheduled date.
func (r *SessionRepo) ListByParticipant(ctx context.Context, userID uint64, statuses ...model.SessionStatus) ([]model.Session, error) {
	if len(statuses) == 0 {
		return []model.Session{}, nil
	}
	q := "SELECT " + selectCols + ` FROM sessions s
		JOIN session_participants sp ON sp.session_id = s.id
		WHERE sp.user_id = ? AND s.status IN (?` + strings.Repeat(",?", len(statuses)-1) + `)
		ORDER BY s.scheduled_date ASC`
	args := make([]interface{}, 0, len(statuses)+1)
	args = append(args, userID)
	for _, st := range statuses {
		args = append(args, string(st))
	}
	return r.list(ctx, q, args...)
}

// ListAvailable composes the three availability predicates: status
// SCHEDULED, scheduled strictly in the future, and participant count
// below capacity. A non-zero ownerID narrows the result to one monitor.
func (r *SessionRepo) ListAvailable(ctx context.Context, now time.Time, ownerID uint64) ([]model.Session, error) {
	q := "SELECT " + selectCols + ` FROM sessions s
		WHERE s.status = ? AND s.scheduled_date > ?
		  AND (SELECT COUNT(*) FROM session_participants p WHERE p.session_id = s.id) < s.max_participants`
	args := []interface{}{string(model.StatusScheduled), now.UTC()}
	if ownerID != 0 {
		q += " AND s.owner_id = ?"
		args = append(args, ownerID)
	}
	q += " ORDER BY s.scheduled_date ASC"
	return r.list(ctx, q, args...)
}

// AddParticipant appends the user with a single guarded INSERT..SELECT:
// the row is only produced when the session is still SCHEDULED and
// below capacity, so concurrent joins cannot both slip past the check.
// A duplicate-key failure means the user already joined. When nothing
// was inserted, a follow-up read classifies the refusal; the read is
// only for error reporting, the invariant was already enforced by the
// insert itself.
func (r *SessionRepo) AddParticipant(ctx context.Context, sessionID, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO session_participants (session_id, user_id)
		 SELECT s.id, ? FROM sessions s
		 WHERE s.id = ? AND s.status = ?
		   AND (SELECT COUNT(*) FROM session_participants p WHERE p.session_id = s.id) < s.max_participants`,
		userID, sessionID, string(model.StatusScheduled))
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrAlreadyJoined
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	s, err := r.GetByID(ctx, sessionID)
	if err != nil {
		return err // ErrSessionNotFound or a storage failure
	}
	if s.Status != model.StatusScheduled {
		return ErrNotJoinable
	}
	// At capacity the guard blocks the insert before the duplicate key
	// can fire, so an existing membership must be checked explicitly:
	// a member re-joining the session they filled is "already joined",
	// not "full".
	var one int
	err = r.db.QueryRowContext(ctx,
		"SELECT 1 FROM session_participants WHERE session_id=? AND user_id=? LIMIT 1",
		sessionID, userID).Scan(&one)
	switch {
	case err == nil:
		return ErrAlreadyJoined
	case errors.Is(err, sql.ErrNoRows):
		return ErrSessionFull
	default:
		return err
	}
}

// RemoveParticipant drops the membership row. Leaving is permitted in
// any session status.
func (r *SessionRepo) RemoveParticipant(ctx context.Context, sessionID, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM session_participants WHERE session_id=? AND user_id=?",
		sessionID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotParticipant
	}
	return nil
}

// Participants returns the public identities of the session's current
// participants, ordered by join time.
func (r *SessionRepo) Participants(ctx context.Context, sessionID uint64) ([]model.PublicUser, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.username FROM session_participants sp
		 JOIN users u ON u.id = sp.user_id
		 WHERE sp.session_id = ? ORDER BY sp.joined_at ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PublicUser{}
	for rows.Next() {
		var u model.PublicUser
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ActivateDue advances due SCHEDULED sessions to ACTIVE. The status is
// both the predicate and the write target, so overlapping sweeps apply
// each transition at most once.
func (r *SessionRepo) ActivateDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET status=? WHERE status=? AND scheduled_date <= ?",
		string(model.StatusActive), string(model.StatusScheduled), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CompleteElapsed advances ACTIVE sessions whose end time has passed to
// COMPLETED.
func (r *SessionRepo) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status=?
		 WHERE status=? AND DATE_ADD(scheduled_date, INTERVAL duration_minutes MINUTE) <= ?`,
		string(model.StatusCompleted), string(model.StatusActive), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SessionRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface{ Scan(dest ...interface{}) error }

func scanSession(row rowScanner) (*model.Session, error) {
	var s model.Session
	var desc, room, subject, notes sql.NullString
	var status, sessionType string
	err := row.Scan(&s.ID, &s.Title, &desc, &s.OwnerID, &s.ScheduledDate,
		&s.DurationMinutes, &status, &sessionType, &s.MaxParticipants,
		&room, &subject, &notes, &s.CreatedAt, &s.UpdatedAt,
		&s.ParticipantCount)
	if err != nil {
		return nil, err
	}
	s.Status = model.SessionStatus(status)
	s.Type = model.SessionType(sessionType)
	s.Description = desc.String
	s.Room = room.String
	s.Subject = subject.String
	s.Notes = notes.String
	return &s, nil
}

// nullable maps an empty optional string to NULL so the schema can keep
// its columns nullable.
func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
