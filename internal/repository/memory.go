package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/classmate-app/classmate/internal/model"
)

// MemoryUserStore is an in-process UserStore. It mirrors the MySQL
// semantics (atomic username uniqueness in particular) behind a mutex,
// so concurrent registrations of the same name still resolve to exactly
// one winner. It backs the test suite and can run the server without a
// database during development.
type MemoryUserStore struct {
	mu         sync.Mutex
	nextID     uint64
	users      map[uint64]*model.User
	byUsername map[string]uint64
}

// NewMemoryUserStore returns an empty user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:      map[uint64]*model.User{},
		byUsername: map[string]uint64{},
	}
}

var _ UserStore = (*MemoryUserStore)(nil)

func (m *MemoryUserStore) Create(_ context.Context, username, passwordHash string, role model.Role) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byUsername[username]; taken {
		return 0, ErrUsernameExists
	}
	m.nextID++
	now := time.Now().UTC()
	u := &model.User{
		ID:           m.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[u.ID] = u
	m.byUsername[username] = u.ID
	return u.ID, nil
}

func (m *MemoryUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byUsername[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *MemoryUserStore) GetByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryUserStore) ListMonitors(_ context.Context) ([]model.PublicUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.PublicUser{}
	for _, u := range m.users {
		if u.Role == model.RoleMonitor {
			out = append(out, model.PublicUser{ID: u.ID, Username: u.Username})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// MemorySessionStore is an in-process SessionStore. Every operation
// holds one mutex for its full check-then-act sequence, which gives it
// the same atomicity the SQL implementation gets from single guarded
// statements: a join can never race another join past capacity, and a
// sweep transition applies at most once.
type MemorySessionStore struct {
	mu       sync.Mutex
	nextID   uint64
	sessions map[uint64]*model.Session
	// members[sessionID] keeps join order; usernames resolve through
	// the user store when identities are requested.
	members map[uint64][]uint64
	users   *MemoryUserStore
}

// NewMemorySessionStore returns an empty session store. The user store
// is used to resolve participant identities.
func NewMemorySessionStore(users *MemoryUserStore) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: map[uint64]*model.Session{},
		members:  map[uint64][]uint64{},
		users:    users,
	}
}

var _ SessionStore = (*MemorySessionStore)(nil)

func (m *MemorySessionStore) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now().UTC()
	s.ID = m.nextID
	s.CreatedAt = now
	s.UpdatedAt = now
	s.ParticipantCount = 0
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemorySessionStore) GetByID(_ context.Context, id uint64) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id)
}

func (m *MemorySessionStore) getLocked(id uint64) (*model.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	cp.ParticipantCount = len(m.members[id])
	return &cp, nil
}

func (m *MemorySessionStore) Update(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return ErrSessionNotFound
	}
	cp := *s
	cp.CreatedAt = cur.CreatedAt
	// Status only advances through the lifecycle transitions; a patch
	// built from a stale read must not rewind it.
	cp.Status = cur.Status
	cp.UpdatedAt = time.Now().UTC()
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	delete(m.members, id)
	return nil
}

func (m *MemorySessionStore) ListByOwner(_ context.Context, ownerID uint64) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Session{}
	for id, s := range m.sessions {
		if s.OwnerID == ownerID {
			cp := *s
			cp.ParticipantCount = len(m.members[id])
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.After(out[j].ScheduledDate) })
	return out, nil
}

func (m *MemorySessionStore) ListByParticipant(_ context.Context, userID uint64, statuses ...model.SessionStatus) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := map[model.SessionStatus]bool{}
	for _, st := range statuses {
		wanted[st] = true
	}
	out := []model.Session{}
	for id, s := range m.sessions {
		if !wanted[s.Status] || !contains(m.members[id], userID) {
			continue
		}
		cp := *s
		cp.ParticipantCount = len(m.members[id])
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (m *MemorySessionStore) ListAvailable(_ context.Context, now time.Time, ownerID uint64) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Session{}
	for id, s := range m.sessions {
		if s.Status != model.StatusScheduled || !s.ScheduledDate.After(now) {
			continue
		}
		if len(m.members[id]) >= s.MaxParticipants {
			continue
		}
		if ownerID != 0 && s.OwnerID != ownerID {
			continue
		}
		cp := *s
		cp.ParticipantCount = len(m.members[id])
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

// AddParticipant applies the join preconditions in the documented
// order under one lock: existence, joinable status, no duplicate,
// capacity. A refused join leaves the member list untouched.
func (m *MemorySessionStore) AddParticipant(_ context.Context, sessionID, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if s.Status != model.StatusScheduled {
		return ErrNotJoinable
	}
	if contains(m.members[sessionID], userID) {
		return ErrAlreadyJoined
	}
	if len(m.members[sessionID]) >= s.MaxParticipants {
		return ErrSessionFull
	}
	m.members[sessionID] = append(m.members[sessionID], userID)
	return nil
}

func (m *MemorySessionStore) RemoveParticipant(_ context.Context, sessionID, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.members[sessionID]
	for i, id := range cur {
		if id == userID {
			m.members[sessionID] = append(cur[:i:i], cur[i+1:]...)
			return nil
		}
	}
	return ErrNotParticipant
}

func (m *MemorySessionStore) Participants(_ context.Context, sessionID uint64) ([]model.PublicUser, error) {
	m.mu.Lock()
	ids := append([]uint64(nil), m.members[sessionID]...)
	m.mu.Unlock()

	out := []model.PublicUser{}
	for _, id := range ids {
		u, err := m.users.GetByID(context.Background(), id)
		if err != nil {
			continue
		}
		out = append(out, model.PublicUser{ID: u.ID, Username: u.Username})
	}
	return out, nil
}

func (m *MemorySessionStore) ActivateDue(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.Status == model.StatusScheduled && !s.ScheduledDate.After(now) {
			s.Status = model.StatusActive
			s.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (m *MemorySessionStore) CompleteElapsed(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.Status == model.StatusActive && !s.EndsAt().After(now) {
			s.Status = model.StatusCompleted
			s.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func contains(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
