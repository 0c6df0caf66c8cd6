package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classmate-app/classmate/internal/middleware"
	"github.com/classmate-app/classmate/internal/model"
	"github.com/classmate-app/classmate/internal/repository"
)

type fixture struct {
	users    *repository.MemoryUserStore
	sessions *repository.MemorySessionStore
	h        *SessionHandler
}

func newFixture() *fixture {
	users := repository.NewMemoryUserStore()
	sessions := repository.NewMemorySessionStore(users)
	return &fixture{
		users:    users,
		sessions: sessions,
		h:        NewSessionHandler(sessions, users, nil, nil),
	}
}

func (f *fixture) addUser(t *testing.T, username string, role model.Role) model.Identity {
	t.Helper()
	id, err := f.users.Create(context.Background(), username, "$2a$04$hash", role)
	require.NoError(t, err)
	return model.Identity{ID: id, Username: username, Role: role}
}

func (f *fixture) addSession(t *testing.T, owner model.Identity, typ model.SessionType, max int, when time.Time) *model.Session {
	t.Helper()
	s := &model.Session{
		Title:           "Algebra revision",
		OwnerID:         owner.ID,
		ScheduledDate:   when.UTC(),
		DurationMinutes: 60,
		Status:          model.StatusScheduled,
		Type:            typ,
		MaxParticipants: max,
	}
	require.NoError(t, f.sessions.Create(context.Background(), s))
	return s
}

func (f *fixture) join(t *testing.T, sessionID uint64, student model.Identity) {
	t.Helper()
	require.NoError(t, f.sessions.AddParticipant(context.Background(), sessionID, student.ID))
}

// as seeds the context with an authenticated identity, as the auth
// middleware would.
func as(ident model.Identity) func(echo.Context) {
	return func(c echo.Context) {
		c.Set(middleware.CtxUserID, ident.ID)
		c.Set(middleware.CtxUsername, ident.Username)
		c.Set(middleware.CtxRole, string(ident.Role))
	}
}

func withID(ident model.Identity, id uint64) func(echo.Context) {
	return func(c echo.Context) {
		as(ident)(c)
		c.SetParamNames("id")
		c.SetParamValues(fmt.Sprintf("%d", id))
	}
}

func soon() time.Time { return time.Now().Add(2 * time.Hour).UTC() }

// ----- create -----

func TestCreateSessionDefaults(t *testing.T) {
	f := newFixture()
	monitor := f.addUser(t, "tutor", model.RoleMonitor)

	body := fmt.Sprintf(`{"title":"  Algebra  ","scheduled_date":%q}`, soon().Format(time.RFC3339))
	rec := invoke(t, f.h.Create, http.MethodPost, "/api/sessions", body, as(monitor))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Algebra", resp.Title, "title is trimmed")
	assert.Equal(t, model.StatusScheduled, resp.Status)
	assert.Equal(t, model.TypeGroup, resp.Type)
	assert.Equal(t, model.DefaultDurationMinutes, resp.DurationMinutes)
	assert.Equal(t, model.DefaultGroupCapacity, resp.MaxParticipants)
	assert.Equal(t, monitor.ID, resp.Owner.ID)
	assert.Empty(t, resp.Participants)
}

func TestCreateSessionPersonalForcesCapacityOne(t *testing.T) {
	f := newFixture()
	monitor := f.addUser(t, "tutor", model.RoleMonitor)

	body := fmt.Sprintf(`{"title":"1:1 coaching","scheduled_date":%q,"session_type":"personal","max_participants":10}`,
		soon().Format(time.RFC3339))
	rec := invoke(t, f.h.Create, http.MethodPost, "/api/sessions", body, as(monitor))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.TypePersonal, resp.Type)
	assert.Equal(t, model.PersonalCapacity, resp.MaxParticipants)
}

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture()
	monitor := f.addUser(t, "tutor", model.RoleMonitor)
	when := soon().Format(time.RFC3339)

	tests := []struct {
		name, body string
	}{
		{"missing title", fmt.Sprintf(`{"scheduled_date":%q}`, when)},
		{"blank title", fmt.Sprintf(`{"title":"   ","scheduled_date":%q}`, when)},
		{"missing date", `{"title":"Algebra"}`},
		{"unparseable date", `{"title":"Algebra","scheduled_date":"next tuesday"}`},
		{"zero duration", fmt.Sprintf(`{"title":"Algebra","scheduled_date":%q,"duration_minutes":0}`, when)},
		{"unknown type", fmt.Sprintf(`{"title":"Algebra","scheduled_date":%q,"session_type":"HYBRID"}`, when)},
		{"zero capacity", fmt.Sprintf(`{"title":"Algebra","scheduled_date":%q,"max_participants":0}`, when)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := invoke(t, f.h.Create, http.MethodPost, "/api/sessions", tt.body, as(monitor))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// ----- join / leave -----

func TestJoinSession(t *testing.T) {
	f := newFixture()
	monitor := f.addUser(t, "tutor", model.RoleMonitor)
	student := f.addUser(t, "ada", model.RoleStudent)
	s := f.addSession(t, monitor, model.TypeGroup, 5, soon())

	rec := invoke(t, f.h.Join, http.MethodPost, "/api/sessions/1/join", "", withID(student, s.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.ParticipantCount)
	require.Len(t, resp.Participants, 1)
	assert.Equal(t, "ada", resp.Participants[0].Username)
}

func TestJoinRefusals(t *testing.T) {
	f := newFixture()
	monitor := f.addUser(t, "tutor", model.RoleMonitor)
	ada := f.addUser(t, "ada", model.RoleStudent)
	sam := f.addUser(t, "sam", model.RoleStudent)

	personal := f.addSession(t, monitor, model.TypePersonal, 1, soon())
	f.join(t, personal.ID, ada)

	t.Run("already joined", func(t *testing.T) {
		rec := invoke(t, f.h.Join, http.MethodPost, "/x", "", withID(ada, personal.ID))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "already joined")
	})
	t.Run("full", func(t *testing.T) {
		rec := invoke(t, f.h.Join, http.MethodPost, "/x", "", withID(sam, personal.ID))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "full")
	})
	t.Run("not found", func(t *testing.T) {
		rec := invoke(t, f.h.Join, http.MethodPost, "/x", "", withID(sam, 999))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("not joinable once active", func(t *testing.T) {
		active := f.addSession(t, monitor, model.TypeGroup, 5, time.Now().Add(-time.Minute))
		n, err := f.sessions.ActivateDue(context.Background(), time.Now())
		require.NoError(t, err)
		require.Positive(t, n)
		rec := invoke(t, f.h.Join, http.MethodPost, "/x", "", withID(sam, active.ID))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "not joinable")
	})
}

func TestLeaveSession(t *testing.T) {
	f := newFixture()
	monitor := f.addUser(t, "tutor", model.RoleMonitor)
	ada := f.addUser(t, "ada", model.RoleStudent)
	s := f.addSession(t, monitor, model.TypeGroup, 5, soon())
	f.join(t, s.ID, ada)

	rec := invoke(t, f.h.Leave, http.MethodPost, "/x", "", withID(ada, s.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	// leaving twice is a conflict, not a no-op
	rec = invoke(t, f.h.Leave, http.MethodPost, "/x", "", withID(ada, s.ID))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a participant")

	rec = invoke(t, f.h.Leave, http.MethodPost, "/x", "", withID(ada, 999))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ----- update / delete -----

func TestUpdatePatchesSelectively(t *testing.T) {
	f := newFixture()
	monitor := f.addUser(t, "tutor", model.RoleMonitor)
	s := f.addSession(t, monitor, model.TypeGroup, 12, soon())
	s.Room = "B204"
	require.NoError(t, f.sessions.Update(context.Background(), s))

	rec := invoke(t, f.h.Update, http.MethodPut, "/x", `{"title":"Geometry"}`, withID(monitor, s.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Geometry", resp.Title)
	assert.Equal(t, "B204", resp.Room, "absent fields keep their values")
	assert.Equal(t, 12, resp.MaxParticipants)
}

func TestUpdateCapacityRules(t *testing.T) {
	f := newFixture()
	monitor := f.addUser(t, "tutor", model.RoleMonitor)
	ada := f.addUser(t, "ada", model.RoleStudent)
	sam := f.addUser(t, "sam", model.RoleStudent)

	t.Run("switch to personal forces one", func(t *testing.T) {
		s := f.addSession(t, monitor, model.TypeGroup, 12, soon())
		rec := invoke(t, f.h.Update, http.MethodPut, "/x", `{"session_type":"PERSONAL"}`, withID(monitor, s.ID))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp sessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, model.PersonalCapacity, resp.MaxParticipants)
	})
	t.Run("switch back to group restores the default", func(t *testing.T) {
		s := f.addSession(t, monitor, model.TypePersonal, 1, soon())
		rec := invoke(t, f.h.Update, http.MethodPut, "/x", `{"session_type":"GROUP"}`, withID(monitor, s.ID))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp sessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, model.DefaultGroupCapacity, resp.MaxParticipants)
	})
	t.Run("explicit capacity wins on the switch", func(t *testing.T) {
		s := f.addSession(t, monitor, model.TypePersonal, 1, soon())
		rec := invoke(t, f.h.Update, http.MethodPut, "/x", `{"session_type":"GROUP","max_participants":8}`, withID(monitor, s.ID))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp sessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 8, resp.MaxParticipants)
	})
	t.Run("cannot shrink below current participants", func(t *testing.T) {
		s := f.addSession(t, monitor, model.TypeGroup, 5, soon())
		f.join(t, s.ID, ada)
		f.join(t, s.ID, sam)
		rec := invoke(t, f.h.Update, http.MethodPut, "/x", `{"max_participants":1}`, withID(monitor, s.ID))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "participant count")
	})
}

func TestUpdateOwnershipAndExistence(t *testing.T) {
	f := newFixture()
	owner := f.addUser(t, "tutor", model.RoleMonitor)
	other := f.addUser(t, "rival", model.RoleMonitor)
	s := f.addSession(t, owner, model.TypeGroup, 5, soon())

	rec := invoke(t, f.h.Update, http.MethodPut, "/x", `{"title":"Hijack"}`, withID(other, s.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = invoke(t, f.h.Update, http.MethodPut, "/x", `{"title":"Ghost"}`, withID(other, 999))
	assert.Equal(t, http.StatusNotFound, rec.Code, "missing resource outranks access denial")
}

func TestDeleteSession(t *testing.T) {
	f := newFixture()
	owner := f.addUser(t, "tutor", model.RoleMonitor)
	other := f.addUser(t, "rival", model.RoleMonitor)
	s := f.addSession(t, owner, model.TypeGroup, 5, soon())

	rec := invoke(t, f.h.Delete, http.MethodDelete, "/x", "", withID(other, s.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = invoke(t, f.h.Delete, http.MethodDelete, "/x", "", withID(owner, s.ID))
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := f.sessions.GetByID(context.Background(), s.ID)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	rec = invoke(t, f.h.Delete, http.MethodDelete, "/x", "", withID(owner, s.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ----- listings -----

func TestListBranchesByRole(t *testing.T) {
	f := newFixture()
	tutor := f.addUser(t, "tutor", model.RoleMonitor)
	rival := f.addUser(t, "rival", model.RoleMonitor)
	ada := f.addUser(t, "ada", model.RoleStudent)

	mine := f.addSession(t, tutor, model.TypeGroup, 5, soon())
	theirs := f.addSession(t, rival, model.TypeGroup, 5, soon())
	// A session whose whole lifetime already passed; the sweep below
	// carries it to COMPLETED while the future ones stay SCHEDULED.
	done := f.addSession(t, rival, model.TypeGroup, 5, time.Now().Add(-2*time.Hour))
	f.join(t, theirs.ID, ada)
	f.join(t, done.ID, ada)
	ctx := context.Background()
	_, err := f.sessions.ActivateDue(ctx, time.Now())
	require.NoError(t, err)
	_, err = f.sessions.CompleteElapsed(ctx, time.Now())
	require.NoError(t, err)

	var resp struct {
		Sessions []model.Session `json:"sessions"`
	}

	rec := invoke(t, f.h.List, http.MethodGet, "/api/sessions", "", as(tutor))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1, "a monitor sees only sessions they own")
	assert.Equal(t, mine.ID, resp.Sessions[0].ID)

	rec = invoke(t, f.h.List, http.MethodGet, "/api/sessions", "", as(ada))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1, "completed sessions drop out of the student view")
	assert.Equal(t, theirs.ID, resp.Sessions[0].ID)
}

func TestGetAccess(t *testing.T) {
	f := newFixture()
	owner := f.addUser(t, "tutor", model.RoleMonitor)
	rival := f.addUser(t, "rival", model.RoleMonitor)
	ada := f.addUser(t, "ada", model.RoleStudent)
	s := f.addSession(t, owner, model.TypeGroup, 5, soon())

	rec := invoke(t, f.h.Get, http.MethodGet, "/x", "", withID(owner, s.ID))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = invoke(t, f.h.Get, http.MethodGet, "/x", "", withID(ada, s.ID))
	assert.Equal(t, http.StatusOK, rec.Code, "students may inspect any session")

	rec = invoke(t, f.h.Get, http.MethodGet, "/x", "", withID(rival, s.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = invoke(t, f.h.Get, http.MethodGet, "/x", "", withID(rival, 999))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvailableFiltersOutUnjoinable(t *testing.T) {
	f := newFixture()
	tutor := f.addUser(t, "tutor", model.RoleMonitor)
	ada := f.addUser(t, "ada", model.RoleStudent)

	open := f.addSession(t, tutor, model.TypeGroup, 5, soon())
	full := f.addSession(t, tutor, model.TypePersonal, 1, soon())
	f.join(t, full.ID, ada)
	f.addSession(t, tutor, model.TypeGroup, 5, time.Now().Add(-time.Hour))

	var resp struct {
		Sessions []model.Session `json:"sessions"`
	}
	rec := invoke(t, f.h.Available, http.MethodGet, "/api/sessions/available", "", as(ada))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, open.ID, resp.Sessions[0].ID)
}

func TestMonitorsEndpoints(t *testing.T) {
	f := newFixture()
	tutor := f.addUser(t, "tutor", model.RoleMonitor)
	ada := f.addUser(t, "ada", model.RoleStudent)
	s := f.addSession(t, tutor, model.TypeGroup, 5, soon())

	rec := invoke(t, f.h.Monitors, http.MethodGet, "/api/monitors", "", as(ada))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"monitors":[{"id":%d,"username":"tutor"}]}`, tutor.ID), rec.Body.String())

	setup := func(c echo.Context) {
		as(ada)(c)
		c.SetParamNames("monitorId")
		c.SetParamValues(fmt.Sprintf("%d", tutor.ID))
	}
	rec = invoke(t, f.h.MonitorSessions, http.MethodGet, "/x", "", setup)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Monitor  model.PublicUser `json:"monitor"`
		Sessions []model.Session  `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tutor", resp.Monitor.Username)
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, s.ID, resp.Sessions[0].ID)

	// a student id is not a monitor, even though the user exists
	rec = invoke(t, f.h.MonitorSessions, http.MethodGet, "/x", "", func(c echo.Context) {
		as(ada)(c)
		c.SetParamNames("monitorId")
		c.SetParamValues(fmt.Sprintf("%d", ada.ID))
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
