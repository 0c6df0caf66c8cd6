package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/classmate-app/classmate/internal/model"
	"github.com/classmate-app/classmate/internal/queue"
	"github.com/classmate-app/classmate/internal/repository"
)

// Join handles POST /api/sessions/:id/join (student only). The store
// applies the preconditions atomically, so the handler only maps the
// refusal to a status code and builds the success response.
func (h *SessionHandler) Join(c echo.Context) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Sessions.AddParticipant(ctx, id, ident.ID); err != nil {
		switch err {
		case repository.ErrSessionNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case repository.ErrNotJoinable:
			return c.JSON(http.StatusConflict, echo.Map{"error": "session is not joinable"})
		case repository.ErrAlreadyJoined:
			return c.JSON(http.StatusConflict, echo.Map{"error": "already joined this session"})
		case repository.ErrSessionFull:
			return c.JSON(http.StatusConflict, echo.Map{"error": "session is full"})
		default:
			return storageError(c, "join session", err)
		}
	}
	h.invalidateListings(ctx)

	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return storageError(c, "join session", err)
	}
	resp, err := h.resolve(ctx, s)
	if err != nil {
		return storageError(c, "join session", err)
	}
	h.publishActivity(queue.ActionJoined, &resp.Session, ident)
	return c.JSON(http.StatusOK, resp)
}

// Leave handles POST /api/sessions/:id/leave. Any authenticated current
// participant may leave, in any session status.
func (h *SessionHandler) Leave(c echo.Context) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return storageError(c, "leave session", err)
	}
	if err := h.Sessions.RemoveParticipant(ctx, id, ident.ID); err != nil {
		if err == repository.ErrNotParticipant {
			return c.JSON(http.StatusConflict, echo.Map{"error": "not a participant of this session"})
		}
		return storageError(c, "leave session", err)
	}
	h.invalidateListings(ctx)
	s.ParticipantCount--
	h.publishActivity(queue.ActionLeft, s, ident)
	return c.JSON(http.StatusOK, echo.Map{"message": "left session"})
}

// Available handles GET /api/sessions/available (student only):
// sessions that are SCHEDULED, in the future and below capacity,
// soonest first.
func (h *SessionHandler) Available(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	sessions, err := h.Sessions.ListAvailable(ctx, time.Now().UTC(), 0)
	if err != nil {
		return storageError(c, "list available", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions})
}

// Monitors handles GET /api/monitors (student only): public identities
// of every monitor.
func (h *SessionHandler) Monitors(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	monitors, err := h.Users.ListMonitors(ctx)
	if err != nil {
		return storageError(c, "list monitors", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"monitors": monitors})
}

// MonitorSessions handles GET /api/monitors/:monitorId/sessions
// (student only): the availability filter scoped to one monitor,
// returned alongside that monitor's public identity.
func (h *SessionHandler) MonitorSessions(c echo.Context) error {
	monitorID, err := pathID(c, "monitorId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid monitor id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, monitorID)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "monitor not found"})
		}
		return storageError(c, "monitor sessions", err)
	}
	if u.Role != model.RoleMonitor {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "monitor not found"})
	}

	sessions, err := h.Sessions.ListAvailable(ctx, time.Now().UTC(), monitorID)
	if err != nil {
		return storageError(c, "monitor sessions", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"monitor":  model.PublicUser{ID: u.ID, Username: u.Username},
		"sessions": sessions,
	})
}

// publishActivity emits a membership event to the broker without
// blocking or failing the request; the publisher logs its own errors.
func (h *SessionHandler) publishActivity(action string, s *model.Session, ident model.Identity) {
	if h.Publish == nil {
		return
	}
	ev := queue.SessionEvent{
		Action:       action,
		SessionID:    s.ID,
		Title:        s.Title,
		OwnerID:      s.OwnerID,
		UserID:       ident.ID,
		Username:     ident.Username,
		ScheduledAt:  s.ScheduledDate.UTC().Format(time.RFC3339),
		Participants: s.ParticipantCount,
		Capacity:     s.MaxParticipants,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.Publish(ctx, ev)
	}()
}
