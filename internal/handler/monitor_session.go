package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/classmate-app/classmate/internal/model"
	"github.com/classmate-app/classmate/internal/repository"
)

// sessionReq is the write shape for create and update. Pointer fields
// distinguish "absent" from "zero" so updates can patch selectively.
type sessionReq struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	ScheduledDate   *string `json:"scheduled_date"`
	DurationMinutes *int    `json:"duration_minutes"`
	SessionType     *string `json:"session_type"` // PERSONAL | GROUP
	MaxParticipants *int    `json:"max_participants"`
	Room            *string `json:"room"`
	Subject         *string `json:"subject"`
	Notes           *string `json:"notes"`
}

// Create handles POST /api/sessions (monitor only). Title and
// scheduled_date are required; duration defaults to 60 minutes, type to
// GROUP, and capacity follows the personal/group rule.
func (h *SessionHandler) Create(c echo.Context) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.ScheduledDate == nil || *req.ScheduledDate == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "scheduled_date is required"})
	}
	when, err := parseSchedule(*req.ScheduledDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid scheduled_date"})
	}

	s := model.Session{
		Title:           strings.TrimSpace(*req.Title),
		OwnerID:         ident.ID,
		ScheduledDate:   when,
		DurationMinutes: model.DefaultDurationMinutes,
		Status:          model.StatusScheduled,
		Type:            model.TypeGroup,
	}
	if req.Description != nil {
		s.Description = *req.Description
	}
	if req.Room != nil {
		s.Room = *req.Room
	}
	if req.Subject != nil {
		s.Subject = *req.Subject
	}
	if req.Notes != nil {
		s.Notes = *req.Notes
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_minutes must be positive"})
		}
		s.DurationMinutes = *req.DurationMinutes
	}
	if req.SessionType != nil {
		t := model.SessionType(strings.ToUpper(strings.TrimSpace(*req.SessionType)))
		if !t.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session_type"})
		}
		s.Type = t
	}
	requested := 0
	if req.MaxParticipants != nil {
		if *req.MaxParticipants <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_participants must be positive"})
		}
		requested = *req.MaxParticipants
	}
	s.MaxParticipants = model.ResolveCapacity(s.Type, requested)

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Sessions.Create(ctx, &s); err != nil {
		return storageError(c, "create session", err)
	}
	h.invalidateListings(ctx)

	resp, err := h.resolve(ctx, &s)
	if err != nil {
		return storageError(c, "create session", err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Update handles PUT /api/sessions/:id (owner only). Fields absent from
// the patch keep their values. Setting the type to PERSONAL forces
// capacity 1; switching to GROUP without an explicit capacity applies
// the default only when the previous value was the forced personal one.
func (h *SessionHandler) Update(c echo.Context) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return storageError(c, "update session", err)
	}
	if s.OwnerID != ident.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	prevType := s.Type
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "title cannot be empty"})
		}
		s.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		s.Description = *req.Description
	}
	if req.Room != nil {
		s.Room = *req.Room
	}
	if req.Subject != nil {
		s.Subject = *req.Subject
	}
	if req.Notes != nil {
		s.Notes = *req.Notes
	}
	if req.ScheduledDate != nil {
		when, err := parseSchedule(*req.ScheduledDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid scheduled_date"})
		}
		s.ScheduledDate = when
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_minutes must be positive"})
		}
		s.DurationMinutes = *req.DurationMinutes
	}
	if req.SessionType != nil {
		t := model.SessionType(strings.ToUpper(strings.TrimSpace(*req.SessionType)))
		if !t.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session_type"})
		}
		s.Type = t
	}
	if req.MaxParticipants != nil {
		if *req.MaxParticipants <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_participants must be positive"})
		}
		s.MaxParticipants = *req.MaxParticipants
	}
	switch {
	case s.Type == model.TypePersonal:
		s.MaxParticipants = model.PersonalCapacity
	case s.Type == model.TypeGroup && req.MaxParticipants == nil && prevType == model.TypePersonal:
		s.MaxParticipants = model.DefaultGroupCapacity
	}
	if s.MaxParticipants < s.ParticipantCount {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_participants below current participant count"})
	}

	if err := h.Sessions.Update(ctx, s); err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return storageError(c, "update session", err)
	}
	h.invalidateListings(ctx)

	resp, err := h.resolve(ctx, s)
	if err != nil {
		return storageError(c, "update session", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /api/sessions/:id (owner only). Hard delete;
// participant rows cascade.
func (h *SessionHandler) Delete(c echo.Context) error {
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
		return storageError(c, "delete session", err)
	}
	if s.OwnerID != ident.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	if err := h.Sessions.Delete(ctx, id); err != nil && err != repository.ErrSessionNotFound {
		return storageError(c, "delete session", err)
	}
	h.invalidateListings(ctx)
	return c.NoContent(http.StatusNoContent)
}
