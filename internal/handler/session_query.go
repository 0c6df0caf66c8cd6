package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/classmate-app/classmate/internal/model"
	"github.com/classmate-app/classmate/internal/repository"
)

// List handles GET /api/sessions and branches by role: a monitor sees
// every session they own; a student sees sessions they currently
// participate in that are still scheduled or active. Completed ones
// drop out of this view.
func (h *SessionHandler) List(c echo.Context) error {
	ident, err := callerIdentity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var sessions []model.Session
	switch ident.Role {
	case model.RoleMonitor:
		sessions, err = h.Sessions.ListByOwner(ctx, ident.ID)
	case model.RoleStudent:
		sessions, err = h.Sessions.ListByParticipant(ctx, ident.ID,
			model.StatusScheduled, model.StatusActive)
	default:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err != nil {
		return storageError(c, "list sessions", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions})
}

// Get handles GET /api/sessions/:id. The owner always has access;
// students may inspect any session (they need the detail to decide on
// joining); a monitor who does not own the session is refused.
func (h *SessionHandler) Get(c echo.Context) error {
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
		return storageError(c, "get session", err)
	}
	if ident.Role == model.RoleMonitor && s.OwnerID != ident.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	resp, err := h.resolve(ctx, s)
	if err != nil {
		return storageError(c, "get session", err)
	}
	return c.JSON(http.StatusOK, resp)
}
