package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/classmate-app/classmate/internal/middleware"
	"github.com/classmate-app/classmate/internal/model"
	"github.com/classmate-app/classmate/internal/queue"
	"github.com/classmate-app/classmate/internal/repository"
)

// SessionHandler implements every session endpoint: monitor CRUD,
// student browse/join/leave and the shared listings. Role gates run in
// route middleware; ownership and participation checks live here
// because they need the record itself. Existence is always checked
// before access, so a truly missing resource reports 404 and a denied
// one reports 403.
type SessionHandler struct {
	Sessions repository.SessionStore
	Users    repository.UserStore
	Cache    *middleware.ResponseCache // nil disables invalidation
	// Publish emits membership events to the broker; nil disables
	// publishing (tests, broker-less deployments).
	Publish func(context.Context, queue.SessionEvent) error
}

// NewSessionHandler constructs a SessionHandler. Cache and publish may
// be nil.
func NewSessionHandler(sessions repository.SessionStore, users repository.UserStore,
	cache *middleware.ResponseCache, publish func(context.Context, queue.SessionEvent) error) *SessionHandler {
	if sessions == nil || users == nil {
		panic("nil store passed to NewSessionHandler")
	}
	return &SessionHandler{Sessions: sessions, Users: users, Cache: cache, Publish: publish}
}

// sessionResponse is a session with its owner and participant
// identities resolved for display.
type sessionResponse struct {
	model.Session
	Owner model.PublicUser `json:"owner"`
}

// resolve loads the owner and participant identities for s.
func (h *SessionHandler) resolve(ctx context.Context, s *model.Session) (sessionResponse, error) {
	resp := sessionResponse{Session: *s}
	if owner, err := h.Users.GetByID(ctx, s.OwnerID); err == nil {
		resp.Owner = model.PublicUser{ID: owner.ID, Username: owner.Username}
	}
	parts, err := h.Sessions.Participants(ctx, s.ID)
	if err != nil {
		return resp, err
	}
	resp.Participants = parts
	resp.ParticipantCount = len(parts)
	return resp, nil
}

// invalidateListings bumps the browse cache after any mutation that
// changes what students can see.
func (h *SessionHandler) invalidateListings(ctx context.Context) {
	if h.Cache != nil {
		h.Cache.Invalidate(ctx)
	}
}

// storageError logs the unexpected error and replies with a generic
// message; internals never leak to the client.
func storageError(c echo.Context, op string, err error) error {
	c.Logger().Errorf("%s: %v", op, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
