// Package handler implements the HTTP endpoints. Handlers assume the
// auth middleware already ran where a route requires it and read the
// caller's identity back out of the echo context.
package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/classmate-app/classmate/internal/middleware"
	"github.com/classmate-app/classmate/internal/model"
)

// dbTimeout bounds every storage call made from a handler.
const dbTimeout = 5 * time.Second

var errNoIdentity = errors.New("no identity in context")

// callerIdentity rebuilds the authenticated identity from the context
// values set by the auth middleware.
func callerIdentity(c echo.Context) (model.Identity, error) {
	id, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok || id == 0 {
		return model.Identity{}, errNoIdentity
	}
	username, _ := c.Get(middleware.CtxUsername).(string)
	role, _ := c.Get(middleware.CtxRole).(string)
	ident := model.Identity{ID: id, Username: username, Role: model.Role(role)}
	if !ident.Role.Valid() {
		return model.Identity{}, errNoIdentity
	}
	return ident, nil
}

// pathID parses a numeric path parameter, rejecting zero.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// reqCtx derives a bounded context from the request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// scheduleFormats are accepted for scheduled_date input, tried in
// order. Parsed times are normalized to UTC before persisting.
var scheduleFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseSchedule(raw string) (time.Time, error) {
	for _, layout := range scheduleFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("invalid scheduled_date")
}
