// Package router wires handlers, auth middleware and role gates onto
// the echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/classmate-app/classmate/internal/handler"
	"github.com/classmate-app/classmate/internal/middleware"
	"github.com/classmate-app/classmate/internal/model"
)

// Register mounts every route. The rate limiter guards the credential
// and join endpoints; the response cache fronts the student browse
// listings. Both may be pass-throughs when Redis is absent.
func Register(e *echo.Echo, a *handler.AuthHandler, s *handler.SessionHandler,
	jwtSecret string, limiter echo.MiddlewareFunc, cache echo.MiddlewareFunc) {

	e.GET("/healthz", handler.Health)

	// Public auth endpoints. Logout runs with optional auth: it clears
	// the cookie whether or not the token is still valid.
	e.POST("/register", a.Register, limiter)
	e.POST("/login", a.Login, limiter)
	e.GET("/logout", a.Logout, middleware.AuthOptional(jwtSecret))

	e.GET("/me", a.Me, middleware.Auth(jwtSecret))

	api := e.Group("/api", middleware.Auth(jwtSecret))

	// Session collection. Static segments register before /:id so
	// /sessions/available never matches the parameter route.
	api.GET("/sessions", s.List)
	api.POST("/sessions", s.Create, middleware.RequireRole(model.RoleMonitor))
	api.GET("/sessions/available", s.Available, middleware.RequireRole(model.RoleStudent), cache)
	api.GET("/sessions/:id", s.Get)
	api.PUT("/sessions/:id", s.Update, middleware.RequireRole(model.RoleMonitor))
	api.DELETE("/sessions/:id", s.Delete, middleware.RequireRole(model.RoleMonitor))
	api.POST("/sessions/:id/join", s.Join, middleware.RequireRole(model.RoleStudent), limiter)
	api.POST("/sessions/:id/leave", s.Leave)

	// Monitor browsing (student view).
	api.GET("/monitors", s.Monitors, middleware.RequireRole(model.RoleStudent), cache)
	api.GET("/monitors/:monitorId/sessions", s.MonitorSessions, middleware.RequireRole(model.RoleStudent), cache)
}
