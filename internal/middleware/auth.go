// Package middleware provides reusable request processing: token
// authentication, role enforcement, rate limiting and response caching.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/classmate-app/classmate/internal/utils"
)

// TokenCookie is the name of the HTTP-only cookie carrying the auth
// token. A bearer Authorization header is accepted as fallback; the
// cookie wins when both are present.
const TokenCookie = "classmate_token"

// Context keys set by the auth middleware on success.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxRole     = "role"
)

// extractToken pulls the raw token from the request, cookie first.
func extractToken(c echo.Context) string {
	if ck, err := c.Cookie(TokenCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// Auth returns middleware that requires a valid token. A missing or
// invalid token halts the request with 401; on success the resolved
// identity is attached to the context for downstream handlers.
func Auth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			ident, err := utils.ParseAuthToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(CtxUserID, ident.ID)
			c.Set(CtxUsername, ident.Username)
			c.Set(CtxRole, string(ident.Role))
			return next(c)
		}
	}
}

// AuthOptional attaches the identity when a valid token is present and
// otherwise lets the request through anonymously. Downstream handlers
// must treat a missing user_id as an anonymous caller.
func AuthOptional(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := extractToken(c); raw != "" {
				if ident, err := utils.ParseAuthToken(secret, raw); err == nil {
					c.Set(CtxUserID, ident.ID)
					c.Set(CtxUsername, ident.Username)
					c.Set(CtxRole, string(ident.Role))
				}
			}
			return next(c)
		}
	}
}
