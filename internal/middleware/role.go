package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/classmate-app/classmate/internal/model"
)

// RequireRole returns middleware enforcing that the authenticated
// caller has one of the given roles. It assumes Auth ran earlier and
// stored the role in the context; a missing or unlisted role aborts the
// request with 403. Per-resource checks (ownership, participation)
// remain in the handlers since they need the record itself.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
