package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/classmate-app/classmate/internal/model"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		ctxRole  interface{}
		allowed  []model.Role
		wantCode int
	}{
		{"matching role passes", "MONITOR", []model.Role{model.RoleMonitor}, http.StatusOK},
		{"one of several passes", "STUDENT", []model.Role{model.RoleMonitor, model.RoleStudent}, http.StatusOK},
		{"wrong role refused", "STUDENT", []model.Role{model.RoleMonitor}, http.StatusForbidden},
		{"missing role refused", nil, []model.Role{model.RoleMonitor}, http.StatusForbidden},
		{"non-string role refused", 42, []model.Role{model.RoleMonitor}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.ctxRole != nil {
				c.Set(CtxRole, tt.ctxRole)
			}
			h := RequireRole(tt.allowed...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			_ = h(c)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
