// Package authmw gates handler groups behind an active session. It replaces
// decorator-style wrapping with explicit echo middleware: every protected
// route calls Authorize before its handler runs.
package authmw

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/marwanhub/factories-server/internal/auth"
)

// SessionKey is where middleware stores the auth.SessionInfo for handlers.
const SessionKey = "session"

type SessionAuth struct {
	Auth *auth.Controller
}

func NewSessionAuth(ctrl *auth.Controller) *SessionAuth {
	return &SessionAuth{Auth: ctrl}
}

// BearerToken extracts the session token from the Authorization header.
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// RequireSession admits any active session.
func (m *SessionAuth) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require("", next)
}

// RequireAdmin admits only sessions holding the admin role. Role matching is
// exact: admin does not imply user and vice versa.
func (m *SessionAuth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(auth.RoleAdmin, next)
}

func (m *SessionAuth) require(role string, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := BearerToken(c)
		if token == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success": false, "message": "authentication required",
			})
		}

		info, err := m.Auth.Authorize(c.Request().Context(), token, role)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrForbidden):
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false, "message": "insufficient privileges",
				})
			case errors.Is(err, auth.ErrSessionExpired):
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "session expired",
				})
			default:
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "invalid session",
				})
			}
		}

		c.Set(SessionKey, info)
		return next(c)
	}
}

// SessionFromContext returns the session the middleware stored, if any.
func SessionFromContext(c echo.Context) (auth.SessionInfo, bool) {
	info, ok := c.Get(SessionKey).(auth.SessionInfo)
	return info, ok
}
