package authmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/marwanhub/factories-server/internal/auth"
)

func newTestAuth(t *testing.T) (*SessionAuth, *auth.Controller) {
	t.Helper()
	users, err := auth.NewUserStore(8)
	require.NoError(t, err)
	ctrl := &auth.Controller{
		Users:    users,
		Sessions: auth.NewSessionRegistry(time.Hour),
	}
	return NewSessionAuth(ctrl), ctrl
}

func loginAs(t *testing.T, ctrl *auth.Controller, username, role string) string {
	t.Helper()
	require.NoError(t, ctrl.Users.Register(username, "password1", username+"@example.com", role))
	res, err := ctrl.Login(t.Context(), username, "password1")
	require.NoError(t, err)
	return res.Token
}

func invoke(t *testing.T, mw echo.MiddlewareFunc, token string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	handler := mw(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, reached
}

func TestRequireSession(t *testing.T) {
	m, ctrl := newTestAuth(t)
	mw := echo.MiddlewareFunc(m.RequireSession)

	rec, reached := invoke(t, mw, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, reached)

	rec, reached = invoke(t, mw, "bogus-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, reached)

	token := loginAs(t, ctrl, "alice", auth.RoleUser)
	rec, reached = invoke(t, mw, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, reached)
}

func TestRequireAdmin(t *testing.T) {
	m, ctrl := newTestAuth(t)
	mw := echo.MiddlewareFunc(m.RequireAdmin)

	userToken := loginAs(t, ctrl, "bob", auth.RoleUser)
	rec, reached := invoke(t, mw, userToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, reached)

	adminToken := loginAs(t, ctrl, "root", auth.RoleAdmin)
	rec, reached = invoke(t, mw, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, reached)
}

func TestSessionStoredInContext(t *testing.T) {
	m, ctrl := newTestAuth(t)
	token := loginAs(t, ctrl, "carol", auth.RoleUser)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := m.RequireSession(func(c echo.Context) error {
		info, ok := SessionFromContext(c)
		require.True(t, ok)
		require.Equal(t, "carol", info.Username)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestExpiredSessionRejected(t *testing.T) {
	users, err := auth.NewUserStore(8)
	require.NoError(t, err)
	ctrl := &auth.Controller{
		Users:    users,
		Sessions: auth.NewSessionRegistry(time.Millisecond),
	}
	m := NewSessionAuth(ctrl)

	require.NoError(t, users.Register("dave", "password1", "d@example.com", auth.RoleUser))
	res, err := ctrl.Login(t.Context(), "dave", "password1")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	rec, reached := invoke(t, echo.MiddlewareFunc(m.RequireSession), res.Token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, reached)
	require.Contains(t, rec.Body.String(), "session expired")
}
