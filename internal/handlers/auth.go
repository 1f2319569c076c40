package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marwanhub/factories-server/internal/audit"
	"github.com/marwanhub/factories-server/internal/auth"
	"github.com/marwanhub/factories-server/internal/events"
	"github.com/marwanhub/factories-server/internal/logging"
	authmw "github.com/marwanhub/factories-server/internal/middleware/auth"
)

type AuthHandler struct {
	Auth     *auth.Controller
	Producer *events.Producer
	Audit    *audit.Recorder
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	if err := h.Producer.PublishEvent(c.Request().Context(), events.TopicUserEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	}

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "invalid request body",
		})
	}
	if req.Username == "" || req.Password == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "username, password and email are required",
		})
	}

	if err := h.Auth.Users.Register(req.Username, req.Password, req.Email, req.Role); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			return c.JSON(http.StatusConflict, echo.Map{
				"success": false, "message": "username already exists",
			})
		case errors.Is(err, auth.ErrPasswordTooShort):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"success": false, "message": "password is too short",
			})
		default:
			logging.FromContext(c.Request().Context()).Error("register_failed", "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"success": false, "message": "registration failed",
			})
		}
	}

	h.Audit.Record(c.Request().Context(), "info", "auth", "user registered", req.Username, c.RealIP())
	h.publish(c, req.Username, map[string]any{
		"type":     "user_registered",
		"username": req.Username,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true, "message": "user registered successfully",
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "invalid request body",
		})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "username and password are required",
		})
	}

	res, err := h.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAccountInactive) {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success": false, "message": "account is not active",
			})
		}
		if auth.IsAuthError(err) {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success": false, "message": "invalid username or password",
			})
		}
		logging.FromContext(c.Request().Context()).Error("login_failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "login failed",
		})
	}

	h.Audit.Record(c.Request().Context(), "info", "auth", "user logged in", res.User.Username, c.RealIP())
	h.publish(c, res.User.Username, map[string]any{
		"type":     "user_logged_in",
		"username": res.User.Username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"message":       "login successful",
		"session_token": res.Token,
		"expires_at":    res.ExpiresAt,
		"user": echo.Map{
			"username": res.User.Username,
			"role":     res.User.Role,
			"email":    res.User.Email,
		},
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	token := authmw.BearerToken(c)
	if token == "" {
		var req struct {
			SessionToken string `json:"session_token"`
		}
		if err := c.Bind(&req); err == nil {
			token = req.SessionToken
		}
	}
	if token == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false, "message": "session token is required",
		})
	}

	if err := h.Auth.Logout(c.Request().Context(), token); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"success": false, "message": "session not found",
		})
	}

	h.Audit.Record(c.Request().Context(), "info", "auth", "user logged out", "", c.RealIP())
	return c.JSON(http.StatusOK, echo.Map{
		"success": true, "message": "logged out successfully",
	})
}

func (h *AuthHandler) Verify(c echo.Context) error {
	token := authmw.BearerToken(c)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"valid": false, "message": "authentication header is required",
		})
	}

	info, err := h.Auth.Authorize(c.Request().Context(), token, "")
	if err != nil {
		msg := "invalid session"
		if errors.Is(err, auth.ErrSessionExpired) {
			msg = "session expired"
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"valid": false, "message": msg,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"valid":      true,
		"username":   info.Username,
		"role":       info.Role,
		"expires_at": info.ExpiresAt,
	})
}

func (h *AuthHandler) Stats(c echo.Context) error {
	token := authmw.BearerToken(c)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false, "message": "authentication header is required",
		})
	}

	if _, err := h.Auth.Authorize(c.Request().Context(), token, auth.RoleAdmin); err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{
				"success": false, "message": "insufficient privileges",
			})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false, "message": "invalid session",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"stats":   h.Auth.Stats(),
		"users":   h.Auth.Users.Export(),
	})
}
