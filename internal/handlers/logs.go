package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marwanhub/factories-server/internal/audit"
)

type LogsHandler struct {
	Audit *audit.Recorder
}

func (h *LogsHandler) GetLogs(c echo.Context) error {
	limit := parseIntDefault(c.QueryParam("limit"), 100)

	entries, err := h.Audit.Recent(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "could not load logs",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "logs": entries})
}
