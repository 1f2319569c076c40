package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/marwanhub/factories-server/internal/logging"
)

// maxUploadBytes caps a single product file upload at 50 MiB.
const maxUploadBytes = 50 << 20

// UploadHandler stores raw product files under Dir. Stored files are served
// back from the /files route.
type UploadHandler struct {
	Dir string
}

func (h *UploadHandler) Upload(c echo.Context) error {
	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		logging.FromContext(c.Request().Context()).Error("upload_dir_failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "upload failed",
		})
	}

	filename := fmt.Sprintf("uploaded_%d.dat", time.Now().UnixNano())
	path := filepath.Join(h.Dir, filename)

	dst, err := os.Create(path)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("upload_create_failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "upload failed",
		})
	}
	defer dst.Close()

	size, err := io.Copy(dst, io.LimitReader(c.Request().Body, maxUploadBytes))
	if err != nil {
		os.Remove(path)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "upload failed",
		})
	}
	if size == 0 {
		os.Remove(path)
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "empty upload",
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success":      true,
		"message":      "file uploaded",
		"filename":     filename,
		"size":         size,
		"download_url": "/files/" + filename,
	})
}
