package handlers

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/marwanhub/factories-server/internal/audit"
	"github.com/marwanhub/factories-server/internal/events"
	"github.com/marwanhub/factories-server/internal/logging"
	authmw "github.com/marwanhub/factories-server/internal/middleware/auth"
	"github.com/marwanhub/factories-server/internal/models"
)

// ExportHandler bundles product files into downloadable zip archives.
type ExportHandler struct {
	DB         *gorm.DB
	Producer   *events.Producer
	Audit      *audit.Recorder
	ExportsDir string
}

func (h *ExportHandler) CreateExport(c echo.Context) error {
	var req struct {
		FactoryType string `json:"factory_type"`
		ProductIDs  []uint `json:"product_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "invalid request body",
		})
	}

	ctx := c.Request().Context()
	q := h.DB.WithContext(ctx).Model(&models.Product{})
	if len(req.ProductIDs) > 0 {
		q = q.Where("id IN ?", req.ProductIDs)
	} else if req.FactoryType != "" {
		q = q.Where("factory_type = ?", req.FactoryType)
	} else {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false, "message": "factory_type or product_ids is required",
		})
	}

	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "could not load products",
		})
	}
	if len(products) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{
			"success": false, "message": "no products to export",
		})
	}

	exportID := uuid.NewString()
	archivePath, size, err := h.writeArchive(exportID, products)
	if err != nil {
		logging.FromContext(ctx).Error("export_failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "export failed",
		})
	}

	idsJSON, err := json.Marshal(productIDs(products))
	if err != nil {
		logging.FromContext(ctx).Error("export_failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "export failed",
		})
	}
	username := ""
	if info, ok := authmw.SessionFromContext(c); ok {
		username = info.Username
	}

	export := models.Export{
		ExportID:     exportID,
		FactoryType:  req.FactoryType,
		ProductIDs:   string(idsJSON),
		ExportFormat: "zip",
		FilePath:     archivePath,
		FileSize:     size,
		CreatedBy:    username,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.DB.WithContext(ctx).Create(&export).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "could not record export",
		})
	}

	if err := h.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id IN ?", productIDs(products)).
		Update("exported", true).Error; err != nil {
		logging.FromContext(ctx).Error("export_flag_update_failed", "error", err)
	}

	h.Audit.Record(ctx, "info", "export", fmt.Sprintf("exported %d products", len(products)), username, c.RealIP())
	if err := h.Producer.PublishEvent(ctx, events.TopicProductEvents, exportID, map[string]any{
		"type":      "export_created",
		"export_id": exportID,
		"products":  len(products),
	}); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "error", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success":   true,
		"message":   "export created",
		"export_id": exportID,
		"file_size": size,
		"products":  len(products),
	})
}

func (h *ExportHandler) ListExports(c echo.Context) error {
	var exports []models.Export
	if err := h.DB.WithContext(c.Request().Context()).Order("id DESC").Find(&exports).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "message": "could not list exports",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "exports": exports})
}

func (h *ExportHandler) Download(c echo.Context) error {
	exportID := c.Param("id")

	ctx := c.Request().Context()
	var export models.Export
	if err := h.DB.WithContext(ctx).Where("export_id = ?", exportID).First(&export).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"success": false, "message": "export not found",
		})
	}

	if _, err := os.Stat(export.FilePath); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"success": false, "message": "export file missing",
		})
	}

	h.DB.WithContext(ctx).Model(&export).Update("download_count", gorm.Expr("download_count + 1"))

	return c.Attachment(export.FilePath, filepath.Base(export.FilePath))
}

// writeArchive zips the product files plus a manifest describing the batch.
// Products whose source file is unreadable still appear in the manifest.
func (h *ExportHandler) writeArchive(exportID string, products []models.Product) (string, int64, error) {
	if err := os.MkdirAll(h.ExportsDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("export dir: %w", err)
	}

	archivePath := filepath.Join(h.ExportsDir, "export_"+exportID+".zip")
	f, err := os.Create(archivePath)
	if err != nil {
		return "", 0, fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	manifest, err := zw.Create("manifest.json")
	if err != nil {
		return "", 0, err
	}
	if err := json.NewEncoder(manifest).Encode(products); err != nil {
		return "", 0, err
	}

	for _, p := range products {
		if p.FilePath == "" {
			continue
		}
		src, err := os.Open(p.FilePath)
		if err != nil {
			continue
		}
		entry, err := zw.Create(filepath.Base(p.FilePath))
		if err != nil {
			src.Close()
			return "", 0, err
		}
		if _, err := io.Copy(entry, src); err != nil {
			src.Close()
			return "", 0, err
		}
		src.Close()
	}

	if err := zw.Close(); err != nil {
		return "", 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return "", 0, err
	}
	return archivePath, info.Size(), nil
}

func productIDs(products []models.Product) []uint {
	ids := make([]uint, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}
