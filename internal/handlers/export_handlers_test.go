package handlers

import (
	"archive/zip"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/marwanhub/factories-server/internal/audit"
	"github.com/marwanhub/factories-server/internal/events"
	"github.com/marwanhub/factories-server/internal/models"
)

func newTestExportHandler(t *testing.T) *ExportHandler {
	t.Helper()
	db := initTestDB(t)
	return &ExportHandler{
		DB:         db,
		Producer:   events.NewProducer(""),
		Audit:      &audit.Recorder{DB: db},
		ExportsDir: t.TempDir(),
	}
}

func TestCreateExportBundlesProducts(t *testing.T) {
	h := newTestExportHandler(t)
	e := echo.New()

	srcDir := t.TempDir()
	filePath := filepath.Join(srcDir, "course.pdf")
	require.NoError(t, os.WriteFile(filePath, []byte("course content"), 0o644))

	require.NoError(t, h.DB.Create(&models.Product{
		FactoryType: "education", Name: "course", FilePath: filePath,
	}).Error)
	require.NoError(t, h.DB.Create(&models.Product{
		FactoryType: "education", Name: "fileless",
	}).Error)

	rec := doJSON(t, e, h.CreateExport, http.MethodPost, "/api/export", "", map[string]any{
		"factory_type": "education",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	require.Equal(t, true, body["success"])
	require.Equal(t, float64(2), body["products"])

	var export models.Export
	require.NoError(t, h.DB.First(&export).Error)
	require.Equal(t, body["export_id"], export.ExportID)
	require.Equal(t, "zip", export.ExportFormat)

	zr, err := zip.OpenReader(export.FilePath)
	require.NoError(t, err)
	defer zr.Close()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	require.Contains(t, names, "manifest.json")
	require.Contains(t, names, "course.pdf")

	// Exported products are flagged.
	var exported int64
	h.DB.Model(&models.Product{}).Where("exported = ?", true).Count(&exported)
	require.Equal(t, int64(2), exported)
}

func TestCreateExportNoMatches(t *testing.T) {
	h := newTestExportHandler(t)
	e := echo.New()

	rec := doJSON(t, e, h.CreateExport, http.MethodPost, "/api/export", "", map[string]any{
		"factory_type": "corporate",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateExportRequiresSelector(t *testing.T) {
	h := newTestExportHandler(t)
	e := echo.New()

	rec := doJSON(t, e, h.CreateExport, http.MethodPost, "/api/export", "", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadExport(t *testing.T) {
	h := newTestExportHandler(t)
	e := echo.New()

	require.NoError(t, h.DB.Create(&models.Product{FactoryType: "education", Name: "course"}).Error)
	rec := doJSON(t, e, h.CreateExport, http.MethodPost, "/api/export", "", map[string]any{
		"factory_type": "education",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	exportID := decode(t, rec)["export_id"].(string)

	c, recDl := newParamRequest(e, http.MethodGet, "/download/"+exportID, exportID)
	require.NoError(t, h.Download(c))
	require.Equal(t, http.StatusOK, recDl.Code)
	require.Contains(t, recDl.Header().Get(echo.HeaderContentDisposition), "export_"+exportID)

	var export models.Export
	require.NoError(t, h.DB.First(&export).Error)
	require.Equal(t, 1, export.DownloadCount)

	cMissing, recMissing := newParamRequest(e, http.MethodGet, "/download/bogus", "bogus")
	require.NoError(t, h.Download(cMissing))
	require.Equal(t, http.StatusNotFound, recMissing.Code)
}

func newParamRequest(e *echo.Echo, method, target, id string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func TestListExports(t *testing.T) {
	h := newTestExportHandler(t)
	e := echo.New()

	require.NoError(t, h.DB.Create(&models.Product{FactoryType: "creative", Name: "art"}).Error)
	rec := doJSON(t, e, h.CreateExport, http.MethodPost, "/api/export", "", map[string]any{
		"factory_type": "creative",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	listRec := doJSON(t, e, h.ListExports, http.MethodGet, "/api/exports", "", nil)
	require.Equal(t, http.StatusOK, listRec.Code)
	require.Len(t, decode(t, listRec)["exports"].([]any), 1)
}

func TestLogsHandler(t *testing.T) {
	db := initTestDB(t)
	recorder := &audit.Recorder{DB: db}
	recorder.Record(t.Context(), "info", "auth", "user logged in", "alice", "127.0.0.1")
	recorder.Record(t.Context(), "info", "export", "exported 2 products", "admin", "127.0.0.1")

	h := &LogsHandler{Audit: recorder}
	e := echo.New()

	rec := doJSON(t, e, h.GetLogs, http.MethodGet, "/api/logs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode(t, rec)["logs"].([]any)
	require.Len(t, logs, 2)
	// Newest first.
	require.Equal(t, "exported 2 products", logs[0].(map[string]any)["message"])
}
