package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marwanhub/factories-server/internal/handlers"
	authmw "github.com/marwanhub/factories-server/internal/middleware/auth"
)

type Deps struct {
	SessionAuth       *authmw.SessionAuth
	AuthHandler       *handlers.AuthHandler
	ProductHandler    *handlers.ProductHandler
	SearchHandler     *handlers.SearchHandler
	ExportHandler     *handlers.ExportHandler
	FactoryHandler    *handlers.FactoryHandler
	ProductionHandler *handlers.ProductionHandler
	UploadHandler     *handlers.UploadHandler
	LogsHandler       *handlers.LogsHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	api := e.Group("/api")

	// The auth endpoints handle their own tokens: verify and stats report
	// shaped bodies rather than middleware rejections.
	api.POST("/auth/register", d.AuthHandler.Register)
	api.POST("/auth/login", d.AuthHandler.Login)
	api.POST("/auth/logout", d.AuthHandler.Logout)
	api.GET("/auth/verify", d.AuthHandler.Verify)
	api.GET("/auth/stats", d.AuthHandler.Stats)

	products := api.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/search", d.SearchHandler.Search)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("", d.ProductHandler.CreateProduct, d.SessionAuth.RequireAdmin)
	products.DELETE("/:id", d.ProductHandler.DeleteProduct, d.SessionAuth.RequireAdmin)

	factories := api.Group("/factories", d.SessionAuth.RequireSession)
	factories.GET("", d.FactoryHandler.GetFactories)
	factories.GET("/metrics", d.FactoryHandler.LiveMetrics)
	factories.GET("/:id", d.FactoryHandler.GetFactory)
	factories.POST("/start", d.ProductionHandler.StartFactory, d.SessionAuth.RequireAdmin)
	factories.POST("/stop", d.ProductionHandler.StopFactory, d.SessionAuth.RequireAdmin)

	production := api.Group("/production", d.SessionAuth.RequireSession)
	production.GET("/requests", d.ProductionHandler.ListRequests)
	production.GET("/requests/:id", d.ProductionHandler.GetRequest)
	production.POST("/requests", d.ProductionHandler.CreateRequest)
	production.DELETE("/requests/:id", d.ProductionHandler.DeleteRequest, d.SessionAuth.RequireAdmin)
	production.POST("/approve", d.ProductionHandler.ApproveRequest, d.SessionAuth.RequireAdmin)

	api.GET("/schedules", d.ProductionHandler.ListSchedules, d.SessionAuth.RequireSession)
	api.POST("/schedules", d.ProductionHandler.CreateSchedule, d.SessionAuth.RequireSession)
	api.GET("/quality/tests", d.ProductionHandler.ListQualityTests, d.SessionAuth.RequireSession)
	api.POST("/quality/tests", d.ProductionHandler.RunQualityTest, d.SessionAuth.RequireSession)

	api.POST("/upload", d.UploadHandler.Upload, d.SessionAuth.RequireAdmin)
	e.Static("/files", d.UploadHandler.Dir)

	api.POST("/export", d.ExportHandler.CreateExport, d.SessionAuth.RequireAdmin)
	api.GET("/exports", d.ExportHandler.ListExports, d.SessionAuth.RequireAdmin)
	api.GET("/logs", d.LogsHandler.GetLogs, d.SessionAuth.RequireAdmin)

	e.GET("/download/:id", d.ExportHandler.Download, d.SessionAuth.RequireAdmin)
}
