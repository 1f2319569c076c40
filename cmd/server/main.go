package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/marwanhub/factories-server/internal/audit"
	"github.com/marwanhub/factories-server/internal/auth"
	"github.com/marwanhub/factories-server/internal/config"
	"github.com/marwanhub/factories-server/internal/db"
	"github.com/marwanhub/factories-server/internal/es"
	"github.com/marwanhub/factories-server/internal/events"
	"github.com/marwanhub/factories-server/internal/handlers"
	"github.com/marwanhub/factories-server/internal/logging"
	authmw "github.com/marwanhub/factories-server/internal/middleware/auth"
	loggingmw "github.com/marwanhub/factories-server/internal/middleware/logging"
	httpserver "github.com/marwanhub/factories-server/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LogLevel)

	gdb, err := db.Open(configuration)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	users, err := auth.NewUserStore(configuration.MinPasswordLength)
	if err != nil {
		log.Fatalf("user store init: %v", err)
	}
	seedBootstrapAccounts(users, configuration)

	sessions := auth.NewSessionRegistry(configuration.SessionTimeout)
	ctrl := &auth.Controller{Users: users, Sessions: sessions}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if configuration.SweepInterval > 0 {
		sessions.StartSweeper(sweepCtx, configuration.SweepInterval)
	}

	prod := events.NewProducer(configuration.KafkaAddress)

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		esClient, err = es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init: %v", err)
		}
	}

	recorder := &audit.Recorder{DB: gdb}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	production := handlers.NewProductionHandler(recorder)

	deps := httpserver.Deps{
		SessionAuth: authmw.NewSessionAuth(ctrl),
		AuthHandler: &handlers.AuthHandler{Auth: ctrl, Producer: prod, Audit: recorder},
		ProductHandler: &handlers.ProductHandler{
			DB:       gdb,
			Producer: prod,
			Indexer:  &handlers.Indexer{ES: esClient, IndexName: "product"},
		},
		SearchHandler:     &handlers.SearchHandler{DB: gdb, ES: esClient, Index: "product"},
		ExportHandler:     &handlers.ExportHandler{DB: gdb, Producer: prod, Audit: recorder, ExportsDir: configuration.ExportsDir},
		FactoryHandler:    &handlers.FactoryHandler{DB: gdb, Production: production},
		ProductionHandler: production,
		UploadHandler:     &handlers.UploadHandler{Dir: configuration.ProductsDir},
		LogsHandler:       &handlers.LogsHandler{Audit: recorder},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := prod.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// seedBootstrapAccounts creates the well-known admin/user accounts when their
// passwords are supplied via environment. Existing state is never mutated.
func seedBootstrapAccounts(users *auth.UserStore, cfg *config.Config) {
	if cfg.AdminPassword != "" {
		if err := users.Register("admin", cfg.AdminPassword, "admin@marwanhub.com", auth.RoleAdmin); err != nil {
			log.Printf("admin bootstrap skipped: %v", err)
		}
	}
	if cfg.UserPassword != "" {
		if err := users.Register("user", cfg.UserPassword, "user@marwanhub.com", auth.RoleUser); err != nil {
			log.Printf("user bootstrap skipped: %v", err)
		}
	}
}
