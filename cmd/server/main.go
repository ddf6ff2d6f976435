package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaito/photomirror/internal/api"
	"github.com/kaito/photomirror/internal/config"
	"github.com/kaito/photomirror/internal/destination"
	"github.com/kaito/photomirror/internal/destination/gphotos"
	s3dest "github.com/kaito/photomirror/internal/destination/s3"
	"github.com/kaito/photomirror/internal/logger"
	"github.com/kaito/photomirror/internal/repository"
	"github.com/kaito/photomirror/internal/scheduler"
	"github.com/kaito/photomirror/internal/service"
	"github.com/kaito/photomirror/internal/source/immich"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "photomirror",
		File:        cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAge:      cfg.Log.MaxAge,
		Compress:    cfg.Log.Compress,
	})
	logger.SetDefaultLogger(appLog)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize database")
	}

	runRepo := repository.NewRunRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	src := immich.New(&immich.Config{
		BaseURL: cfg.Source.BaseURL,
		APIKey:  cfg.Source.APIKey,
		Timeout: cfg.Source.Timeout,
	})

	dest, err := buildDestination(&cfg.Destination)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize destination")
	}
	appLog.WithField("destination", cfg.Destination.Type).Info("Destination initialized")

	lifecycle := service.NewRunManager(runRepo, appLog)

	ctx := context.Background()
	if err := lifecycle.RecoverStale(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to reconcile stale runs")
	}

	engine := service.NewEngine(
		lifecycle,
		runRepo,
		ledgerRepo,
		auditRepo,
		settingsRepo,
		src,
		dest,
		service.NewCancelRegistry(),
		appLog,
	)

	schedCtx, stopSched := context.WithCancel(ctx)
	defer stopSched()
	go scheduler.New(engine, settingsRepo, appLog).Run(schedCtx)

	router := api.SetupRouter(engine, settingsRepo, src, &cfg.Server, appLog)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLog.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down...")

	stopSched()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("Forced shutdown")
	}
	appLog.Info("Server stopped")
}

// buildDestination picks the mirror target from configuration.
func buildDestination(cfg *config.DestinationConfig) (destination.Destination, error) {
	switch cfg.Type {
	case "gphotos", "":
		return gphotos.New(&gphotos.Config{
			ClientID:     cfg.GPhotos.ClientID,
			ClientSecret: cfg.GPhotos.ClientSecret,
			RefreshToken: cfg.GPhotos.RefreshToken,
			Timeout:      cfg.GPhotos.Timeout,
		}), nil
	case "s3":
		return s3dest.New(&s3dest.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Prefix:    cfg.S3.Prefix,
			PublicURL: cfg.S3.PublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown destination type %q", cfg.Type)
	}
}
