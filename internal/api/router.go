package api

import (
	"github.com/gin-gonic/gin"
	"github.com/kaito/photomirror/internal/api/handler"
	"github.com/kaito/photomirror/internal/api/middleware"
	"github.com/kaito/photomirror/internal/config"
	"github.com/kaito/photomirror/internal/logger"
	"github.com/kaito/photomirror/internal/repository"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	engine handler.SyncService,
	settingsRepo *repository.SettingsRepository,
	albums handler.AlbumLister,
	cfg *config.ServerConfig,
	log *logger.Logger,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler()
	syncHandler := handler.NewSyncHandler(engine, settingsRepo)
	settingsHandler := handler.NewSettingsHandler(settingsRepo)
	sourceHandler := handler.NewSourceHandler(albums)

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	{
		sync := api.Group("/sync")
		{
			sync.POST("/run", syncHandler.TriggerSync)
			sync.GET("/runs", syncHandler.ListRuns)
			sync.GET("/runs/:id", syncHandler.GetRun)
			sync.GET("/runs/:id/log", syncHandler.GetRunLog)
			sync.POST("/runs/:id/cancel", syncHandler.CancelRun)
			sync.GET("/status", syncHandler.Status)
			sync.GET("/items", syncHandler.ListItems)
		}

		api.GET("/settings", settingsHandler.GetSettings)
		api.PUT("/settings", settingsHandler.UpdateSettings)

		api.GET("/source/albums", sourceHandler.ListAlbums)
	}

	return r
}
