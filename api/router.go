package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sbhjt-gr/inferra-sub000/api/handlers"
	"github.com/sbhjt-gr/inferra-sub000/api/middleware"
	"github.com/sbhjt-gr/inferra-sub000/internal/app"
	"github.com/sbhjt-gr/inferra-sub000/internal/domain"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	registry *app.Registry,
	submitter domain.Submitter,
	history domain.HistoryRepository,
	historyListLimit int,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health endpoint
	healthHandler := handlers.NewHealthHandler(registry)
	router.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(registry, submitter, history, historyListLimit, log)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.RegisterDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/history", downloadHandler.GetHistory)
			downloads.GET("/events", downloadHandler.StreamEvents)
			downloads.POST("/:id/cancel", downloadHandler.CancelDownload)
		}
	}

	return router
}
