package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

  "github.com/yungbote/skillforge-backend/internal/handlers"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/middleware"
)

type RouterConfig struct {
  Log               *logger.Logger
  HealthHandler     *handlers.HealthHandler
  OpsHandler        *handlers.OpsHandler
  GenerationHandler *handlers.GenerationHandler
  TutorialHandler   *handlers.TutorialHandler
  JourneyHandler    *handlers.JourneyHandler
  SSEHandler        *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.New()
  router.Use(gin.Recovery())
  router.Use(middleware.RequestLogger(cfg.Log))
  router.Use(otelgin.Middleware("skillforge-engine"))

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  router.GET("/healthz", cfg.HealthHandler.Healthz)

  api := router.Group("/api")
  {
    api.POST("/generations", cfg.GenerationHandler.Enqueue)

    api.GET("/tutorials/:id", cfg.TutorialHandler.Get)
    api.GET("/tutorials/:id/versions", cfg.TutorialHandler.Versions)
    api.POST("/tutorials/:id/audit", cfg.TutorialHandler.Audit)
    api.POST("/tutorials/:id/publish", cfg.TutorialHandler.Publish)
    api.POST("/tutorials/:id/archive", cfg.TutorialHandler.Archive)

    api.POST("/journeys", cfg.JourneyHandler.Plan)
    api.POST("/journeys/:id/nodes/:nodeId/complete", cfg.JourneyHandler.CompleteNode)
    api.POST("/journeys/:id/recalculate", cfg.JourneyHandler.Recalculate)

    api.GET("/sse/stream", cfg.SSEHandler.Stream)
  }

  ops := router.Group("/ops")
  {
    ops.POST("/sweep", cfg.OpsHandler.RunSweep)
    ops.POST("/drain", cfg.OpsHandler.RunDrain)
    ops.GET("/approvals", cfg.OpsHandler.ListApprovals)
    ops.POST("/approvals/:id/decide", cfg.OpsHandler.DecideApproval)
    ops.POST("/queue/:id/retry", cfg.OpsHandler.RetryQueueItem)
    ops.POST("/queue/:id/cancel", cfg.OpsHandler.CancelQueueItem)
    ops.GET("/alerts", cfg.OpsHandler.ListAlerts)
  }

  return router
}
