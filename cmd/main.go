package main

import (
  "context"
  "fmt"
  "net/http"
  "os"
  "os/signal"
  "syscall"
  "time"

  redisclient "github.com/yungbote/skillforge-backend/internal/clients/redis"
  "github.com/yungbote/skillforge-backend/internal/db"
  "github.com/yungbote/skillforge-backend/internal/graph"
  "github.com/yungbote/skillforge-backend/internal/handlers"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/observability"
  "github.com/yungbote/skillforge-backend/internal/repos"
  "github.com/yungbote/skillforge-backend/internal/server"
  "github.com/yungbote/skillforge-backend/internal/services"
  "github.com/yungbote/skillforge-backend/internal/sse"
  "github.com/yungbote/skillforge-backend/internal/utils"
  "github.com/yungbote/skillforge-backend/internal/warehouse"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
  defer stop()

  // Tracing
  shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{ServiceName: "skillforge-engine"})
  defer func() {
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = shutdownOtel(shutdownCtx)
  }()

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  completedUnitRepo := repos.NewCompletedUnitRepo(thePG, log)
  skillMatrixRepo := repos.NewSkillMatrixRepo(thePG, log)
  performanceRecordRepo := repos.NewPerformanceRecordRepo(thePG, log)
  recommendationRepo := repos.NewRecommendationRepo(thePG, log)
  queueItemRepo := repos.NewQueueItemRepo(thePG, log)
  tutorialRepo := repos.NewTutorialRepo(thePG, log)
  journeyRepo := repos.NewJourneyRepo(thePG, log)
  approvalTaskRepo := repos.NewApprovalTaskRepo(thePG, log)
  generationAlertRepo := repos.NewGenerationAlertRepo(thePG, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)
  notifier := services.NewSSENotifier(sseHub)

  // External collaborators
  log.Info("Setting up collaborators from main...")
  counter, err := redisclient.NewDailyGenerationCounter(log)
  if err != nil {
    log.Warn("Redis counter unavailable, rate cap falls back to store counts", "error", err)
  }
  warehouseClient, err := warehouse.New(ctx, log)
  if err != nil {
    log.Warn("Warehouse unavailable, analytics degraded", "error", err)
  }
  prereqGraph, err := graph.NewNeo4jGraph(ctx, log)
  if err != nil {
    log.Warn("Concept graph unavailable, using static prerequisites", "error", err)
    prereqGraph = graph.NewStaticGraph()
  }
  bucketService, err := services.NewBucketService(ctx, log)
  if err != nil {
    log.Error("Could not init BucketService", "error", err)
    os.Exit(1)
  }
  modelClient, err := services.NewModelClient(log)
  if err != nil {
    log.Error("Could not init ModelClient", "error", err)
    os.Exit(1)
  }

  // Services
  log.Info("Setting up Services from main...")
  assetProvider := services.NewAssetProvider(modelClient, bucketService, log)
  complexityAnalyzer := services.NewComplexityAnalyzer(prereqGraph, warehouseClient, modelClient, log)
  gapDetector := services.NewGapDetector(completedUnitRepo, skillMatrixRepo, performanceRecordRepo, log)
  eligibilityScorer := services.NewEligibilityScorer(userRepo, completedUnitRepo, prereqGraph, complexityAnalyzer, log)

  var counterIface services.DailyCounter
  if counter != nil {
    counterIface = counter
  }
  generationQueue := services.NewGenerationQueue(queueItemRepo, counterIface, log)

  rubricCritic := services.NewRubricCritic(services.LoadRubricConfig(log), log)
  tutorialService := services.NewTutorialService(tutorialRepo, rubricCritic, warehouseClient, modelClient, log)
  journeyPlanner := services.NewJourneyPlanner(journeyRepo, completedUnitRepo, skillMatrixRepo, gapDetector, prereqGraph, notifier, log)
  approvalService := services.NewApprovalService(approvalTaskRepo, recommendationRepo, generationQueue, log)
  generationPipeline := services.NewGenerationPipeline(modelClient, assetProvider, complexityAnalyzer, tutorialRepo, generationAlertRepo, notifier, log)

  probes := map[string]services.HealthProbe{
    "database": postgresService,
    "graph":    prereqGraph,
    "bucket":   bucketService,
  }
  if counter != nil {
    probes["redis"] = counter
  }
  if warehouseClient != nil {
    probes["warehouse"] = warehouseClient
  }

  orchestrator := services.NewOrchestrator(
    gapDetector,
    eligibilityScorer,
    generationQueue,
    generationPipeline,
    journeyPlanner,
    tutorialService,
    approvalService,
    completedUnitRepo,
    recommendationRepo,
    warehouseClient,
    probes,
    log,
  )
  orchestrator.StartWorkers(ctx)

  // Handlers
  log.Info("Setting up Handlers from main...")
  router := server.NewRouter(server.RouterConfig{
    Log:               log,
    HealthHandler:     handlers.NewHealthHandler(orchestrator),
    OpsHandler:        handlers.NewOpsHandler(orchestrator, approvalService, generationQueue, generationAlertRepo),
    GenerationHandler: handlers.NewGenerationHandler(generationQueue),
    TutorialHandler:   handlers.NewTutorialHandler(tutorialService),
    JourneyHandler:    handlers.NewJourneyHandler(journeyPlanner),
    SSEHandler:        handlers.NewSSEHandler(sseHub),
  })

  port := utils.GetEnv("PORT", "8080", log)
  srv := &http.Server{
    Addr:    ":" + port,
    Handler: router,
  }

  go func() {
    log.Info("Server listening", "port", port)
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
      log.Error("Server stopped", "error", err)
      stop()
    }
  }()

  <-ctx.Done()
  log.Info("Shutting down...")

  shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
  defer cancel()
  if err := srv.Shutdown(shutdownCtx); err != nil {
    log.Warn("Server shutdown incomplete", "error", err)
  }
  if warehouseClient != nil {
    warehouseClient.Close()
  }
}
