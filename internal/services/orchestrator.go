package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "time"

  "github.com/google/uuid"
  "go.opentelemetry.io/otel/attribute"
  "gorm.io/datatypes"

  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/observability"
  "github.com/yungbote/skillforge-backend/internal/repos"
  "github.com/yungbote/skillforge-backend/internal/types"
  "github.com/yungbote/skillforge-backend/internal/utils"
  "github.com/yungbote/skillforge-backend/internal/warehouse"
)

const (
  defaultSweepUserCap       = 50
  defaultDrainBatch         = 5
  defaultPendingDepthAlert  = 20
  defaultDrainIntervalSecs  = 60
  defaultSweepIntervalHours = 24
  topGapsPerUser            = 5
  approvalMinScore          = 50.0
)

// SweepReport summarizes one nightly sweep run.
type SweepReport struct {
  UsersScanned    int `json:"users_scanned"`
  GapsDetected    int `json:"gaps_detected"`
  AutoEnqueued    int `json:"auto_enqueued"`
  ApprovalsRaised int `json:"approvals_raised"`
  RateLimited     int `json:"rate_limited"`
  Skipped         int `json:"skipped"`
}

// DrainReport summarizes one queue drain run.
type DrainReport struct {
  Claimed   int `json:"claimed"`
  Succeeded int `json:"succeeded"`
  Failed    int `json:"failed"`
}

type HealthStatus struct {
  Healthy      bool            `json:"healthy"`
  Components   map[string]bool `json:"components"`
  PendingDepth int64           `json:"pending_depth"`
  DepthAlert   bool            `json:"depth_alert"`
}

// HealthProbe is anything that can report its own availability.
type HealthProbe interface {
  Healthy(ctx context.Context) bool
}

// Orchestrator drives the two batch entry points: the nightly sweep that
// turns detected gaps into queue items or approval tasks, and the drain that
// feeds claimed items through the generation pipeline. Both are safe to run
// concurrently with each other.
type Orchestrator interface {
  NightlySweep(ctx context.Context) (*SweepReport, error)
  DrainQueue(ctx context.Context) (*DrainReport, error)
  Health(ctx context.Context) *HealthStatus
  StartWorkers(ctx context.Context)
}

type orchestrator struct {
  detector        GapDetector
  scorer          EligibilityScorer
  queue           GenerationQueue
  pipeline        GenerationPipeline
  journeys        JourneyPlanner
  tutorials       TutorialService
  approvals       ApprovalService
  completedUnits  repos.CompletedUnitRepo
  recommendations repos.RecommendationRepo
  warehouse       warehouse.Client
  probes          map[string]HealthProbe
  log             *logger.Logger

  sweepUserCap     int
  drainBatch       int
  depthAlertAt     int64
  drainInterval    time.Duration
  sweepInterval    time.Duration
}

func NewOrchestrator(
  detector GapDetector,
  scorer EligibilityScorer,
  queue GenerationQueue,
  pipeline GenerationPipeline,
  journeys JourneyPlanner,
  tutorials TutorialService,
  approvals ApprovalService,
  completedUnits repos.CompletedUnitRepo,
  recommendations repos.RecommendationRepo,
  wh warehouse.Client,
  probes map[string]HealthProbe,
  log *logger.Logger,
) Orchestrator {
  orchLog := log.With("service", "Orchestrator")
  return &orchestrator{
    detector:        detector,
    scorer:          scorer,
    queue:           queue,
    pipeline:        pipeline,
    journeys:        journeys,
    tutorials:       tutorials,
    approvals:       approvals,
    completedUnits:  completedUnits,
    recommendations: recommendations,
    warehouse:       wh,
    probes:          probes,
    log:             orchLog,
    sweepUserCap:    utils.GetEnvAsInt("SWEEP_USER_CAP", defaultSweepUserCap, orchLog),
    drainBatch:      utils.GetEnvAsInt("DRAIN_BATCH_SIZE", defaultDrainBatch, orchLog),
    depthAlertAt:    int64(utils.GetEnvAsInt("QUEUE_DEPTH_ALERT", defaultPendingDepthAlert, orchLog)),
    drainInterval:   time.Duration(utils.GetEnvAsInt("DRAIN_INTERVAL_SECONDS", defaultDrainIntervalSecs, orchLog)) * time.Second,
    sweepInterval:   time.Duration(utils.GetEnvAsInt("SWEEP_INTERVAL_HOURS", defaultSweepIntervalHours, orchLog)) * time.Hour,
  }
}

// NightlySweep enumerates active users, detects their gaps, scores the top
// candidates, and routes each to auto-enqueue or a human approval task.
func (o *orchestrator) NightlySweep(ctx context.Context) (*SweepReport, error) {
  ctx, span := observability.StartSpan(ctx, "orchestrator.nightly_sweep")
  defer span.End()

  report := &SweepReport{}

  userIDs, err := o.completedUnits.ListActiveUserIDs(ctx, nil, o.sweepUserCap)
  if err != nil {
    return nil, fmt.Errorf("list active users: %w", err)
  }

  for _, userID := range userIDs {
    if ctx.Err() != nil {
      return report, ctx.Err()
    }
    report.UsersScanned++
    if err := o.sweepUser(ctx, userID, report); err != nil {
      o.log.Error("Sweep failed for user", "user_id", userID, "error", err)
    }
  }

  span.SetAttributes(
    attribute.Int("users_scanned", report.UsersScanned),
    attribute.Int("auto_enqueued", report.AutoEnqueued),
    attribute.Int("approvals_raised", report.ApprovalsRaised),
  )
  o.log.Info("Nightly sweep finished",
    "users_scanned", report.UsersScanned,
    "gaps_detected", report.GapsDetected,
    "auto_enqueued", report.AutoEnqueued,
    "approvals_raised", report.ApprovalsRaised,
    "rate_limited", report.RateLimited,
    "skipped", report.Skipped,
  )
  return report, nil
}

func (o *orchestrator) sweepUser(ctx context.Context, userID uuid.UUID, report *SweepReport) error {
  gaps, err := o.detector.Detect(ctx, userID)
  if err != nil {
    return fmt.Errorf("detect gaps: %w", err)
  }
  report.GapsDetected += len(gaps)
  if len(gaps) > topGapsPerUser {
    gaps = gaps[:topGapsPerUser]
  }

  rateLimited := false
  for _, gap := range gaps {
    result, err := o.scorer.ScoreGap(ctx, gap)
    if err != nil {
      o.log.Warn("Gap scoring failed", "user_id", userID, "topic", gap.Topic, "error", err)
      continue
    }

    o.recordSweepEvent(ctx, gap, result)

    switch {
    case result.ShouldAutoApprove:
      // Once the user's daily cap is hit, remaining auto-approve gaps are
      // scored and recorded but skipped, not rerouted to human approval.
      if rateLimited {
        report.Skipped++
        continue
      }
      if err := o.autoEnqueue(ctx, gap, result); err != nil {
        if errors.Is(err, ErrRateLimited) {
          report.RateLimited++
          rateLimited = true
          continue
        }
        o.log.Warn("Auto-enqueue failed", "user_id", userID, "topic", gap.Topic, "error", err)
        continue
      }
      report.AutoEnqueued++

    case result.TotalScore >= approvalMinScore:
      raised, err := o.raiseApproval(ctx, gap, result)
      if err != nil {
        o.log.Warn("Approval task creation failed", "user_id", userID, "topic", gap.Topic, "error", err)
        continue
      }
      if raised {
        report.ApprovalsRaised++
      } else {
        report.Skipped++
      }

    default:
      // Low-value gap; raising an approval would be noise.
      report.Skipped++
    }
  }
  return nil
}

// autoEnqueue admits the item first and records the auto-approved
// recommendation only after; a rate-limited enqueue must not leave an
// approved recommendation behind with nothing to fulfil it.
func (o *orchestrator) autoEnqueue(ctx context.Context, gap types.LearningGap, result *EligibilityResult) error {
  priority := int(result.TotalScore)
  if _, err := o.queue.Enqueue(ctx, gap.UserID, gap.Topic, gap.TriggerReason, priority); err != nil {
    return err
  }
  rec := o.newRecommendation(gap, priority, types.ApprovalAutoApproved)
  if _, err := o.recommendations.Create(ctx, nil, []*types.Recommendation{rec}); err != nil {
    o.log.Warn("Auto-approved recommendation not recorded", "user_id", gap.UserID, "topic", gap.Topic, "error", err)
  }
  return nil
}

// raiseApproval creates a pending recommendation plus its approval task,
// unless one is already open for the same user and topic.
func (o *orchestrator) raiseApproval(ctx context.Context, gap types.LearningGap, result *EligibilityResult) (bool, error) {
  open, err := o.recommendations.HasOpenForTopic(ctx, nil, gap.UserID, gap.Topic)
  if err != nil {
    return false, err
  }
  if open {
    return false, nil
  }

  rec := o.newRecommendation(gap, int(result.TotalScore), types.ApprovalPending)
  created, err := o.recommendations.Create(ctx, nil, []*types.Recommendation{rec})
  if err != nil {
    return false, err
  }
  if _, err := o.approvals.CreateTask(ctx, created[0]); err != nil {
    return false, err
  }
  return true, nil
}

func (o *orchestrator) newRecommendation(gap types.LearningGap, priority int, status types.ApprovalStatus) *types.Recommendation {
  gapID := gap.GapID
  rec := &types.Recommendation{
    ID:             uuid.New(),
    UserID:         gap.UserID,
    Topic:          gap.Topic,
    TriggerReason:  gap.TriggerReason,
    Priority:       priority,
    SourceGapID:    &gapID,
    ApprovalStatus: status,
  }
  if raw, err := json.Marshal(gap.Evidence); err == nil {
    rec.Evidence = datatypes.JSON(raw)
  }
  return rec
}

func (o *orchestrator) recordSweepEvent(ctx context.Context, gap types.LearningGap, result *EligibilityResult) {
  if o.warehouse == nil {
    return
  }
  err := o.warehouse.InsertEvent(ctx, warehouse.EngineEvent{
    EventType: "gap_scored",
    UserID:    gap.UserID,
    Topic:     gap.Topic,
    Payload: map[string]any{
      "severity":       gap.Severity,
      "trigger_reason": gap.TriggerReason,
      "total_score":    result.TotalScore,
      "tier":           result.Tier,
      "auto_approve":   result.ShouldAutoApprove,
    },
  })
  if err != nil {
    o.log.Debug("Sweep event not recorded", "topic", gap.Topic, "error", err)
  }
}

// DrainQueue claims the highest-priority pending items and runs each through
// the pipeline, recording the outcome back onto the queue item.
func (o *orchestrator) DrainQueue(ctx context.Context) (*DrainReport, error) {
  ctx, span := observability.StartSpan(ctx, "orchestrator.drain_queue")
  defer span.End()

  report := &DrainReport{}

  items, err := o.queue.Dequeue(ctx, o.drainBatch)
  if err != nil {
    return nil, err
  }
  report.Claimed = len(items)

  for _, item := range items {
    if ctx.Err() != nil {
      return report, ctx.Err()
    }
    if o.processItem(ctx, item) {
      report.Succeeded++
    } else {
      report.Failed++
    }
  }

  span.SetAttributes(
    attribute.Int("claimed", report.Claimed),
    attribute.Int("succeeded", report.Succeeded),
    attribute.Int("failed", report.Failed),
  )
  if report.Claimed > 0 {
    o.log.Info("Queue drain finished", "claimed", report.Claimed, "succeeded", report.Succeeded, "failed", report.Failed)
  }
  return report, nil
}

func (o *orchestrator) processItem(ctx context.Context, item *types.QueueItem) bool {
  tutorial, err := o.pipeline.Generate(ctx, item)
  if err != nil {
    if fErr := o.queue.Fail(ctx, item.ID, err.Error()); fErr != nil {
      o.log.Error("Failed to mark queue item failed", "queue_id", item.ID, "error", fErr)
    }
    o.recordDrainEvent(ctx, item, "generation_failed", map[string]any{"error": err.Error()})
    return false
  }

  if err := o.queue.Complete(ctx, item.ID, tutorial.ID); err != nil {
    o.log.Error("Failed to mark queue item completed", "queue_id", item.ID, "error", err)
  }

  if _, err := o.tutorials.Audit(ctx, tutorial.ID); err != nil {
    o.log.Warn("Post-generation audit failed", "tutorial_id", tutorial.ID, "error", err)
  }

  if err := o.journeys.MarkTopicGenerated(ctx, item.UserID, item.Topic); err != nil && !errors.Is(err, ErrNoActiveJourney) {
    o.log.Warn("Journey update after generation failed", "user_id", item.UserID, "topic", item.Topic, "error", err)
  }

  o.recordDrainEvent(ctx, item, "generation_succeeded", map[string]any{"tutorial_id": tutorial.ID})
  return true
}

func (o *orchestrator) recordDrainEvent(ctx context.Context, item *types.QueueItem, eventType string, payload map[string]any) {
  if o.warehouse == nil {
    return
  }
  payload["queue_id"] = item.ID
  payload["attempts"] = item.Attempts
  if err := o.warehouse.InsertEvent(ctx, warehouse.EngineEvent{
    EventType: eventType,
    UserID:    item.UserID,
    Topic:     item.Topic,
    Payload:   payload,
  }); err != nil {
    o.log.Debug("Drain event not recorded", "queue_id", item.ID, "error", err)
  }
}

func (o *orchestrator) Health(ctx context.Context) *HealthStatus {
  status := &HealthStatus{Healthy: true, Components: map[string]bool{}}

  for name, probe := range o.probes {
    ok := probe.Healthy(ctx)
    status.Components[name] = ok
    if !ok {
      status.Healthy = false
    }
  }

  depth, err := o.queue.PendingDepth(ctx)
  if err != nil {
    status.Healthy = false
    status.Components["queue"] = false
    return status
  }
  status.PendingDepth = depth
  if depth > o.depthAlertAt {
    status.DepthAlert = true
    status.Healthy = false
  }
  return status
}

// StartWorkers launches the sweep and drain tickers. Each loop recovers from
// panics so one bad run never kills the worker.
func (o *orchestrator) StartWorkers(ctx context.Context) {
  if !utils.GetEnvAsBool("WORKERS_ENABLED", true, o.log) {
    o.log.Info("Background workers disabled")
    return
  }
  go o.runLoop(ctx, "drain", o.drainInterval, func(runCtx context.Context) error {
    _, err := o.DrainQueue(runCtx)
    return err
  })
  go o.runLoop(ctx, "sweep", o.sweepInterval, func(runCtx context.Context) error {
    _, err := o.NightlySweep(runCtx)
    return err
  })
}

func (o *orchestrator) runLoop(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
  ticker := time.NewTicker(interval)
  defer ticker.Stop()

  o.log.Info("Worker loop started", "worker", name, "interval", interval.String())
  for {
    select {
    case <-ctx.Done():
      o.log.Info("Worker loop stopped", "worker", name)
      return
    case <-ticker.C:
      func() {
        defer func() {
          if r := recover(); r != nil {
            o.log.Error("Worker loop panicked", "worker", name, "panic", fmt.Sprintf("%v", r))
          }
        }()
        if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
          o.log.Error("Worker run failed", "worker", name, "error", err)
        }
      }()
    }
  }
}
