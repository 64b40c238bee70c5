package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"

  "github.com/google/uuid"
  "gorm.io/datatypes"

  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/repos"
  "github.com/yungbote/skillforge-backend/internal/types"
)

// ApprovalService bridges the admin surface: pending recommendations become
// approval tasks, and a decision flows back onto the recommendation and,
// when approved, into the generation queue.
type ApprovalService interface {
  CreateTask(ctx context.Context, rec *types.Recommendation) (*types.ApprovalTask, error)
  ListPending(ctx context.Context, limit int) ([]*types.ApprovalTask, error)
  Decide(ctx context.Context, taskID uuid.UUID, approve bool, decidedBy, reason string) error
}

type approvalService struct {
  tasks           repos.ApprovalTaskRepo
  recommendations repos.RecommendationRepo
  queue           GenerationQueue
  log             *logger.Logger
}

func NewApprovalService(
  tasks repos.ApprovalTaskRepo,
  recommendations repos.RecommendationRepo,
  queue GenerationQueue,
  log *logger.Logger,
) ApprovalService {
  return &approvalService{
    tasks:           tasks,
    recommendations: recommendations,
    queue:           queue,
    log:             log.With("service", "ApprovalService"),
  }
}

func (s *approvalService) CreateTask(ctx context.Context, rec *types.Recommendation) (*types.ApprovalTask, error) {
  details, err := json.Marshal(map[string]any{
    "trigger_reason": rec.TriggerReason,
    "priority":       rec.Priority,
  })
  if err != nil {
    details = nil
  }
  task := &types.ApprovalTask{
    ID:               uuid.New(),
    RecommendationID: rec.ID,
    UserID:           rec.UserID,
    Topic:            rec.Topic,
    Priority:         rec.Priority,
    Status:           types.ApprovalTaskPending,
  }
  if details != nil {
    task.Details = datatypes.JSON(details)
  }
  created, err := s.tasks.Create(ctx, nil, []*types.ApprovalTask{task})
  if err != nil {
    return nil, fmt.Errorf("create approval task: %w", err)
  }
  return created[0], nil
}

func (s *approvalService) ListPending(ctx context.Context, limit int) ([]*types.ApprovalTask, error) {
  return s.tasks.ListPending(ctx, nil, limit)
}

// Decide records the admin decision, transitions the recommendation, and on
// approval enqueues the generation. A rate-limited enqueue leaves the
// recommendation approved; the caller can re-enqueue once the cap resets.
func (s *approvalService) Decide(ctx context.Context, taskID uuid.UUID, approve bool, decidedBy, reason string) error {
  tasks, err := s.tasks.GetByIDs(ctx, nil, []uuid.UUID{taskID})
  if err != nil {
    return err
  }
  if len(tasks) != 1 {
    return fmt.Errorf("approval task %s not found", taskID)
  }
  task := tasks[0]

  status := types.ApprovalTaskRejected
  recStatus := types.ApprovalRejected
  if approve {
    status = types.ApprovalTaskApproved
    recStatus = types.ApprovalApproved
  }
  if err := s.tasks.Decide(ctx, nil, taskID, status, decidedBy, reason); err != nil {
    return err
  }
  if err := s.recommendations.SetApprovalStatus(ctx, nil, task.RecommendationID, recStatus); err != nil {
    return err
  }

  if !approve {
    s.log.Info("Recommendation rejected", "task_id", taskID, "topic", task.Topic, "decided_by", decidedBy)
    return nil
  }

  recs, err := s.recommendations.GetByIDs(ctx, nil, []uuid.UUID{task.RecommendationID})
  if err != nil {
    return err
  }
  if len(recs) != 1 {
    return fmt.Errorf("recommendation %s not found", task.RecommendationID)
  }
  rec := recs[0]

  if _, err := s.queue.Enqueue(ctx, rec.UserID, rec.Topic, rec.TriggerReason, rec.Priority); err != nil {
    if errors.Is(err, ErrRateLimited) {
      s.log.Warn("Approved recommendation hit daily cap, not enqueued", "topic", rec.Topic, "user_id", rec.UserID)
      return err
    }
    return fmt.Errorf("enqueue approved recommendation: %w", err)
  }
  s.log.Info("Recommendation approved and enqueued", "task_id", taskID, "topic", task.Topic, "decided_by", decidedBy)
  return nil
}
