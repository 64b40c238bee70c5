package repos

import (
  "context"
  "fmt"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/types"
)

type ApprovalTaskRepo interface {
  Create(ctx context.Context, tx *gorm.DB, tasks []*types.ApprovalTask) ([]*types.ApprovalTask, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ApprovalTask, error)
  ListPending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ApprovalTask, error)
  // Decide records the admin decision; valid only while pending.
  Decide(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.ApprovalTaskStatus, decidedBy, reason string) error
}

type approvalTaskRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewApprovalTaskRepo(db *gorm.DB, baseLog *logger.Logger) ApprovalTaskRepo {
  return &approvalTaskRepo{db: db, log: baseLog.With("repo", "ApprovalTaskRepo")}
}

func (r *approvalTaskRepo) Create(ctx context.Context, tx *gorm.DB, tasks []*types.ApprovalTask) ([]*types.ApprovalTask, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(tasks) == 0 {
    return []*types.ApprovalTask{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&tasks).Error; err != nil {
    return nil, err
  }
  return tasks, nil
}

func (r *approvalTaskRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.ApprovalTask, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.ApprovalTask
  if len(ids) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *approvalTaskRepo) ListPending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ApprovalTask, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 {
    limit = 50
  }

  var results []*types.ApprovalTask
  if err := transaction.WithContext(ctx).
    Where("status = ?", types.ApprovalTaskPending).
    Order("priority DESC, created_at ASC").
    Limit(limit).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *approvalTaskRepo) Decide(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.ApprovalTaskStatus, decidedBy, reason string) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return fmt.Errorf("approval task id required")
  }
  if status != types.ApprovalTaskApproved && status != types.ApprovalTaskRejected {
    return fmt.Errorf("invalid decision %q", status)
  }

  now := time.Now()
  res := transaction.WithContext(ctx).
    Model(&types.ApprovalTask{}).
    Where("id = ? AND status = ?", id, types.ApprovalTaskPending).
    Updates(map[string]any{
      "status":     status,
      "decided_by": decidedBy,
      "decided_at": now,
      "reason":     reason,
      "updated_at": now,
    })
  if res.Error != nil {
    return res.Error
  }
  if res.RowsAffected == 0 {
    return fmt.Errorf("approval task %s not found or already decided", id)
  }
  return nil
}
