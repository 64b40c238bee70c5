package repos

import (
  "context"
  "fmt"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/types"
)

type QueueItemRepo interface {
  Create(ctx context.Context, tx *gorm.DB, items []*types.QueueItem) ([]*types.QueueItem, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.QueueItem, error)

  // ClaimHighestPriority atomically selects up to limit pending items,
  // highest priority first (earliest enqueue breaks ties), and marks them
  // processing with attempts incremented. Selection is system-wide, not
  // per-user.
  ClaimHighestPriority(ctx context.Context, tx *gorm.DB, limit int) ([]*types.QueueItem, error)

  // MarkCompleted is idempotent: completing an already-completed item is a
  // no-op. Any other non-processing state is an invalid transition.
  MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, tutorialID uuid.UUID) error
  MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastError string) error

  // RetryFailed moves failed->pending while attempts remain.
  RetryFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
  // Cancel is only valid while pending.
  Cancel(ctx context.Context, tx *gorm.DB, id uuid.UUID) error

  CountCompletedSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (int64, error)
  CountByStatus(ctx context.Context, tx *gorm.DB, status types.QueueStatus) (int64, error)
}

type queueItemRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewQueueItemRepo(db *gorm.DB, baseLog *logger.Logger) QueueItemRepo {
  return &queueItemRepo{db: db, log: baseLog.With("repo", "QueueItemRepo")}
}

func (r *queueItemRepo) Create(ctx context.Context, tx *gorm.DB, items []*types.QueueItem) ([]*types.QueueItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(items) == 0 {
    return []*types.QueueItem{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&items).Error; err != nil {
    return nil, err
  }
  return items, nil
}

func (r *queueItemRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.QueueItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.QueueItem
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

func (r *queueItemRepo) ClaimHighestPriority(ctx context.Context, tx *gorm.DB, limit int) ([]*types.QueueItem, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 {
    limit = 1
  }

  var claimed []*types.QueueItem

  err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    var rows []*types.QueueItem

    q := txx.
      Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
      Where("status = ?", types.QueueStatusPending).
      Order("priority DESC, created_at ASC").
      Limit(limit)

    if err := q.Find(&rows).Error; err != nil {
      return err
    }
    if len(rows) == 0 {
      return nil
    }

    now := time.Now()
    ids := make([]uuid.UUID, 0, len(rows))
    for _, it := range rows {
      ids = append(ids, it.ID)
    }

    if err := txx.Model(&types.QueueItem{}).
      Where("id IN ?", ids).
      Updates(map[string]any{
        "status":     types.QueueStatusProcessing,
        "attempts":   gorm.Expr("attempts + 1"),
        "locked_at":  now,
        "updated_at": now,
      }).Error; err != nil {
      return err
    }

    for _, it := range rows {
      it.Status = types.QueueStatusProcessing
      it.Attempts++
      it.LockedAt = &now
    }
    claimed = rows
    return nil
  })

  if err != nil {
    return nil, err
  }
  return claimed, nil
}

func (r *queueItemRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, tutorialID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return fmt.Errorf("queue item id required")
  }

  now := time.Now()
  res := transaction.WithContext(ctx).
    Model(&types.QueueItem{}).
    Where("id = ? AND status = ?", id, types.QueueStatusProcessing).
    Updates(map[string]any{
      "status":       types.QueueStatusCompleted,
      "tutorial_id":  tutorialID,
      "completed_at": now,
      "locked_at":    nil,
      "last_error":   "",
      "updated_at":   now,
    })
  if res.Error != nil {
    return res.Error
  }
  if res.RowsAffected > 0 {
    return nil
  }

  items, err := r.GetByIDs(ctx, transaction, []uuid.UUID{id})
  if err != nil {
    return err
  }
  if len(items) == 0 {
    return fmt.Errorf("queue item %s not found", id)
  }
  if items[0].Status == types.QueueStatusCompleted {
    return nil
  }
  return fmt.Errorf("queue item %s cannot complete from status %s", id, items[0].Status)
}

func (r *queueItemRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, lastError string) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return fmt.Errorf("queue item id required")
  }

  res := transaction.WithContext(ctx).
    Model(&types.QueueItem{}).
    Where("id = ? AND status = ?", id, types.QueueStatusProcessing).
    Updates(map[string]any{
      "status":     types.QueueStatusFailed,
      "last_error": lastError,
      "locked_at":  nil,
      "updated_at": time.Now(),
    })
  if res.Error != nil {
    return res.Error
  }
  if res.RowsAffected == 0 {
    return fmt.Errorf("queue item %s cannot fail: not processing", id)
  }
  return nil
}

func (r *queueItemRepo) RetryFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return fmt.Errorf("queue item id required")
  }

  res := transaction.WithContext(ctx).
    Model(&types.QueueItem{}).
    Where("id = ? AND status = ? AND attempts < ?", id, types.QueueStatusFailed, types.MaxQueueAttempts).
    Updates(map[string]any{
      "status":     types.QueueStatusPending,
      "updated_at": time.Now(),
    })
  if res.Error != nil {
    return res.Error
  }
  if res.RowsAffected == 0 {
    return fmt.Errorf("queue item %s cannot retry: not failed or attempts exhausted", id)
  }
  return nil
}

func (r *queueItemRepo) Cancel(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return fmt.Errorf("queue item id required")
  }

  res := transaction.WithContext(ctx).
    Model(&types.QueueItem{}).
    Where("id = ? AND status = ?", id, types.QueueStatusPending).
    Updates(map[string]any{
      "status":     types.QueueStatusCancelled,
      "updated_at": time.Now(),
    })
  if res.Error != nil {
    return res.Error
  }
  if res.RowsAffected == 0 {
    return fmt.Errorf("queue item %s cannot cancel: not pending", id)
  }
  return nil
}

func (r *queueItemRepo) CountCompletedSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.QueueItem{}).
    Where("user_id = ? AND status = ? AND completed_at >= ?", userID, types.QueueStatusCompleted, since).
    Count(&count).Error; err != nil {
    return 0, err
  }
  return count, nil
}

func (r *queueItemRepo) CountByStatus(ctx context.Context, tx *gorm.DB, status types.QueueStatus) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.QueueItem{}).
    Where("status = ?", status).
    Count(&count).Error; err != nil {
    return 0, err
  }
  return count, nil
}
