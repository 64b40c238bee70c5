package repos

import (
  "context"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/types"
)

type CompletedUnitRepo interface {
  Create(ctx context.Context, tx *gorm.DB, units []*types.CompletedUnit) ([]*types.CompletedUnit, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.CompletedUnit, error)
  GetCompletedTopics(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]string, error)
  GetLastCompletedAt(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*time.Time, error)
  // ListActiveUserIDs returns users with at least one completed unit, oldest
  // activity first, capped at limit.
  ListActiveUserIDs(ctx context.Context, tx *gorm.DB, limit int) ([]uuid.UUID, error)
}

type completedUnitRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewCompletedUnitRepo(db *gorm.DB, baseLog *logger.Logger) CompletedUnitRepo {
  return &completedUnitRepo{db: db, log: baseLog.With("repo", "CompletedUnitRepo")}
}

func (r *completedUnitRepo) Create(ctx context.Context, tx *gorm.DB, units []*types.CompletedUnit) ([]*types.CompletedUnit, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(units) == 0 {
    return []*types.CompletedUnit{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&units).Error; err != nil {
    return nil, err
  }
  return units, nil
}

func (r *completedUnitRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.CompletedUnit, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.CompletedUnit
  if userID == uuid.Nil {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("completed_at DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *completedUnitRepo) GetCompletedTopics(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]string, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var topics []string
  if userID == uuid.Nil {
    return topics, nil
  }

  if err := transaction.WithContext(ctx).
    Model(&types.CompletedUnit{}).
    Where("user_id = ?", userID).
    Distinct("topic").
    Pluck("topic", &topics).Error; err != nil {
    return nil, err
  }
  return topics, nil
}

func (r *completedUnitRepo) GetLastCompletedAt(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*time.Time, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var unit types.CompletedUnit
  err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("completed_at DESC").
    Limit(1).
    Find(&unit).Error
  if err != nil {
    return nil, err
  }
  if unit.ID == uuid.Nil {
    return nil, nil
  }
  return &unit.CompletedAt, nil
}

func (r *completedUnitRepo) ListActiveUserIDs(ctx context.Context, tx *gorm.DB, limit int) ([]uuid.UUID, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 {
    limit = 50
  }

  var userIDs []uuid.UUID
  if err := transaction.WithContext(ctx).
    Model(&types.CompletedUnit{}).
    Distinct("user_id").
    Limit(limit).
    Pluck("user_id", &userIDs).Error; err != nil {
    return nil, err
  }
  return userIDs, nil
}
