package repos

import (
  "context"
  "gorm.io/gorm"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/types"
)

type GenerationAlertRepo interface {
  Create(ctx context.Context, tx *gorm.DB, alerts []*types.GenerationAlert) ([]*types.GenerationAlert, error)
  ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.GenerationAlert, error)
}

type generationAlertRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewGenerationAlertRepo(db *gorm.DB, baseLog *logger.Logger) GenerationAlertRepo {
  return &generationAlertRepo{db: db, log: baseLog.With("repo", "GenerationAlertRepo")}
}

func (r *generationAlertRepo) Create(ctx context.Context, tx *gorm.DB, alerts []*types.GenerationAlert) ([]*types.GenerationAlert, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(alerts) == 0 {
    return []*types.GenerationAlert{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&alerts).Error; err != nil {
    return nil, err
  }
  return alerts, nil
}

func (r *generationAlertRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.GenerationAlert, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 {
    limit = 100
  }

  var results []*types.GenerationAlert
  if err := transaction.WithContext(ctx).
    Order("created_at DESC").
    Limit(limit).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
