package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/types"
)

type PerformanceRecordRepo interface {
  GetRecentByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.PerformanceRecord, error)
}

type performanceRecordRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPerformanceRecordRepo(db *gorm.DB, baseLog *logger.Logger) PerformanceRecordRepo {
  return &performanceRecordRepo{db: db, log: baseLog.With("repo", "PerformanceRecordRepo")}
}

func (r *performanceRecordRepo) GetRecentByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.PerformanceRecord, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if limit <= 0 {
    limit = 10
  }

  var results []*types.PerformanceRecord
  if userID == uuid.Nil {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("recorded_at DESC").
    Limit(limit).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
