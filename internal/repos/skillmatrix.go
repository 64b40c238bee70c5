package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/types"
)

type SkillMatrixRepo interface {
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.SkillMatrixRow, error)
}

type skillMatrixRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewSkillMatrixRepo(db *gorm.DB, baseLog *logger.Logger) SkillMatrixRepo {
  return &skillMatrixRepo{db: db, log: baseLog.With("repo", "SkillMatrixRepo")}
}

func (r *skillMatrixRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.SkillMatrixRow, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.SkillMatrixRow
  if userID == uuid.Nil {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("skill ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
