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

type RecommendationRepo interface {
  Create(ctx context.Context, tx *gorm.DB, recs []*types.Recommendation) ([]*types.Recommendation, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Recommendation, error)
  // SetApprovalStatus transitions a non-terminal recommendation. Approved and
  // rejected are terminal; touching a terminal row is an error.
  SetApprovalStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.ApprovalStatus) error
  HasOpenForTopic(ctx context.Context, tx *gorm.DB, userID uuid.UUID, topic string) (bool, error)
}

type recommendationRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewRecommendationRepo(db *gorm.DB, baseLog *logger.Logger) RecommendationRepo {
  return &recommendationRepo{db: db, log: baseLog.With("repo", "RecommendationRepo")}
}

func (r *recommendationRepo) Create(ctx context.Context, tx *gorm.DB, recs []*types.Recommendation) ([]*types.Recommendation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(recs) == 0 {
    return []*types.Recommendation{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&recs).Error; err != nil {
    return nil, err
  }
  return recs, nil
}

func (r *recommendationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Recommendation, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Recommendation
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

func (r *recommendationRepo) SetApprovalStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.ApprovalStatus) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return fmt.Errorf("recommendation id required")
  }

  res := transaction.WithContext(ctx).
    Model(&types.Recommendation{}).
    Where("id = ? AND approval_status NOT IN ?", id, []types.ApprovalStatus{types.ApprovalApproved, types.ApprovalRejected}).
    Updates(map[string]any{
      "approval_status": status,
      "updated_at":      time.Now(),
    })
  if res.Error != nil {
    return res.Error
  }
  if res.RowsAffected == 0 {
    return fmt.Errorf("recommendation %s not found or already terminal", id)
  }
  return nil
}

func (r *recommendationRepo) HasOpenForTopic(ctx context.Context, tx *gorm.DB, userID uuid.UUID, topic string) (bool, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var count int64
  if err := transaction.WithContext(ctx).
    Model(&types.Recommendation{}).
    Where("user_id = ? AND topic = ? AND approval_status IN ?", userID, topic,
      []types.ApprovalStatus{types.ApprovalPending, types.ApprovalAutoApproved}).
    Count(&count).Error; err != nil {
    return false, err
  }
  return count > 0, nil
}
