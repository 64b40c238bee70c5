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

type JourneyRepo interface {
  CreateWithNodes(ctx context.Context, tx *gorm.DB, journey *types.Journey, nodes []*types.JourneyNode) error
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Journey, error)
  GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Journey, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error

  GetNodes(ctx context.Context, tx *gorm.DB, journeyID uuid.UUID) ([]*types.JourneyNode, error)
  UpdateNodeFields(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID, updates map[string]any) error
  // ReplacePendingNodes deletes pending nodes and inserts replacements in one
  // transaction; completed nodes are untouched.
  ReplacePendingNodes(ctx context.Context, tx *gorm.DB, journeyID uuid.UUID, nodes []*types.JourneyNode) error
}

type journeyRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewJourneyRepo(db *gorm.DB, baseLog *logger.Logger) JourneyRepo {
  return &journeyRepo{db: db, log: baseLog.With("repo", "JourneyRepo")}
}

func (r *journeyRepo) CreateWithNodes(ctx context.Context, tx *gorm.DB, journey *types.Journey, nodes []*types.JourneyNode) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if journey == nil {
    return fmt.Errorf("journey required")
  }

  return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    if err := txx.Create(journey).Error; err != nil {
      return fmt.Errorf("create journey: %w", err)
    }
    if len(nodes) == 0 {
      return nil
    }
    for _, n := range nodes {
      n.JourneyID = journey.ID
    }
    if err := txx.Create(&nodes).Error; err != nil {
      return fmt.Errorf("create journey nodes: %w", err)
    }
    return nil
  })
}

func (r *journeyRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Journey, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Journey
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

func (r *journeyRepo) GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Journey, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if userID == uuid.Nil {
    return nil, nil
  }

  var journey types.Journey
  err := transaction.WithContext(ctx).
    Where("user_id = ? AND status = ?", userID, types.JourneyStatusActive).
    Order("created_at DESC").
    Limit(1).
    Find(&journey).Error
  if err != nil {
    return nil, err
  }
  if journey.ID == uuid.Nil {
    return nil, nil
  }
  return &journey, nil
}

func (r *journeyRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  if _, ok := updates["updated_at"]; !ok {
    updates["updated_at"] = time.Now()
  }
  return transaction.WithContext(ctx).
    Model(&types.Journey{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *journeyRepo) GetNodes(ctx context.Context, tx *gorm.DB, journeyID uuid.UUID) ([]*types.JourneyNode, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.JourneyNode
  if journeyID == uuid.Nil {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("journey_id = ?", journeyID).
    Order("node_order ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *journeyRepo) UpdateNodeFields(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID, updates map[string]any) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if nodeID == uuid.Nil {
    return nil
  }
  if _, ok := updates["updated_at"]; !ok {
    updates["updated_at"] = time.Now()
  }
  return transaction.WithContext(ctx).
    Model(&types.JourneyNode{}).
    Where("id = ?", nodeID).
    Updates(updates).Error
}

func (r *journeyRepo) ReplacePendingNodes(ctx context.Context, tx *gorm.DB, journeyID uuid.UUID, nodes []*types.JourneyNode) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if journeyID == uuid.Nil {
    return fmt.Errorf("journey id required")
  }

  return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    if err := txx.
      Where("journey_id = ? AND status = ?", journeyID, types.JourneyNodePending).
      Delete(&types.JourneyNode{}).Error; err != nil {
      return fmt.Errorf("delete pending nodes: %w", err)
    }
    if len(nodes) == 0 {
      return nil
    }
    for _, n := range nodes {
      n.JourneyID = journeyID
    }
    if err := txx.Create(&nodes).Error; err != nil {
      return fmt.Errorf("insert replacement nodes: %w", err)
    }
    return nil
  })
}
