package repos

import (
  "context"
  "fmt"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/types"
)

type TutorialRepo interface {
  // CreateWithVersion persists the tutorial and its first version in one
  // transaction and points current_version at it.
  CreateWithVersion(ctx context.Context, tx *gorm.DB, tutorial *types.Tutorial, version *types.TutorialVersion) error
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Tutorial, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
  // MintVersion appends a version and atomically moves current_version.
  MintVersion(ctx context.Context, tx *gorm.DB, tutorialID uuid.UUID, version *types.TutorialVersion) error
  GetVersions(ctx context.Context, tx *gorm.DB, tutorialID uuid.UUID) ([]*types.TutorialVersion, error)
}

type tutorialRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewTutorialRepo(db *gorm.DB, baseLog *logger.Logger) TutorialRepo {
  return &tutorialRepo{db: db, log: baseLog.With("repo", "TutorialRepo")}
}

func (r *tutorialRepo) CreateWithVersion(ctx context.Context, tx *gorm.DB, tutorial *types.Tutorial, version *types.TutorialVersion) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if tutorial == nil || version == nil {
    return fmt.Errorf("tutorial and version required")
  }

  return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    version.TutorialID = tutorial.ID
    tutorial.CurrentVersion = &version.ID
    if err := txx.Create(tutorial).Error; err != nil {
      return fmt.Errorf("create tutorial: %w", err)
    }
    if err := txx.Create(version).Error; err != nil {
      return fmt.Errorf("create version: %w", err)
    }
    return nil
  })
}

func (r *tutorialRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Tutorial, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Tutorial
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

func (r *tutorialRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  return transaction.WithContext(ctx).
    Model(&types.Tutorial{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *tutorialRepo) MintVersion(ctx context.Context, tx *gorm.DB, tutorialID uuid.UUID, version *types.TutorialVersion) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if tutorialID == uuid.Nil || version == nil {
    return fmt.Errorf("tutorial id and version required")
  }

  return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    version.TutorialID = tutorialID
    if err := txx.Create(version).Error; err != nil {
      return fmt.Errorf("create version: %w", err)
    }
    return txx.Model(&types.Tutorial{}).
      Where("id = ?", tutorialID).
      Update("current_version", version.ID).Error
  })
}

func (r *tutorialRepo) GetVersions(ctx context.Context, tx *gorm.DB, tutorialID uuid.UUID) ([]*types.TutorialVersion, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.TutorialVersion
  if tutorialID == uuid.Nil {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("tutorial_id = ?", tutorialID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
