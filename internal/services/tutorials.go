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
  "github.com/yungbote/skillforge-backend/internal/warehouse"
)

var ErrAuditRequired = errors.New("tutorial needs a passing audit before publishing")

// TutorialService owns the artifact lifecycle after generation: auditing,
// review transitions, publishing, and archiving.
type TutorialService interface {
  Get(ctx context.Context, tutorialID uuid.UUID) (*types.Tutorial, error)
  // Audit re-runs the rubric critic and stores the report. Safe to call
  // repeatedly; the critic is deterministic over the section tree.
  Audit(ctx context.Context, tutorialID uuid.UUID) (*types.RubricReport, error)
  Publish(ctx context.Context, tutorialID uuid.UUID, publishedBy string) error
  Archive(ctx context.Context, tutorialID uuid.UUID) error
  Versions(ctx context.Context, tutorialID uuid.UUID) ([]*types.TutorialVersion, error)
}

type tutorialService struct {
  tutorials repos.TutorialRepo
  critic    RubricCritic
  warehouse warehouse.Client
  model     ModelClient
  log       *logger.Logger
}

func NewTutorialService(
  tutorials repos.TutorialRepo,
  critic RubricCritic,
  wh warehouse.Client,
  model ModelClient,
  log *logger.Logger,
) TutorialService {
  return &tutorialService{
    tutorials: tutorials,
    critic:    critic,
    warehouse: wh,
    model:     model,
    log:       log.With("service", "TutorialService"),
  }
}

func (s *tutorialService) Get(ctx context.Context, tutorialID uuid.UUID) (*types.Tutorial, error) {
  tutorials, err := s.tutorials.GetByIDs(ctx, nil, []uuid.UUID{tutorialID})
  if err != nil {
    return nil, err
  }
  if len(tutorials) != 1 {
    return nil, fmt.Errorf("tutorial %s not found", tutorialID)
  }
  return tutorials[0], nil
}

func (s *tutorialService) sections(tutorial *types.Tutorial) ([]types.Section, error) {
  var sections []types.Section
  if err := json.Unmarshal(tutorial.Sections, &sections); err != nil {
    return nil, fmt.Errorf("decode section tree: %w", err)
  }
  return sections, nil
}

func (s *tutorialService) Audit(ctx context.Context, tutorialID uuid.UUID) (*types.RubricReport, error) {
  tutorial, err := s.Get(ctx, tutorialID)
  if err != nil {
    return nil, err
  }
  sections, err := s.sections(tutorial)
  if err != nil {
    return nil, err
  }

  report := s.critic.Evaluate(sections)
  raw, err := json.Marshal(report)
  if err != nil {
    return nil, fmt.Errorf("marshal audit report: %w", err)
  }

  updates := map[string]any{"audit_report": datatypes.JSON(raw)}
  if report.Verdict == types.RubricVerdictPass && tutorial.Status == types.TutorialStatusDraft {
    updates["status"] = types.TutorialStatusInReview
  }
  if err := s.tutorials.UpdateFields(ctx, nil, tutorialID, updates); err != nil {
    return nil, err
  }

  s.log.Info("Tutorial audited",
    "tutorial_id", tutorialID,
    "verdict", report.Verdict,
    "overall_score", report.OverallScore,
    "issues", len(report.Issues),
  )
  return report, nil
}

// Publish requires a passing audit, mints a version carrying the publisher,
// and records the event in the warehouse.
func (s *tutorialService) Publish(ctx context.Context, tutorialID uuid.UUID, publishedBy string) error {
  tutorial, err := s.Get(ctx, tutorialID)
  if err != nil {
    return err
  }
  if len(tutorial.AuditReport) == 0 {
    return ErrAuditRequired
  }
  var report types.RubricReport
  if err := json.Unmarshal(tutorial.AuditReport, &report); err != nil {
    return fmt.Errorf("decode audit report: %w", err)
  }
  if report.Verdict != types.RubricVerdictPass {
    return fmt.Errorf("%w: last audit verdict %s", ErrAuditRequired, report.Verdict)
  }

  sections, err := s.sections(tutorial)
  if err != nil {
    return err
  }
  hash, err := ContentHash(sections)
  if err != nil {
    return err
  }

  version := &types.TutorialVersion{
    ID:           uuid.New(),
    TutorialID:   tutorialID,
    ContentHash:  hash,
    ModelVersion: s.model.ModelVersion(),
    PublishedBy:  &publishedBy,
  }
  if err := s.tutorials.MintVersion(ctx, nil, tutorialID, version); err != nil {
    return err
  }
  if err := s.tutorials.UpdateFields(ctx, nil, tutorialID, map[string]any{"status": types.TutorialStatusPublished}); err != nil {
    return err
  }

  if s.warehouse != nil {
    if err := s.warehouse.InsertEvent(ctx, warehouse.EngineEvent{
      EventType: "tutorial_published",
      UserID:    tutorial.UserID,
      Topic:     tutorial.Topic,
      Payload:   map[string]any{"tutorial_id": tutorialID, "content_hash": hash, "published_by": publishedBy},
    }); err != nil {
      s.log.Warn("Publish event not recorded", "tutorial_id", tutorialID, "error", err)
    }
  }

  s.log.Info("Tutorial published", "tutorial_id", tutorialID, "published_by", publishedBy)
  return nil
}

func (s *tutorialService) Archive(ctx context.Context, tutorialID uuid.UUID) error {
  if err := s.tutorials.UpdateFields(ctx, nil, tutorialID, map[string]any{"status": types.TutorialStatusArchived}); err != nil {
    return err
  }
  s.log.Info("Tutorial archived", "tutorial_id", tutorialID)
  return nil
}

func (s *tutorialService) Versions(ctx context.Context, tutorialID uuid.UUID) ([]*types.TutorialVersion, error) {
  return s.tutorials.GetVersions(ctx, nil, tutorialID)
}
