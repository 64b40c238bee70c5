package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "time"

  "github.com/google/uuid"
  "go.opentelemetry.io/otel/attribute"
  "golang.org/x/sync/errgroup"
  "gorm.io/datatypes"

  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/observability"
  "github.com/yungbote/skillforge-backend/internal/repos"
  "github.com/yungbote/skillforge-backend/internal/types"
  "github.com/yungbote/skillforge-backend/internal/utils"
)

// ErrBuildBlocked is returned when strict validation finds failed blocks. The
// artifact is discarded, never persisted.
var ErrBuildBlocked = errors.New("build blocked: artifact contains failed blocks")

// Per-phase wall-clock timeouts. A stuck external call fails the phase
// instead of wedging a worker forever.
const (
  blueprintTimeout  = 2 * time.Minute
  sectionsTimeout   = 10 * time.Minute
  validationTimeout = 30 * time.Second
)

const (
  defaultSectionConcurrency = 5
  defaultAssetConcurrency   = 3
  defaultPhaseRetries       = 3
  defaultRetryDelaySeconds  = 5
)

// GenerationPipeline runs one artifact build end to end:
// blueprint -> parallel section build -> strict validation -> persisted draft.
type GenerationPipeline interface {
  Generate(ctx context.Context, item *types.QueueItem) (*types.Tutorial, error)
}

type generationPipeline struct {
  model      ModelClient
  assets     AssetProvider
  complexity ComplexityAnalyzer
  tutorials  repos.TutorialRepo
  alerts     repos.GenerationAlertRepo
  notifier   GenerationNotifier
  log        *logger.Logger

  sectionConcurrency int
  assetConcurrency   int
  maxRetries         int
  retryDelay         time.Duration
}

func NewGenerationPipeline(
  model ModelClient,
  assets AssetProvider,
  complexity ComplexityAnalyzer,
  tutorials repos.TutorialRepo,
  alerts repos.GenerationAlertRepo,
  notifier GenerationNotifier,
  log *logger.Logger,
) GenerationPipeline {
  pipeLog := log.With("service", "GenerationPipeline")
  return &generationPipeline{
    model:              model,
    assets:             assets,
    complexity:         complexity,
    tutorials:          tutorials,
    alerts:             alerts,
    notifier:           notifier,
    log:                pipeLog,
    sectionConcurrency: utils.GetEnvAsInt("PIPELINE_SECTION_CONCURRENCY", defaultSectionConcurrency, pipeLog),
    assetConcurrency:   utils.GetEnvAsInt("PIPELINE_ASSET_CONCURRENCY", defaultAssetConcurrency, pipeLog),
    maxRetries:         defaultPhaseRetries,
    retryDelay:         time.Duration(utils.GetEnvAsInt("PIPELINE_RETRY_DELAY_SECONDS", defaultRetryDelaySeconds, pipeLog)) * time.Second,
  }
}

func (p *generationPipeline) Generate(ctx context.Context, item *types.QueueItem) (tutorial *types.Tutorial, err error) {
  ctx, span := observability.StartSpan(ctx, "pipeline.generate",
    attribute.String("queue_id", item.ID.String()),
    attribute.String("topic", item.Topic),
  )
  defer span.End()

  p.notifier.GenerationStarted(item.UserID, item.Topic)

  defer func() {
    if r := recover(); r != nil {
      err = fmt.Errorf("generation panicked: %v", r)
    }
    if err == nil {
      return
    }
    // Top-level boundary: notify the user, raise a critical alert, and
    // still return the error to the caller.
    p.notifier.GenerationFailed(item.UserID, item.Topic, err.Error())
    if !errors.Is(err, ErrBuildBlocked) {
      p.raiseAlert(item, nil, types.AlertSeverityCritical, "generation_error", err.Error(), nil)
    }
    p.log.Error("Tutorial generation failed", "queue_id", item.ID, "topic", item.Topic, "error", err)
  }()

  blueprint, err := p.buildBlueprint(ctx, item.Topic)
  if err != nil {
    return nil, fmt.Errorf("blueprint phase: %w", err)
  }

  tutorialID := uuid.New()
  sections, warnings, err := p.buildSections(ctx, tutorialID, item.Topic, blueprint)
  if err != nil {
    return nil, fmt.Errorf("section phase: %w", err)
  }

  if err := p.validate(ctx, item, sections); err != nil {
    return nil, err
  }

  tutorial, err = p.persist(ctx, tutorialID, item, blueprint.Title, sections)
  if err != nil {
    return nil, fmt.Errorf("persist phase: %w", err)
  }

  for _, warning := range warnings {
    p.raiseAlert(item, &tutorial.ID, types.AlertSeverityWarning, "generation_degraded", warning, nil)
  }

  p.notifier.GenerationSucceeded(item.UserID, item.Topic, tutorial.ID)
  p.log.Info("Tutorial generated",
    "queue_id", item.ID,
    "tutorial_id", tutorial.ID,
    "topic", item.Topic,
    "sections", len(sections),
    "warnings", len(warnings),
  )
  return tutorial, nil
}

// ---- Phase 1: blueprint ----

type sectionSpec struct {
  Title      string `json:"title"`
  Kind       string `json:"kind"`
  Goal       string `json:"goal"`
  WantsImage bool   `json:"wants_image"`
  WantsAudio bool   `json:"wants_audio"`
  WantsVideo bool   `json:"wants_video"`
  WantsQuiz  bool   `json:"wants_quiz"`
}

type blueprint struct {
  Title    string        `json:"title"`
  Sections []sectionSpec `json:"sections"`
}

var blueprintSchema = map[string]any{
  "type": "object",
  "properties": map[string]any{
    "title": map[string]any{"type": "string"},
    "sections": map[string]any{
      "type":     "array",
      "minItems": 3,
      "maxItems": 12,
      "items": map[string]any{
        "type": "object",
        "properties": map[string]any{
          "title":       map[string]any{"type": "string"},
          "kind":        map[string]any{"type": "string", "enum": []string{"concept", "why_it_matters", "example", "practice", "pitfalls", "summary"}},
          "goal":        map[string]any{"type": "string"},
          "wants_image": map[string]any{"type": "boolean"},
          "wants_audio": map[string]any{"type": "boolean"},
          "wants_video": map[string]any{"type": "boolean"},
          "wants_quiz":  map[string]any{"type": "boolean"},
        },
        "required":             []string{"title", "kind", "goal", "wants_image", "wants_audio", "wants_video", "wants_quiz"},
        "additionalProperties": false,
      },
    },
  },
  "required":             []string{"title", "sections"},
  "additionalProperties": false,
}

// buildBlueprint asks the model for the ordered section plan. Empty or
// invalid output is retried with a fixed delay; exhausting retries fails the
// whole build.
func (p *generationPipeline) buildBlueprint(parent context.Context, topic string) (*blueprint, error) {
  ctx, cancel := context.WithTimeout(parent, blueprintTimeout)
  defer cancel()
  ctx, span := observability.StartSpan(ctx, "pipeline.blueprint")
  defer span.End()

  var lastErr error
  for attempt := 1; attempt <= p.maxRetries; attempt++ {
    out, err := p.model.GenerateJSON(ctx,
      "You design section-by-section lesson plans for digital-marketing tutorials.",
      fmt.Sprintf("Plan a tutorial on %q. Include a why-it-matters section and a pitfalls section.", topic),
      "tutorial_blueprint", blueprintSchema,
    )
    if err == nil {
      bp, decodeErr := decodeBlueprint(out)
      if decodeErr == nil {
        return bp, nil
      }
      err = decodeErr
    }
    lastErr = err
    p.log.Warn("Blueprint attempt failed", "topic", topic, "attempt", attempt, "error", err)

    if attempt == p.maxRetries {
      break
    }
    select {
    case <-ctx.Done():
      return nil, ctx.Err()
    case <-time.After(p.retryDelay):
    }
  }
  return nil, fmt.Errorf("blueprint exhausted %d attempts: %w", p.maxRetries, lastErr)
}

func decodeBlueprint(out map[string]any) (*blueprint, error) {
  raw, err := json.Marshal(out)
  if err != nil {
    return nil, err
  }
  var bp blueprint
  if err := json.Unmarshal(raw, &bp); err != nil {
    return nil, fmt.Errorf("blueprint shape: %w", err)
  }
  if bp.Title == "" || len(bp.Sections) == 0 {
    return nil, errors.New("blueprint empty")
  }
  return &bp, nil
}

// ---- Phase 2: parallel section build ----

type sectionResult struct {
  section  types.Section
  warnings []string
}

// buildSections fans out one task per section into a bounded pool. Each task
// writes only to its own pre-sized result slot, so no locking is needed.
func (p *generationPipeline) buildSections(parent context.Context, tutorialID uuid.UUID, topic string, bp *blueprint) ([]types.Section, []string, error) {
  ctx, cancel := context.WithTimeout(parent, sectionsTimeout)
  defer cancel()
  ctx, span := observability.StartSpan(ctx, "pipeline.sections",
    attribute.Int("section_count", len(bp.Sections)),
  )
  defer span.End()

  results := make([]sectionResult, len(bp.Sections))

  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(p.sectionConcurrency)
  for i, spec := range bp.Sections {
    g.Go(func() error {
      section, warnings, err := p.buildSectionWithRetry(gctx, tutorialID, topic, spec)
      if err != nil {
        return fmt.Errorf("section %q: %w", spec.Title, err)
      }
      results[i] = sectionResult{section: *section, warnings: warnings}
      return nil
    })
  }
  if err := g.Wait(); err != nil {
    return nil, nil, err
  }

  sections := make([]types.Section, len(results))
  var warnings []string
  for i, res := range results {
    sections[i] = res.section
    warnings = append(warnings, res.warnings...)
  }
  return sections, warnings, nil
}

func (p *generationPipeline) buildSectionWithRetry(ctx context.Context, tutorialID uuid.UUID, topic string, spec sectionSpec) (*types.Section, []string, error) {
  var lastErr error
  for attempt := 1; attempt <= p.maxRetries; attempt++ {
    section, warnings, err := p.buildSection(ctx, tutorialID, topic, spec)
    if err == nil {
      return section, warnings, nil
    }
    lastErr = err
    p.log.Warn("Section attempt failed", "section", spec.Title, "attempt", attempt, "error", err)

    if attempt == p.maxRetries {
      break
    }
    select {
    case <-ctx.Done():
      return nil, nil, ctx.Err()
    case <-time.After(p.retryDelay):
    }
  }
  return nil, nil, lastErr
}

type narrative struct {
  Text        string              `json:"text"`
  Citations   []string            `json:"citations"`
  Diagram     string              `json:"diagram"`
  ImagePrompt string              `json:"image_prompt"`
  AudioScript string              `json:"audio_script"`
  Quiz        *types.QuizQuestion `json:"quiz"`
}

var narrativeSchema = map[string]any{
  "type": "object",
  "properties": map[string]any{
    "text":         map[string]any{"type": "string"},
    "citations":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
    "diagram":      map[string]any{"type": "string"},
    "image_prompt": map[string]any{"type": "string"},
    "audio_script": map[string]any{"type": "string"},
    "quiz": map[string]any{
      "type": []string{"object", "null"},
      "properties": map[string]any{
        "question":       map[string]any{"type": "string"},
        "options":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
        "correct_answer": map[string]any{"type": "integer"},
        "explanation":    map[string]any{"type": "string"},
      },
      "required":             []string{"question", "options", "correct_answer", "explanation"},
      "additionalProperties": false,
    },
  },
  "required":             []string{"text", "citations", "diagram", "image_prompt", "audio_script", "quiz"},
  "additionalProperties": false,
}

// buildSection generates the narrative, then fans asset work into a nested
// bounded pool. Asset failure never errors the section: the block degrades
// through its fallback chain and terminal failure is recorded on the block
// for the validation gate.
func (p *generationPipeline) buildSection(ctx context.Context, tutorialID uuid.UUID, topic string, spec sectionSpec) (*types.Section, []string, error) {
  out, err := p.model.GenerateJSON(ctx,
    "You write one section of a practitioner-focused digital-marketing tutorial. Aim for 120-180 words of narrative.",
    fmt.Sprintf("Topic: %s. Section: %s (%s). Goal: %s.", topic, spec.Title, spec.Kind, spec.Goal),
    "tutorial_section", narrativeSchema,
  )
  if err != nil {
    return nil, nil, fmt.Errorf("narrative: %w", err)
  }
  raw, err := json.Marshal(out)
  if err != nil {
    return nil, nil, err
  }
  var content narrative
  if err := json.Unmarshal(raw, &content); err != nil {
    return nil, nil, fmt.Errorf("narrative shape: %w", err)
  }
  if content.Text == "" {
    return nil, nil, errors.New("narrative empty")
  }

  var warnings []string

  blocks := []types.ContentBlock{{
    Type:      types.BlockTypeText,
    Status:    types.BlockStatusOK,
    Text:      content.Text,
    Citations: content.Citations,
  }}
  if content.Diagram != "" {
    blocks = append(blocks, types.ContentBlock{
      Type:    types.BlockTypeDiagram,
      Status:  types.BlockStatusOK,
      Diagram: content.Diagram,
    })
  }
  if spec.WantsQuiz && content.Quiz != nil {
    quiz := sanitizeQuiz(*content.Quiz, spec.Title, p.log, &warnings)
    blocks = append(blocks, types.ContentBlock{
      Type:   types.BlockTypeQuiz,
      Status: types.BlockStatusOK,
      Quiz:   &quiz,
    })
  }

  // Asset tasks get pre-sized slots appended after the narrative blocks.
  type assetTask struct {
    kind   types.BlockType
    prompt string
    slot   int
  }
  var tasks []assetTask
  addTask := func(kind types.BlockType, prompt string) {
    blocks = append(blocks, types.ContentBlock{Type: kind, Status: types.BlockStatusOK})
    tasks = append(tasks, assetTask{kind: kind, prompt: prompt, slot: len(blocks) - 1})
  }
  if spec.WantsVideo {
    addTask(types.BlockTypeVideo, content.ImagePrompt)
  } else if spec.WantsImage {
    addTask(types.BlockTypeImage, content.ImagePrompt)
  }
  if spec.WantsAudio && content.AudioScript != "" {
    addTask(types.BlockTypeAudio, content.AudioScript)
  }

  if len(tasks) > 0 {
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(p.assetConcurrency)
    warningCh := make(chan string, len(tasks))
    for _, task := range tasks {
      g.Go(func() error {
        block, warning := p.buildAsset(gctx, tutorialID, spec.Title, task.kind, task.prompt)
        blocks[task.slot] = block
        if warning != "" {
          warningCh <- warning
        }
        return nil
      })
    }
    _ = g.Wait()
    close(warningCh)
    for w := range warningCh {
      warnings = append(warnings, w)
    }
  }

  return &types.Section{
    Title:  spec.Title,
    Kind:   spec.Kind,
    Goal:   spec.Goal,
    Blocks: blocks,
  }, warnings, nil
}

// buildAsset walks the fallback chain for one asset. Video requests degrade
// to image; a failed image degrades to a rendered placeholder; only when the
// placeholder itself cannot be produced does the block become status=failed.
func (p *generationPipeline) buildAsset(ctx context.Context, tutorialID uuid.UUID, sectionTitle string, kind types.BlockType, prompt string) (types.ContentBlock, string) {
  original := kind
  warning := ""

  if kind == types.BlockTypeVideo {
    // No video backend; degrade immediately.
    kind = types.BlockTypeImage
    warning = fmt.Sprintf("section %q: video degraded to image", sectionTitle)
  }

  switch kind {
  case types.BlockTypeImage:
    ref, err := p.assets.GenerateImage(ctx, tutorialID, prompt)
    if err == nil {
      block := types.ContentBlock{
        Type:      types.BlockTypeImage,
        Status:    types.BlockStatusOK,
        URL:       ref.URL,
        ObjectKey: ref.ObjectKey,
        AltText:   prompt,
        Prompt:    prompt,
      }
      if original != types.BlockTypeImage {
        block.OriginalType = original
      }
      return block, warning
    }
    p.log.Warn("Image generation failed, degrading to placeholder", "section", sectionTitle, "error", err)
    return p.placeholderBlock(ctx, tutorialID, sectionTitle, original, prompt, err),
      fmt.Sprintf("section %q: image degraded to placeholder", sectionTitle)

  case types.BlockTypeAudio:
    ref, err := p.assets.GenerateAudio(ctx, tutorialID, prompt)
    if err == nil {
      return types.ContentBlock{
        Type:      types.BlockTypeAudio,
        Status:    types.BlockStatusOK,
        URL:       ref.URL,
        ObjectKey: ref.ObjectKey,
        Prompt:    prompt,
      }, warning
    }
    p.log.Warn("Audio generation failed, degrading to placeholder", "section", sectionTitle, "error", err)
    return p.placeholderBlock(ctx, tutorialID, sectionTitle, original, prompt, err),
      fmt.Sprintf("section %q: audio degraded to placeholder", sectionTitle)
  }

  return p.placeholderBlock(ctx, tutorialID, sectionTitle, original, prompt, fmt.Errorf("unsupported asset kind %q", original)), warning
}

func (p *generationPipeline) placeholderBlock(ctx context.Context, tutorialID uuid.UUID, sectionTitle string, original types.BlockType, prompt string, cause error) types.ContentBlock {
  block := types.ContentBlock{
    Type:         types.BlockTypePlaceholder,
    OriginalType: original,
    Prompt:       prompt,
    Error:        cause.Error(),
  }
  ref, err := p.assets.Placeholder(ctx, tutorialID, sectionTitle)
  if err != nil {
    // Terminal: nothing renderable. The validation gate discards the build.
    block.Status = types.BlockStatusFailed
    block.Error = fmt.Sprintf("%v; placeholder: %v", cause, err)
    return block
  }
  block.Status = types.BlockStatusOK
  block.URL = ref.URL
  block.ObjectKey = ref.ObjectKey
  return block
}

// sanitizeQuiz auto-corrects an out-of-range answer index to the first
// option. Data-integrity issues never block the build.
func sanitizeQuiz(quiz types.QuizQuestion, sectionTitle string, log *logger.Logger, warnings *[]string) types.QuizQuestion {
  if len(quiz.Options) == 0 {
    quiz.Options = []string{"True", "False"}
    quiz.CorrectAnswer = 0
    *warnings = append(*warnings, fmt.Sprintf("section %q: quiz had no options, defaulted", sectionTitle))
    return quiz
  }
  if quiz.CorrectAnswer < 0 || quiz.CorrectAnswer >= len(quiz.Options) {
    log.Warn("Quiz answer index out of range, corrected to 0",
      "section", sectionTitle,
      "correct_answer", quiz.CorrectAnswer,
      "options", len(quiz.Options),
    )
    *warnings = append(*warnings, fmt.Sprintf("section %q: quiz answer index corrected", sectionTitle))
    quiz.CorrectAnswer = 0
  }
  return quiz
}

// ---- Phase 3: strict validation ----

// validate enforces the all-or-nothing rule: any failed block discards the
// whole artifact and raises a per-block failure report for the admin surface.
func (p *generationPipeline) validate(parent context.Context, item *types.QueueItem, sections []types.Section) error {
  ctx, cancel := context.WithTimeout(parent, validationTimeout)
  defer cancel()

  var failed []types.FailedBlockRef
  for i := range sections {
    if err := ctx.Err(); err != nil {
      return fmt.Errorf("validation phase: %w", err)
    }
    failed = append(failed, types.SectionFailedBlocks(i, sections[i])...)
  }
  if len(failed) == 0 {
    return nil
  }

  report, err := json.Marshal(map[string]any{"failed_blocks": failed})
  if err != nil {
    report = nil
  }
  p.raiseAlert(item, nil, types.AlertSeverityCritical, "strict_validation_failed",
    fmt.Sprintf("%d content block(s) failed; artifact discarded", len(failed)), report)

  return fmt.Errorf("%w: %d failed block(s)", ErrBuildBlocked, len(failed))
}

// ---- Phase 4: persist ----

func (p *generationPipeline) persist(ctx context.Context, tutorialID uuid.UUID, item *types.QueueItem, title string, sections []types.Section) (*types.Tutorial, error) {
  hash, err := ContentHash(sections)
  if err != nil {
    return nil, err
  }
  sectionsJSON, err := json.Marshal(sections)
  if err != nil {
    return nil, fmt.Errorf("marshal sections: %w", err)
  }

  estimatedMins := 0
  skillTier := ""
  if analysis, aErr := p.complexity.Analyze(ctx, item.Topic, ""); aErr == nil {
    estimatedMins = analysis.EstimatedMinutes
    skillTier = string(analysis.RecommendedTier)
  }

  tutorial := &types.Tutorial{
    ID:            tutorialID,
    UserID:        item.UserID,
    Topic:         item.Topic,
    Title:         title,
    Status:        types.TutorialStatusDraft,
    Sections:      datatypes.JSON(sectionsJSON),
    EstimatedMins: estimatedMins,
    SkillTier:     skillTier,
  }
  version := &types.TutorialVersion{
    ID:           uuid.New(),
    TutorialID:   tutorialID,
    ContentHash:  hash,
    ModelVersion: p.model.ModelVersion(),
  }
  if err := p.tutorials.CreateWithVersion(ctx, nil, tutorial, version); err != nil {
    return nil, err
  }
  return tutorial, nil
}

func (p *generationPipeline) raiseAlert(item *types.QueueItem, tutorialID *uuid.UUID, severity types.AlertSeverity, code, message string, details []byte) {
  queueID := item.ID
  alert := &types.GenerationAlert{
    ID:          uuid.New(),
    UserID:      item.UserID,
    QueueItemID: &queueID,
    TutorialID:  tutorialID,
    Severity:    severity,
    Code:        code,
    Message:     message,
  }
  if details != nil {
    alert.Details = datatypes.JSON(details)
  }
  // Alerts ride a fresh context so a cancelled build can still report.
  alertCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
  defer cancel()
  if _, err := p.alerts.Create(alertCtx, nil, []*types.GenerationAlert{alert}); err != nil {
    p.log.Error("Failed to record generation alert", "code", code, "error", err)
  }
}
