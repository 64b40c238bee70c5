package services

import (
  "context"
  "fmt"
  "math"
  "strings"
  "time"

  "github.com/google/uuid"

  "github.com/yungbote/skillforge-backend/internal/graph"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/repos"
  "github.com/yungbote/skillforge-backend/internal/types"
)

// Eligibility weights. Must sum to exactly 1.0; TestEligibilityWeightsSumToOne enforces it.
const (
  weightGapSeverity       = 0.30
  weightPerformanceLevel  = 0.20
  weightTopicComplexity   = 0.15
  weightPrereqCompletion  = 0.15
  weightRecency           = 0.10
  weightCampaignCorrelate = 0.10
)

const (
  autoApproveMinScore = 70.0
  recencyCapDays      = 14.0
  recencyCapScore     = 90.0
)

type EligibilityTier string

const (
  TierCritical EligibilityTier = "CRITICAL"
  TierHigh     EligibilityTier = "HIGH"
  TierMedium   EligibilityTier = "MEDIUM"
  TierLow      EligibilityTier = "LOW"
  TierSkip     EligibilityTier = "SKIP"
)

// EligibilityInput is the frozen snapshot the pure scorer runs on. Everything
// the score depends on is collected here first so scoring stays deterministic
// and auditable.
type EligibilityInput struct {
  Gap                   types.LearningGap
  PerformanceLevel      types.PerformanceLevel
  ComplexityScore       float64 // 0-10
  Prerequisites         []string
  CompletedTopics       []string
  DaysSinceLastComplete *float64 // nil when the user has never completed a unit
  AddressesPerformance  bool     // topic targets a detected performance problem
}

type EligibilityResult struct {
  TotalScore        float64            `json:"total_score"` // 0-100
  Tier              EligibilityTier    `json:"tier"`
  Components        map[string]float64 `json:"components"`
  ShouldAutoApprove bool               `json:"should_auto_approve"`
}

// Score is the pure eligibility function. Identical inputs always produce
// identical output.
func Score(in EligibilityInput) EligibilityResult {
  components := map[string]float64{
    "gap_severity":         clampFloat(float64(in.Gap.Severity)*10, 0, 100),
    "performance_level":    performanceLevelScore(in.PerformanceLevel),
    "topic_complexity":     clampFloat(in.ComplexityScore*10, 0, 100),
    "prereq_completion":    prereqCompletionScore(in.Prerequisites, in.CompletedTopics),
    "recency":              recencyScore(in.DaysSinceLastComplete),
    "campaign_correlation": campaignCorrelationScore(in),
  }

  total := components["gap_severity"]*weightGapSeverity +
    components["performance_level"]*weightPerformanceLevel +
    components["topic_complexity"]*weightTopicComplexity +
    components["prereq_completion"]*weightPrereqCompletion +
    components["recency"]*weightRecency +
    components["campaign_correlation"]*weightCampaignCorrelate
  total = math.Round(clampFloat(total, 0, 100)*100) / 100

  return EligibilityResult{
    TotalScore: total,
    Tier:       tierForTotal(total),
    Components: components,
    // Only quiz-failure remediation ever auto-approves; other trigger types
    // go through human review regardless of score.
    ShouldAutoApprove: in.Gap.TriggerReason == types.TriggerQuizFailureRemediation && total >= autoApproveMinScore,
  }
}

func tierForTotal(total float64) EligibilityTier {
  switch {
  case total >= 90:
    return TierCritical
  case total >= 70:
    return TierHigh
  case total >= 50:
    return TierMedium
  case total >= 30:
    return TierLow
  default:
    return TierSkip
  }
}

func performanceLevelScore(level types.PerformanceLevel) float64 {
  switch level {
  case types.PerformanceStruggling:
    return 100
  case types.PerformanceBelowAverage:
    return 80
  case types.PerformanceAverage:
    return 60
  case types.PerformanceGood:
    return 40
  case types.PerformanceExcelling:
    return 20
  default:
    return 60
  }
}

func prereqCompletionScore(prereqs, completed []string) float64 {
  if len(prereqs) == 0 {
    return 100
  }
  done := map[string]bool{}
  for _, topic := range completed {
    done[strings.ToLower(strings.TrimSpace(topic))] = true
  }
  met := 0
  for _, p := range prereqs {
    if done[strings.ToLower(strings.TrimSpace(p))] {
      met++
    }
  }
  return float64(met) / float64(len(prereqs)) * 100
}

// recencyScore rises with elapsed days since the last completed unit, capped
// at 90 once two weeks have passed. Never-completed users score the cap.
func recencyScore(days *float64) float64 {
  if days == nil {
    return recencyCapScore
  }
  if *days >= recencyCapDays {
    return recencyCapScore
  }
  if *days <= 0 {
    return 0
  }
  return *days / recencyCapDays * recencyCapScore
}

func campaignCorrelationScore(in EligibilityInput) float64 {
  if in.AddressesPerformance || in.Gap.TriggerReason == types.TriggerPerformanceDecline {
    return 90
  }
  if in.PerformanceLevel == types.PerformanceStruggling || in.PerformanceLevel == types.PerformanceBelowAverage {
    return 50
  }
  return 40
}

// --- Snapshot-building scorer ---

type EligibilityScorer interface {
  // ScoreGap snapshots the user's current state and scores the gap.
  ScoreGap(ctx context.Context, gap types.LearningGap) (*EligibilityResult, error)
}

type eligibilityScorer struct {
  users          repos.UserRepo
  completedUnits repos.CompletedUnitRepo
  prereqs        graph.PrerequisiteGraph
  complexity     ComplexityAnalyzer
  log            *logger.Logger
}

func NewEligibilityScorer(
  users repos.UserRepo,
  completedUnits repos.CompletedUnitRepo,
  prereqs graph.PrerequisiteGraph,
  complexity ComplexityAnalyzer,
  log *logger.Logger,
) EligibilityScorer {
  return &eligibilityScorer{
    users:          users,
    completedUnits: completedUnits,
    prereqs:        prereqs,
    complexity:     complexity,
    log:            log.With("service", "EligibilityScorer"),
  }
}

func (s *eligibilityScorer) ScoreGap(ctx context.Context, gap types.LearningGap) (*EligibilityResult, error) {
  input, err := s.buildInput(ctx, gap)
  if err != nil {
    return nil, err
  }
  result := Score(*input)
  return &result, nil
}

func (s *eligibilityScorer) buildInput(ctx context.Context, gap types.LearningGap) (*EligibilityInput, error) {
  input := &EligibilityInput{Gap: gap, PerformanceLevel: types.PerformanceAverage}

  users, err := s.users.GetByIDs(ctx, nil, []uuid.UUID{gap.UserID})
  if err != nil {
    return nil, fmt.Errorf("load user: %w", err)
  }
  skillLevel := types.SkillNovice
  if len(users) == 1 {
    input.PerformanceLevel = users[0].PerformanceLevel
    skillLevel = users[0].SkillLevel
  }

  analysis, err := s.complexity.Analyze(ctx, gap.Topic, skillLevel)
  if err != nil {
    s.log.Warn("Complexity analysis degraded to mid-range", "topic", gap.Topic, "error", err)
    input.ComplexityScore = 5
  } else {
    input.ComplexityScore = analysis.Score
  }

  prereqs, _, err := s.prereqs.Direct(ctx, gap.Topic)
  if err == nil {
    input.Prerequisites = prereqs
  }

  completed, err := s.completedUnits.GetCompletedTopics(ctx, nil, gap.UserID)
  if err != nil {
    return nil, fmt.Errorf("load completed topics: %w", err)
  }
  input.CompletedTopics = completed

  last, err := s.completedUnits.GetLastCompletedAt(ctx, nil, gap.UserID)
  if err != nil {
    return nil, fmt.Errorf("load last completion: %w", err)
  }
  if last != nil {
    days := time.Since(*last).Hours() / 24
    input.DaysSinceLastComplete = &days
  }

  return input, nil
}
