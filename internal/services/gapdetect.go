package services

import (
  "context"
  "fmt"
  "sort"
  "strings"

  "github.com/google/uuid"

  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/repos"
  "github.com/yungbote/skillforge-backend/internal/types"
)

// Quiz score cutoffs for the failure scan.
const (
  quizCriticalBelow = 40.0
  quizHighBelow     = 60.0
  quizMediumBelow   = 75.0
)

const (
  performanceLookback   = 10
  performanceMinBreaches = 3
)

// channelThresholds flag a performance record as below-par for its channel.
// A zero MaxCPC means cost-per-click does not apply to the channel.
type channelThreshold struct {
  MinCTR        float64
  MaxCPC        float64
  MinEngagement float64
}

var channelThresholds = map[string]channelThreshold{
  "search":  {MinCTR: 1.0, MaxCPC: 2.0, MinEngagement: 0.5},
  "social":  {MinCTR: 0.8, MaxCPC: 1.5, MinEngagement: 0.5},
  "display": {MinCTR: 0.5, MaxCPC: 1.0, MinEngagement: 0.3},
  "email":   {MinCTR: 2.0, MaxCPC: 0, MinEngagement: 0.5},
}

var defaultThreshold = channelThreshold{MinCTR: 1.0, MaxCPC: 2.0, MinEngagement: 0.5}

type GapDetector interface {
  // Detect runs all three sources, deduplicates by topic keeping the highest
  // severity, and returns gaps sorted by severity with a stable rank.
  Detect(ctx context.Context, userID uuid.UUID) ([]types.LearningGap, error)
}

type gapDetector struct {
  completedUnits repos.CompletedUnitRepo
  skillMatrix    repos.SkillMatrixRepo
  performance    repos.PerformanceRecordRepo
  log            *logger.Logger
}

func NewGapDetector(
  completedUnits repos.CompletedUnitRepo,
  skillMatrix repos.SkillMatrixRepo,
  performance repos.PerformanceRecordRepo,
  log *logger.Logger,
) GapDetector {
  return &gapDetector{
    completedUnits: completedUnits,
    skillMatrix:    skillMatrix,
    performance:    performance,
    log:            log.With("service", "GapDetector"),
  }
}

func (d *gapDetector) Detect(ctx context.Context, userID uuid.UUID) ([]types.LearningGap, error) {
  var gaps []types.LearningGap

  quizGaps, err := d.scanQuizFailures(ctx, userID)
  if err != nil {
    return nil, fmt.Errorf("quiz failure scan: %w", err)
  }
  gaps = append(gaps, quizGaps...)

  skillGaps, err := d.scanSkillMatrix(ctx, userID)
  if err != nil {
    return nil, fmt.Errorf("skill matrix scan: %w", err)
  }
  gaps = append(gaps, skillGaps...)

  perfGaps, err := d.scanPerformance(ctx, userID)
  if err != nil {
    return nil, fmt.Errorf("performance scan: %w", err)
  }
  gaps = append(gaps, perfGaps...)

  return rankGaps(gaps), nil
}

// scanQuizFailures flags topics whose best recent quiz score fell below the
// cutoffs. These are the only gaps eligible for auto-approval.
func (d *gapDetector) scanQuizFailures(ctx context.Context, userID uuid.UUID) ([]types.LearningGap, error) {
  units, err := d.completedUnits.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, err
  }

  var gaps []types.LearningGap
  for _, unit := range units {
    if unit.QuizScore == nil {
      continue
    }
    score := *unit.QuizScore
    var severity int
    switch {
    case score < quizCriticalBelow:
      severity = types.SeverityCritical
    case score < quizHighBelow:
      severity = types.SeverityHigh
    case score < quizMediumBelow:
      severity = types.SeverityMedium
    default:
      continue
    }
    unitID := unit.ID
    gaps = append(gaps, types.LearningGap{
      GapID:         uuid.New(),
      UserID:        userID,
      Topic:         unit.Topic,
      SourceUnitID:  &unitID,
      Severity:      severity,
      Evidence:      []string{fmt.Sprintf("quiz score %.0f%% on %q", score, unit.Title)},
      TriggerReason: types.TriggerQuizFailureRemediation,
      AutoApprove:   true,
    })
  }
  return gaps, nil
}

func (d *gapDetector) scanSkillMatrix(ctx context.Context, userID uuid.UUID) ([]types.LearningGap, error) {
  rows, err := d.skillMatrix.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, err
  }

  var gaps []types.LearningGap
  for _, row := range rows {
    if row.Level != types.SkillNovice {
      continue
    }
    gaps = append(gaps, types.LearningGap{
      GapID:         uuid.New(),
      UserID:        userID,
      Topic:         row.Skill,
      Severity:      types.SeverityMedium,
      Evidence:      []string{fmt.Sprintf("skill %q at NOVICE", row.Skill)},
      TriggerReason: types.TriggerSkillGapDetected,
      AutoApprove:   false,
    })
  }
  return gaps, nil
}

// scanPerformance correlates recent campaign records against per-channel
// thresholds; a channel with repeated below-par records becomes a gap.
func (d *gapDetector) scanPerformance(ctx context.Context, userID uuid.UUID) ([]types.LearningGap, error) {
  records, err := d.performance.GetRecentByUserID(ctx, nil, userID, performanceLookback)
  if err != nil {
    return nil, err
  }

  breaches := map[string]int{}
  for _, rec := range records {
    threshold, ok := channelThresholds[strings.ToLower(rec.Channel)]
    if !ok {
      threshold = defaultThreshold
    }
    below := rec.CTR < threshold.MinCTR || rec.EngagementRate < threshold.MinEngagement
    if threshold.MaxCPC > 0 && rec.CPC > threshold.MaxCPC {
      below = true
    }
    if below {
      breaches[rec.Channel]++
    }
  }

  channels := make([]string, 0, len(breaches))
  for ch := range breaches {
    channels = append(channels, ch)
  }
  sort.Strings(channels)

  var gaps []types.LearningGap
  for _, ch := range channels {
    count := breaches[ch]
    if count < performanceMinBreaches {
      continue
    }
    gaps = append(gaps, types.LearningGap{
      GapID:         uuid.New(),
      UserID:        userID,
      Topic:         fmt.Sprintf("%s optimization", strings.ToLower(ch)),
      Severity:      types.SeverityHigh,
      Evidence:      []string{fmt.Sprintf("%d of last %d %s records below threshold", count, performanceLookback, ch)},
      TriggerReason: types.TriggerPerformanceDecline,
      AutoApprove:   false,
    })
  }
  return gaps, nil
}

// rankGaps deduplicates by topic (highest severity wins, evidence merged),
// sorts by severity descending with insertion order breaking ties, and
// assigns priority ranks.
func rankGaps(gaps []types.LearningGap) []types.LearningGap {
  byTopic := map[string]int{}
  deduped := make([]types.LearningGap, 0, len(gaps))
  for _, gap := range gaps {
    key := strings.ToLower(strings.TrimSpace(gap.Topic))
    if idx, seen := byTopic[key]; seen {
      existing := &deduped[idx]
      existing.Evidence = append(existing.Evidence, gap.Evidence...)
      if gap.Severity > existing.Severity {
        keep := existing.Evidence
        deduped[idx] = gap
        deduped[idx].Evidence = keep
      }
      continue
    }
    byTopic[key] = len(deduped)
    deduped = append(deduped, gap)
  }

  sort.SliceStable(deduped, func(i, j int) bool {
    return deduped[i].Severity > deduped[j].Severity
  })
  for i := range deduped {
    deduped[i].PriorityRank = i + 1
  }
  return deduped
}
