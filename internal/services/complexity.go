package services

import (
  "context"
  "math"
  "strings"
  "time"

  "github.com/yungbote/skillforge-backend/internal/graph"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/types"
  "github.com/yungbote/skillforge-backend/internal/warehouse"
)

// Sub-score weights. Must sum to 1.0.
const (
  weightPrereq      = 0.25
  weightAbstraction = 0.25
  weightFailureRate = 0.20
  weightCognitive   = 0.15
  weightDomainDepth = 0.15
)

const failureRateWindow = 90 * 24 * time.Hour

// ComplexityResult is the analyzer's full output for one topic.
type ComplexityResult struct {
  Topic            string           `json:"topic"`
  Score            float64          `json:"score"` // 0-10
  SubScores        map[string]float64 `json:"sub_scores"`
  ModelBlended     bool             `json:"model_blended"`
  RecommendedTier  types.SkillLevel `json:"recommended_tier"`
  EstimatedMinutes int              `json:"estimated_minutes"`
}

type ComplexityAnalyzer interface {
  Analyze(ctx context.Context, topic string, skillLevel types.SkillLevel) (*ComplexityResult, error)
}

type complexityAnalyzer struct {
  prereqs   graph.PrerequisiteGraph
  warehouse warehouse.Client
  model     ModelClient
  log       *logger.Logger
}

// NewComplexityAnalyzer builds the analyzer. The model client is optional;
// pass nil to stay fully deterministic.
func NewComplexityAnalyzer(prereqs graph.PrerequisiteGraph, wh warehouse.Client, model ModelClient, log *logger.Logger) ComplexityAnalyzer {
  return &complexityAnalyzer{
    prereqs:   prereqs,
    warehouse: wh,
    model:     model,
    log:       log.With("service", "ComplexityAnalyzer"),
  }
}

func (a *complexityAnalyzer) Analyze(ctx context.Context, topic string, skillLevel types.SkillLevel) (*ComplexityResult, error) {
  sub := map[string]float64{
    "prerequisite_count":      a.prerequisiteScore(ctx, topic),
    "abstraction_level":       abstractionScore(topic),
    "historical_failure_rate": a.failureRateScore(ctx, topic),
    "cognitive_load":          cognitiveLoadScore(topic, skillLevel),
    "domain_depth":            domainDepthScore(topic),
  }

  score := sub["prerequisite_count"]*weightPrereq +
    sub["abstraction_level"]*weightAbstraction +
    sub["historical_failure_rate"]*weightFailureRate +
    sub["cognitive_load"]*weightCognitive +
    sub["domain_depth"]*weightDomainDepth

  blended := false
  if a.model != nil {
    if modelScore, ok := a.modelEstimate(ctx, topic); ok {
      score = score*0.7 + modelScore*0.3
      blended = true
    }
  }
  score = clampFloat(score, 0, 10)

  return &ComplexityResult{
    Topic:            topic,
    Score:            score,
    SubScores:        sub,
    ModelBlended:     blended,
    RecommendedTier:  tierForScore(score),
    EstimatedMinutes: int(math.Round(15 * (1 + score/10))),
  }, nil
}

func tierForScore(score float64) types.SkillLevel {
  switch {
  case score <= 3:
    return types.SkillNovice
  case score <= 6:
    return types.SkillIntermediate
  default:
    return types.SkillExpert
  }
}

// prerequisiteScore normalizes direct plus transitive prerequisite counts to
// 0-10. Unknown topics fall back to a word-count heuristic.
func (a *complexityAnalyzer) prerequisiteScore(ctx context.Context, topic string) float64 {
  direct, known, err := a.prereqs.Direct(ctx, topic)
  if err != nil || !known {
    words := len(strings.Fields(topic))
    return clampFloat(float64(words)*2, 1, 8)
  }
  transitive, _, err := a.prereqs.TransitiveCount(ctx, topic)
  if err != nil {
    transitive = len(direct)
  }
  // 0 prereqs -> 1, 8+ transitive -> 10
  return clampFloat(1+float64(len(direct))+float64(transitive)*0.8, 1, 10)
}

var abstractMarkers = []string{
  "strategy", "theory", "model", "framework", "attribution", "philosophy",
  "architecture", "methodology", "optimization", "analysis",
}

var concreteMarkers = []string{
  "setup", "how to", "guide", "checklist", "basics", "introduction",
  "tutorial", "walkthrough", "step",
}

func abstractionScore(topic string) float64 {
  lower := strings.ToLower(topic)
  score := 5.0
  for _, m := range abstractMarkers {
    if strings.Contains(lower, m) {
      score += 1.5
    }
  }
  for _, m := range concreteMarkers {
    if strings.Contains(lower, m) {
      score -= 1.5
    }
  }
  return clampFloat(score, 1, 10)
}

// failureRateScore maps warehouse average failure rate (0-1) over the rolling
// window to 0-10. Missing or unreachable data scores mid-range.
func (a *complexityAnalyzer) failureRateScore(ctx context.Context, topic string) float64 {
  if a.warehouse == nil {
    return 5
  }
  avg, err := a.warehouse.AvgQuizFailureRate(ctx, topic, failureRateWindow)
  if err != nil {
    a.log.Warn("Failure-rate lookup degraded to default", "topic", topic, "error", err)
    return 5
  }
  if avg == nil {
    return 5
  }
  return clampFloat(*avg*10, 0, 10)
}

var loadMarkers = []string{"multi", "advanced", "cross", "integrated", "automation"}

func cognitiveLoadScore(topic string, skillLevel types.SkillLevel) float64 {
  load := 5.0
  switch skillLevel {
  case types.SkillNovice:
    load += 2
  case types.SkillExpert:
    load -= 2
  }
  lower := strings.ToLower(topic)
  for _, m := range loadMarkers {
    if strings.Contains(lower, m) {
      load++
    }
  }
  return clampFloat(load, 1, 10)
}

var domainDepth = map[string]float64{
  "budgeting":             3,
  "ad copywriting":        3,
  "seo fundamentals":      4,
  "audience targeting":    5,
  "email marketing":       4,
  "landing page design":   4,
  "campaign analytics":    6,
  "conversion tracking":   6,
  "channel strategy":      6,
  "content marketing":     5,
  "a/b testing":           7,
  "bid strategies":        7,
  "retargeting":           7,
  "creative optimization": 7,
  "attribution modeling":  9,
}

func domainDepthScore(topic string) float64 {
  if depth, ok := domainDepth[strings.ToLower(strings.TrimSpace(topic))]; ok {
    return depth
  }
  return 5
}

var complexityEstimateSchema = map[string]any{
  "type": "object",
  "properties": map[string]any{
    "score": map[string]any{
      "type":    "number",
      "minimum": 0,
      "maximum": 10,
    },
  },
  "required":             []string{"score"},
  "additionalProperties": false,
}

// modelEstimate asks the model for a 0-10 difficulty estimate. Any failure
// degrades to the deterministic score alone.
func (a *complexityAnalyzer) modelEstimate(ctx context.Context, topic string) (float64, bool) {
  out, err := a.model.GenerateJSON(ctx,
    "You rate the difficulty of digital-marketing topics for practitioners.",
    "Rate the difficulty of the topic \""+topic+"\" on a 0-10 scale.",
    "complexity_estimate", complexityEstimateSchema,
  )
  if err != nil {
    a.log.Warn("Model complexity estimate unavailable", "topic", topic, "error", err)
    return 0, false
  }
  score, ok := out["score"].(float64)
  if !ok {
    return 0, false
  }
  return clampFloat(score, 0, 10), true
}

func clampFloat(v, lo, hi float64) float64 {
  if v < lo {
    return lo
  }
  if v > hi {
    return hi
  }
  return v
}
