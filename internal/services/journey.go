package services

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "sort"
  "strings"

  "github.com/google/uuid"
  "gorm.io/datatypes"

  "github.com/yungbote/skillforge-backend/internal/graph"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/repos"
  "github.com/yungbote/skillforge-backend/internal/types"
  "github.com/yungbote/skillforge-backend/internal/utils"
)

const defaultMaxJourneyNodes = 10

var ErrNoActiveJourney = errors.New("no active journey for user")

// skillPaths are the static ordered topic lists behind the skill-path and
// profile-based strategies.
var skillPaths = map[string][]string{
  "paid search":     {"budgeting", "audience targeting", "bid strategies", "campaign analytics", "a/b testing"},
  "paid social":     {"audience targeting", "ad copywriting", "creative optimization", "retargeting"},
  "analytics":       {"campaign analytics", "conversion tracking", "a/b testing", "attribution modeling"},
  "content":         {"seo fundamentals", "ad copywriting", "content marketing", "landing page design"},
  "lifecycle":       {"audience targeting", "email marketing", "retargeting"},
  "channel planning": {"budgeting", "channel strategy", "campaign analytics"},
}

// JourneyPlanner owns journeys: building them from one of three strategies,
// advancing completion, and recalculating gap-based paths.
type JourneyPlanner interface {
  Plan(ctx context.Context, userID uuid.UUID, strategy types.JourneyStrategy) (*types.Journey, []*types.JourneyNode, error)
  CompleteNode(ctx context.Context, journeyID uuid.UUID, nodeID uuid.UUID) (*types.Journey, error)
  // Recalculate replaces pending nodes of a gap-based journey with freshly
  // detected gaps; completed nodes are preserved.
  Recalculate(ctx context.Context, journeyID uuid.UUID) error
  // MarkTopicGenerated flags the matching pending node once a queued
  // generation for that topic completes.
  MarkTopicGenerated(ctx context.Context, userID uuid.UUID, topic string) error
}

type journeyPlanner struct {
  journeys       repos.JourneyRepo
  completedUnits repos.CompletedUnitRepo
  skillMatrix    repos.SkillMatrixRepo
  detector       GapDetector
  prereqs        graph.PrerequisiteGraph
  notifier       GenerationNotifier
  maxNodes       int
  log            *logger.Logger
}

func NewJourneyPlanner(
  journeys repos.JourneyRepo,
  completedUnits repos.CompletedUnitRepo,
  skillMatrix repos.SkillMatrixRepo,
  detector GapDetector,
  prereqs graph.PrerequisiteGraph,
  notifier GenerationNotifier,
  log *logger.Logger,
) JourneyPlanner {
  journeyLog := log.With("service", "JourneyPlanner")
  return &journeyPlanner{
    journeys:       journeys,
    completedUnits: completedUnits,
    skillMatrix:    skillMatrix,
    detector:       detector,
    prereqs:        prereqs,
    notifier:       notifier,
    maxNodes:       utils.GetEnvAsInt("JOURNEY_MAX_NODES", defaultMaxJourneyNodes, journeyLog),
    log:            journeyLog,
  }
}

func (p *journeyPlanner) Plan(ctx context.Context, userID uuid.UUID, strategy types.JourneyStrategy) (*types.Journey, []*types.JourneyNode, error) {
  topics, priorities, err := p.topicsForStrategy(ctx, userID, strategy)
  if err != nil {
    return nil, nil, err
  }
  if len(topics) == 0 {
    return nil, nil, fmt.Errorf("strategy %s produced no topics for user %s", strategy, userID)
  }
  if len(topics) > p.maxNodes {
    topics = topics[:p.maxNodes]
    priorities = priorities[:p.maxNodes]
  }

  journey := &types.Journey{
    ID:       uuid.New(),
    UserID:   userID,
    Strategy: strategy,
    Status:   types.JourneyStatusActive,
  }
  nodes := make([]*types.JourneyNode, len(topics))
  for i, topic := range topics {
    nodes[i] = p.newNode(ctx, journey.ID, i, topic, priorities[i])
  }

  if err := p.journeys.CreateWithNodes(ctx, nil, journey, nodes); err != nil {
    return nil, nil, err
  }
  p.log.Info("Journey planned", "journey_id", journey.ID, "user_id", userID, "strategy", strategy, "nodes", len(nodes))
  return journey, nodes, nil
}

func (p *journeyPlanner) newNode(ctx context.Context, journeyID uuid.UUID, order int, topic string, priority int) *types.JourneyNode {
  node := &types.JourneyNode{
    ID:        uuid.New(),
    JourneyID: journeyID,
    Order:     order,
    Topic:     topic,
    Status:    types.JourneyNodePending,
    Priority:  priority,
  }
  if prereqs, _, err := p.prereqs.Direct(ctx, topic); err == nil && len(prereqs) > 0 {
    if raw, mErr := json.Marshal(prereqs); mErr == nil {
      node.Prerequisites = datatypes.JSON(raw)
    }
  }
  return node
}

func (p *journeyPlanner) topicsForStrategy(ctx context.Context, userID uuid.UUID, strategy types.JourneyStrategy) ([]string, []int, error) {
  switch strategy {
  case types.JourneyStrategyGapRemediation:
    gaps, err := p.detector.Detect(ctx, userID)
    if err != nil {
      return nil, nil, err
    }
    topics := make([]string, len(gaps))
    priorities := make([]int, len(gaps))
    for i, gap := range gaps {
      topics[i] = gap.Topic
      priorities[i] = gap.Severity * 10
    }
    return topics, priorities, nil

  case types.JourneyStrategySkillPath:
    return p.skillPathTopics(ctx, userID, nil)

  case types.JourneyStrategyProfileBased:
    rows, err := p.skillMatrix.GetByUserID(ctx, nil, userID)
    if err != nil {
      return nil, nil, err
    }
    // Weakest skills first.
    sort.SliceStable(rows, func(i, j int) bool {
      return skillRank(rows[i].Level) < skillRank(rows[j].Level)
    })
    ordered := make([]string, 0, len(rows))
    for _, row := range rows {
      ordered = append(ordered, strings.ToLower(row.Skill))
    }
    return p.skillPathTopics(ctx, userID, ordered)

  default:
    return nil, nil, fmt.Errorf("unknown journey strategy %q", strategy)
  }
}

func skillRank(level types.SkillLevel) int {
  switch level {
  case types.SkillNovice:
    return 0
  case types.SkillIntermediate:
    return 1
  default:
    return 2
  }
}

// skillPathTopics walks the static paths (optionally in a caller-supplied
// skill order) and drops topics the user already completed.
func (p *journeyPlanner) skillPathTopics(ctx context.Context, userID uuid.UUID, skillOrder []string) ([]string, []int, error) {
  completed, err := p.completedUnits.GetCompletedTopics(ctx, nil, userID)
  if err != nil {
    return nil, nil, err
  }
  done := map[string]bool{}
  for _, topic := range completed {
    done[strings.ToLower(strings.TrimSpace(topic))] = true
  }

  if skillOrder == nil {
    skillOrder = make([]string, 0, len(skillPaths))
    for skill := range skillPaths {
      skillOrder = append(skillOrder, skill)
    }
    sort.Strings(skillOrder)
  }

  var topics []string
  var priorities []int
  seen := map[string]bool{}
  for _, skill := range skillOrder {
    path, ok := skillPaths[skill]
    if !ok {
      continue
    }
    for depth, topic := range path {
      key := strings.ToLower(topic)
      if done[key] || seen[key] {
        continue
      }
      seen[key] = true
      topics = append(topics, topic)
      priorities = append(priorities, 90-depth*10)
    }
  }
  return topics, priorities, nil
}

func (p *journeyPlanner) CompleteNode(ctx context.Context, journeyID uuid.UUID, nodeID uuid.UUID) (*types.Journey, error) {
  journeys, err := p.journeys.GetByIDs(ctx, nil, []uuid.UUID{journeyID})
  if err != nil {
    return nil, err
  }
  if len(journeys) != 1 {
    return nil, fmt.Errorf("journey %s not found", journeyID)
  }
  journey := journeys[0]

  if err := p.journeys.UpdateNodeFields(ctx, nil, nodeID, map[string]any{"status": types.JourneyNodeCompleted}); err != nil {
    return nil, err
  }

  nodes, err := p.journeys.GetNodes(ctx, nil, journeyID)
  if err != nil {
    return nil, err
  }
  nextIndex, percent, done := advance(nodes)

  updates := map[string]any{
    "current_node_index": nextIndex,
    "percent_complete":   percent,
  }
  if done {
    updates["status"] = types.JourneyStatusCompleted
    journey.Status = types.JourneyStatusCompleted
  }
  if err := p.journeys.UpdateFields(ctx, nil, journeyID, updates); err != nil {
    return nil, err
  }
  journey.CurrentNodeIndex = nextIndex
  journey.PercentComplete = percent

  p.notifier.JourneyUpdated(journey.UserID, journeyID)
  return journey, nil
}

// advance computes the index of the first non-completed node (or the final
// index when all are done), the completion percentage, and whether the
// journey is finished. Nodes arrive ordered.
func advance(nodes []*types.JourneyNode) (nextIndex int, percent float64, done bool) {
  if len(nodes) == 0 {
    return 0, 0, false
  }
  completed := 0
  nextIndex = -1
  for i, node := range nodes {
    if node.Status == types.JourneyNodeCompleted {
      completed++
      continue
    }
    if nextIndex == -1 {
      nextIndex = i
    }
  }
  percent = float64(completed) / float64(len(nodes)) * 100
  if completed == len(nodes) {
    return len(nodes) - 1, 100, true
  }
  return nextIndex, percent, false
}

func (p *journeyPlanner) Recalculate(ctx context.Context, journeyID uuid.UUID) error {
  journeys, err := p.journeys.GetByIDs(ctx, nil, []uuid.UUID{journeyID})
  if err != nil {
    return err
  }
  if len(journeys) != 1 {
    return fmt.Errorf("journey %s not found", journeyID)
  }
  journey := journeys[0]
  if journey.Strategy != types.JourneyStrategyGapRemediation {
    return fmt.Errorf("recalculation only applies to gap-based journeys, got %s", journey.Strategy)
  }

  nodes, err := p.journeys.GetNodes(ctx, nil, journeyID)
  if err != nil {
    return err
  }
  keepTopics := map[string]bool{}
  completedCount := 0
  for _, node := range nodes {
    if node.Status == types.JourneyNodeCompleted {
      keepTopics[strings.ToLower(node.Topic)] = true
      completedCount++
    }
  }

  completedTopics, err := p.completedUnits.GetCompletedTopics(ctx, nil, journey.UserID)
  if err != nil {
    return err
  }
  for _, topic := range completedTopics {
    keepTopics[strings.ToLower(strings.TrimSpace(topic))] = true
  }

  gaps, err := p.detector.Detect(ctx, journey.UserID)
  if err != nil {
    return err
  }

  replacements := make([]*types.JourneyNode, 0, len(gaps))
  order := completedCount
  for _, gap := range gaps {
    if keepTopics[strings.ToLower(gap.Topic)] {
      continue
    }
    if order >= p.maxNodes {
      break
    }
    replacements = append(replacements, p.newNode(ctx, journeyID, order, gap.Topic, gap.Severity*10))
    order++
  }

  if err := p.journeys.ReplacePendingNodes(ctx, nil, journeyID, replacements); err != nil {
    return err
  }
  p.notifier.JourneyUpdated(journey.UserID, journeyID)
  p.log.Info("Journey recalculated", "journey_id", journeyID, "kept", completedCount, "replaced", len(replacements))
  return nil
}

func (p *journeyPlanner) MarkTopicGenerated(ctx context.Context, userID uuid.UUID, topic string) error {
  journey, err := p.journeys.GetActiveByUserID(ctx, nil, userID)
  if err != nil {
    return err
  }
  if journey == nil {
    return ErrNoActiveJourney
  }
  nodes, err := p.journeys.GetNodes(ctx, nil, journey.ID)
  if err != nil {
    return err
  }
  want := strings.ToLower(strings.TrimSpace(topic))
  for _, node := range nodes {
    if node.Status != types.JourneyNodePending || node.Generated {
      continue
    }
    if strings.ToLower(strings.TrimSpace(node.Topic)) != want {
      continue
    }
    if err := p.journeys.UpdateNodeFields(ctx, nil, node.ID, map[string]any{"generated": true}); err != nil {
      return err
    }
    p.notifier.JourneyUpdated(userID, journey.ID)
    return nil
  }
  return nil
}
