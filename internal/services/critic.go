package services

import (
  "fmt"
  "math"
  "os"
  "regexp"
  "strings"

  "gopkg.in/yaml.v3"

  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/types"
  "github.com/yungbote/skillforge-backend/internal/utils"
)

// RubricConfig holds the critic's thresholds. Defaults match the shipped
// rubric; a YAML file can override any of them.
type RubricConfig struct {
  WordTargetMin     int     `yaml:"word_target_min"`
  WordTargetMax     int     `yaml:"word_target_max"`
  WordHardMax       int     `yaml:"word_hard_max"`
  MinSections       int     `yaml:"min_sections"`
  MaxSections       int     `yaml:"max_sections"`
  MissingSectionPenalty int `yaml:"missing_section_penalty"`
  CitationThreshold float64 `yaml:"citation_threshold"`
  PassingScore      int     `yaml:"passing_score"`
}

func DefaultRubricConfig() RubricConfig {
  return RubricConfig{
    WordTargetMin:         120,
    WordTargetMax:         180,
    WordHardMax:           220,
    MinSections:           3,
    MaxSections:           12,
    MissingSectionPenalty: 15,
    CitationThreshold:     0.5,
    PassingScore:          70,
  }
}

// LoadRubricConfig reads overrides from RUBRIC_CONFIG_PATH when set, then
// applies single-value env overrides on top.
func LoadRubricConfig(log *logger.Logger) RubricConfig {
  cfg := DefaultRubricConfig()
  if path := os.Getenv("RUBRIC_CONFIG_PATH"); path != "" {
    raw, err := os.ReadFile(path)
    if err != nil {
      log.Warn("Rubric config unreadable, using defaults", "path", path, "error", err)
    } else if err := yaml.Unmarshal(raw, &cfg); err != nil {
      log.Warn("Rubric config invalid, using defaults", "path", path, "error", err)
      cfg = DefaultRubricConfig()
    }
  }
  cfg.CitationThreshold = utils.GetEnvAsFloat("RUBRIC_CITATION_THRESHOLD", cfg.CitationThreshold, log)
  cfg.PassingScore = utils.GetEnvAsInt("RUBRIC_PASSING_SCORE", cfg.PassingScore, log)
  return cfg
}

// RubricCritic is the deterministic quality gate. It runs on finished
// section trees only, independent of how they were generated, so the same
// artifact can be re-audited at any time.
type RubricCritic interface {
  Evaluate(sections []types.Section) *types.RubricReport
}

type rubricCritic struct {
  cfg RubricConfig
  log *logger.Logger
}

func NewRubricCritic(cfg RubricConfig, log *logger.Logger) RubricCritic {
  return &rubricCritic{cfg: cfg, log: log.With("service", "RubricCritic")}
}

var whyPatterns = []string{"why this matters", "why it matters", "why learn", "importance", "matters"}
var pitfallPatterns = []string{"pitfall", "warning", "common mistake", "avoid", "gotcha"}

var mermaidStarters = []string{
  "graph ", "graph\n", "flowchart ", "sequencediagram", "classdiagram",
  "statediagram", "erdiagram", "pie", "gantt", "journey", "mindmap",
}

func (c *rubricCritic) Evaluate(sections []types.Section) *types.RubricReport {
  report := &types.RubricReport{
    DimensionScores: map[string]int{},
    Issues:          []types.RubricIssue{},
    FixList:         []string{},
  }

  c.scoreWordCounts(sections, report)
  c.scoreSectionCount(sections, report)
  c.scoreRequiredSections(sections, report)
  c.scoreMediaCompleteness(sections, report)
  c.scoreQuizIntegrity(sections, report)
  c.scoreCitations(sections, report)
  c.scoreDiagrams(sections, report)

  total := 0
  for _, score := range report.DimensionScores {
    total += score
  }
  report.OverallScore = int(math.Round(float64(total) / float64(len(report.DimensionScores))))

  report.Verdict = types.RubricVerdictPass
  if report.OverallScore < c.cfg.PassingScore {
    report.Verdict = types.RubricVerdictFail
  }
  for _, issue := range report.Issues {
    if issue.Severity == types.IssueSeverityFail {
      report.Verdict = types.RubricVerdictFail
      break
    }
  }
  return report
}

func countWords(s string) int {
  return len(strings.Fields(s))
}

// scoreWordCounts checks every text block against the target band. Past the
// hard maximum is a FAIL issue; merely outside the target band is a WARNING.
func (c *rubricCritic) scoreWordCounts(sections []types.Section, report *types.RubricReport) {
  score := 100
  for _, section := range sections {
    for _, block := range section.Blocks {
      if block.Type != types.BlockTypeText {
        continue
      }
      words := countWords(block.Text)
      switch {
      case words > c.cfg.WordHardMax:
        report.Issues = append(report.Issues, types.RubricIssue{
          Severity:  types.IssueSeverityFail,
          Dimension: "word_count",
          Section:   section.Title,
          Message:   fmt.Sprintf("%d words exceeds hard maximum %d", words, c.cfg.WordHardMax),
        })
        report.FixList = append(report.FixList, fmt.Sprintf("Trim %q to at most %d words", section.Title, c.cfg.WordTargetMax))
        score -= 25
      case words > c.cfg.WordTargetMax:
        report.Issues = append(report.Issues, types.RubricIssue{
          Severity:  types.IssueSeverityWarning,
          Dimension: "word_count",
          Section:   section.Title,
          Message:   fmt.Sprintf("%d words above target %d-%d", words, c.cfg.WordTargetMin, c.cfg.WordTargetMax),
        })
        score -= 10
      case words < c.cfg.WordTargetMin:
        report.Issues = append(report.Issues, types.RubricIssue{
          Severity:  types.IssueSeverityWarning,
          Dimension: "word_count",
          Section:   section.Title,
          Message:   fmt.Sprintf("%d words below target %d-%d", words, c.cfg.WordTargetMin, c.cfg.WordTargetMax),
        })
        score -= 10
      }
    }
  }
  report.DimensionScores["word_count"] = clampInt(score, 0, 100)
}

func (c *rubricCritic) scoreSectionCount(sections []types.Section, report *types.RubricReport) {
  score := 100
  n := len(sections)
  if n < c.cfg.MinSections {
    report.Issues = append(report.Issues, types.RubricIssue{
      Severity:  types.IssueSeverityFail,
      Dimension: "section_count",
      Message:   fmt.Sprintf("%d sections below minimum %d", n, c.cfg.MinSections),
    })
    report.FixList = append(report.FixList, fmt.Sprintf("Add sections to reach at least %d", c.cfg.MinSections))
    score = 30
  } else if n > c.cfg.MaxSections {
    report.Issues = append(report.Issues, types.RubricIssue{
      Severity:  types.IssueSeverityWarning,
      Dimension: "section_count",
      Message:   fmt.Sprintf("%d sections above maximum %d", n, c.cfg.MaxSections),
    })
    score = 60
  }
  report.DimensionScores["section_count"] = score
}

func matchesAny(section types.Section, patterns []string) bool {
  haystack := strings.ToLower(section.Title + " " + section.Kind)
  for _, p := range patterns {
    if strings.Contains(haystack, p) {
      return true
    }
  }
  return false
}

// scoreRequiredSections wants a why-this-matters section and a
// pitfalls/warnings section; each missing one costs a fixed penalty.
func (c *rubricCritic) scoreRequiredSections(sections []types.Section, report *types.RubricReport) {
  score := 100
  hasWhy, hasPitfalls := false, false
  for _, section := range sections {
    if matchesAny(section, whyPatterns) {
      hasWhy = true
    }
    if matchesAny(section, pitfallPatterns) {
      hasPitfalls = true
    }
  }
  if !hasWhy {
    score -= c.cfg.MissingSectionPenalty
    report.Issues = append(report.Issues, types.RubricIssue{
      Severity:  types.IssueSeverityWarning,
      Dimension: "required_sections",
      Message:   "no why-this-matters section found",
    })
    report.FixList = append(report.FixList, "Add a section explaining why the topic matters")
  }
  if !hasPitfalls {
    score -= c.cfg.MissingSectionPenalty
    report.Issues = append(report.Issues, types.RubricIssue{
      Severity:  types.IssueSeverityWarning,
      Dimension: "required_sections",
      Message:   "no pitfalls/warnings section found",
    })
    report.FixList = append(report.FixList, "Add a section covering common pitfalls")
  }
  report.DimensionScores["required_sections"] = clampInt(score, 0, 100)
}

func (c *rubricCritic) scoreMediaCompleteness(sections []types.Section, report *types.RubricReport) {
  if len(sections) == 0 {
    report.DimensionScores["media_completeness"] = 0
    return
  }
  withMedia := 0
  for _, section := range sections {
    found := false
    for _, block := range section.Blocks {
      switch block.Type {
      case types.BlockTypeImage, types.BlockTypeAudio, types.BlockTypeVideo, types.BlockTypeDiagram:
        found = true
      }
    }
    if found {
      withMedia++
    } else {
      report.Issues = append(report.Issues, types.RubricIssue{
        Severity:  types.IssueSeverityWarning,
        Dimension: "media_completeness",
        Section:   section.Title,
        Message:   "no non-placeholder media in section",
      })
    }
  }
  report.DimensionScores["media_completeness"] = int(math.Round(float64(withMedia) / float64(len(sections)) * 100))
}

// scoreQuizIntegrity flags any answer index that is not a valid 0-based
// offset into the question's options. These are FAIL-severity: a quiz that
// cannot be answered correctly is broken content.
func (c *rubricCritic) scoreQuizIntegrity(sections []types.Section, report *types.RubricReport) {
  score := 100
  for _, section := range sections {
    for _, block := range section.Blocks {
      if block.Type != types.BlockTypeQuiz || block.Quiz == nil {
        continue
      }
      quiz := block.Quiz
      if quiz.CorrectAnswer < 0 || quiz.CorrectAnswer >= len(quiz.Options) {
        report.Issues = append(report.Issues, types.RubricIssue{
          Severity:  types.IssueSeverityFail,
          Dimension: "quiz_integrity",
          Section:   section.Title,
          Message:   fmt.Sprintf("answer index %d invalid for %d options", quiz.CorrectAnswer, len(quiz.Options)),
        })
        report.FixList = append(report.FixList, fmt.Sprintf("Fix quiz answer index in %q", section.Title))
        score -= 50
      }
    }
  }
  report.DimensionScores["quiz_integrity"] = clampInt(score, 0, 100)
}

func (c *rubricCritic) scoreCitations(sections []types.Section, report *types.RubricReport) {
  textBlocks, cited := 0, 0
  for _, section := range sections {
    for _, block := range section.Blocks {
      if block.Type != types.BlockTypeText {
        continue
      }
      textBlocks++
      if len(block.Citations) > 0 {
        cited++
      }
    }
  }
  if textBlocks == 0 {
    report.DimensionScores["citation_coverage"] = 0
    return
  }
  ratio := float64(cited) / float64(textBlocks)
  score := int(math.Round(ratio * 100))
  if ratio < c.cfg.CitationThreshold {
    report.Issues = append(report.Issues, types.RubricIssue{
      Severity:  types.IssueSeverityWarning,
      Dimension: "citation_coverage",
      Message:   fmt.Sprintf("citation coverage %.0f%% below threshold %.0f%%", ratio*100, c.cfg.CitationThreshold*100),
    })
    report.FixList = append(report.FixList, "Add citations to uncited narrative blocks")
  }
  report.DimensionScores["citation_coverage"] = score
}

var mermaidNodeRe = regexp.MustCompile(`-->|---|:::|\[.*\]|\(.*\)`)

func (c *rubricCritic) scoreDiagrams(sections []types.Section, report *types.RubricReport) {
  score := 100
  for _, section := range sections {
    for _, block := range section.Blocks {
      if block.Type != types.BlockTypeDiagram || block.Diagram == "" {
        continue
      }
      if !validMermaid(block.Diagram) {
        report.Issues = append(report.Issues, types.RubricIssue{
          Severity:  types.IssueSeverityWarning,
          Dimension: "diagram_syntax",
          Section:   section.Title,
          Message:   "diagram source does not look like valid mermaid",
        })
        score -= 20
      }
    }
  }
  report.DimensionScores["diagram_syntax"] = clampInt(score, 0, 100)
}

// validMermaid is a lightweight sanity check, not a full parse: a known
// diagram keyword up front and at least one edge or node definition.
func validMermaid(src string) bool {
  trimmed := strings.ToLower(strings.TrimSpace(src))
  known := false
  for _, starter := range mermaidStarters {
    if strings.HasPrefix(trimmed, starter) {
      known = true
      break
    }
  }
  if !known {
    return false
  }
  return mermaidNodeRe.MatchString(src)
}

func clampInt(v, lo, hi int) int {
  if v < lo {
    return lo
  }
  if v > hi {
    return hi
  }
  return v
}
