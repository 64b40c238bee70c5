package services

import (
	"strings"
	"testing"

	"github.com/yungbote/skillforge-backend/internal/logger"
	"github.com/yungbote/skillforge-backend/internal/types"
)

func newTestCritic() RubricCritic {
	return NewRubricCritic(DefaultRubricConfig(), logger.NewNop())
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func passingSections() []types.Section {
	text := words(150)
	return []types.Section{
		{
			Title: "Why this matters",
			Kind:  "why_it_matters",
			Blocks: []types.ContentBlock{
				{Type: types.BlockTypeText, Status: types.BlockStatusOK, Text: text, Citations: []string{"src"}},
				{Type: types.BlockTypeImage, Status: types.BlockStatusOK, URL: "https://x/a.png"},
			},
		},
		{
			Title: "Core concept",
			Kind:  "concept",
			Blocks: []types.ContentBlock{
				{Type: types.BlockTypeText, Status: types.BlockStatusOK, Text: text, Citations: []string{"src"}},
				{Type: types.BlockTypeDiagram, Status: types.BlockStatusOK, Diagram: "graph TD\nA[Start] --> B[End]"},
				{Type: types.BlockTypeQuiz, Status: types.BlockStatusOK, Quiz: &types.QuizQuestion{
					Question:      "?",
					Options:       []string{"a", "b", "c"},
					CorrectAnswer: 1,
				}},
			},
		},
		{
			Title: "Common pitfalls",
			Kind:  "pitfalls",
			Blocks: []types.ContentBlock{
				{Type: types.BlockTypeText, Status: types.BlockStatusOK, Text: text, Citations: []string{"src"}},
				{Type: types.BlockTypeAudio, Status: types.BlockStatusOK, URL: "https://x/a.mp3"},
			},
		},
	}
}

func TestHealthyArtifactPasses(t *testing.T) {
	report := newTestCritic().Evaluate(passingSections())
	if report.Verdict != types.RubricVerdictPass {
		t.Fatalf("verdict %s (score %d, issues %v)", report.Verdict, report.OverallScore, report.Issues)
	}
	if report.OverallScore < 70 {
		t.Fatalf("overall score %d, want >= 70", report.OverallScore)
	}
}

func TestWordCountBoundaryAt220(t *testing.T) {
	check := func(n int, wantSeverity types.IssueSeverity) {
		sections := passingSections()
		sections[1].Blocks[0].Text = words(n)
		report := newTestCritic().Evaluate(sections)

		var found *types.RubricIssue
		for i := range report.Issues {
			if report.Issues[i].Dimension == "word_count" && report.Issues[i].Section == "Core concept" {
				found = &report.Issues[i]
			}
		}
		if found == nil {
			t.Fatalf("%d words: expected a word_count issue", n)
		}
		if found.Severity != wantSeverity {
			t.Fatalf("%d words: severity %s, want %s", n, found.Severity, wantSeverity)
		}
	}

	check(220, types.IssueSeverityWarning)
	check(221, types.IssueSeverityFail)
}

func TestWordCountFailBlocksVerdict(t *testing.T) {
	sections := passingSections()
	sections[1].Blocks[0].Text = words(221)
	report := newTestCritic().Evaluate(sections)
	if report.Verdict != types.RubricVerdictFail {
		t.Fatalf("any FAIL issue must fail the verdict, got %s", report.Verdict)
	}
}

func TestQuizAnswerIndexEqualToOptionCountIsInvalid(t *testing.T) {
	sections := passingSections()
	quiz := sections[1].Blocks[2].Quiz
	quiz.CorrectAnswer = len(quiz.Options)

	report := newTestCritic().Evaluate(sections)
	if report.Verdict != types.RubricVerdictFail {
		t.Fatalf("out-of-range answer index must fail, got %s", report.Verdict)
	}
	found := false
	for _, issue := range report.Issues {
		if issue.Dimension == "quiz_integrity" && issue.Severity == types.IssueSeverityFail {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a FAIL quiz_integrity issue, got %v", report.Issues)
	}
}

func TestTooFewSectionsFails(t *testing.T) {
	sections := passingSections()[:2]
	report := newTestCritic().Evaluate(sections)
	if report.Verdict != types.RubricVerdictFail {
		t.Fatalf("2 sections must fail the minimum of 3, got %s", report.Verdict)
	}
}

func TestMissingRequiredSectionsPenalized(t *testing.T) {
	sections := passingSections()
	sections[0].Title = "Opening"
	sections[0].Kind = "concept"
	sections[2].Title = "Closing"
	sections[2].Kind = "summary"

	report := newTestCritic().Evaluate(sections)
	if got := report.DimensionScores["required_sections"]; got != 70 {
		t.Fatalf("two missing required sections should score 70, got %d", got)
	}
	if len(report.FixList) < 2 {
		t.Fatalf("expected fix list entries for both missing sections, got %v", report.FixList)
	}
}

func TestInvalidMermaidFlagged(t *testing.T) {
	sections := passingSections()
	sections[1].Blocks[1].Diagram = "this is not a diagram"
	report := newTestCritic().Evaluate(sections)

	found := false
	for _, issue := range report.Issues {
		if issue.Dimension == "diagram_syntax" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a diagram_syntax issue")
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	critic := newTestCritic()
	first := critic.Evaluate(passingSections())
	second := critic.Evaluate(passingSections())
	if first.OverallScore != second.OverallScore || first.Verdict != second.Verdict {
		t.Fatalf("critic must be deterministic: %d/%s vs %d/%s",
			first.OverallScore, first.Verdict, second.OverallScore, second.Verdict)
	}
}

func TestRubricConfigEnvOverrides(t *testing.T) {
	t.Setenv("RUBRIC_CITATION_THRESHOLD", "0.75")
	t.Setenv("RUBRIC_PASSING_SCORE", "80")

	cfg := LoadRubricConfig(logger.NewNop())
	if cfg.CitationThreshold != 0.75 {
		t.Fatalf("citation threshold = %v, want 0.75", cfg.CitationThreshold)
	}
	if cfg.PassingScore != 80 {
		t.Fatalf("passing score = %d, want 80", cfg.PassingScore)
	}
}

func TestDiagramCountsAsSectionMedia(t *testing.T) {
	report := newTestCritic().Evaluate(passingSections())
	if got := report.DimensionScores["media_completeness"]; got != 100 {
		t.Fatalf("media_completeness = %d, want 100 (diagram-bearing section counts)", got)
	}
	for _, issue := range report.Issues {
		if issue.Dimension == "media_completeness" {
			t.Fatalf("unexpected media issue for %q", issue.Section)
		}
	}
}

func TestPlaceholderDoesNotCountAsSectionMedia(t *testing.T) {
	sections := passingSections()
	sections[2].Blocks = []types.ContentBlock{
		{Type: types.BlockTypeText, Status: types.BlockStatusOK, Text: words(150), Citations: []string{"src"}},
		{Type: types.BlockTypePlaceholder, Status: types.BlockStatusOK, URL: "https://x/p.png"},
	}

	report := newTestCritic().Evaluate(sections)
	if got := report.DimensionScores["media_completeness"]; got != 67 {
		t.Fatalf("media_completeness = %d, want 67", got)
	}
}
