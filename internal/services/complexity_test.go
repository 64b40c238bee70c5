package services

import (
	"context"
	"testing"

	"github.com/yungbote/skillforge-backend/internal/graph"
	"github.com/yungbote/skillforge-backend/internal/logger"
	"github.com/yungbote/skillforge-backend/internal/types"
)

func TestTierForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  types.SkillLevel
	}{
		{0, types.SkillNovice},
		{3, types.SkillNovice},
		{3.1, types.SkillIntermediate},
		{6, types.SkillIntermediate},
		{6.1, types.SkillExpert},
		{10, types.SkillExpert},
	}
	for _, tc := range cases {
		if got := tierForScore(tc.score); got != tc.want {
			t.Fatalf("tierForScore(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestAnalyzeIsDeterministicWithoutModel(t *testing.T) {
	analyzer := NewComplexityAnalyzer(graph.NewStaticGraph(), nil, nil, logger.NewNop())

	first, err := analyzer.Analyze(context.Background(), "attribution modeling", types.SkillNovice)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	second, err := analyzer.Analyze(context.Background(), "attribution modeling", types.SkillNovice)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if first.Score != second.Score {
		t.Fatalf("scores differ: %v vs %v", first.Score, second.Score)
	}
	if first.ModelBlended {
		t.Fatalf("no model client, blending must be off")
	}
}

func TestEstimatedDurationTracksScore(t *testing.T) {
	analyzer := NewComplexityAnalyzer(graph.NewStaticGraph(), nil, nil, logger.NewNop())

	easy, err := analyzer.Analyze(context.Background(), "budgeting", types.SkillExpert)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	hard, err := analyzer.Analyze(context.Background(), "attribution modeling", types.SkillNovice)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if hard.Score <= easy.Score {
		t.Fatalf("attribution modeling (%v) should outscore budgeting (%v)", hard.Score, easy.Score)
	}
	if hard.EstimatedMinutes <= easy.EstimatedMinutes {
		t.Fatalf("duration should rise with score: %d vs %d", hard.EstimatedMinutes, easy.EstimatedMinutes)
	}
	if easy.EstimatedMinutes < 15 || hard.EstimatedMinutes > 30 {
		t.Fatalf("duration outside 15-30 band: %d, %d", easy.EstimatedMinutes, hard.EstimatedMinutes)
	}
}

func TestUnknownTopicFallsBackToWordHeuristic(t *testing.T) {
	analyzer := &complexityAnalyzer{prereqs: graph.NewStaticGraph(), log: logger.NewNop()}

	short := analyzer.prerequisiteScore(context.Background(), "quantum")
	long := analyzer.prerequisiteScore(context.Background(), "multi channel incrementality testing at scale")
	if long <= short {
		t.Fatalf("longer unknown topic should score higher: %v vs %v", long, short)
	}
}

func TestCognitiveLoadClampsToRange(t *testing.T) {
	if got := cognitiveLoadScore("advanced multi cross integrated automation", types.SkillNovice); got != 10 {
		t.Fatalf("expected clamp at 10, got %v", got)
	}
	if got := cognitiveLoadScore("basics", types.SkillExpert); got < 1 {
		t.Fatalf("expected clamp at 1, got %v", got)
	}
}
