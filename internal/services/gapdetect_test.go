package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/skillforge-backend/internal/types"
)

func TestRankGapsDeduplicatesByTopicKeepingHighestSeverity(t *testing.T) {
	userID := uuid.New()
	gaps := []types.LearningGap{
		{GapID: uuid.New(), UserID: userID, Topic: "Budgeting", Severity: types.SeverityMedium, TriggerReason: types.TriggerSkillGapDetected, Evidence: []string{"skill"}},
		{GapID: uuid.New(), UserID: userID, Topic: "budgeting", Severity: types.SeverityCritical, TriggerReason: types.TriggerQuizFailureRemediation, Evidence: []string{"quiz"}},
		{GapID: uuid.New(), UserID: userID, Topic: "retargeting", Severity: types.SeverityHigh, TriggerReason: types.TriggerPerformanceDecline},
	}

	ranked := rankGaps(gaps)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 gaps after dedup, got %d", len(ranked))
	}
	if ranked[0].Severity != types.SeverityCritical {
		t.Fatalf("highest severity first, got %d", ranked[0].Severity)
	}
	if ranked[0].TriggerReason != types.TriggerQuizFailureRemediation {
		t.Fatalf("dedup must keep the higher-severity gap, got %s", ranked[0].TriggerReason)
	}
	if len(ranked[0].Evidence) != 2 {
		t.Fatalf("evidence should merge on dedup, got %v", ranked[0].Evidence)
	}
}

func TestRankGapsAssignsStablePriorityRanks(t *testing.T) {
	gaps := []types.LearningGap{
		{GapID: uuid.New(), Topic: "a", Severity: 7},
		{GapID: uuid.New(), Topic: "b", Severity: 9},
		{GapID: uuid.New(), Topic: "c", Severity: 7},
	}

	ranked := rankGaps(gaps)
	if ranked[0].Topic != "b" {
		t.Fatalf("expected b first, got %s", ranked[0].Topic)
	}
	// Equal severity keeps detection order.
	if ranked[1].Topic != "a" || ranked[2].Topic != "c" {
		t.Fatalf("tie break should be stable, got %s then %s", ranked[1].Topic, ranked[2].Topic)
	}
	for i, gap := range ranked {
		if gap.PriorityRank != i+1 {
			t.Fatalf("rank %d has PriorityRank %d", i, gap.PriorityRank)
		}
	}
}
