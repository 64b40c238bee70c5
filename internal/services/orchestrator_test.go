package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/skillforge-backend/internal/logger"
	"github.com/yungbote/skillforge-backend/internal/types"
)

type fakeDetector struct {
	gaps []types.LearningGap
}

func (f fakeDetector) Detect(_ context.Context, _ uuid.UUID) ([]types.LearningGap, error) {
	return f.gaps, nil
}

type fakeScorer struct {
	result EligibilityResult
}

func (f fakeScorer) ScoreGap(_ context.Context, _ types.LearningGap) (*EligibilityResult, error) {
	r := f.result
	return &r, nil
}

func remediationGap(userID uuid.UUID, topic string) types.LearningGap {
	return types.LearningGap{
		GapID:         uuid.New(),
		UserID:        userID,
		Topic:         topic,
		Severity:      types.SeverityCritical,
		TriggerReason: types.TriggerQuizFailureRemediation,
		AutoApprove:   true,
	}
}

func newSweepFixture(gaps []types.LearningGap, result EligibilityResult, counter *fakeCounter) (*orchestrator, *fakeQueueItemRepo, *fakeRecommendationRepo, *fakeApprovalTaskRepo) {
	queueRepo := &fakeQueueItemRepo{}
	recRepo := &fakeRecommendationRepo{}
	taskRepo := &fakeApprovalTaskRepo{}
	queue := NewGenerationQueue(queueRepo, counter, logger.NewNop())
	o := &orchestrator{
		detector:        fakeDetector{gaps: gaps},
		scorer:          fakeScorer{result: result},
		queue:           queue,
		approvals:       NewApprovalService(taskRepo, recRepo, queue, logger.NewNop()),
		recommendations: recRepo,
		log:             logger.NewNop(),
	}
	return o, queueRepo, recRepo, taskRepo
}

func TestSweepAutoEnqueueCreatesItemThenRecommendation(t *testing.T) {
	userID := uuid.New()
	gaps := []types.LearningGap{remediationGap(userID, "budgeting")}
	result := EligibilityResult{TotalScore: 82, Tier: TierHigh, ShouldAutoApprove: true}
	o, queueRepo, recRepo, _ := newSweepFixture(gaps, result, newFakeCounter())

	report := &SweepReport{}
	if err := o.sweepUser(context.Background(), userID, report); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.AutoEnqueued != 1 {
		t.Fatalf("auto_enqueued = %d, want 1", report.AutoEnqueued)
	}
	if len(queueRepo.items) != 1 || len(recRepo.recs) != 1 {
		t.Fatalf("want 1 queue item and 1 recommendation, have %d/%d", len(queueRepo.items), len(recRepo.recs))
	}
	if recRepo.recs[0].ApprovalStatus != types.ApprovalAutoApproved {
		t.Fatalf("recommendation status = %s, want auto_approved", recRepo.recs[0].ApprovalStatus)
	}
	if queueRepo.items[0].Priority != 82 {
		t.Fatalf("queue priority = %d, want 82", queueRepo.items[0].Priority)
	}
}

func TestSweepOverCapLeavesNoOrphanedRecommendation(t *testing.T) {
	userID := uuid.New()
	gaps := []types.LearningGap{
		remediationGap(userID, "budgeting"),
		remediationGap(userID, "retargeting"),
	}
	result := EligibilityResult{TotalScore: 82, Tier: TierHigh, ShouldAutoApprove: true}
	counter := newFakeCounter()
	counter.counts[userID] = 3 // cap already consumed today
	o, queueRepo, recRepo, taskRepo := newSweepFixture(gaps, result, counter)

	report := &SweepReport{}
	if err := o.sweepUser(context.Background(), userID, report); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.RateLimited != 1 {
		t.Fatalf("rate_limited = %d, want 1", report.RateLimited)
	}
	if report.Skipped != 1 {
		t.Fatalf("capped auto-approve gaps must be skipped, skipped = %d, want 1", report.Skipped)
	}
	if report.ApprovalsRaised != 0 || len(taskRepo.tasks) != 0 {
		t.Fatalf("capped auto-approve gaps must not reroute to human approval, raised %d tasks", len(taskRepo.tasks))
	}
	if len(recRepo.recs) != 0 {
		t.Fatalf("rate-limited enqueue must not persist a recommendation, have %d", len(recRepo.recs))
	}
	if len(queueRepo.items) != 0 {
		t.Fatalf("rate-limited enqueue must not create a queue item, have %d", len(queueRepo.items))
	}
}
