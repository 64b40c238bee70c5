package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/skillforge-backend/internal/logger"
	"github.com/yungbote/skillforge-backend/internal/types"
)

func newTestQueue(repo *fakeQueueItemRepo, counter DailyCounter) GenerationQueue {
	return NewGenerationQueue(repo, counter, logger.NewNop())
}

func TestEnqueueRejectsOverDailyCap(t *testing.T) {
	repo := &fakeQueueItemRepo{}
	counter := newFakeCounter()
	queue := newTestQueue(repo, counter)
	userID := uuid.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := queue.Enqueue(ctx, userID, "budgeting", types.TriggerQuizFailureRemediation, 80); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	_, err := queue.Enqueue(ctx, userID, "retargeting", types.TriggerQuizFailureRemediation, 80)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(repo.items) != 3 {
		t.Fatalf("over-cap enqueue must not create an item, have %d", len(repo.items))
	}
}

func TestEnqueueReleasesCapSlotWhenCreateFails(t *testing.T) {
	repo := &fakeQueueItemRepo{createErr: errors.New("store down")}
	counter := newFakeCounter()
	queue := newTestQueue(repo, counter)
	userID := uuid.New()

	if _, err := queue.Enqueue(context.Background(), userID, "budgeting", types.TriggerQuizFailureRemediation, 50); err == nil {
		t.Fatalf("expected create failure")
	}
	if counter.counts[userID] != 0 {
		t.Fatalf("failed enqueue must release its cap slot, count=%d", counter.counts[userID])
	}
}

func TestEnqueueFallsBackToStoreCountWhenCounterDown(t *testing.T) {
	repo := &fakeQueueItemRepo{}
	counter := newFakeCounter()
	counter.fail = true
	queue := newTestQueue(repo, counter)
	userID := uuid.New()
	ctx := context.Background()

	// Three completed generations today already.
	for i := 0; i < 3; i++ {
		repo.items = append(repo.items, &types.QueueItem{
			ID: uuid.New(), UserID: userID, Status: types.QueueStatusCompleted,
		})
	}

	_, err := queue.Enqueue(ctx, userID, "budgeting", types.TriggerQuizFailureRemediation, 50)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected fallback rate limit, got %v", err)
	}
}

func TestDequeueReturnsHighestPriorityFirst(t *testing.T) {
	repo := &fakeQueueItemRepo{}
	queue := newTestQueue(repo, newFakeCounter())
	ctx := context.Background()

	low, _ := queue.Enqueue(ctx, uuid.New(), "low", types.TriggerSkillGapDetected, 20)
	high, _ := queue.Enqueue(ctx, uuid.New(), "high", types.TriggerQuizFailureRemediation, 95)
	mid, _ := queue.Enqueue(ctx, uuid.New(), "mid", types.TriggerSkillGapDetected, 60)

	claimed, err := queue.Dequeue(ctx, 2)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("claimed %d items, want 2", len(claimed))
	}
	if claimed[0].ID != high.ID || claimed[1].ID != mid.ID {
		t.Fatalf("priority order violated: got %s then %s", claimed[0].Topic, claimed[1].Topic)
	}
	if claimed[0].Status != types.QueueStatusProcessing {
		t.Fatalf("claim must transition to processing, got %s", claimed[0].Status)
	}
	if low.Status != types.QueueStatusPending {
		t.Fatalf("unclaimed item should stay pending, got %s", low.Status)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	repo := &fakeQueueItemRepo{}
	queue := newTestQueue(repo, newFakeCounter())
	ctx := context.Background()

	item, _ := queue.Enqueue(ctx, uuid.New(), "budgeting", types.TriggerQuizFailureRemediation, 80)
	if _, err := queue.Dequeue(ctx, 1); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	tutorialID := uuid.New()
	if err := queue.Complete(ctx, item.ID, tutorialID); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if err := queue.Complete(ctx, item.ID, tutorialID); err != nil {
		t.Fatalf("second complete must be a no-op, got %v", err)
	}
}

func TestRetryOnlyWhileAttemptsRemain(t *testing.T) {
	repo := &fakeQueueItemRepo{}
	queue := newTestQueue(repo, newFakeCounter())
	ctx := context.Background()

	item, _ := queue.Enqueue(ctx, uuid.New(), "budgeting", types.TriggerQuizFailureRemediation, 80)

	for attempt := 0; attempt < types.MaxQueueAttempts; attempt++ {
		if _, err := queue.Dequeue(ctx, 1); err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if err := queue.Fail(ctx, item.ID, "model unavailable"); err != nil {
			t.Fatalf("fail: %v", err)
		}
		err := queue.Retry(ctx, item.ID)
		if attempt < types.MaxQueueAttempts-1 && err != nil {
			t.Fatalf("retry %d should succeed: %v", attempt, err)
		}
		if attempt == types.MaxQueueAttempts-1 && err == nil {
			t.Fatalf("retry past the attempt bound must fail")
		}
	}
}

func TestCancelOnlyWhilePending(t *testing.T) {
	repo := &fakeQueueItemRepo{}
	queue := newTestQueue(repo, newFakeCounter())
	ctx := context.Background()

	item, _ := queue.Enqueue(ctx, uuid.New(), "budgeting", types.TriggerQuizFailureRemediation, 80)
	if err := queue.Cancel(ctx, item.ID); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}

	other, _ := queue.Enqueue(ctx, uuid.New(), "retargeting", types.TriggerQuizFailureRemediation, 80)
	if _, err := queue.Dequeue(ctx, 1); err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := queue.Cancel(ctx, other.ID); err == nil {
		t.Fatalf("cancelling a processing item must fail")
	}
}
