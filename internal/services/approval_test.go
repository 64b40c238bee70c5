package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/skillforge-backend/internal/logger"
	"github.com/yungbote/skillforge-backend/internal/types"
)

type fakeApprovalTaskRepo struct {
	tasks []*types.ApprovalTask
}

func (f *fakeApprovalTaskRepo) Create(_ context.Context, _ *gorm.DB, tasks []*types.ApprovalTask) ([]*types.ApprovalTask, error) {
	f.tasks = append(f.tasks, tasks...)
	return tasks, nil
}

func (f *fakeApprovalTaskRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.ApprovalTask, error) {
	var out []*types.ApprovalTask
	for _, task := range f.tasks {
		for _, id := range ids {
			if task.ID == id {
				out = append(out, task)
			}
		}
	}
	return out, nil
}

func (f *fakeApprovalTaskRepo) ListPending(_ context.Context, _ *gorm.DB, limit int) ([]*types.ApprovalTask, error) {
	var out []*types.ApprovalTask
	for _, task := range f.tasks {
		if task.Status == types.ApprovalTaskPending && len(out) < limit {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeApprovalTaskRepo) Decide(_ context.Context, _ *gorm.DB, id uuid.UUID, status types.ApprovalTaskStatus, decidedBy, reason string) error {
	for _, task := range f.tasks {
		if task.ID != id {
			continue
		}
		if task.Status != types.ApprovalTaskPending {
			return fmt.Errorf("approval task %s already decided (%s)", id, task.Status)
		}
		now := time.Now()
		task.Status = status
		task.DecidedBy = decidedBy
		task.DecidedAt = &now
		task.Reason = reason
		return nil
	}
	return fmt.Errorf("approval task %s not found", id)
}

type fakeRecommendationRepo struct {
	recs []*types.Recommendation
}

func (f *fakeRecommendationRepo) Create(_ context.Context, _ *gorm.DB, recs []*types.Recommendation) ([]*types.Recommendation, error) {
	f.recs = append(f.recs, recs...)
	return recs, nil
}

func (f *fakeRecommendationRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Recommendation, error) {
	var out []*types.Recommendation
	for _, rec := range f.recs {
		for _, id := range ids {
			if rec.ID == id {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (f *fakeRecommendationRepo) SetApprovalStatus(_ context.Context, _ *gorm.DB, id uuid.UUID, status types.ApprovalStatus) error {
	for _, rec := range f.recs {
		if rec.ID != id {
			continue
		}
		if rec.Terminal() {
			return fmt.Errorf("recommendation %s is terminal (%s)", id, rec.ApprovalStatus)
		}
		rec.ApprovalStatus = status
		return nil
	}
	return fmt.Errorf("recommendation %s not found", id)
}

func (f *fakeRecommendationRepo) HasOpenForTopic(_ context.Context, _ *gorm.DB, userID uuid.UUID, topic string) (bool, error) {
	for _, rec := range f.recs {
		if rec.UserID == userID && rec.Topic == topic && !rec.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func newApprovalFixture() (*fakeApprovalTaskRepo, *fakeRecommendationRepo, *fakeQueueItemRepo, ApprovalService, *types.ApprovalTask) {
	taskRepo := &fakeApprovalTaskRepo{}
	recRepo := &fakeRecommendationRepo{}
	queueRepo := &fakeQueueItemRepo{}
	queue := NewGenerationQueue(queueRepo, newFakeCounter(), logger.NewNop())
	svc := NewApprovalService(taskRepo, recRepo, queue, logger.NewNop())

	rec := &types.Recommendation{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		Topic:          "attribution modeling",
		TriggerReason:  types.TriggerSkillGapDetected,
		Priority:       64,
		ApprovalStatus: types.ApprovalPending,
	}
	recRepo.recs = append(recRepo.recs, rec)

	task, err := svc.CreateTask(context.Background(), rec)
	if err != nil {
		panic(err)
	}
	return taskRepo, recRepo, queueRepo, svc, task
}

func TestApproveEnqueuesWithStoredPriority(t *testing.T) {
	_, recRepo, queueRepo, svc, task := newApprovalFixture()

	if err := svc.Decide(context.Background(), task.ID, true, "admin@ops", "looks useful"); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if got := recRepo.recs[0].ApprovalStatus; got != types.ApprovalApproved {
		t.Fatalf("recommendation status = %s, want approved", got)
	}
	if len(queueRepo.items) != 1 {
		t.Fatalf("expected 1 enqueued item, have %d", len(queueRepo.items))
	}
	if queueRepo.items[0].Priority != 64 {
		t.Fatalf("enqueued priority = %d, want 64", queueRepo.items[0].Priority)
	}
}

func TestRejectDoesNotEnqueue(t *testing.T) {
	_, recRepo, queueRepo, svc, task := newApprovalFixture()

	if err := svc.Decide(context.Background(), task.ID, false, "admin@ops", "duplicate of existing plan"); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if got := recRepo.recs[0].ApprovalStatus; got != types.ApprovalRejected {
		t.Fatalf("recommendation status = %s, want rejected", got)
	}
	if len(queueRepo.items) != 0 {
		t.Fatalf("rejection must not enqueue, have %d items", len(queueRepo.items))
	}
}

func TestDecideOnDecidedTaskFails(t *testing.T) {
	_, _, _, svc, task := newApprovalFixture()

	if err := svc.Decide(context.Background(), task.ID, false, "admin@ops", "no"); err != nil {
		t.Fatalf("first decide: %v", err)
	}
	if err := svc.Decide(context.Background(), task.ID, true, "admin@ops", "changed my mind"); err == nil {
		t.Fatal("expected error deciding an already-decided task")
	}
}
