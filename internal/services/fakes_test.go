package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/skillforge-backend/internal/types"
)

// ---- repo fakes ----

type fakeQueueItemRepo struct {
	mu        sync.Mutex
	items     []*types.QueueItem
	createErr error
}

func (f *fakeQueueItemRepo) Create(_ context.Context, _ *gorm.DB, items []*types.QueueItem) ([]*types.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, item := range items {
		item.CreatedAt = time.Now()
		f.items = append(f.items, item)
	}
	return items, nil
}

func (f *fakeQueueItemRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.QueueItem
	for _, item := range f.items {
		for _, id := range ids {
			if item.ID == id {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

func (f *fakeQueueItemRepo) ClaimHighestPriority(_ context.Context, _ *gorm.DB, limit int) ([]*types.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var claimed []*types.QueueItem
	for len(claimed) < limit {
		var best *types.QueueItem
		for _, item := range f.items {
			if item.Status != types.QueueStatusPending {
				continue
			}
			if best == nil || item.Priority > best.Priority ||
				(item.Priority == best.Priority && item.CreatedAt.Before(best.CreatedAt)) {
				best = item
			}
		}
		if best == nil {
			break
		}
		best.Status = types.QueueStatusProcessing
		best.Attempts++
		claimed = append(claimed, best)
	}
	return claimed, nil
}

func (f *fakeQueueItemRepo) find(id uuid.UUID) *types.QueueItem {
	for _, item := range f.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (f *fakeQueueItemRepo) MarkCompleted(_ context.Context, _ *gorm.DB, id uuid.UUID, tutorialID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.find(id)
	if item == nil {
		return errors.New("not found")
	}
	if item.Status == types.QueueStatusCompleted {
		return nil
	}
	if item.Status != types.QueueStatusProcessing {
		return errors.New("invalid transition")
	}
	item.Status = types.QueueStatusCompleted
	item.TutorialID = &tutorialID
	return nil
}

func (f *fakeQueueItemRepo) MarkFailed(_ context.Context, _ *gorm.DB, id uuid.UUID, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.find(id)
	if item == nil {
		return errors.New("not found")
	}
	item.Status = types.QueueStatusFailed
	item.LastError = lastError
	return nil
}

func (f *fakeQueueItemRepo) RetryFailed(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.find(id)
	if item == nil || item.Status != types.QueueStatusFailed || item.Attempts >= types.MaxQueueAttempts {
		return errors.New("not retryable")
	}
	item.Status = types.QueueStatusPending
	return nil
}

func (f *fakeQueueItemRepo) Cancel(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.find(id)
	if item == nil || item.Status != types.QueueStatusPending {
		return errors.New("not cancellable")
	}
	item.Status = types.QueueStatusCancelled
	return nil
}

func (f *fakeQueueItemRepo) CountCompletedSince(_ context.Context, _ *gorm.DB, userID uuid.UUID, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, item := range f.items {
		if item.UserID == userID && item.Status == types.QueueStatusCompleted {
			n++
		}
	}
	return n, nil
}

func (f *fakeQueueItemRepo) CountByStatus(_ context.Context, _ *gorm.DB, status types.QueueStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, item := range f.items {
		if item.Status == status {
			n++
		}
	}
	return n, nil
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int64
	fail   bool
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[uuid.UUID]int64{}}
}

func (f *fakeCounter) Incr(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("counter down")
	}
	f.counts[userID]++
	return f.counts[userID], nil
}

func (f *fakeCounter) Decr(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[userID]--
	return nil
}

func (f *fakeCounter) Healthy(context.Context) bool { return !f.fail }

type fakeTutorialRepo struct {
	mu        sync.Mutex
	tutorials []*types.Tutorial
	versions  []*types.TutorialVersion
}

func (f *fakeTutorialRepo) CreateWithVersion(_ context.Context, _ *gorm.DB, tutorial *types.Tutorial, version *types.TutorialVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	versionID := version.ID
	tutorial.CurrentVersion = &versionID
	f.tutorials = append(f.tutorials, tutorial)
	f.versions = append(f.versions, version)
	return nil
}

func (f *fakeTutorialRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Tutorial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Tutorial
	for _, tutorial := range f.tutorials {
		for _, id := range ids {
			if tutorial.ID == id {
				out = append(out, tutorial)
			}
		}
	}
	return out, nil
}

func (f *fakeTutorialRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (f *fakeTutorialRepo) MintVersion(_ context.Context, _ *gorm.DB, tutorialID uuid.UUID, version *types.TutorialVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions = append(f.versions, version)
	return nil
}

func (f *fakeTutorialRepo) GetVersions(_ context.Context, _ *gorm.DB, tutorialID uuid.UUID) ([]*types.TutorialVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.TutorialVersion
	for _, v := range f.versions {
		if v.TutorialID == tutorialID {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts []*types.GenerationAlert
}

func (f *fakeAlertRepo) Create(_ context.Context, _ *gorm.DB, alerts []*types.GenerationAlert) ([]*types.GenerationAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alerts...)
	return alerts, nil
}

func (f *fakeAlertRepo) ListRecent(_ context.Context, _ *gorm.DB, limit int) ([]*types.GenerationAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alerts, nil
}

// ---- collaborator fakes ----

// fakeModelClient answers GenerateJSON by schema name.
type fakeModelClient struct {
	responses map[string]map[string]any
	err       error
	imageErr  error
}

func (f *fakeModelClient) GenerateJSON(_ context.Context, _ string, _ string, schemaName string, _ map[string]any) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	resp, ok := f.responses[schemaName]
	if !ok {
		return nil, errors.New("no canned response for " + schemaName)
	}
	return resp, nil
}

func (f *fakeModelClient) GenerateImage(context.Context, string) ([]byte, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return []byte("png"), nil
}

func (f *fakeModelClient) GenerateSpeech(context.Context, string) ([]byte, error) {
	return []byte("mp3"), nil
}

func (f *fakeModelClient) ModelVersion() string        { return "test-model" }
func (f *fakeModelClient) Healthy(context.Context) bool { return true }

type fakeAssetProvider struct {
	imageErr       error
	audioErr       error
	placeholderErr error
}

func (f *fakeAssetProvider) GenerateImage(_ context.Context, tutorialID uuid.UUID, prompt string) (*AssetRef, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return &AssetRef{URL: "https://assets.test/image.png", ObjectKey: "image.png"}, nil
}

func (f *fakeAssetProvider) GenerateAudio(_ context.Context, tutorialID uuid.UUID, script string) (*AssetRef, error) {
	if f.audioErr != nil {
		return nil, f.audioErr
	}
	return &AssetRef{URL: "https://assets.test/audio.mp3", ObjectKey: "audio.mp3"}, nil
}

func (f *fakeAssetProvider) Placeholder(_ context.Context, tutorialID uuid.UUID, label string) (*AssetRef, error) {
	if f.placeholderErr != nil {
		return nil, f.placeholderErr
	}
	return &AssetRef{URL: "https://assets.test/placeholder.png", ObjectKey: "placeholder.png"}, nil
}

func (f *fakeAssetProvider) Healthy(context.Context) bool { return true }

type fakeNotifier struct {
	mu        sync.Mutex
	started   int
	succeeded int
	failed    int
}

func (f *fakeNotifier) GenerationStarted(uuid.UUID, string) {
	f.mu.Lock()
	f.started++
	f.mu.Unlock()
}

func (f *fakeNotifier) GenerationSucceeded(uuid.UUID, string, uuid.UUID) {
	f.mu.Lock()
	f.succeeded++
	f.mu.Unlock()
}

func (f *fakeNotifier) GenerationFailed(uuid.UUID, string, string) {
	f.mu.Lock()
	f.failed++
	f.mu.Unlock()
}

func (f *fakeNotifier) JourneyUpdated(uuid.UUID, uuid.UUID) {}

type fakeComplexityAnalyzer struct{}

func (fakeComplexityAnalyzer) Analyze(_ context.Context, topic string, _ types.SkillLevel) (*ComplexityResult, error) {
	return &ComplexityResult{
		Topic:            topic,
		Score:            4,
		RecommendedTier:  types.SkillIntermediate,
		EstimatedMinutes: 21,
	}, nil
}
