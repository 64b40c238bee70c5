package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/skillforge-backend/internal/logger"
	"github.com/yungbote/skillforge-backend/internal/types"
)

func testBlueprintResponse() map[string]any {
	return map[string]any{
		"title": "Budgeting Fundamentals",
		"sections": []any{
			map[string]any{"title": "Why budgets matter", "kind": "why_it_matters", "goal": "motivate", "wants_image": true, "wants_audio": false, "wants_video": false, "wants_quiz": false},
			map[string]any{"title": "Building a budget", "kind": "concept", "goal": "teach", "wants_image": false, "wants_audio": true, "wants_video": false, "wants_quiz": true},
			map[string]any{"title": "Common pitfalls", "kind": "pitfalls", "goal": "warn", "wants_image": false, "wants_audio": false, "wants_video": true, "wants_quiz": false},
		},
	}
}

func testNarrativeResponse() map[string]any {
	return map[string]any{
		"text":         "A budget is the plan behind every campaign decision.",
		"citations":    []any{"internal playbook"},
		"diagram":      "",
		"image_prompt": "a marketing budget spreadsheet",
		"audio_script": "Welcome to budgeting.",
		"quiz": map[string]any{
			"question":       "What comes first?",
			"options":        []any{"Budget", "Creative"},
			"correct_answer": float64(0),
			"explanation":    "Spend follows plan.",
		},
	}
}

func newTestPipeline(model ModelClient, assets AssetProvider, tutorials *fakeTutorialRepo, alerts *fakeAlertRepo, notifier *fakeNotifier) GenerationPipeline {
	return &generationPipeline{
		model:              model,
		assets:             assets,
		complexity:         fakeComplexityAnalyzer{},
		tutorials:          tutorials,
		alerts:             alerts,
		notifier:           notifier,
		log:                logger.NewNop(),
		sectionConcurrency: 5,
		assetConcurrency:   3,
		maxRetries:         3,
		retryDelay:         time.Millisecond,
	}
}

func testQueueItem() *types.QueueItem {
	return &types.QueueItem{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Topic:         "budgeting",
		TriggerReason: types.TriggerQuizFailureRemediation,
		Priority:      85,
		Status:        types.QueueStatusProcessing,
		Attempts:      1,
	}
}

func TestGeneratePersistsDraftWithVersion(t *testing.T) {
	model := &fakeModelClient{responses: map[string]map[string]any{
		"tutorial_blueprint": testBlueprintResponse(),
		"tutorial_section":   testNarrativeResponse(),
	}}
	tutorials := &fakeTutorialRepo{}
	alerts := &fakeAlertRepo{}
	notifier := &fakeNotifier{}
	pipeline := newTestPipeline(model, &fakeAssetProvider{}, tutorials, alerts, notifier)

	tutorial, err := pipeline.Generate(context.Background(), testQueueItem())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if tutorial.Status != types.TutorialStatusDraft {
		t.Fatalf("status %s, want DRAFT", tutorial.Status)
	}
	if len(tutorials.versions) != 1 {
		t.Fatalf("expected one minted version, got %d", len(tutorials.versions))
	}

	var sections []types.Section
	if err := json.Unmarshal(tutorial.Sections, &sections); err != nil {
		t.Fatalf("decode sections: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	wantHash, err := ContentHash(sections)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if tutorials.versions[0].ContentHash != wantHash {
		t.Fatalf("version hash %s does not match section tree hash %s", tutorials.versions[0].ContentHash, wantHash)
	}
	if notifier.succeeded != 1 || notifier.failed != 0 {
		t.Fatalf("notifier counts: started=%d succeeded=%d failed=%d", notifier.started, notifier.succeeded, notifier.failed)
	}
}

func TestVideoRequestDegradesToImage(t *testing.T) {
	model := &fakeModelClient{responses: map[string]map[string]any{
		"tutorial_blueprint": testBlueprintResponse(),
		"tutorial_section":   testNarrativeResponse(),
	}}
	tutorials := &fakeTutorialRepo{}
	pipeline := newTestPipeline(model, &fakeAssetProvider{}, tutorials, &fakeAlertRepo{}, &fakeNotifier{})

	tutorial, err := pipeline.Generate(context.Background(), testQueueItem())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var sections []types.Section
	if err := json.Unmarshal(tutorial.Sections, &sections); err != nil {
		t.Fatalf("decode sections: %v", err)
	}
	found := false
	for _, block := range sections[2].Blocks {
		if block.Type == types.BlockTypeImage && block.OriginalType == types.BlockTypeVideo {
			found = true
		}
	}
	if !found {
		t.Fatalf("video section should carry an image block tagged with its original type")
	}
}

func TestAssetFailureDegradesToPlaceholderNotError(t *testing.T) {
	model := &fakeModelClient{responses: map[string]map[string]any{
		"tutorial_blueprint": testBlueprintResponse(),
		"tutorial_section":   testNarrativeResponse(),
	}}
	assets := &fakeAssetProvider{imageErr: errors.New("image backend down")}
	tutorials := &fakeTutorialRepo{}
	alerts := &fakeAlertRepo{}
	pipeline := newTestPipeline(model, assets, tutorials, alerts, &fakeNotifier{})

	tutorial, err := pipeline.Generate(context.Background(), testQueueItem())
	if err != nil {
		t.Fatalf("placeholder fallback should keep the build alive: %v", err)
	}

	var sections []types.Section
	if err := json.Unmarshal(tutorial.Sections, &sections); err != nil {
		t.Fatalf("decode sections: %v", err)
	}
	placeholders := 0
	for _, section := range sections {
		for _, block := range section.Blocks {
			if block.Type == types.BlockTypePlaceholder {
				if block.Status != types.BlockStatusOK {
					t.Fatalf("rendered placeholder should be ok, got %s", block.Status)
				}
				placeholders++
			}
		}
	}
	if placeholders == 0 {
		t.Fatalf("expected placeholder blocks after image failure")
	}

	warningSeen := false
	for _, alert := range alerts.alerts {
		if alert.Severity == types.AlertSeverityWarning {
			warningSeen = true
		}
	}
	if !warningSeen {
		t.Fatalf("degradations should surface as non-blocking warning alerts")
	}
}

func TestStrictValidationDiscardsArtifactWithFailedBlocks(t *testing.T) {
	model := &fakeModelClient{responses: map[string]map[string]any{
		"tutorial_blueprint": testBlueprintResponse(),
		"tutorial_section":   testNarrativeResponse(),
	}}
	assets := &fakeAssetProvider{
		imageErr:       errors.New("image backend down"),
		placeholderErr: errors.New("bucket down"),
	}
	tutorials := &fakeTutorialRepo{}
	alerts := &fakeAlertRepo{}
	notifier := &fakeNotifier{}
	pipeline := newTestPipeline(model, assets, tutorials, alerts, notifier)

	_, err := pipeline.Generate(context.Background(), testQueueItem())
	if !errors.Is(err, ErrBuildBlocked) {
		t.Fatalf("expected ErrBuildBlocked, got %v", err)
	}
	if len(tutorials.tutorials) != 0 {
		t.Fatalf("no partial artifact may ever be persisted, found %d", len(tutorials.tutorials))
	}

	reported := false
	for _, alert := range alerts.alerts {
		if alert.Code == "strict_validation_failed" && alert.Severity == types.AlertSeverityCritical {
			reported = true
		}
	}
	if !reported {
		t.Fatalf("strict validation must raise an admin failure report")
	}
	if notifier.failed != 1 {
		t.Fatalf("user must be told the generation failed, failed=%d", notifier.failed)
	}
}

func TestBlueprintExhaustionFailsBuild(t *testing.T) {
	model := &fakeModelClient{err: errors.New("model unavailable")}
	tutorials := &fakeTutorialRepo{}
	alerts := &fakeAlertRepo{}
	notifier := &fakeNotifier{}
	pipeline := newTestPipeline(model, &fakeAssetProvider{}, tutorials, alerts, notifier)

	_, err := pipeline.Generate(context.Background(), testQueueItem())
	if err == nil {
		t.Fatalf("expected blueprint failure")
	}
	if !strings.Contains(err.Error(), "blueprint phase") {
		t.Fatalf("error must name the failing phase, got %v", err)
	}
	if len(tutorials.tutorials) != 0 {
		t.Fatalf("nothing may persist on blueprint failure")
	}
	critical := false
	for _, alert := range alerts.alerts {
		if alert.Severity == types.AlertSeverityCritical {
			critical = true
		}
	}
	if !critical {
		t.Fatalf("unclassified build failure must raise a critical alert")
	}
	if notifier.failed != 1 {
		t.Fatalf("user must be notified of the failure")
	}
}

func TestValidateStopsOnExpiredContext(t *testing.T) {
	pipeline := newTestPipeline(&fakeModelClient{}, &fakeAssetProvider{}, &fakeTutorialRepo{}, &fakeAlertRepo{}, &fakeNotifier{}).(*generationPipeline)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pipeline.validate(ctx, testQueueItem(), []types.Section{{Title: "Why budgets matter"}})
	if err == nil {
		t.Fatal("expected validation to fail on expired context")
	}
	if !strings.Contains(err.Error(), "validation phase") {
		t.Fatalf("error must name the failing phase, got %v", err)
	}
}

func TestQuizIndexAutoCorrected(t *testing.T) {
	narrative := testNarrativeResponse()
	narrative["quiz"] = map[string]any{
		"question":       "What comes first?",
		"options":        []any{"Budget", "Creative"},
		"correct_answer": float64(5),
		"explanation":    "Spend follows plan.",
	}
	model := &fakeModelClient{responses: map[string]map[string]any{
		"tutorial_blueprint": testBlueprintResponse(),
		"tutorial_section":   narrative,
	}}
	tutorials := &fakeTutorialRepo{}
	pipeline := newTestPipeline(model, &fakeAssetProvider{}, tutorials, &fakeAlertRepo{}, &fakeNotifier{})

	tutorial, err := pipeline.Generate(context.Background(), testQueueItem())
	if err != nil {
		t.Fatalf("bad quiz index must never block the build: %v", err)
	}

	var sections []types.Section
	if err := json.Unmarshal(tutorial.Sections, &sections); err != nil {
		t.Fatalf("decode sections: %v", err)
	}
	for _, section := range sections {
		for _, block := range section.Blocks {
			if block.Type == types.BlockTypeQuiz {
				if block.Quiz.CorrectAnswer != 0 {
					t.Fatalf("answer index should be corrected to 0, got %d", block.Quiz.CorrectAnswer)
				}
				return
			}
		}
	}
	t.Fatalf("expected a quiz block")
}
