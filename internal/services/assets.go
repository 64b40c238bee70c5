package services

import (
  "context"
  "fmt"

  "github.com/google/uuid"

  "github.com/yungbote/skillforge-backend/internal/logger"
)

// AssetRef points at one stored media object.
type AssetRef struct {
  URL       string
  ObjectKey string
}

// AssetProvider generates and stores supporting media. The fallback order
// across asset kinds (video degrading to image, image degrading to a
// placeholder) belongs to the pipeline, not here.
type AssetProvider interface {
  GenerateImage(ctx context.Context, tutorialID uuid.UUID, prompt string) (*AssetRef, error)
  GenerateAudio(ctx context.Context, tutorialID uuid.UUID, script string) (*AssetRef, error)
  // Placeholder renders and stores the last-resort card for a failed asset.
  Placeholder(ctx context.Context, tutorialID uuid.UUID, label string) (*AssetRef, error)
  Healthy(ctx context.Context) bool
}

type assetProvider struct {
  model  ModelClient
  bucket BucketService
  log    *logger.Logger
}

func NewAssetProvider(model ModelClient, bucket BucketService, log *logger.Logger) AssetProvider {
  return &assetProvider{
    model:  model,
    bucket: bucket,
    log:    log.With("service", "AssetProvider"),
  }
}

func (p *assetProvider) GenerateImage(ctx context.Context, tutorialID uuid.UUID, prompt string) (*AssetRef, error) {
  raw, err := p.model.GenerateImage(ctx, prompt)
  if err != nil {
    return nil, fmt.Errorf("generate image: %w", err)
  }
  key := fmt.Sprintf("tutorials/%s/images/%s.png", tutorialID, uuid.New())
  url, err := p.bucket.UploadBytes(ctx, key, raw, "image/png")
  if err != nil {
    return nil, fmt.Errorf("store image: %w", err)
  }
  return &AssetRef{URL: url, ObjectKey: key}, nil
}

func (p *assetProvider) GenerateAudio(ctx context.Context, tutorialID uuid.UUID, script string) (*AssetRef, error) {
  raw, err := p.model.GenerateSpeech(ctx, script)
  if err != nil {
    return nil, fmt.Errorf("generate audio: %w", err)
  }
  key := fmt.Sprintf("tutorials/%s/audio/%s.mp3", tutorialID, uuid.New())
  url, err := p.bucket.UploadBytes(ctx, key, raw, "audio/mpeg")
  if err != nil {
    return nil, fmt.Errorf("store audio: %w", err)
  }
  return &AssetRef{URL: url, ObjectKey: key}, nil
}

func (p *assetProvider) Placeholder(ctx context.Context, tutorialID uuid.UUID, label string) (*AssetRef, error) {
  raw, err := RenderPlaceholderPNG(label)
  if err != nil {
    return nil, fmt.Errorf("render placeholder: %w", err)
  }
  key := fmt.Sprintf("tutorials/%s/placeholders/%s.png", tutorialID, uuid.New())
  url, err := p.bucket.UploadBytes(ctx, key, raw, "image/png")
  if err != nil {
    return nil, fmt.Errorf("store placeholder: %w", err)
  }
  return &AssetRef{URL: url, ObjectKey: key}, nil
}

func (p *assetProvider) Healthy(ctx context.Context) bool {
  return p.bucket.Healthy(ctx)
}
