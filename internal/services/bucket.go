package services

import (
  "context"
  "fmt"
  "os"
  "time"

  "cloud.google.com/go/storage"
  "google.golang.org/api/option"

  "github.com/yungbote/skillforge-backend/internal/logger"
)

// BucketService stores generated media objects and hands back public URLs.
type BucketService interface {
  UploadBytes(ctx context.Context, objectKey string, data []byte, contentType string) (string, error)
  Delete(ctx context.Context, objectKey string) error
  GetPublicURL(objectKey string) string
  Healthy(ctx context.Context) bool
}

type bucketService struct {
  client     *storage.Client
  bucketName string
  log        *logger.Logger
}

func NewBucketService(ctx context.Context, log *logger.Logger) (BucketService, error) {
  bucketLog := log.With("service", "BucketService")

  bucketName := os.Getenv("GCS_BUCKET_NAME")
  if bucketName == "" {
    return nil, fmt.Errorf("missing GCS_BUCKET_NAME")
  }

  var opts []option.ClientOption
  if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
    opts = append(opts, option.WithCredentialsFile(creds))
  }
  client, err := storage.NewClient(ctx, opts...)
  if err != nil {
    return nil, fmt.Errorf("storage client: %w", err)
  }

  return &bucketService{client: client, bucketName: bucketName, log: bucketLog}, nil
}

func (s *bucketService) UploadBytes(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
  ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
  defer cancel()

  w := s.client.Bucket(s.bucketName).Object(objectKey).NewWriter(ctx)
  w.ContentType = contentType
  if _, err := w.Write(data); err != nil {
    _ = w.Close()
    return "", fmt.Errorf("write object %q: %w", objectKey, err)
  }
  if err := w.Close(); err != nil {
    return "", fmt.Errorf("close object %q: %w", objectKey, err)
  }
  return s.GetPublicURL(objectKey), nil
}

func (s *bucketService) Delete(ctx context.Context, objectKey string) error {
  if err := s.client.Bucket(s.bucketName).Object(objectKey).Delete(ctx); err != nil {
    return fmt.Errorf("delete object %q: %w", objectKey, err)
  }
  return nil
}

func (s *bucketService) GetPublicURL(objectKey string) string {
  return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, objectKey)
}

func (s *bucketService) Healthy(ctx context.Context) bool {
  ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
  defer cancel()
  _, err := s.client.Bucket(s.bucketName).Attrs(ctx)
  return err == nil
}
