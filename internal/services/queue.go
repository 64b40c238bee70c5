package services

import (
  "context"
  "errors"
  "fmt"
  "time"

  "github.com/google/uuid"

  redisclient "github.com/yungbote/skillforge-backend/internal/clients/redis"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/repos"
  "github.com/yungbote/skillforge-backend/internal/types"
  "github.com/yungbote/skillforge-backend/internal/utils"
)

// ErrRateLimited signals the per-user daily generation cap was hit. Callers
// surface it instead of dropping the request silently.
var ErrRateLimited = errors.New("daily generation cap reached")

const defaultDailyCap = 3

// DailyCounter is the atomic increment-and-compare backend for the rate cap.
type DailyCounter interface {
  Incr(ctx context.Context, userID uuid.UUID) (int64, error)
  Decr(ctx context.Context, userID uuid.UUID) error
  Healthy(ctx context.Context) bool
}

var _ DailyCounter = (*redisclient.DailyGenerationCounter)(nil)

// GenerationQueue wraps the queue-item state machine: pending -> processing
// -> completed|failed, pending -> cancelled, failed -> pending on bounded
// retry. Priority is fixed at enqueue; re-prioritization means re-enqueue.
type GenerationQueue interface {
  Enqueue(ctx context.Context, userID uuid.UUID, topic string, trigger types.TriggerReason, priority int) (*types.QueueItem, error)
  Dequeue(ctx context.Context, limit int) ([]*types.QueueItem, error)
  Complete(ctx context.Context, itemID uuid.UUID, tutorialID uuid.UUID) error
  Fail(ctx context.Context, itemID uuid.UUID, cause string) error
  Retry(ctx context.Context, itemID uuid.UUID) error
  Cancel(ctx context.Context, itemID uuid.UUID) error
  PendingDepth(ctx context.Context) (int64, error)
}

type generationQueue struct {
  items    repos.QueueItemRepo
  counter  DailyCounter
  dailyCap int64
  log      *logger.Logger
}

func NewGenerationQueue(items repos.QueueItemRepo, counter DailyCounter, log *logger.Logger) GenerationQueue {
  queueLog := log.With("service", "GenerationQueue")
  return &generationQueue{
    items:    items,
    counter:  counter,
    dailyCap: int64(utils.GetEnvAsInt("GENERATION_DAILY_CAP", defaultDailyCap, queueLog)),
    log:      queueLog,
  }
}

func (q *generationQueue) Enqueue(ctx context.Context, userID uuid.UUID, topic string, trigger types.TriggerReason, priority int) (*types.QueueItem, error) {
  if priority < 0 {
    priority = 0
  }
  if priority > 100 {
    priority = 100
  }

  admitted, release, err := q.admit(ctx, userID)
  if err != nil {
    return nil, err
  }
  if !admitted {
    q.log.Info("Enqueue rejected by daily cap", "user_id", userID, "topic", topic)
    return nil, fmt.Errorf("user %s topic %q (cap %d/day): %w", userID, topic, q.dailyCap, ErrRateLimited)
  }

  item := &types.QueueItem{
    ID:            uuid.New(),
    UserID:        userID,
    Topic:         topic,
    TriggerReason: trigger,
    Priority:      priority,
    Status:        types.QueueStatusPending,
  }
  created, err := q.items.Create(ctx, nil, []*types.QueueItem{item})
  if err != nil {
    release()
    return nil, fmt.Errorf("create queue item: %w", err)
  }

  q.log.Info("Queue item enqueued",
    "queue_id", created[0].ID,
    "user_id", userID,
    "topic", topic,
    "priority", priority,
  )
  return created[0], nil
}

// admit runs the daily cap check. With a healthy counter it is a single
// atomic increment-and-compare; release undoes the slot if the enqueue fails
// afterwards. Without one it falls back to a count query against the store,
// which permits marginal over-admission under concurrent requests and is
// accepted as self-correcting the next day.
func (q *generationQueue) admit(ctx context.Context, userID uuid.UUID) (bool, func(), error) {
  noop := func() {}

  if q.counter != nil && q.counter.Healthy(ctx) {
    n, err := q.counter.Incr(ctx, userID)
    if err == nil {
      if n > q.dailyCap {
        if dErr := q.counter.Decr(ctx, userID); dErr != nil {
          q.log.Warn("Rate-cap decrement failed", "user_id", userID, "error", dErr)
        }
        return false, noop, nil
      }
      release := func() {
        if dErr := q.counter.Decr(ctx, userID); dErr != nil {
          q.log.Warn("Rate-cap release failed", "user_id", userID, "error", dErr)
        }
      }
      return true, release, nil
    }
    q.log.Warn("Rate-cap counter errored, falling back to store count", "user_id", userID, "error", err)
  }

  midnight := time.Now().Truncate(24 * time.Hour)
  completed, err := q.items.CountCompletedSince(ctx, nil, userID, midnight)
  if err != nil {
    return false, noop, fmt.Errorf("count completed today: %w", err)
  }
  return completed < q.dailyCap, noop, nil
}

func (q *generationQueue) Dequeue(ctx context.Context, limit int) ([]*types.QueueItem, error) {
  if limit <= 0 {
    limit = 1
  }
  items, err := q.items.ClaimHighestPriority(ctx, nil, limit)
  if err != nil {
    return nil, fmt.Errorf("claim queue items: %w", err)
  }
  for _, item := range items {
    q.log.Info("Queue item claimed", "queue_id", item.ID, "topic", item.Topic, "priority", item.Priority, "attempt", item.Attempts)
  }
  return items, nil
}

func (q *generationQueue) Complete(ctx context.Context, itemID uuid.UUID, tutorialID uuid.UUID) error {
  return q.items.MarkCompleted(ctx, nil, itemID, tutorialID)
}

func (q *generationQueue) Fail(ctx context.Context, itemID uuid.UUID, cause string) error {
  return q.items.MarkFailed(ctx, nil, itemID, cause)
}

func (q *generationQueue) Retry(ctx context.Context, itemID uuid.UUID) error {
  return q.items.RetryFailed(ctx, nil, itemID)
}

func (q *generationQueue) Cancel(ctx context.Context, itemID uuid.UUID) error {
  return q.items.Cancel(ctx, nil, itemID)
}

func (q *generationQueue) PendingDepth(ctx context.Context) (int64, error) {
  return q.items.CountByStatus(ctx, nil, types.QueueStatusPending)
}
