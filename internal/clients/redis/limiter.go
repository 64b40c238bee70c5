package redisclient

import (
  "context"
  "fmt"
  "time"

  "github.com/google/uuid"
  "github.com/redis/go-redis/v9"

  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/utils"
)

// DailyGenerationCounter tracks per-user completed-or-admitted generations per
// UTC day as a single atomic increment-and-compare, which closes the
// over-admission race a read-then-write against the document store would have.
type DailyGenerationCounter struct {
  rdb *redis.Client
  log *logger.Logger
}

func NewDailyGenerationCounter(log *logger.Logger) (*DailyGenerationCounter, error) {
  counterLog := log.With("component", "DailyGenerationCounter")
  addr := utils.GetEnv("REDIS_ADDR", "localhost:6379", log)
  password := utils.GetEnv("REDIS_PASSWORD", "", log)
  dbNum := utils.GetEnvAsInt("REDIS_DB", 0, log)

  rdb := redis.NewClient(&redis.Options{
    Addr:     addr,
    Password: password,
    DB:       dbNum,
  })
  return &DailyGenerationCounter{rdb: rdb, log: counterLog}, nil
}

func dailyKey(userID uuid.UUID, day time.Time) string {
  return fmt.Sprintf("genquota:%s:%s", userID.String(), day.UTC().Format("2006-01-02"))
}

// Incr bumps today's counter for the user and returns the post-increment
// value. The key expires 48h after first touch so stale days clean themselves
// up.
func (c *DailyGenerationCounter) Incr(ctx context.Context, userID uuid.UUID) (int64, error) {
  key := dailyKey(userID, time.Now())
  pipe := c.rdb.TxPipeline()
  incr := pipe.Incr(ctx, key)
  pipe.Expire(ctx, key, 48*time.Hour)
  if _, err := pipe.Exec(ctx); err != nil {
    return 0, fmt.Errorf("redis daily counter incr: %w", err)
  }
  return incr.Val(), nil
}

// Decr releases one admission, used when enqueue fails after the counter was
// already bumped.
func (c *DailyGenerationCounter) Decr(ctx context.Context, userID uuid.UUID) error {
  key := dailyKey(userID, time.Now())
  return c.rdb.Decr(ctx, key).Err()
}

func (c *DailyGenerationCounter) Healthy(ctx context.Context) bool {
  if c == nil || c.rdb == nil {
    return false
  }
  return c.rdb.Ping(ctx).Err() == nil
}
