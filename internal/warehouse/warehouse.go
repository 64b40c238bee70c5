package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yungbote/skillforge-backend/internal/logger"
	"github.com/yungbote/skillforge-backend/internal/utils"
)

// Client is the analytical warehouse collaborator: append-only event inserts
// plus the aggregate queries the complexity analyzer and health scoring read.
type Client interface {
	InsertEvent(ctx context.Context, ev EngineEvent) error
	// AvgQuizFailureRate returns the mean failure rate (0-1) for a topic over
	// the window, or nil when no rows exist or the warehouse is unreachable.
	AvgQuizFailureRate(ctx context.Context, topic string, window time.Duration) (*float64, error)
	Healthy(ctx context.Context) bool
	Close()
}

type EngineEvent struct {
	EventType string
	UserID    uuid.UUID
	Topic     string
	Payload   map[string]any
}

type client struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

func New(ctx context.Context, log *logger.Logger) (Client, error) {
	whLog := log.With("component", "WarehouseClient")

	host := utils.GetEnv("WAREHOUSE_HOST", "localhost", log)
	port := utils.GetEnv("WAREHOUSE_PORT", "5432", log)
	user := utils.GetEnv("WAREHOUSE_USER", "postgres", log)
	password := utils.GetEnv("WAREHOUSE_PASSWORD", "", log)
	name := utils.GetEnv("WAREHOUSE_NAME", "skillforge_analytics", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("warehouse pool: %w", err)
	}

	c := &client{pool: pool, log: whLog}
	if err := c.ensureSchema(ctx); err != nil {
		whLog.Warn("Warehouse schema bootstrap failed", "error", err)
	}
	return c, nil
}

func (c *client) ensureSchema(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS engine_event (
			id          BIGSERIAL PRIMARY KEY,
			event_type  TEXT NOT NULL,
			user_id     UUID,
			topic       TEXT,
			payload     JSONB,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_engine_event_topic_time ON engine_event (topic, recorded_at);
	`)
	return err
}

func (c *client) InsertEvent(ctx context.Context, ev EngineEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO engine_event (event_type, user_id, topic, payload) VALUES ($1, $2, $3, $4)`,
		ev.EventType, ev.UserID, ev.Topic, payload,
	)
	if err != nil {
		return fmt.Errorf("insert engine event: %w", err)
	}
	return nil
}

func (c *client) AvgQuizFailureRate(ctx context.Context, topic string, window time.Duration) (*float64, error) {
	cutoff := time.Now().Add(-window)
	row := c.pool.QueryRow(ctx, `
		SELECT AVG((payload->>'failure_rate')::float)
		FROM engine_event
		WHERE event_type = 'quiz_outcome'
		  AND topic = $1
		  AND recorded_at >= $2
	`, topic, cutoff)

	var avg *float64
	if err := row.Scan(&avg); err != nil {
		return nil, fmt.Errorf("avg failure rate for %q: %w", topic, err)
	}
	return avg, nil
}

func (c *client) Healthy(ctx context.Context) bool {
	if c == nil || c.pool == nil {
		return false
	}
	return c.pool.Ping(ctx) == nil
}

func (c *client) Close() {
	if c != nil && c.pool != nil {
		c.pool.Close()
	}
}
