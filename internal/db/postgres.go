package db

import (
  "context"
  "fmt"
  "gorm.io/driver/postgres"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"
  "github.com/yungbote/skillforge-backend/internal/logger"
  "github.com/yungbote/skillforge-backend/internal/types"
  "github.com/yungbote/skillforge-backend/internal/utils"
)

type PostgresService struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
  serviceLog := log.With("service", "PostgresService")

  driver := utils.GetEnv("DB_DRIVER", "postgres", log)
  if driver == "sqlite" {
    path := utils.GetEnv("SQLITE_PATH", "skillforge.db", log)
    serviceLog.Info("Opening sqlite database", "path", path)
    gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
    if err != nil {
      return nil, fmt.Errorf("open sqlite: %w", err)
    }
    return &PostgresService{db: gdb, log: serviceLog}, nil
  }

  postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
  postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
  postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
  postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
  postgresName := utils.GetEnv("POSTGRES_NAME", "skillforge", log)

  dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

  serviceLog.Info("Connecting to Postgres...")
  gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
  })
  if err != nil {
    return nil, fmt.Errorf("connect to Postgres: %w", err)
  }

  if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
    return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
  }

  return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
  s.log.Info("Auto migrating tables...")
  return s.db.AutoMigrate(
    &types.User{},
    &types.CompletedUnit{},
    &types.SkillMatrixRow{},
    &types.PerformanceRecord{},
    &types.Recommendation{},
    &types.QueueItem{},
    &types.Tutorial{},
    &types.TutorialVersion{},
    &types.Journey{},
    &types.JourneyNode{},
    &types.ApprovalTask{},
    &types.GenerationAlert{},
  )
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) Healthy(ctx context.Context) bool {
  if s == nil || s.db == nil {
    return false
  }
  sqlDB, err := s.db.DB()
  if err != nil {
    return false
  }
  return sqlDB.PingContext(ctx) == nil
}
