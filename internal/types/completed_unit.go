package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompletedUnit records a finished learning unit with its quiz outcome. The
// gap detector's quiz-failure scan reads these; "active user" means at least
// one row here.
type CompletedUnit struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	TutorialID  *uuid.UUID     `gorm:"type:uuid;column:tutorial_id" json:"tutorial_id,omitempty"`
	Topic       string         `gorm:"column:topic;not null;index" json:"topic"`
	Title       string         `gorm:"column:title" json:"title"`
	QuizScore   *float64       `gorm:"column:quiz_score" json:"quiz_score,omitempty"` // 0-100
	CompletedAt time.Time      `gorm:"column:completed_at;not null;index" json:"completed_at"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CompletedUnit) TableName() string { return "completed_unit" }
