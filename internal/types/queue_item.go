package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
	QueueStatusCancelled  QueueStatus = "cancelled"
)

// MaxQueueAttempts bounds failed->pending retries per item.
const MaxQueueAttempts = 3

// QueueItem is one pending tutorial generation request. Priority is fixed at
// enqueue time; re-prioritization requires a new item.
type QueueItem struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Topic         string         `gorm:"column:topic;not null" json:"topic"`
	TriggerReason TriggerReason  `gorm:"column:trigger_reason;not null" json:"trigger_reason"`
	Priority      int            `gorm:"column:priority;not null;index" json:"priority"` // 0-100
	Status        QueueStatus    `gorm:"column:status;not null;index" json:"status"`
	Attempts      int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError     string         `gorm:"column:last_error" json:"last_error,omitempty"`
	TutorialID    *uuid.UUID     `gorm:"type:uuid;column:tutorial_id" json:"tutorial_id,omitempty"`
	LockedAt      *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	CompletedAt   *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Metadata      datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt     time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (QueueItem) TableName() string { return "generation_queue_item" }
