package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// GenerationAlert captures non-blocking warnings and build-failure reports
// raised by the pipeline for the admin surface.
type GenerationAlert struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	QueueItemID *uuid.UUID     `gorm:"type:uuid;column:queue_item_id;index" json:"queue_item_id,omitempty"`
	TutorialID  *uuid.UUID     `gorm:"type:uuid;column:tutorial_id" json:"tutorial_id,omitempty"`
	Severity    AlertSeverity  `gorm:"column:severity;not null;index" json:"severity"`
	Code        string         `gorm:"column:code;not null" json:"code"`
	Message     string         `gorm:"column:message;not null" json:"message"`
	Details     datatypes.JSON `gorm:"type:jsonb;column:details" json:"details,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (GenerationAlert) TableName() string { return "generation_alert" }
