package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ApprovalStatus string

const (
	ApprovalAutoApproved ApprovalStatus = "auto_approved"
	ApprovalPending      ApprovalStatus = "pending"
	ApprovalApproved     ApprovalStatus = "approved"
	ApprovalRejected     ApprovalStatus = "rejected"
)

type Recommendation struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Topic          string         `gorm:"column:topic;not null;index" json:"topic"`
	TriggerReason  TriggerReason  `gorm:"column:trigger_reason;not null" json:"trigger_reason"`
	Priority       int            `gorm:"column:priority;not null" json:"priority"` // 0-100
	SourceGapID    *uuid.UUID     `gorm:"type:uuid;column:source_gap_id" json:"source_gap_id,omitempty"`
	ApprovalStatus ApprovalStatus `gorm:"column:approval_status;not null;index" json:"approval_status"`
	Evidence       datatypes.JSON `gorm:"type:jsonb;column:evidence" json:"evidence"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Recommendation) TableName() string { return "recommendation" }

// Terminal reports whether the approval state can no longer change.
func (r *Recommendation) Terminal() bool {
	return r.ApprovalStatus == ApprovalApproved || r.ApprovalStatus == ApprovalRejected
}
