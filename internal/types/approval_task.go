package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ApprovalTaskStatus string

const (
	ApprovalTaskPending  ApprovalTaskStatus = "pending"
	ApprovalTaskApproved ApprovalTaskStatus = "approved"
	ApprovalTaskRejected ApprovalTaskStatus = "rejected"
)

// ApprovalTask is the admin-facing record asking a human to approve or reject
// a generation recommendation.
type ApprovalTask struct {
	ID               uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	RecommendationID uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex" json:"recommendation_id"`
	UserID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	Topic            string             `gorm:"column:topic;not null" json:"topic"`
	Priority         int                `gorm:"column:priority;not null" json:"priority"`
	Status           ApprovalTaskStatus `gorm:"column:status;not null;index" json:"status"`
	DecidedBy        string             `gorm:"column:decided_by" json:"decided_by,omitempty"`
	DecidedAt        *time.Time         `gorm:"column:decided_at" json:"decided_at,omitempty"`
	Reason           string             `gorm:"column:reason" json:"reason,omitempty"`
	Details          datatypes.JSON     `gorm:"type:jsonb;column:details" json:"details,omitempty"`
	CreatedAt        time.Time          `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"not null;default:now()" json:"updated_at"`
}

func (ApprovalTask) TableName() string { return "approval_task" }
