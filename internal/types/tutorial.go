package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TutorialStatus string

const (
	TutorialStatusDraft     TutorialStatus = "DRAFT"
	TutorialStatusInReview  TutorialStatus = "IN_REVIEW"
	TutorialStatusPublished TutorialStatus = "PUBLISHED"
	TutorialStatusArchived  TutorialStatus = "ARCHIVED"
)

// Tutorial is a generated learning unit. Sections holds the canonical section
// tree as JSONB; CurrentVersion points at exactly one TutorialVersion row.
type Tutorial struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Topic          string         `gorm:"column:topic;not null;index" json:"topic"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Status         TutorialStatus `gorm:"column:status;not null;index" json:"status"`
	Sections       datatypes.JSON `gorm:"type:jsonb;column:sections" json:"sections"`
	CurrentVersion *uuid.UUID     `gorm:"type:uuid;column:current_version" json:"current_version,omitempty"`
	AuditReport    datatypes.JSON `gorm:"type:jsonb;column:audit_report" json:"audit_report,omitempty"`
	EstimatedMins  int            `gorm:"column:estimated_minutes;not null;default:0" json:"estimated_minutes"`
	SkillTier      string         `gorm:"column:skill_tier" json:"skill_tier,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Tutorial) TableName() string { return "tutorial" }

// TutorialVersion pins a content hash of the section tree at mint time. The
// hash is the sole basis for detecting silent content drift.
type TutorialVersion struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"version_id"`
	TutorialID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"tutorial_id"`
	ContentHash  string     `gorm:"column:content_hash;not null" json:"content_hash"`
	ModelVersion string     `gorm:"column:model_version" json:"model_version"`
	PublishedBy  *string    `gorm:"column:published_by" json:"published_by,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:now()" json:"timestamp"`
}

func (TutorialVersion) TableName() string { return "tutorial_version" }
