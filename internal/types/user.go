package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PerformanceLevel buckets a user's recent outcomes for eligibility scoring.
type PerformanceLevel string

const (
	PerformanceStruggling   PerformanceLevel = "struggling"
	PerformanceBelowAverage PerformanceLevel = "below_average"
	PerformanceAverage      PerformanceLevel = "average"
	PerformanceGood         PerformanceLevel = "good"
	PerformanceExcelling    PerformanceLevel = "excelling"
)

type SkillLevel string

const (
	SkillNovice       SkillLevel = "NOVICE"
	SkillIntermediate SkillLevel = "INTERMEDIATE"
	SkillExpert       SkillLevel = "EXPERT"
)

type User struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string           `gorm:"column:email;uniqueIndex;not null" json:"email"`
	DisplayName      string           `gorm:"column:display_name" json:"display_name"`
	SkillLevel       SkillLevel       `gorm:"column:skill_level;not null;default:'NOVICE'" json:"skill_level"`
	PerformanceLevel PerformanceLevel `gorm:"column:performance_level;not null;default:'average'" json:"performance_level"`
	CreatedAt        time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "app_user" }
