package types

import (
	"time"
	"github.com/google/uuid"
)

// SkillMatrixRow is one skill/level pair in a user's skill matrix.
type SkillMatrixRow struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Skill     string     `gorm:"column:skill;not null" json:"skill"`
	Level     SkillLevel `gorm:"column:level;not null" json:"level"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (SkillMatrixRow) TableName() string { return "skill_matrix" }
