package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JourneyStrategy string

const (
	JourneyStrategyGapRemediation JourneyStrategy = "gap_remediation"
	JourneyStrategySkillPath      JourneyStrategy = "skill_path"
	JourneyStrategyProfileBased   JourneyStrategy = "profile_based"
)

type JourneyStatus string

const (
	JourneyStatusActive    JourneyStatus = "active"
	JourneyStatusCompleted JourneyStatus = "completed"
)

type JourneyNodeStatus string

const (
	JourneyNodePending   JourneyNodeStatus = "pending"
	JourneyNodeCompleted JourneyNodeStatus = "completed"
)

type Journey struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Strategy         JourneyStrategy `gorm:"column:strategy;not null" json:"strategy"`
	Status           JourneyStatus   `gorm:"column:status;not null;index" json:"status"`
	CurrentNodeIndex int             `gorm:"column:current_node_index;not null;default:0" json:"current_node_index"`
	PercentComplete  float64         `gorm:"column:percent_complete;not null;default:0" json:"percent_complete"`
	CreatedAt        time.Time       `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Journey) TableName() string { return "journey" }

type JourneyNode struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"node_id"`
	JourneyID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"journey_id"`
	Order         int               `gorm:"column:node_order;not null" json:"order"`
	Topic         string            `gorm:"column:topic;not null" json:"topic"`
	Status        JourneyNodeStatus `gorm:"column:status;not null" json:"status"`
	Prerequisites datatypes.JSON    `gorm:"type:jsonb;column:prerequisites" json:"prerequisites"`
	Priority      int               `gorm:"column:priority;not null;default:0" json:"priority"`
	Generated     bool              `gorm:"column:generated;not null;default:false" json:"generated"`
	CreatedAt     time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (JourneyNode) TableName() string { return "journey_node" }
