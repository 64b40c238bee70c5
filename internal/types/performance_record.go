package types

import (
	"time"
	"github.com/google/uuid"
)

// PerformanceRecord is one campaign/outcome observation for a user's channel.
// The gap detector correlates recent records against per-channel thresholds.
type PerformanceRecord struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Channel        string    `gorm:"column:channel;not null" json:"channel"`
	CTR            float64   `gorm:"column:ctr" json:"ctr"`
	CPC            float64   `gorm:"column:cpc" json:"cpc"`
	EngagementRate float64   `gorm:"column:engagement_rate" json:"engagement_rate"`
	RecordedAt     time.Time `gorm:"column:recorded_at;not null;index" json:"recorded_at"`
}

func (PerformanceRecord) TableName() string { return "performance_record" }
