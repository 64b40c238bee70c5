package types

import (
	"github.com/google/uuid"
)

// TriggerReason identifies what caused a learning gap to surface.
type TriggerReason string

const (
	TriggerQuizFailureRemediation TriggerReason = "quiz_failure_remediation"
	TriggerSkillGapDetected       TriggerReason = "skill_gap_detected"
	TriggerPerformanceDecline     TriggerReason = "performance_decline"
	TriggerPerformanceExcellence  TriggerReason = "performance_excellence"
	TriggerChannelOnboarding      TriggerReason = "channel_onboarding"
)

// Gap severity anchors on a 1-10 scale.
const (
	SeverityCritical = 9
	SeverityHigh     = 7
	SeverityMedium   = 5
)

// LearningGap is produced by the gap detector and consumed immediately by the
// eligibility scorer. It is never persisted or mutated.
type LearningGap struct {
	GapID         uuid.UUID     `json:"gap_id"`
	UserID        uuid.UUID     `json:"user_id"`
	Topic         string        `json:"topic"`
	SourceUnitID  *uuid.UUID    `json:"source_unit_id,omitempty"`
	Severity      int           `json:"severity"`
	Evidence      []string      `json:"evidence"`
	TriggerReason TriggerReason `json:"trigger_reason"`
	AutoApprove   bool          `json:"auto_approve"`
	PriorityRank  int           `json:"priority_rank"`
}
