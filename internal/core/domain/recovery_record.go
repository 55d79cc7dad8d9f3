package domain

import "time"

// StrategyAttempt records a single strategy execution within an episode.
type StrategyAttempt struct {
	Strategy string `json:"strategy"`
	Success  bool   `json:"success"`
	Action   string `json:"action"`
	Detail   string `json:"detail,omitempty"`
}

type RecoveryOutcome string

const (
	RecoverySuccess RecoveryOutcome = "success"
	RecoveryFailure RecoveryOutcome = "failure"
)

// RecoveryRecord is one append-only entry of recovery history.
// The engine reads past records to reorder strategies by success rate.
type RecoveryRecord struct {
	ID              string            `json:"id"`
	Timestamp       time.Time         `json:"timestamp"`
	Cause           Cause             `json:"cause"`
	Proactive       bool              `json:"is_proactive"`
	AttemptNumber   int               `json:"attempt_number"`
	StrategiesTried []StrategyAttempt `json:"strategies_tried"`
	Outcome         RecoveryOutcome   `json:"outcome"`
	Duration        time.Duration     `json:"duration_ms"`
}
