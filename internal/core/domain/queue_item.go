package domain

import "time"

// QueueItem is one pending delivery in the sync outbox.
type QueueItem struct {
	ID             string       `json:"id"`
	Kind           ItemKind     `json:"kind"`
	Priority       Priority     `json:"priority"`
	Payload        []byte       `json:"payload"`
	CreatedAt      time.Time    `json:"created_at"`
	Attempts       int          `json:"attempts"`
	NextEligibleAt time.Time    `json:"next_eligible_at"`
	Status         QueueStatus  `json:"status"`
	LastError      string       `json:"last_error,omitempty"`
}

type ItemKind string

const (
	KindTextResult     ItemKind = "text-result"
	KindAudioResult    ItemKind = "audio-result"
	KindModelUpdateAck ItemKind = "model-update-ack"
)

// Priority orders queue drainage. Lower rank drains first.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank maps a priority to its drain order; unknown priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

type QueueStatus string

const (
	QueueStatusPending   QueueStatus = "pending"
	QueueStatusInFlight  QueueStatus = "in-flight"
	QueueStatusDelivered QueueStatus = "delivered"
	QueueStatusDead      QueueStatus = "dead"
)

// QueueCounts summarizes queue depth per status.
type QueueCounts struct {
	Pending  int `json:"pending"`
	InFlight int `json:"in_flight"`
	Dead     int `json:"dead"`
}
