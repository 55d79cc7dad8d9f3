package domain

import "time"

// Cause classifies why the link to the central service is suspected bad.
type Cause string

const (
	CauseDNS             Cause = "dns"
	CauseWeakSignal      Cause = "weak-signal"
	CauseCongestion      Cause = "congestion"
	CauseInterference    Cause = "interference"
	CauseBandwidthLimit  Cause = "bandwidth-limit"
	CauseIntermittent    Cause = "intermittent"
	CauseScheduledOutage Cause = "scheduled-outage"
	CauseUnknown         Cause = "unknown"
)

// Causes lists every classifiable cause, in configured strategy order.
var Causes = []Cause{
	CauseDNS,
	CauseWeakSignal,
	CauseCongestion,
	CauseInterference,
	CauseBandwidthLimit,
	CauseIntermittent,
	CauseScheduledOutage,
	CauseUnknown,
}

// LinkState is the monitor-owned view of link health.
// Mutated only by the connectivity monitor; everyone else reads copies.
type LinkState struct {
	Online              bool      `json:"online"`
	LastOnlineAt        time.Time `json:"last_online_at"`
	LastOfflineAt       time.Time `json:"last_offline_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	SuspectedCause      Cause     `json:"suspected_cause"`
	RiskScore           float64   `json:"risk_score"`
}
