package domain

import "time"

// ProbeResult carries the diagnostics of one connectivity probe against the
// central service. The monitor's classifier derives a suspected cause from
// a window of these.
type ProbeResult struct {
	At          time.Time
	Err         error
	Latency     time.Duration
	DNSFailure  bool
	Timeout     bool
	StatusCode  int
	BytesPerSec float64
}

// OK reports whether the probe succeeded.
func (p ProbeResult) OK() bool {
	return p.Err == nil
}
