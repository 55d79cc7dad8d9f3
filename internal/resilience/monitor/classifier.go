package monitor

import (
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

const (
	// Latencies above this on otherwise-successful probes point at a weak
	// link rather than an outright outage.
	slowLatencyThreshold = 2 * time.Second

	// Throughput under this fraction of the window baseline counts as a
	// collapse (bandwidth limiting by the upstream).
	throughputCollapseRatio = 0.2

	// Offline transitions recurring in the same hour-of-day at least this
	// many times mark a scheduled outage window.
	outageRecurrenceMin = 3
)

// Classify derives a best-effort suspected cause from the recent probe
// window and the history of offline transitions. Rules are checked from
// most to least specific; anything unmatched is unknown.
func Classify(window []domain.ProbeResult, offlineHistory []time.Time, now time.Time) domain.Cause {
	var failures []domain.ProbeResult
	for _, p := range window {
		if !p.OK() {
			failures = append(failures, p)
		}
	}
	if len(failures) == 0 {
		return domain.CauseUnknown
	}

	dnsCount, timeoutCount := 0, 0
	for _, f := range failures {
		if f.DNSFailure {
			dnsCount++
		}
		if f.Timeout {
			timeoutCount++
		}
	}

	if dnsCount*2 > len(failures) {
		return domain.CauseDNS
	}
	if inOutageWindow(offlineHistory, now) {
		return domain.CauseScheduledOutage
	}
	if throughputCollapsed(window) {
		return domain.CauseBandwidthLimit
	}

	ratio := float64(len(failures)) / float64(len(window))
	scattered := !hasFailureStreak(window, 2)

	if scattered && ratio < 0.3 {
		return domain.CauseIntermittent
	}
	if scattered && ratio < 0.7 {
		return domain.CauseInterference
	}

	avg, rising := latencyProfile(window)
	if avg > slowLatencyThreshold && timeoutCount*2 >= len(failures) {
		return domain.CauseWeakSignal
	}
	if rising {
		return domain.CauseCongestion
	}
	if timeoutCount == len(failures) {
		return domain.CauseWeakSignal
	}
	return domain.CauseUnknown
}

// inOutageWindow reports whether now falls in an hour-of-day during which
// offline transitions have recurred often enough to look scheduled.
func inOutageWindow(offlineHistory []time.Time, now time.Time) bool {
	count := 0
	for _, t := range offlineHistory {
		if t.Hour() == now.Hour() && !sameDayHour(t, now) {
			count++
		}
	}
	return count >= outageRecurrenceMin-1
}

func sameDayHour(a, b time.Time) bool {
	return a.Truncate(time.Hour).Equal(b.Truncate(time.Hour))
}

// PredictOutageEnd returns when the current predicted outage window closes
// (the top of the next hour), and whether a window is active at all.
func PredictOutageEnd(offlineHistory []time.Time, now time.Time) (time.Time, bool) {
	if !inOutageWindow(offlineHistory, now) {
		return time.Time{}, false
	}
	return now.Truncate(time.Hour).Add(time.Hour), true
}

// throughputCollapsed compares the most recent successful probe's
// throughput to the window's baseline.
func throughputCollapsed(window []domain.ProbeResult) bool {
	var baseline float64
	var samples int
	var latest float64

	for _, p := range window {
		if p.OK() && p.BytesPerSec > 0 {
			baseline += p.BytesPerSec
			samples++
			latest = p.BytesPerSec
		}
	}
	if samples < 4 {
		return false
	}
	baseline /= float64(samples)
	return latest < baseline*throughputCollapseRatio
}

// hasFailureStreak reports whether the window contains n consecutive
// failures anywhere.
func hasFailureStreak(window []domain.ProbeResult, n int) bool {
	streak := 0
	for _, p := range window {
		if p.OK() {
			streak = 0
			continue
		}
		streak++
		if streak >= n {
			return true
		}
	}
	return false
}

// latencyProfile returns the average success latency and whether the second
// half of the window is markedly slower than the first.
func latencyProfile(window []domain.ProbeResult) (time.Duration, bool) {
	var total, firstHalf, secondHalf time.Duration
	var count, firstN, secondN int

	for i, p := range window {
		if !p.OK() {
			continue
		}
		total += p.Latency
		count++
		if i < len(window)/2 {
			firstHalf += p.Latency
			firstN++
		} else {
			secondHalf += p.Latency
			secondN++
		}
	}
	if count == 0 {
		return 0, false
	}

	avg := total / time.Duration(count)
	rising := false
	if firstN > 0 && secondN > 0 {
		f := firstHalf / time.Duration(firstN)
		s := secondHalf / time.Duration(secondN)
		rising = f > 0 && s > f+f/2
	}
	return avg, rising
}

// RiskScore estimates the chance of an imminent offline transition from the
// probe window: failure density, latency degradation, and proximity to a
// recurring outage window.
func RiskScore(window []domain.ProbeResult, offlineHistory []time.Time, now time.Time) float64 {
	if len(window) == 0 {
		return 0
	}

	failures := 0
	for _, p := range window {
		if !p.OK() {
			failures++
		}
	}
	score := 0.5 * float64(failures) / float64(len(window))

	if avg, rising := latencyProfile(window); avg > slowLatencyThreshold {
		score += 0.3
	} else if rising {
		score += 0.15
	}

	if inOutageWindow(offlineHistory, now) {
		score += 0.2
	}

	if score > 1 {
		score = 1
	}
	return score
}
