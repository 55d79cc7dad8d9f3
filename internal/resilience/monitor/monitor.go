package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/metrics"
)

// Prober performs one connectivity check against the central service.
type Prober interface {
	Probe(ctx context.Context) domain.ProbeResult
}

// phase is the monitor's internal state machine position.
type phase int

const (
	phaseUnknown phase = iota
	phaseOnline
	phaseOffline
)

// Config holds monitor settings.
type Config struct {
	ProbeInterval    time.Duration
	FailureThreshold int // consecutive failures before flipping Offline
	WindowSize       int // probe history kept for classification and risk
	RiskThreshold    float64
}

// Monitor owns the LinkState. It probes the central service on a timer,
// debounces transient failures, classifies why the link looks bad, and
// publishes online/offline/risk events. Everyone else only reads copies.
type Monitor struct {
	cfg    Config
	prober Prober
	bus    *Bus

	mu             sync.Mutex
	state          domain.LinkState
	phase          phase
	window         []domain.ProbeResult
	offlineHistory []time.Time
	riskHigh       bool // edge detector for the risk event

	running atomic.Bool
	stop    chan struct{}
	trigger chan chan domain.LinkState
}

// New creates a monitor. Events are published on the given bus.
func New(cfg Config, prober Prober, bus *Bus) *Monitor {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 60
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	return &Monitor{
		cfg:     cfg,
		prober:  prober,
		bus:     bus,
		state:   domain.LinkState{SuspectedCause: domain.CauseUnknown},
		stop:    make(chan struct{}),
		trigger: make(chan chan domain.LinkState),
	}
}

// Start runs the probe loop until the context is canceled or Stop is
// called. An immediate first probe runs before the ticker starts so the
// node doesn't sit in Unknown for a full interval.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return fmt.Errorf("monitor already running")
	}
	defer m.running.Store(false)

	m.probe(ctx)

	ticker := time.NewTicker(m.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.stop:
			return nil
		case <-ticker.C:
			m.probe(ctx)
		case reply := <-m.trigger:
			m.probe(ctx)
			reply <- m.Status()
		}
	}
}

// Stop halts the probe loop.
func (m *Monitor) Stop() {
	if m.running.Load() {
		close(m.stop)
	}
}

// Status returns a copy of the current link state.
func (m *Monitor) Status() domain.LinkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// On subscribes to link events.
func (m *Monitor) On(event Event, handler Handler) {
	m.bus.On(event, handler)
}

// CheckNow forces an immediate probe and returns the resulting state. Falls
// back to a direct probe when the loop isn't running (tests, shutdown).
func (m *Monitor) CheckNow(ctx context.Context) domain.LinkState {
	if m.running.Load() {
		reply := make(chan domain.LinkState, 1)
		select {
		case m.trigger <- reply:
			select {
			case st := <-reply:
				return st
			case <-ctx.Done():
				return m.Status()
			}
		case <-ctx.Done():
			return m.Status()
		}
	}
	m.probe(ctx)
	return m.Status()
}

// OutagePrediction reports the end of the currently predicted scheduled
// outage window, if one is active.
func (m *Monitor) OutagePrediction(now time.Time) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return PredictOutageEnd(m.offlineHistory, now)
}

func (m *Monitor) probe(ctx context.Context) {
	res := m.prober.Probe(ctx)

	m.mu.Lock()
	m.window = append(m.window, res)
	if len(m.window) > m.cfg.WindowSize {
		m.window = m.window[1:]
	}

	now := res.At
	var fire Event
	fired := false

	if res.OK() {
		metrics.ProbesTotal.WithLabelValues("success").Inc()
		m.state.ConsecutiveFailures = 0
		if m.phase != phaseOnline {
			m.phase = phaseOnline
			m.state.Online = true
			m.state.LastOnlineAt = now
			m.state.SuspectedCause = domain.CauseUnknown
			fire, fired = EventOnline, true
		}
	} else {
		metrics.ProbesTotal.WithLabelValues("failure").Inc()
		m.state.ConsecutiveFailures++
		switch {
		// Debounce: a single transient failure must not flip state.
		case m.phase != phaseOffline && m.state.ConsecutiveFailures >= m.cfg.FailureThreshold:
			m.phase = phaseOffline
			m.state.Online = false
			m.state.LastOfflineAt = now
			m.state.SuspectedCause = Classify(m.window, m.offlineHistory, now)
			m.offlineHistory = append(m.offlineHistory, now)
			if len(m.offlineHistory) > 100 {
				m.offlineHistory = m.offlineHistory[1:]
			}
			fire, fired = EventOffline, true
		case m.phase == phaseOffline:
			// Already offline; keep the cause current as evidence accrues.
			m.state.SuspectedCause = Classify(m.window, m.offlineHistory, now)
		}
	}

	m.state.RiskScore = RiskScore(m.window, m.offlineHistory, now)
	metrics.LinkRiskScore.Set(m.state.RiskScore)
	if m.state.Online {
		metrics.LinkOnline.Set(1)
	} else {
		metrics.LinkOnline.Set(0)
	}

	riskCrossed := false
	if m.state.Online && m.state.RiskScore >= m.cfg.RiskThreshold && m.cfg.RiskThreshold > 0 {
		if !m.riskHigh {
			m.riskHigh = true
			riskCrossed = true
		}
	} else {
		m.riskHigh = false
	}

	state := m.state
	m.mu.Unlock()

	if fired {
		switch fire {
		case EventOnline:
			slog.Info("Link online", "latency", res.Latency)
		case EventOffline:
			slog.Warn("Link offline",
				"cause", state.SuspectedCause,
				"consecutive_failures", state.ConsecutiveFailures,
				"error", res.Err)
		}
		m.bus.Emit(fire, state)
	}
	if riskCrossed {
		slog.Warn("Link failure risk elevated", "risk", state.RiskScore)
		m.bus.Emit(EventRisk, state)
	}
}
