package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/metrics"
)

// State is the engine's lifecycle position, exposed for the health endpoint.
type State string

const (
	StateIdle       State = "idle"
	StateEvaluating State = "evaluating"
	StateAttempting State = "attempting"
	StateCooldown   State = "cooldown"
)

var (
	ErrDisabled          = fmt.Errorf("recovery: engine disabled")
	ErrProactiveDisabled = fmt.Errorf("recovery: proactive recovery disabled")
	ErrCoolingDown       = fmt.Errorf("recovery: in cooldown")
	ErrBusy              = fmt.Errorf("recovery: episode already in progress")
)

// LinkChecker is the slice of the connectivity monitor the engine needs:
// a forced probe to verify each strategy.
type LinkChecker interface {
	CheckNow(ctx context.Context) domain.LinkState
}

// Options holds the runtime-tunable knobs. Any nil field in a Configure
// call leaves the current value untouched.
type Options struct {
	Enabled          *bool
	ProactiveEnabled *bool
	MaxAttempts      *int
	Cooldown         *time.Duration
	Strategies       map[string]bool
}

// Engine runs recovery episodes: pick candidate strategies for the
// suspected cause, try them best-history-first, verify each with a forced
// probe, stop at the first one that brings the link back. One episode at a
// time, cooldown between episodes, at most maxAttempts strategies per
// episode.
type Engine struct {
	mu sync.Mutex

	enabled          bool
	proactiveEnabled bool
	maxAttempts      int
	cooldown         time.Duration
	disabledStrats   map[string]bool

	state          State
	lastEpisodeEnd time.Time
	episodeSeq     int

	link       LinkChecker
	tracker    *Tracker
	strategies StrategySet
}

// Config carries the initial engine settings from the config file.
type Config struct {
	Enabled          bool
	ProactiveEnabled bool
	MaxAttempts      int
	Cooldown         time.Duration
	Strategies       map[string]bool
}

func NewEngine(cfg Config, link LinkChecker, tracker *Tracker, strategies StrategySet) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 2 * time.Minute
	}
	disabled := make(map[string]bool)
	for name, on := range cfg.Strategies {
		if !on {
			disabled[name] = true
		}
	}
	return &Engine{
		enabled:          cfg.Enabled,
		proactiveEnabled: cfg.ProactiveEnabled,
		maxAttempts:      cfg.MaxAttempts,
		cooldown:         cfg.Cooldown,
		disabledStrats:   disabled,
		state:            StateIdle,
		link:             link,
		tracker:          tracker,
		strategies:       strategies,
	}
}

// Configure applies runtime overrides. Toggling a strategy off removes it
// from candidate lists at the next episode.
func (e *Engine) Configure(opts Options) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if opts.Enabled != nil {
		e.enabled = *opts.Enabled
	}
	if opts.ProactiveEnabled != nil {
		e.proactiveEnabled = *opts.ProactiveEnabled
	}
	if opts.MaxAttempts != nil && *opts.MaxAttempts > 0 {
		e.maxAttempts = *opts.MaxAttempts
	}
	if opts.Cooldown != nil && *opts.Cooldown >= 0 {
		e.cooldown = *opts.Cooldown
	}
	for name, on := range opts.Strategies {
		if on {
			delete(e.disabledStrats, name)
		} else {
			e.disabledStrats[name] = true
		}
	}
}

// State reports the current lifecycle position. A finished episode shows
// as cooldown until the cooldown period elapses.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateIdle && !e.lastEpisodeEnd.IsZero() && time.Since(e.lastEpisodeEnd) < e.cooldown {
		return StateCooldown
	}
	return e.state
}

// HandleOffline is the reactive entry point, wired to the monitor's
// offline event.
func (e *Engine) HandleOffline(ctx context.Context, state domain.LinkState) {
	if _, err := e.run(ctx, state.SuspectedCause, false); err != nil {
		slog.Debug("Reactive recovery skipped", "cause", state.SuspectedCause, "reason", err)
	}
}

// HandleRisk is the proactive entry point, wired to the monitor's
// risk event. The link is still up; the goal is to act before it drops.
func (e *Engine) HandleRisk(ctx context.Context, state domain.LinkState) {
	if _, err := e.run(ctx, state.SuspectedCause, true); err != nil {
		slog.Debug("Proactive recovery skipped", "cause", state.SuspectedCause, "reason", err)
	}
}

// Trigger starts an operator-requested episode. It skips the proactive
// risk threshold but still honors cooldown, max attempts, and the enabled
// toggle.
func (e *Engine) Trigger(ctx context.Context, cause domain.Cause, reason string) (*domain.RecoveryRecord, error) {
	slog.Info("Manual recovery trigger", "cause", cause, "reason", reason)
	return e.run(ctx, cause, false)
}

func (e *Engine) run(ctx context.Context, cause domain.Cause, proactive bool) (*domain.RecoveryRecord, error) {
	if cause == "" {
		cause = domain.CauseUnknown
	}

	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return nil, ErrDisabled
	}
	if proactive && !e.proactiveEnabled {
		e.mu.Unlock()
		return nil, ErrProactiveDisabled
	}
	if e.state != StateIdle {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	if !e.lastEpisodeEnd.IsZero() && time.Since(e.lastEpisodeEnd) < e.cooldown {
		e.mu.Unlock()
		return nil, ErrCoolingDown
	}
	e.state = StateEvaluating
	e.episodeSeq++
	seq := e.episodeSeq
	maxAttempts := e.maxAttempts
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.state = StateIdle
		e.lastEpisodeEnd = time.Now()
		e.mu.Unlock()
	}()

	started := time.Now()
	candidates := e.candidates(ctx, cause)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("recovery: no enabled strategies for cause %q", cause)
	}
	if len(candidates) > maxAttempts {
		candidates = candidates[:maxAttempts]
	}

	e.mu.Lock()
	e.state = StateAttempting
	e.mu.Unlock()

	rec := &domain.RecoveryRecord{
		ID:            uuid.NewString(),
		Timestamp:     started,
		Cause:         cause,
		Proactive:     proactive,
		AttemptNumber: seq,
		Outcome:       domain.RecoveryFailure,
	}

	for _, strat := range candidates {
		action, detail, err := strat.Attempt(ctx)
		attempt := domain.StrategyAttempt{Strategy: strat.Name(), Action: action, Detail: detail}
		if err != nil {
			attempt.Detail = err.Error()
			rec.StrategiesTried = append(rec.StrategiesTried, attempt)
			slog.Warn("Recovery strategy failed to apply",
				"strategy", strat.Name(), "cause", cause, "error", err)
			continue
		}

		state := e.link.CheckNow(ctx)
		attempt.Success = state.Online
		rec.StrategiesTried = append(rec.StrategiesTried, attempt)

		if state.Online {
			rec.Outcome = domain.RecoverySuccess
			slog.Info("Recovery strategy restored connectivity",
				"strategy", strat.Name(), "cause", cause, "action", action, "detail", detail)
			break
		}
		slog.Info("Recovery strategy applied, link still down",
			"strategy", strat.Name(), "cause", cause, "action", action)

		if ctx.Err() != nil {
			break
		}
	}

	rec.Duration = time.Since(started)
	e.tracker.Record(ctx, rec)
	metrics.RecoveryAttempts.WithLabelValues(string(cause), string(rec.Outcome)).Inc()

	return rec, nil
}

// candidates returns the enabled strategies for a cause, ordered by
// historical success rate.
func (e *Engine) candidates(ctx context.Context, cause domain.Cause) []Strategy {
	base, ok := e.strategies[cause]
	if !ok {
		base = e.strategies[domain.CauseUnknown]
	}

	e.mu.Lock()
	enabled := make([]Strategy, 0, len(base))
	for _, s := range base {
		if !e.disabledStrats[s.Name()] {
			enabled = append(enabled, s)
		}
	}
	e.mu.Unlock()

	return e.tracker.Order(ctx, cause, enabled)
}
