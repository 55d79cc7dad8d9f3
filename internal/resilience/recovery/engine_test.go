package recovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/storage/memory"
)

// =============================================================================
// Mocks
// =============================================================================

type fakeLink struct {
	mu sync.Mutex
	// onlineAfter is the number of CheckNow calls before the link reports
	// online. 0 means online immediately; -1 means never.
	onlineAfter int
	calls       int
}

func (l *fakeLink) CheckNow(ctx context.Context) domain.LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.onlineAfter >= 0 && l.calls > l.onlineAfter {
		return domain.LinkState{Online: true}
	}
	return domain.LinkState{Online: false, SuspectedCause: domain.CauseDNS}
}

type fakeStrategy struct {
	name string
	err  error
	log  *[]string
}

func (s *fakeStrategy) Name() string { return s.name }

func (s *fakeStrategy) Attempt(ctx context.Context) (string, string, error) {
	*s.log = append(*s.log, s.name)
	if s.err != nil {
		return "", "", s.err
	}
	return "applied", "", nil
}

func newTestEngine(cfg Config, link LinkChecker, strategies StrategySet) (*Engine, *memory.HistoryRepo) {
	repo := memory.NewHistoryRepo(memory.NewMemoryStorage())
	eng := NewEngine(cfg, link, NewTracker(repo), strategies)
	return eng, repo
}

func enabledConfig() Config {
	return Config{Enabled: true, ProactiveEnabled: true, MaxAttempts: 3, Cooldown: time.Hour}
}

// =============================================================================
// Tests
// =============================================================================

func TestEngine_StopsAtFirstVerifiedSuccess(t *testing.T) {
	var log []string
	strategies := StrategySet{
		domain.CauseDNS: {
			&fakeStrategy{name: "first", log: &log},
			&fakeStrategy{name: "second", log: &log},
		},
	}
	eng, repo := newTestEngine(enabledConfig(), &fakeLink{onlineAfter: 0}, strategies)

	rec, err := eng.Trigger(context.Background(), domain.CauseDNS, "test")
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if rec.Outcome != domain.RecoverySuccess {
		t.Errorf("expected success, got %s", rec.Outcome)
	}
	if len(log) != 1 || log[0] != "first" {
		t.Errorf("expected only the first strategy to run, got %v", log)
	}
	if len(rec.StrategiesTried) != 1 || !rec.StrategiesTried[0].Success {
		t.Errorf("unexpected strategies tried: %+v", rec.StrategiesTried)
	}

	history, _ := repo.Recent(context.Background(), domain.CauseDNS, 10)
	if len(history) != 1 {
		t.Errorf("expected 1 persisted record, got %d", len(history))
	}
}

func TestEngine_ExhaustsStrategiesOnFailure(t *testing.T) {
	var log []string
	strategies := StrategySet{
		domain.CauseDNS: {
			&fakeStrategy{name: "a", log: &log},
			&fakeStrategy{name: "b", log: &log},
		},
	}
	eng, _ := newTestEngine(enabledConfig(), &fakeLink{onlineAfter: -1}, strategies)

	rec, err := eng.Trigger(context.Background(), domain.CauseDNS, "test")
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if rec.Outcome != domain.RecoveryFailure {
		t.Errorf("expected failure after exhausting strategies, got %s", rec.Outcome)
	}
	if len(log) != 2 {
		t.Errorf("expected both strategies tried, got %v", log)
	}
}

func TestEngine_CooldownBlocksNextEpisode(t *testing.T) {
	var log []string
	strategies := StrategySet{
		domain.CauseDNS: {&fakeStrategy{name: "a", log: &log}},
	}
	eng, _ := newTestEngine(enabledConfig(), &fakeLink{onlineAfter: 0}, strategies)
	ctx := context.Background()

	if _, err := eng.Trigger(ctx, domain.CauseDNS, "first"); err != nil {
		t.Fatalf("first episode failed: %v", err)
	}

	// Manual triggers honor cooldown too.
	if _, err := eng.Trigger(ctx, domain.CauseDNS, "second"); !errors.Is(err, ErrCoolingDown) {
		t.Errorf("expected ErrCoolingDown, got %v", err)
	}
	if got := eng.State(); got != StateCooldown {
		t.Errorf("expected cooldown state, got %s", got)
	}
}

func TestEngine_MaxAttemptsCapsCandidates(t *testing.T) {
	var log []string
	strategies := StrategySet{
		domain.CauseDNS: {
			&fakeStrategy{name: "a", log: &log},
			&fakeStrategy{name: "b", log: &log},
			&fakeStrategy{name: "c", log: &log},
		},
	}
	cfg := enabledConfig()
	cfg.MaxAttempts = 2
	eng, _ := newTestEngine(cfg, &fakeLink{onlineAfter: -1}, strategies)

	rec, err := eng.Trigger(context.Background(), domain.CauseDNS, "test")
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if len(rec.StrategiesTried) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(rec.StrategiesTried))
	}
}

func TestEngine_AdaptiveOrdering(t *testing.T) {
	repo := memory.NewHistoryRepo(memory.NewMemoryStorage())
	tracker := NewTracker(repo)
	ctx := context.Background()

	// History: "b" worked for dns, "a" did not.
	repo.Append(ctx, &domain.RecoveryRecord{
		ID: "r1", Cause: domain.CauseDNS, Outcome: domain.RecoverySuccess,
		StrategiesTried: []domain.StrategyAttempt{
			{Strategy: "a", Success: false},
			{Strategy: "b", Success: true},
		},
	})

	var log []string
	strategies := StrategySet{
		domain.CauseDNS: {
			&fakeStrategy{name: "a", log: &log},
			&fakeStrategy{name: "b", log: &log},
		},
	}
	eng := NewEngine(enabledConfig(), &fakeLink{onlineAfter: -1}, tracker, strategies)

	if _, err := eng.Trigger(ctx, domain.CauseDNS, "test"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if len(log) != 2 || log[0] != "b" {
		t.Errorf("expected b tried first on its success history, got %v", log)
	}
}

func TestEngine_ConfigureDisablesStrategy(t *testing.T) {
	var log []string
	strategies := StrategySet{
		domain.CauseDNS: {
			&fakeStrategy{name: "a", log: &log},
			&fakeStrategy{name: "b", log: &log},
		},
	}
	eng, _ := newTestEngine(enabledConfig(), &fakeLink{onlineAfter: -1}, strategies)

	eng.Configure(Options{Strategies: map[string]bool{"a": false}})

	if _, err := eng.Trigger(context.Background(), domain.CauseDNS, "test"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if len(log) != 1 || log[0] != "b" {
		t.Errorf("disabled strategy must be skipped, got %v", log)
	}
}

func TestEngine_DisabledRejectsAllTriggers(t *testing.T) {
	cfg := enabledConfig()
	cfg.Enabled = false
	eng, _ := newTestEngine(cfg, &fakeLink{onlineAfter: 0}, StrategySet{})

	if _, err := eng.Trigger(context.Background(), domain.CauseDNS, "test"); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestEngine_ProactiveRespectsToggle(t *testing.T) {
	var log []string
	strategies := StrategySet{
		domain.CauseDNS: {&fakeStrategy{name: "a", log: &log}},
	}
	cfg := enabledConfig()
	cfg.ProactiveEnabled = false
	eng, repo := newTestEngine(cfg, &fakeLink{onlineAfter: 0}, strategies)

	eng.HandleRisk(context.Background(), domain.LinkState{SuspectedCause: domain.CauseDNS})

	if len(log) != 0 {
		t.Errorf("proactive episode must be skipped when disabled, got %v", log)
	}
	history, _ := repo.Recent(context.Background(), domain.CauseDNS, 10)
	if len(history) != 0 {
		t.Errorf("no record expected, got %d", len(history))
	}
}

func TestEngine_StrategyErrorContinuesToNext(t *testing.T) {
	var log []string
	strategies := StrategySet{
		domain.CauseDNS: {
			&fakeStrategy{name: "broken", err: errors.New("no alternate resolvers configured"), log: &log},
			&fakeStrategy{name: "working", log: &log},
		},
	}
	eng, _ := newTestEngine(enabledConfig(), &fakeLink{onlineAfter: 0}, strategies)

	rec, err := eng.Trigger(context.Background(), domain.CauseDNS, "test")
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if rec.Outcome != domain.RecoverySuccess {
		t.Errorf("expected success via the second strategy, got %s", rec.Outcome)
	}
	if len(rec.StrategiesTried) != 2 {
		t.Fatalf("expected both attempts recorded, got %d", len(rec.StrategiesTried))
	}
	if rec.StrategiesTried[0].Success {
		t.Error("failed-to-apply strategy must not be marked successful")
	}
}

func TestEngine_UnknownCauseFallsBack(t *testing.T) {
	var log []string
	strategies := StrategySet{
		domain.CauseUnknown: {&fakeStrategy{name: "generic", log: &log}},
	}
	eng, _ := newTestEngine(enabledConfig(), &fakeLink{onlineAfter: 0}, strategies)

	// A cause with no dedicated strategies uses the unknown set.
	if _, err := eng.Trigger(context.Background(), domain.CauseCongestion, "test"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if len(log) != 1 || log[0] != "generic" {
		t.Errorf("expected fallback to the unknown strategy set, got %v", log)
	}
}
