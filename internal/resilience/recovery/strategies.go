package recovery

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/cloud"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/syncqueue"
)

// Strategy is a single remediation the engine can run against a suspected
// failure cause. Attempt returns what it did for the episode record; a nil
// error means the action was applied, not that connectivity is back.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context) (action, detail string, err error)
}

// ResolverSwitch rotates to the next configured DNS resolver. Rebuilding
// transports disrupts in-flight pushes, so it runs under the drain gate.
type ResolverSwitch struct {
	netctl *cloud.NetworkController
	gate   *syncqueue.Gate
}

func NewResolverSwitch(netctl *cloud.NetworkController, gate *syncqueue.Gate) *ResolverSwitch {
	return &ResolverSwitch{netctl: netctl, gate: gate}
}

func (s *ResolverSwitch) Name() string { return "switch-resolver" }

func (s *ResolverSwitch) Attempt(_ context.Context) (string, string, error) {
	var addr string
	var err error
	s.gate.Exclusive(func() {
		addr, err = s.netctl.RotateResolver()
	})
	if err != nil {
		return "", "", err
	}
	if addr == "" {
		addr = "system-default"
	}
	return "switched-resolver", addr, nil
}

// InterfaceSwitch rotates the local source address, moving traffic to an
// alternate uplink. Also disruptive, also gated.
type InterfaceSwitch struct {
	netctl *cloud.NetworkController
	gate   *syncqueue.Gate
}

func NewInterfaceSwitch(netctl *cloud.NetworkController, gate *syncqueue.Gate) *InterfaceSwitch {
	return &InterfaceSwitch{netctl: netctl, gate: gate}
}

func (s *InterfaceSwitch) Name() string { return "switch-interface" }

func (s *InterfaceSwitch) Attempt(_ context.Context) (string, string, error) {
	var addr string
	var err error
	s.gate.Exclusive(func() {
		addr, err = s.netctl.RotateInterface()
	})
	if err != nil {
		return "", "", err
	}
	if addr == "" {
		addr = "default-route"
	}
	return "switched-interface", addr, nil
}

// ThrottleSync halves the reconciler's drain batch size to back off a
// congested or bandwidth-limited link.
type ThrottleSync struct {
	reconciler *syncqueue.Reconciler
}

func NewThrottleSync(reconciler *syncqueue.Reconciler) *ThrottleSync {
	return &ThrottleSync{reconciler: reconciler}
}

func (s *ThrottleSync) Name() string { return "throttle-sync" }

func (s *ThrottleSync) Attempt(_ context.Context) (string, string, error) {
	size := s.reconciler.Throttle()
	return "throttled-sync", fmt.Sprintf("batch_size=%d", size), nil
}

// WaitReprobe sleeps out a transient disturbance before the engine's
// verification re-probe. The delay is jittered so a fleet of nodes does not
// hammer the central service in lockstep.
type WaitReprobe struct {
	base time.Duration
}

func NewWaitReprobe(base time.Duration) *WaitReprobe {
	if base <= 0 {
		base = 5 * time.Second
	}
	return &WaitReprobe{base: base}
}

func (s *WaitReprobe) Name() string { return "wait-reprobe" }

func (s *WaitReprobe) Attempt(ctx context.Context) (string, string, error) {
	delay := s.base + time.Duration(rand.Int63n(int64(s.base)))
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
	return "waited", delay.Round(time.Millisecond).String(), nil
}

// OutagePredictor gives the expected end of a recognized recurring outage.
type OutagePredictor interface {
	OutagePrediction(now time.Time) (time.Time, bool)
}

// DeferSync parks non-critical queue traffic until a predicted outage end
// instead of burning retry attempts against a link that is known to be down.
type DeferSync struct {
	reconciler *syncqueue.Reconciler
	predictor  OutagePredictor
	fallback   time.Duration
}

func NewDeferSync(reconciler *syncqueue.Reconciler, predictor OutagePredictor) *DeferSync {
	return &DeferSync{reconciler: reconciler, predictor: predictor, fallback: 30 * time.Minute}
}

func (s *DeferSync) Name() string { return "defer-noncritical" }

func (s *DeferSync) Attempt(_ context.Context) (string, string, error) {
	now := time.Now()
	until, ok := s.predictor.OutagePrediction(now)
	if !ok {
		until = now.Add(s.fallback)
	}
	s.reconciler.DeferNonCritical(until)
	return "deferred-noncritical", until.UTC().Format(time.RFC3339), nil
}

// StrategySet maps each failure cause to its candidate strategies in
// configured order. The engine reorders them by historical success rate.
type StrategySet map[domain.Cause][]Strategy

// BuildStrategySet wires the default cause-to-strategy table.
func BuildStrategySet(netctl *cloud.NetworkController, reconciler *syncqueue.Reconciler, gate *syncqueue.Gate, predictor OutagePredictor) StrategySet {
	resolver := NewResolverSwitch(netctl, gate)
	iface := NewInterfaceSwitch(netctl, gate)
	throttle := NewThrottleSync(reconciler)
	wait := NewWaitReprobe(5 * time.Second)
	deferNC := NewDeferSync(reconciler, predictor)

	return StrategySet{
		domain.CauseDNS:             {resolver, wait},
		domain.CauseWeakSignal:      {iface, throttle, wait},
		domain.CauseCongestion:      {throttle, wait},
		domain.CauseBandwidthLimit:  {throttle, deferNC},
		domain.CauseInterference:    {wait, iface},
		domain.CauseIntermittent:    {wait, throttle},
		domain.CauseScheduledOutage: {deferNC},
		domain.CauseUnknown:         {wait, resolver, iface},
	}
}
