package recovery

import (
	"context"
	"log/slog"
	"sort"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/storage"
)

// historyWindow is how many recent episodes per cause feed the adaptive
// strategy ordering.
const historyWindow = 50

// neutralRate is assumed for strategies with no history yet, so an untried
// strategy outranks one that keeps failing but not one that works.
const neutralRate = 0.5

// Tracker wraps the recovery history repository: it appends episode records
// and derives per-strategy success rates used to reorder candidates.
type Tracker struct {
	repo storage.RecoveryHistoryRepository
}

func NewTracker(repo storage.RecoveryHistoryRepository) *Tracker {
	return &Tracker{repo: repo}
}

// Record appends an episode record. History failures are logged, not
// surfaced; losing adaptivity is not worth failing a recovery episode.
func (t *Tracker) Record(ctx context.Context, rec *domain.RecoveryRecord) {
	if err := t.repo.Append(ctx, rec); err != nil {
		slog.Warn("Failed to persist recovery record", "error", err)
	}
}

// SuccessRates computes per-strategy success rates for a cause over the
// recent history window.
func (t *Tracker) SuccessRates(ctx context.Context, cause domain.Cause) map[string]float64 {
	records, err := t.repo.Recent(ctx, cause, historyWindow)
	if err != nil {
		slog.Warn("Failed to load recovery history", "cause", cause, "error", err)
		return nil
	}

	attempts := make(map[string]int)
	successes := make(map[string]int)
	for _, rec := range records {
		for _, s := range rec.StrategiesTried {
			attempts[s.Strategy]++
			if s.Success {
				successes[s.Strategy]++
			}
		}
	}

	rates := make(map[string]float64, len(attempts))
	for name, n := range attempts {
		rates[name] = float64(successes[name]) / float64(n)
	}
	return rates
}

// Order sorts candidates by historical success rate for the cause,
// highest first. Untried strategies get a neutral rate; ties keep the
// configured order (stable sort).
func (t *Tracker) Order(ctx context.Context, cause domain.Cause, candidates []Strategy) []Strategy {
	rates := t.SuccessRates(ctx, cause)

	out := append([]Strategy{}, candidates...)
	rate := func(s Strategy) float64 {
		if r, ok := rates[s.Name()]; ok {
			return r
		}
		return neutralRate
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rate(out[i]) > rate(out[j])
	})
	return out
}
