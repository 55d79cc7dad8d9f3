package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/cache"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/metrics"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/syncqueue"
)

// syncPayload is the queue item body pushed to the central service for a
// freshly inferred result.
type syncPayload struct {
	Fingerprint string                    `json:"fingerprint"`
	Request     domain.TranslationRequest `json:"request"`
	Result      domain.Result             `json:"result"`
}

// Translator serves translation requests cache-first: a hit returns the
// cached result, a miss runs inference exactly once per fingerprint and
// queues the fresh result for sync. Inference failures go straight back to
// the caller; nothing is cached or queued for them.
type Translator struct {
	cache    *cache.Cache
	queue    *syncqueue.Queue
	infer    InferFunc
	textTTL  time.Duration
	audioTTL time.Duration
}

func NewTranslator(c *cache.Cache, q *syncqueue.Queue, infer InferFunc, textTTL, audioTTL time.Duration) *Translator {
	return &Translator{cache: c, queue: q, infer: infer, textTTL: textTTL, audioTTL: audioTTL}
}

// Translate handles a text translation request.
func (t *Translator) Translate(ctx context.Context, req domain.TranslationRequest, priority domain.Priority) (domain.Result, error) {
	return t.translate(ctx, req, priority, domain.KindTextResult, t.textTTL)
}

// TranslateAudio handles a transcribed-audio request. Audio results age
// faster, so they carry a shorter TTL and their own queue kind.
func (t *Translator) TranslateAudio(ctx context.Context, req domain.TranslationRequest, priority domain.Priority) (domain.Result, error) {
	return t.translate(ctx, req, priority, domain.KindAudioResult, t.audioTTL)
}

func (t *Translator) translate(ctx context.Context, req domain.TranslationRequest, priority domain.Priority, kind domain.ItemKind, ttl time.Duration) (domain.Result, error) {
	req = req.Normalized()
	if err := validateRequest(req); err != nil {
		return domain.Result{}, err
	}
	if priority == "" {
		priority = domain.PriorityMedium
	}

	fp := cache.Fingerprint(req)
	result, fresh, err := t.cache.GetOrCompute(ctx, fp, ttl, func(ctx context.Context) (domain.Result, error) {
		return t.infer(ctx, req)
	})
	if err != nil {
		return domain.Result{}, fmt.Errorf("inference failed: %w", err)
	}

	metrics.TranslationsTotal.WithLabelValues(string(result.Source)).Inc()

	if fresh {
		payload, err := json.Marshal(syncPayload{Fingerprint: fp, Request: req, Result: result})
		if err != nil {
			return result, nil
		}
		if _, err := t.queue.Enqueue(ctx, kind, priority, payload); err != nil {
			// The caller already has their translation; losing the sync
			// copy is a warning, not a request failure.
			slog.Warn("Failed to queue result for sync", "fingerprint", fp, "error", err)
		}
	}
	return result, nil
}

func validateRequest(req domain.TranslationRequest) error {
	if req.Text == "" {
		return fmt.Errorf("text is required")
	}
	if req.SourceLang == "" || req.TargetLang == "" {
		return fmt.Errorf("sourceLanguage and targetLanguage are required")
	}
	return nil
}
