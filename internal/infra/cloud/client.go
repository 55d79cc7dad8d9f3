package cloud

import (
	"context"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

// CanonicalValue is an authoritative cache entry the central service returns
// alongside an ack when its result for the same fingerprint supersedes ours.
type CanonicalValue struct {
	Fingerprint string        `json:"fingerprint"`
	Value       domain.Result `json:"value"`
}

// Ack is the central service's response to a delivered queue item.
// Delivery of an already-seen id is acknowledged as a duplicate no-op.
type Ack struct {
	ID           string          `json:"id"`
	Duplicate    bool            `json:"duplicate"`
	Canonical    *CanonicalValue `json:"canonical,omitempty"`
	ModelVersion string          `json:"modelVersion,omitempty"`
}

// Client pushes queue items to the central service. The concrete transport
// is an external collaborator; this is the seam the reconciler drains
// through.
type Client interface {
	Push(ctx context.Context, item *domain.QueueItem) (*Ack, error)
}
