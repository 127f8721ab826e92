package ports

import (
	"context"
	"time"

	"storefront-sync-layer/internal/domain"
)

// ImageStore is the opaque image-processing collaborator: it turns raw
// upstream images into content-store asset references.
type ImageStore interface {
	ProcessImages(ctx context.Context, images []domain.ImagePayload) (*domain.ProcessedImages, error)
}

// DeliveryDedup remembers exact webhook deliveries so redelivery of an
// identical event is acknowledged without re-processing. The dispatcher marks
// a delivery only after a non-retryable outcome, so transient failures stay
// eligible for redelivery.
type DeliveryDedup interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// DedupCache rate-limits entity-level syncs. Losing a check-then-act race
// only causes a harmless duplicate sync, so implementations need no
// exclusive lock across the check and the mark.
type DedupCache interface {
	Seen(key string) bool
	Mark(key string)
	WasRecentlyProcessed(entityKey string, window time.Duration) bool
	MarkProcessed(entityKey string)
}
