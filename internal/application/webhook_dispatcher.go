package application

import (
	"context"
	"time"

	"storefront-sync-layer/internal/domain"
	"storefront-sync-layer/internal/ports"

	"github.com/rs/zerolog"
)

// SyncHandler processes deliveries for one resource type.
type SyncHandler interface {
	CanHandle(resource domain.ResourceType) bool
	Handle(ctx context.Context, delivery *domain.WebhookDelivery) *domain.ProcessingResult
}

// WebhookDispatcher is the single entry point of the sync engine: it
// validates a delivery, de-duplicates it, routes it to the matching handler
// and stamps the outcome.
type WebhookDispatcher struct {
	handlers   []SyncHandler
	deliveries ports.DeliveryDedup
	logger     zerolog.Logger
}

// NewWebhookDispatcher creates a dispatcher with no handlers registered.
func NewWebhookDispatcher(deliveries ports.DeliveryDedup, logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		deliveries: deliveries,
		logger:     logger,
	}
}

// RegisterHandler adds a handler to the dispatch chain.
func (d *WebhookDispatcher) RegisterHandler(handler SyncHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch processes one webhook delivery end to end and never returns nil.
// A duplicate delivery is acknowledged as a skipped success. The delivery is
// remembered only after a non-retryable outcome, so transient failures stay
// eligible for upstream redelivery.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, delivery *domain.WebhookDelivery) *domain.ProcessingResult {
	started := time.Now()
	result := d.dispatch(ctx, delivery)
	result.DeliveryID = delivery.DeliveryID
	result.EventID = delivery.EventID
	result.StartedAt = started
	result.CompletedAt = time.Now()

	if !result.Retryable {
		if err := d.deliveries.Mark(ctx, delivery.DedupKey()); err != nil {
			// A failed mark only risks one redundant sync on redelivery.
			d.logger.Warn().Err(err).Str("deliveryId", delivery.DeliveryID).Msg("Failed to mark delivery as processed")
		}
	}

	event := d.logger.Info()
	if !result.Success {
		// Failure summaries carry the business fields (title, vendor, tags)
		// offline reprocessing needs to replay a corrected payload.
		event = d.logger.Error()
		if len(result.Summary) > 0 {
			event = event.Fields(result.Summary)
		}
	}
	event.
		Str("topic", delivery.Topic()).
		Str("deliveryId", delivery.DeliveryID).
		Str("eventId", delivery.EventID).
		Int64("entityId", result.EntityID).
		Str("action", string(result.Action)).
		Bool("success", result.Success).
		Msg(result.Message)

	return result
}

func (d *WebhookDispatcher) dispatch(ctx context.Context, delivery *domain.WebhookDelivery) *domain.ProcessingResult {
	if delivery.DeliveryID == "" {
		return domain.FailedResult(delivery.ResourceType, 0, domain.NewValidationError(
			delivery.ResourceType, 0, "delivery is missing its delivery ID", nil))
	}

	seen, err := d.deliveries.Seen(ctx, delivery.DedupKey())
	if err != nil {
		// Dedup never blocks correctness; the worst case is redundant work.
		d.logger.Warn().Err(err).Str("deliveryId", delivery.DeliveryID).Msg("Delivery dedup lookup failed")
	}
	if seen {
		result := domain.SkippedResult(delivery.ResourceType, 0, "duplicate delivery, already processed")
		result.ErrorKind = domain.ErrDuplicateDelivery
		return result
	}

	for _, handler := range d.handlers {
		if handler.CanHandle(delivery.ResourceType) {
			return handler.Handle(ctx, delivery)
		}
	}

	return domain.FailedResult(delivery.ResourceType, 0, domain.NewUnknownTopicError(delivery.Topic()))
}
