package application

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"storefront-sync-layer/internal/domain"
	"storefront-sync-layer/internal/infrastructure/dedup"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	resource domain.ResourceType
	result   *domain.ProcessingResult
	calls    int
}

func (h *stubHandler) CanHandle(resource domain.ResourceType) bool {
	return resource == h.resource
}

func (h *stubHandler) Handle(_ context.Context, delivery *domain.WebhookDelivery) *domain.ProcessingResult {
	h.calls++
	return h.result
}

func newDispatcher(handlers ...SyncHandler) *WebhookDispatcher {
	d := NewWebhookDispatcher(dedup.LocalDeliveryDedup{Cache: dedup.NewCache(100)}, zerolog.Nop())
	for _, h := range handlers {
		d.RegisterHandler(h)
	}
	return d
}

func delivery(deliveryID string) *domain.WebhookDelivery {
	return &domain.WebhookDelivery{
		ResourceType: domain.ResourceProduct,
		EventType:    domain.EventUpdate,
		DeliveryID:   deliveryID,
		EventID:      "evt-1",
		Payload:      json.RawMessage(`{"id": 1}`),
		ReceivedAt:   time.Now(),
	}
}

func TestDispatchRoutesToMatchingHandler(t *testing.T) {
	product := &stubHandler{
		resource: domain.ResourceProduct,
		result:   domain.SucceededResult(domain.ResourceProduct, 1, domain.ActionUpdated, "ok"),
	}
	collection := &stubHandler{
		resource: domain.ResourceCollection,
		result:   domain.SucceededResult(domain.ResourceCollection, 1, domain.ActionUpdated, "ok"),
	}
	d := newDispatcher(product, collection)

	result := d.Dispatch(context.Background(), delivery("dlv-1"))

	require.True(t, result.Success)
	assert.Equal(t, 1, product.calls)
	assert.Zero(t, collection.calls)
	assert.Equal(t, "dlv-1", result.DeliveryID)
	assert.False(t, result.CompletedAt.Before(result.StartedAt))
}

func TestDispatchDuplicateDeliveryIsSkippedSuccess(t *testing.T) {
	h := &stubHandler{
		resource: domain.ResourceProduct,
		result:   domain.SucceededResult(domain.ResourceProduct, 1, domain.ActionUpdated, "ok"),
	}
	d := newDispatcher(h)

	first := d.Dispatch(context.Background(), delivery("dlv-1"))
	require.True(t, first.Success)

	second := d.Dispatch(context.Background(), delivery("dlv-1"))
	require.True(t, second.Success)
	assert.Equal(t, domain.ActionSkipped, second.Action)
	assert.Equal(t, domain.ErrDuplicateDelivery, second.ErrorKind)
	assert.Equal(t, 1, h.calls)
}

func TestDispatchDistinctEventIDsAreNotDuplicates(t *testing.T) {
	h := &stubHandler{
		resource: domain.ResourceProduct,
		result:   domain.SucceededResult(domain.ResourceProduct, 1, domain.ActionUpdated, "ok"),
	}
	d := newDispatcher(h)

	first := delivery("dlv-1")
	second := delivery("dlv-1")
	second.EventID = "evt-2"

	d.Dispatch(context.Background(), first)
	d.Dispatch(context.Background(), second)

	assert.Equal(t, 2, h.calls)
}

func TestDispatchRetryableFailureStaysEligibleForRedelivery(t *testing.T) {
	h := &stubHandler{
		resource: domain.ResourceProduct,
		result: domain.FailedResult(domain.ResourceProduct, 1,
			domain.NewTransientError(domain.ResourceProduct, 1, "upstream down", assert.AnError)),
	}
	d := newDispatcher(h)

	first := d.Dispatch(context.Background(), delivery("dlv-1"))
	require.False(t, first.Success)
	assert.True(t, first.Retryable)

	// The redelivered event must reach the handler again.
	second := d.Dispatch(context.Background(), delivery("dlv-1"))
	require.False(t, second.Success)
	assert.Equal(t, 2, h.calls)
}

func TestDispatchPermanentFailureIsNotRetried(t *testing.T) {
	h := &stubHandler{
		resource: domain.ResourceProduct,
		result: domain.FailedResult(domain.ResourceProduct, 1,
			domain.NewValidationError(domain.ResourceProduct, 1, "no vendor", nil)),
	}
	d := newDispatcher(h)

	first := d.Dispatch(context.Background(), delivery("dlv-1"))
	require.False(t, first.Success)
	assert.False(t, first.Retryable)

	second := d.Dispatch(context.Background(), delivery("dlv-1"))
	assert.Equal(t, domain.ActionSkipped, second.Action)
	assert.Equal(t, 1, h.calls)
}

func TestDispatchLogsFailureBusinessContext(t *testing.T) {
	h := &stubHandler{
		resource: domain.ResourceProduct,
		result: domain.FailedResult(domain.ResourceProduct, 556,
			domain.NewValidationError(domain.ResourceProduct, 556, "product has no vendor", map[string]string{
				"title":       "Mystery Shirt",
				"productType": "Shirts",
				"tags":        "sale",
			})),
	}

	var buf bytes.Buffer
	d := NewWebhookDispatcher(dedup.LocalDeliveryDedup{Cache: dedup.NewCache(100)}, zerolog.New(&buf))
	d.RegisterHandler(h)

	result := d.Dispatch(context.Background(), delivery("dlv-1"))

	require.False(t, result.Success)
	assert.Equal(t, "Mystery Shirt", result.Summary["title"])

	logged := buf.String()
	assert.Contains(t, logged, `"title":"Mystery Shirt"`)
	assert.Contains(t, logged, `"productType":"Shirts"`)
	assert.Contains(t, logged, `"tags":"sale"`)
}

func TestDispatchUnknownResourceFailsPermanently(t *testing.T) {
	d := newDispatcher()

	result := d.Dispatch(context.Background(), delivery("dlv-1"))

	require.False(t, result.Success)
	assert.Equal(t, domain.ErrUnknownTopic, result.ErrorKind)
	assert.False(t, result.Retryable)
}

func TestDispatchMissingDeliveryIDFailsValidation(t *testing.T) {
	h := &stubHandler{resource: domain.ResourceProduct}
	d := newDispatcher(h)

	result := d.Dispatch(context.Background(), delivery(""))

	require.False(t, result.Success)
	assert.Equal(t, domain.ErrValidation, result.ErrorKind)
	assert.Zero(t, h.calls)
}
