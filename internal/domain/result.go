package domain

import (
	"errors"
	"time"
)

// SyncAction describes what a handler did with a delivery.
type SyncAction string

const (
	ActionCreated SyncAction = "created"
	ActionUpdated SyncAction = "updated"
	ActionDeleted SyncAction = "deleted"
	ActionSkipped SyncAction = "skipped"
	ActionFailed  SyncAction = "failed"
)

// ProcessingResult is the single contract the transport layer consumes: the
// outcome of dispatching one webhook delivery.
type ProcessingResult struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	ResourceType ResourceType   `json:"resourceType,omitempty"`
	EntityID     int64          `json:"entityId,omitempty"`
	Action       SyncAction     `json:"action"`
	ErrorKind    ErrorKind      `json:"errorKind,omitempty"`
	Retryable    bool           `json:"retryable"`
	DeliveryID   string         `json:"deliveryId,omitempty"`
	EventID      string         `json:"eventId,omitempty"`
	StartedAt    time.Time      `json:"startedAt"`
	CompletedAt  time.Time      `json:"completedAt"`
	Summary      map[string]any `json:"summary,omitempty"`
}

// SucceededResult builds a successful outcome for an entity.
func SucceededResult(resource ResourceType, entityID int64, action SyncAction, message string) *ProcessingResult {
	return &ProcessingResult{
		Success:      true,
		Message:      message,
		ResourceType: resource,
		EntityID:     entityID,
		Action:       action,
	}
}

// SkippedResult builds the success outcome for a de-duplicated delivery or a
// rate-limited entity. Skipping is a success, not a retry-later signal.
func SkippedResult(resource ResourceType, entityID int64, message string) *ProcessingResult {
	return &ProcessingResult{
		Success:      true,
		Message:      message,
		ResourceType: resource,
		EntityID:     entityID,
		Action:       ActionSkipped,
	}
}

// FailedResult builds the outcome for a failed sync, classifying it via the
// error taxonomy so the transport knows whether to trigger redelivery. The
// error's structured context is folded into Summary so offline reprocessing
// tooling sees the business fields behind the failure, not just IDs.
func FailedResult(resource ResourceType, entityID int64, err error) *ProcessingResult {
	result := &ProcessingResult{
		Success:      false,
		Message:      err.Error(),
		ResourceType: resource,
		EntityID:     entityID,
		Action:       ActionFailed,
		ErrorKind:    KindOf(err),
		Retryable:    IsRetryable(err),
	}

	var se *SyncError
	if errors.As(err, &se) && len(se.Context) > 0 {
		result.Summary = make(map[string]any, len(se.Context))
		for k, v := range se.Context {
			result.Summary[k] = v
		}
	}
	return result
}

// SummaryBool reads a boolean summary flag, false when absent.
func (r *ProcessingResult) SummaryBool(key string) bool {
	v, _ := r.Summary[key].(bool)
	return v
}

// SummaryInt reads a numeric summary value, tolerating the integer widths a
// JSON round trip produces. Zero when absent or non-numeric.
func (r *ProcessingResult) SummaryInt(key string) int {
	switch v := r.Summary[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
