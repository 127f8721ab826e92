package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies sync failures by how the transport layer should react.
type ErrorKind string

const (
	// ErrDuplicateDelivery: the delivery was recently processed. Success, no-op.
	ErrDuplicateDelivery ErrorKind = "duplicate_delivery"
	// ErrValidation: a required business field is missing. Permanent; retrying
	// the same payload would fail identically forever.
	ErrValidation ErrorKind = "validation"
	// ErrNotFound: a referenced entity is absent from the content store.
	ErrNotFound ErrorKind = "not_found"
	// ErrTransientUpstream: a network or API error talking to the commerce
	// platform or content store. Redelivery is expected to help.
	ErrTransientUpstream ErrorKind = "transient_upstream"
	// ErrUnknownTopic: unsupported resource/event combination. Permanent.
	ErrUnknownTopic ErrorKind = "unknown_topic"
)

// SyncError is a classified sync failure carrying enough structured context
// for offline reprocessing tooling to replay a corrected payload.
type SyncError struct {
	Kind     ErrorKind
	Resource ResourceType
	EntityID int64
	Detail   string
	Context  map[string]string
	Err      error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	if e.EntityID != 0 {
		msg = fmt.Sprintf("%s (%s %d)", msg, e.Resource, e.EntityID)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error { return e.Err }

// Retryable reports whether the transport layer's at-least-once redelivery
// can be expected to change the outcome.
func (e *SyncError) Retryable() bool {
	return e.Kind == ErrTransientUpstream
}

// NewValidationError builds a permanent missing-business-field failure.
func NewValidationError(resource ResourceType, entityID int64, detail string, context map[string]string) *SyncError {
	return &SyncError{
		Kind:     ErrValidation,
		Resource: resource,
		EntityID: entityID,
		Detail:   detail,
		Context:  context,
	}
}

// NewTransientError wraps an upstream or content-store I/O failure.
func NewTransientError(resource ResourceType, entityID int64, detail string, err error) *SyncError {
	return &SyncError{
		Kind:     ErrTransientUpstream,
		Resource: resource,
		EntityID: entityID,
		Detail:   detail,
		Err:      err,
	}
}

// NewUnknownTopicError marks an unsupported resource/event combination.
func NewUnknownTopicError(topic string) *SyncError {
	return &SyncError{
		Kind:   ErrUnknownTopic,
		Detail: fmt.Sprintf("no handler for topic %q", topic),
	}
}

// KindOf extracts the error kind, defaulting to transient for unclassified
// errors so the transport retries rather than silently dropping them.
func KindOf(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrTransientUpstream
}

// IsValidation reports whether err is a permanent validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == ErrValidation
}

// IsRetryable reports whether redelivery may change the outcome.
func IsRetryable(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return err != nil
}
