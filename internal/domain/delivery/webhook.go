package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// WebhookEventStatus
// ---------------------------------------------------------------------------

// WebhookEventStatus is the ingestion state machine for one inbound call.
type WebhookEventStatus string

const (
	// WebhookReceived means the raw bytes are captured verbatim, signature
	// not yet checked.
	WebhookReceived WebhookEventStatus = "received"
	// WebhookValidated means the signature check passed.
	WebhookValidated WebhookEventStatus = "validated"
	// WebhookRejected means the signature was invalid. The caller only sees
	// an opaque authentication failure.
	WebhookRejected WebhookEventStatus = "rejected"
	// WebhookQueued means the event was handed to asynchronous processing.
	WebhookQueued WebhookEventStatus = "queued"
	// WebhookProcessed is the successful terminal state.
	WebhookProcessed WebhookEventStatus = "processed"
	// WebhookDeadLettered means the retry budget is exhausted and operator
	// intervention is required.
	WebhookDeadLettered WebhookEventStatus = "dead_lettered"
)

// IsTerminal returns true for states the event never leaves.
func (s WebhookEventStatus) IsTerminal() bool {
	switch s {
	case WebhookProcessed, WebhookRejected, WebhookDeadLettered:
		return true
	default:
		return false
	}
}

// String returns the string representation of WebhookEventStatus.
func (s WebhookEventStatus) String() string { return string(s) }

// ---------------------------------------------------------------------------
// WebhookEvent Entity
// ---------------------------------------------------------------------------

// WebhookEvent is the durable record of one inbound provider call. It is
// logged before any business effect, which makes the record, not the network
// call, the unit of retry. Append-only: after a terminal status only the
// retry counter may change.
type WebhookEvent struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Provider ProviderCode
	// Payload holds the raw request body exactly as received.
	Payload []byte
	// Signature is the value of the provider's signature header.
	Signature string
	Status    WebhookEventStatus
	// RejectReason is recorded on rejection; never returned to the provider.
	RejectReason string
	// ExternalOrderID is filled in once the payload has been parsed.
	ExternalOrderID string
	RetryCount      int
	ReceivedAt      time.Time
	UpdatedAt       time.Time
}

// NewWebhookEvent captures an inbound call in its initial state.
func NewWebhookEvent(tenantID uuid.UUID, provider ProviderCode, payload []byte, signature string) (*WebhookEvent, error) {
	if !provider.IsValid() {
		return nil, ErrInvalidProviderCode
	}
	now := time.Now()
	return &WebhookEvent{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Provider:   provider,
		Payload:    payload,
		Signature:  signature,
		Status:     WebhookReceived,
		ReceivedAt: now,
		UpdatedAt:  now,
	}, nil
}

// MarkValidated records a passed signature check.
func (e *WebhookEvent) MarkValidated() {
	e.Status = WebhookValidated
	e.UpdatedAt = time.Now()
}

// MarkRejected records a failed signature check with the internal reason.
func (e *WebhookEvent) MarkRejected(reason string) {
	e.Status = WebhookRejected
	e.RejectReason = reason
	e.UpdatedAt = time.Now()
}

// MarkQueued records the hand-off to asynchronous processing.
func (e *WebhookEvent) MarkQueued() {
	e.Status = WebhookQueued
	e.UpdatedAt = time.Now()
}

// MarkProcessed records successful business processing.
func (e *WebhookEvent) MarkProcessed(externalOrderID string) {
	e.Status = WebhookProcessed
	e.ExternalOrderID = externalOrderID
	e.UpdatedAt = time.Now()
}

// MarkDeadLettered parks the event after the retry budget ran out.
func (e *WebhookEvent) MarkDeadLettered(reason string) {
	e.Status = WebhookDeadLettered
	e.RejectReason = reason
	e.UpdatedAt = time.Now()
}

// RecordRetry bumps the retry counter.
func (e *WebhookEvent) RecordRetry() {
	e.RetryCount++
	e.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// WebhookEventRepository
// ---------------------------------------------------------------------------

// WebhookEventRepository persists webhook events.
type WebhookEventRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*WebhookEvent, error)

	// FindByExternalOrder returns all events referencing an external order,
	// oldest first. This is the audit trail for one order.
	FindByExternalOrder(ctx context.Context, tenantID uuid.UUID, provider ProviderCode, externalOrderID string) ([]WebhookEvent, error)

	// FindByStatus lists events in a given status, oldest first.
	FindByStatus(ctx context.Context, status WebhookEventStatus, limit int) ([]WebhookEvent, error)

	Save(ctx context.Context, event *WebhookEvent) error
}

// ---------------------------------------------------------------------------
// WebhookQueue port
// ---------------------------------------------------------------------------

// QueuedEvent is the queue envelope for one validated webhook event.
type QueuedEvent struct {
	EventID  uuid.UUID    `json:"event_id"`
	TenantID uuid.UUID    `json:"tenant_id"`
	Provider ProviderCode `json:"provider"`
	// PartitionKey orders events: everything with the same key is consumed
	// in enqueue order. The ingestion pipeline keys by external order id
	// when it is cheaply extractable, falling back to the provider code.
	PartitionKey string `json:"partition_key"`
	// Receipt identifies the in-flight delivery for Ack. Set by the queue
	// on Dequeue; opaque to consumers.
	Receipt string `json:"-"`
}

// WebhookQueue decouples webhook acknowledgment from business processing.
// Delivery is at-least-once; consumers are idempotent.
type WebhookQueue interface {
	// Enqueue appends an event to the queue.
	Enqueue(ctx context.Context, evt QueuedEvent) error

	// Dequeue blocks up to the given duration for the next batch of events.
	// Events sharing a partition key are returned in enqueue order.
	Dequeue(ctx context.Context, max int, block time.Duration) ([]QueuedEvent, error)

	// Ack confirms an event so it is not redelivered.
	Ack(ctx context.Context, evt QueuedEvent) error
}
