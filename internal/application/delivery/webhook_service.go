package delivery

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/metrics"
	"github.com/google/uuid"
)

// signatureHeaders names the header each provider signs its payloads with.
// The raw header value is persisted on the event for audit.
var signatureHeaders = map[delivery.ProviderCode]string{
	delivery.ProviderCareem:    "X-Careem-Signature",
	delivery.ProviderDeliveroo: "X-Deliveroo-Hmac-Sha256",
	delivery.ProviderJahez:     "X-Jahez-Signature",
}

// WebhookService ingests inbound provider calls. The contract is
// record-first: the raw payload is persisted before any validation so a
// crash never loses an event, and the provider is answered before any
// business effect happens.
type WebhookService struct {
	events   delivery.WebhookEventRepository
	vault    delivery.CredentialVault
	registry delivery.AdapterRegistry
	queue    delivery.WebhookQueue
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(
	events delivery.WebhookEventRepository,
	vault delivery.CredentialVault,
	registry delivery.AdapterRegistry,
	queue delivery.WebhookQueue,
	m *metrics.Metrics,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		events:   events,
		vault:    vault,
		registry: registry,
		queue:    queue,
		metrics:  m,
		logger:   logger.Named("webhook-ingest"),
	}
}

// Ingest records, authenticates and enqueues one inbound webhook call. Any
// authentication failure, missing config included, surfaces as ErrAuth so
// the caller cannot distinguish the reasons; the real cause is persisted on
// the event record.
func (s *WebhookService) Ingest(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode, payload []byte, headers http.Header) (*delivery.WebhookEvent, error) {
	adapter, err := s.registry.Adapter(provider)
	if err != nil {
		return nil, err
	}

	event, err := delivery.NewWebhookEvent(tenantID, provider, payload, headers.Get(signatureHeaders[provider]))
	if err != nil {
		return nil, err
	}
	if err := s.events.Save(ctx, event); err != nil {
		return nil, err
	}

	bundle, err := s.vault.Get(ctx, tenantID, branchID, provider)
	if err != nil {
		if errors.Is(err, delivery.ErrConfigNotFound) || errors.Is(err, delivery.ErrConfigInactive) {
			return event, s.reject(ctx, event, "no active provider configuration")
		}
		return event, err
	}

	if !adapter.VerifyWebhookSignature(payload, headers, bundle.Credentials.WebhookSecret) {
		return event, s.reject(ctx, event, "signature verification failed")
	}

	event.MarkValidated()
	if err := s.events.Save(ctx, event); err != nil {
		return event, err
	}
	s.metrics.WebhooksReceived.WithLabelValues(provider.String(), "validated").Inc()

	// Partition by external order id when the payload parses, so updates for
	// one order are consumed in arrival order. A payload the adapter cannot
	// parse still gets queued; the coordinator settles its fate.
	partition := provider.String()
	if draft, err := adapter.TransformOrder(payload); err == nil && draft.ExternalOrderID != "" {
		partition = provider.String() + ":" + draft.ExternalOrderID
		event.ExternalOrderID = draft.ExternalOrderID
	}

	if err := s.queue.Enqueue(ctx, delivery.QueuedEvent{
		EventID:      event.ID,
		TenantID:     tenantID,
		Provider:     provider,
		PartitionKey: partition,
	}); err != nil {
		s.logger.Error("enqueue failed, event stays validated",
			zap.String("event_id", event.ID.String()), zap.Error(err))
		return event, err
	}

	event.MarkQueued()
	if err := s.events.Save(ctx, event); err != nil {
		return event, err
	}
	s.metrics.WebhooksReceived.WithLabelValues(provider.String(), "queued").Inc()
	return event, nil
}

// reject persists the internal reason and answers with an opaque ErrAuth.
func (s *WebhookService) reject(ctx context.Context, event *delivery.WebhookEvent, reason string) error {
	event.MarkRejected(reason)
	if err := s.events.Save(ctx, event); err != nil {
		return err
	}
	s.metrics.WebhooksReceived.WithLabelValues(event.Provider.String(), "rejected").Inc()
	s.logger.Warn("webhook rejected",
		zap.String("event_id", event.ID.String()),
		zap.String("provider", event.Provider.String()),
		zap.String("reason", reason))
	return delivery.ErrAuth
}

// GetEvent returns one event scoped to the tenant.
func (s *WebhookService) GetEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*delivery.WebhookEvent, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.TenantID != tenantID {
		return nil, delivery.ErrEventNotFound
	}
	return event, nil
}

// OrderTrail returns the full event history of one external order, oldest
// first.
func (s *WebhookService) OrderTrail(ctx context.Context, tenantID uuid.UUID, provider delivery.ProviderCode, externalOrderID string) ([]delivery.WebhookEvent, error) {
	return s.events.FindByExternalOrder(ctx, tenantID, provider, externalOrderID)
}
