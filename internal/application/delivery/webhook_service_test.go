package delivery

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/metrics"
	"github.com/restaurant-platform/backend/internal/infrastructure/providers"
	"github.com/restaurant-platform/backend/internal/infrastructure/queue"
)

const webhookTestSecret = "whsec-test"

type webhookFixture struct {
	tenantID uuid.UUID
	branchID uuid.UUID
	adapter  *fakeAdapter
	events   *fakeEventRepo
	queue    *queue.InMemoryQueue
	svc      *WebhookService
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	tenantID, branchID := uuid.New(), uuid.New()
	adapter := newFakeAdapter(delivery.ProviderCareem)
	registry := providers.NewRegistry(adapter)
	vault := newFakeVault()
	events := newFakeEventRepo()
	q := queue.NewInMemoryQueue()

	vault.seed(delivery.SecretBundle{
		ConfigID: uuid.New(),
		TenantID: tenantID,
		BranchID: branchID,
		Provider: delivery.ProviderCareem,
		Credentials: delivery.Credentials{
			ClientID:      "id",
			ClientSecret:  "secret",
			StoreID:       "store-1",
			WebhookSecret: webhookTestSecret,
		},
		Tokens: delivery.TokenSet{AccessToken: "live", ExpiresAt: time.Now().Add(time.Hour)},
	})

	svc := NewWebhookService(events, vault, registry, q, metrics.New(prometheus.NewRegistry()), zap.NewNop())
	return &webhookFixture{
		tenantID: tenantID,
		branchID: branchID,
		adapter:  adapter,
		events:   events,
		queue:    q,
		svc:      svc,
	}
}

func signedHeaders(signature string) http.Header {
	h := http.Header{}
	h.Set("X-Careem-Signature", signature)
	return h
}

func TestWebhookService_IngestValidEvent(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	payload := []byte(`{"order_id":"C-1001","status":"placed","total":"42.50"}`)

	event, err := f.svc.Ingest(ctx, f.tenantID, f.branchID, delivery.ProviderCareem, payload, signedHeaders(webhookTestSecret))
	require.NoError(t, err)
	assert.Equal(t, delivery.WebhookQueued, event.Status)
	assert.Equal(t, "C-1001", event.ExternalOrderID)

	queued, err := f.queue.Dequeue(ctx, 10, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, event.ID, queued[0].EventID)
	assert.Equal(t, f.tenantID, queued[0].TenantID)
	assert.Equal(t, "CAREEM:C-1001", queued[0].PartitionKey)
}

func TestWebhookService_InvalidSignatureRejected(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	payload := []byte(`{"order_id":"C-1002","status":"placed","total":"10.00"}`)

	event, err := f.svc.Ingest(ctx, f.tenantID, f.branchID, delivery.ProviderCareem, payload, signedHeaders("forged"))
	assert.ErrorIs(t, err, delivery.ErrAuth)
	require.NotNil(t, event)
	assert.Equal(t, delivery.WebhookRejected, event.Status)
	assert.Equal(t, "signature verification failed", event.RejectReason)

	// The raw payload is still on record for forensics.
	stored, err := f.events.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, stored.Payload)

	// Nothing reaches the queue.
	queued, err := f.queue.Dequeue(ctx, 10, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestWebhookService_MissingConfigLooksLikeAuthFailure(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	event, err := f.svc.Ingest(ctx, uuid.New(), f.branchID, delivery.ProviderCareem, []byte(`{}`), signedHeaders(webhookTestSecret))
	assert.ErrorIs(t, err, delivery.ErrAuth, "caller must not learn whether the config exists")
	require.NotNil(t, event)
	assert.Equal(t, delivery.WebhookRejected, event.Status)
	assert.Equal(t, "no active provider configuration", event.RejectReason)
}

func TestWebhookService_UnsupportedProvider(t *testing.T) {
	f := newWebhookFixture(t)

	_, err := f.svc.Ingest(context.Background(), f.tenantID, f.branchID, delivery.ProviderTalabat, []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, delivery.ErrProviderNotSupported)
}

func TestWebhookService_UnparseablePayloadStillQueued(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()
	payload := []byte(`not-json`)

	event, err := f.svc.Ingest(ctx, f.tenantID, f.branchID, delivery.ProviderCareem, payload, signedHeaders(webhookTestSecret))
	require.NoError(t, err)
	assert.Equal(t, delivery.WebhookQueued, event.Status)

	queued, err := f.queue.Dequeue(ctx, 10, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "CAREEM", queued[0].PartitionKey, "falls back to the provider partition")
}
