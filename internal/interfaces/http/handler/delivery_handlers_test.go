package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	deliveryapp "github.com/restaurant-platform/backend/internal/application/delivery"
	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/metrics"
	"github.com/restaurant-platform/backend/internal/infrastructure/providers"
	"github.com/restaurant-platform/backend/internal/infrastructure/queue"
	"github.com/restaurant-platform/backend/internal/interfaces/http/dto"
)

// ---------------------------------------------------------------------------
// Stubs: just enough behaviour to drive the handlers
// ---------------------------------------------------------------------------

type stubAdapter struct {
	code delivery.ProviderCode
}

func (a *stubAdapter) Code() delivery.ProviderCode { return a.code }

func (a *stubAdapter) Authenticate(context.Context, delivery.Credentials) (delivery.TokenSet, error) {
	return delivery.TokenSet{AccessToken: "t", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (a *stubAdapter) Refresh(ctx context.Context, creds delivery.Credentials, tokens delivery.TokenSet) (delivery.TokenSet, error) {
	return a.Authenticate(ctx, creds)
}

func (a *stubAdapter) TransformMenu(storeID string, items []delivery.MenuItem) (delivery.MenuPayload, error) {
	return delivery.MenuPayload{Provider: a.code, StoreID: storeID, ItemCount: len(items)}, nil
}

func (a *stubAdapter) TransformAvailability(storeID string, changes []delivery.AvailabilityChange, external map[uuid.UUID]string) (delivery.MenuPayload, error) {
	return delivery.MenuPayload{Provider: a.code, StoreID: storeID, ItemCount: len(changes)}, nil
}

func (a *stubAdapter) PushMenu(context.Context, delivery.TokenSet, delivery.MenuPayload) error {
	return nil
}

func (a *stubAdapter) PushOrderStatus(context.Context, delivery.TokenSet, string, delivery.CanonicalOrderState) error {
	return nil
}

func (a *stubAdapter) TransformOrder(payload []byte) (delivery.CanonicalOrderDraft, error) {
	var p struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(payload, &p); err != nil || p.OrderID == "" {
		return delivery.CanonicalOrderDraft{}, fmt.Errorf("%w: bad payload", delivery.ErrValidation)
	}
	return delivery.CanonicalOrderDraft{Provider: a.code, ExternalOrderID: p.OrderID, State: delivery.OrderStateReceived}, nil
}

func (a *stubAdapter) VerifyWebhookSignature(body []byte, headers http.Header, secret string) bool {
	return headers.Get("X-Careem-Signature") == secret
}

func (a *stubAdapter) MapStatus(string) delivery.CanonicalOrderState {
	return delivery.OrderStateReceived
}

type stubVault struct {
	bundle *delivery.SecretBundle
}

func (v *stubVault) Put(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode, creds delivery.Credentials) (*delivery.ProviderConfig, error) {
	return delivery.NewProviderConfig(tenantID, branchID, provider, creds.StoreID)
}

func (v *stubVault) Get(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode) (*delivery.SecretBundle, error) {
	if v.bundle == nil || v.bundle.TenantID != tenantID || v.bundle.BranchID != branchID {
		return nil, delivery.ErrConfigNotFound
	}
	copied := *v.bundle
	return &copied, nil
}

func (v *stubVault) Rotate(context.Context, uuid.UUID, uuid.UUID, delivery.ProviderCode, delivery.TokenSet) error {
	return nil
}

type stubEventRepo struct {
	saved map[uuid.UUID]*delivery.WebhookEvent
}

func (r *stubEventRepo) FindByID(ctx context.Context, id uuid.UUID) (*delivery.WebhookEvent, error) {
	if e, ok := r.saved[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, delivery.ErrEventNotFound
}

func (r *stubEventRepo) FindByExternalOrder(context.Context, uuid.UUID, delivery.ProviderCode, string) ([]delivery.WebhookEvent, error) {
	return nil, nil
}

func (r *stubEventRepo) FindByStatus(context.Context, delivery.WebhookEventStatus, int) ([]delivery.WebhookEvent, error) {
	return nil, nil
}

func (r *stubEventRepo) Save(ctx context.Context, event *delivery.WebhookEvent) error {
	copied := *event
	r.saved[event.ID] = &copied
	return nil
}

type stubOrderMappingRepo struct {
	mapping *delivery.OrderMapping
}

func (r *stubOrderMappingRepo) FindByExternal(ctx context.Context, tenantID uuid.UUID, provider delivery.ProviderCode, externalOrderID string) (*delivery.OrderMapping, error) {
	if r.mapping != nil && r.mapping.ExternalOrderID == externalOrderID && r.mapping.TenantID == tenantID {
		return r.mapping, nil
	}
	return nil, delivery.ErrMappingNotFound
}

func (r *stubOrderMappingRepo) FindByInternal(context.Context, uuid.UUID, uuid.UUID) ([]delivery.OrderMapping, error) {
	return nil, nil
}

func (r *stubOrderMappingRepo) Create(context.Context, *delivery.OrderMapping) error { return nil }
func (r *stubOrderMappingRepo) Update(context.Context, *delivery.OrderMapping) error { return nil }

// ---------------------------------------------------------------------------
// Webhook endpoint
// ---------------------------------------------------------------------------

func newWebhookRouter(t *testing.T) (*gin.Engine, uuid.UUID, uuid.UUID) {
	t.Helper()

	tenantID, branchID := uuid.New(), uuid.New()
	vault := &stubVault{bundle: &delivery.SecretBundle{
		ConfigID: uuid.New(),
		TenantID: tenantID,
		BranchID: branchID,
		Provider: delivery.ProviderCareem,
		Credentials: delivery.Credentials{
			ClientID:      "id",
			ClientSecret:  "secret",
			StoreID:       "store-1",
			WebhookSecret: "whsec",
		},
	}}

	svc := deliveryapp.NewWebhookService(
		&stubEventRepo{saved: make(map[uuid.UUID]*delivery.WebhookEvent)},
		vault,
		providers.NewRegistry(&stubAdapter{code: delivery.ProviderCareem}),
		queue.NewInMemoryQueue(),
		metrics.New(prometheus.NewRegistry()),
		zap.NewNop(),
	)

	h := NewWebhookHandler(svc)
	r := gin.New()
	r.POST("/webhooks/:provider/orders", h.ReceiveOrder)
	return r, tenantID, branchID
}

func postWebhook(r *gin.Engine, provider, tenant, branch, signature, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/webhooks/"+provider+"/orders", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	if branch != "" {
		req.Header.Set("X-Branch-ID", branch)
	}
	if signature != "" {
		req.Header.Set("X-Careem-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookEndpoint(t *testing.T) {
	r, tenantID, branchID := newWebhookRouter(t)
	body := `{"order_id":"C-1"}`

	t.Run("valid signature accepted", func(t *testing.T) {
		w := postWebhook(r, "careem", tenantID.String(), branchID.String(), "whsec", body)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, true, data["received"])
		assert.NotEmpty(t, data["event_id"])
	})

	t.Run("invalid signature gets opaque 401", func(t *testing.T) {
		w := postWebhook(r, "careem", tenantID.String(), branchID.String(), "forged", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotContains(t, w.Body.String(), "signature", "reason must stay internal")
	})

	t.Run("unknown tenant gets same opaque 401", func(t *testing.T) {
		w := postWebhook(r, "careem", uuid.NewString(), branchID.String(), "whsec", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing routing headers", func(t *testing.T) {
		w := postWebhook(r, "careem", "", branchID.String(), "whsec", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown provider path", func(t *testing.T) {
		w := postWebhook(r, "ubereats", tenantID.String(), branchID.String(), "whsec", body)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("registered but unconfigured provider", func(t *testing.T) {
		w := postWebhook(r, "talabat", tenantID.String(), branchID.String(), "whsec", body)
		assert.Equal(t, http.StatusNotFound, w.Code, "talabat is a known code with no adapter yet")
	})
}

// ---------------------------------------------------------------------------
// Order mapping endpoints
// ---------------------------------------------------------------------------

func TestDeliveryOrderEndpoint(t *testing.T) {
	tenantID := uuid.New()
	mapping, err := delivery.NewOrderMapping(tenantID, delivery.ProviderCareem, "C-77", uuid.New(), delivery.OrderStateConfirmed, "ACCEPTED")
	require.NoError(t, err)

	h := NewDeliveryOrderHandler(&stubOrderMappingRepo{mapping: mapping}, nil, nil)
	r := gin.New()
	r.GET("/delivery/orders/:provider/:external_id", h.Get)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/delivery/orders/careem/C-77", nil)
		req.Header.Set("X-Tenant-ID", tenantID.String())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"last_canonical_state":"confirmed"`)
	})

	t.Run("unknown external id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/delivery/orders/careem/NOPE", nil)
		req.Header.Set("X-Tenant-ID", tenantID.String())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad provider", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/delivery/orders/acme/C-77", nil)
		req.Header.Set("X-Tenant-ID", tenantID.String())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

type stubStatusNotifier struct {
	tenantID uuid.UUID
	orderID  uuid.UUID
	state    delivery.CanonicalOrderState
	calls    int
	err      error
}

func (n *stubStatusNotifier) NotifyOrderStatus(_ context.Context, tenantID, orderID uuid.UUID, state delivery.CanonicalOrderState) error {
	n.calls++
	n.tenantID, n.orderID, n.state = tenantID, orderID, state
	return n.err
}

func TestNotifyOrderStatusEndpoint(t *testing.T) {
	tenantID, orderID := uuid.New(), uuid.New()

	newRouter := func(notifier *stubStatusNotifier) *gin.Engine {
		h := NewDeliveryOrderHandler(&stubOrderMappingRepo{}, nil, notifier)
		r := gin.New()
		r.POST("/delivery/orders/status", h.NotifyStatus)
		return r
	}
	post := func(r *gin.Engine, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/delivery/orders/status", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", tenantID.String())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("pushes the state change", func(t *testing.T) {
		notifier := &stubStatusNotifier{}
		w := post(newRouter(notifier), fmt.Sprintf(`{"order_id":%q,"state":"ready"}`, orderID))

		assert.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 1, notifier.calls)
		assert.Equal(t, tenantID, notifier.tenantID)
		assert.Equal(t, orderID, notifier.orderID)
		assert.Equal(t, delivery.OrderStateReady, notifier.state)
	})

	t.Run("unmapped order", func(t *testing.T) {
		notifier := &stubStatusNotifier{err: delivery.ErrMappingNotFound}
		w := post(newRouter(notifier), fmt.Sprintf(`{"order_id":%q,"state":"ready"}`, orderID))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown state", func(t *testing.T) {
		notifier := &stubStatusNotifier{}
		w := post(newRouter(notifier), fmt.Sprintf(`{"order_id":%q,"state":"teleported"}`, orderID))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, notifier.calls, "invalid states never reach the providers")
	})

	t.Run("malformed order id", func(t *testing.T) {
		notifier := &stubStatusNotifier{}
		w := post(newRouter(notifier), `{"order_id":"not-a-uuid","state":"ready"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
