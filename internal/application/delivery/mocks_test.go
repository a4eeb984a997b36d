package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Fake adapter
// ---------------------------------------------------------------------------

// fakeAdapter is a scriptable ProviderAdapter. Hooks default to a happy-path
// provider speaking a minimal JSON dialect.
type fakeAdapter struct {
	code delivery.ProviderCode

	mu            sync.Mutex
	authCalls     int
	refreshCalls  int
	pushCalls     int
	statusCalls   []delivery.CanonicalOrderState
	pushMenuFn    func(payload delivery.MenuPayload) error
	pushStatusFn  func(externalOrderID string, state delivery.CanonicalOrderState) error
	transformFn   func(payload []byte) (delivery.CanonicalOrderDraft, error)
	authenticated delivery.TokenSet
}

func newFakeAdapter(code delivery.ProviderCode) *fakeAdapter {
	return &fakeAdapter{
		code: code,
		authenticated: delivery.TokenSet{
			AccessToken: "fresh-token",
			ExpiresAt:   time.Now().Add(time.Hour),
		},
	}
}

func (a *fakeAdapter) Code() delivery.ProviderCode { return a.code }

func (a *fakeAdapter) Authenticate(ctx context.Context, creds delivery.Credentials) (delivery.TokenSet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.authCalls++
	return a.authenticated, nil
}

func (a *fakeAdapter) Refresh(ctx context.Context, creds delivery.Credentials, tokens delivery.TokenSet) (delivery.TokenSet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshCalls++
	return a.authenticated, nil
}

func (a *fakeAdapter) TransformMenu(storeID string, items []delivery.MenuItem) (delivery.MenuPayload, error) {
	return delivery.MenuPayload{Provider: a.code, StoreID: storeID, ItemCount: len(items), Body: []byte(`{}`)}, nil
}

func (a *fakeAdapter) TransformAvailability(storeID string, changes []delivery.AvailabilityChange, external map[uuid.UUID]string) (delivery.MenuPayload, error) {
	return delivery.MenuPayload{Provider: a.code, StoreID: storeID, ItemCount: len(changes), Body: []byte(`{}`)}, nil
}

func (a *fakeAdapter) PushMenu(ctx context.Context, tokens delivery.TokenSet, payload delivery.MenuPayload) error {
	a.mu.Lock()
	a.pushCalls++
	fn := a.pushMenuFn
	a.mu.Unlock()
	if fn != nil {
		return fn(payload)
	}
	return nil
}

func (a *fakeAdapter) PushOrderStatus(ctx context.Context, tokens delivery.TokenSet, externalOrderID string, state delivery.CanonicalOrderState) error {
	a.mu.Lock()
	a.statusCalls = append(a.statusCalls, state)
	fn := a.pushStatusFn
	a.mu.Unlock()
	if fn != nil {
		return fn(externalOrderID, state)
	}
	return nil
}

// fakeOrderPayload is the wire dialect of the fake provider.
type fakeOrderPayload struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Total   string `json:"total"`
}

func (a *fakeAdapter) TransformOrder(payload []byte) (delivery.CanonicalOrderDraft, error) {
	if a.transformFn != nil {
		return a.transformFn(payload)
	}
	return a.parseOrder(payload)
}

// parseOrder is the default happy-path parse, kept separate so transformFn
// hooks can wrap it.
func (a *fakeAdapter) parseOrder(payload []byte) (delivery.CanonicalOrderDraft, error) {
	var p fakeOrderPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return delivery.CanonicalOrderDraft{}, fmt.Errorf("%w: %v", delivery.ErrValidation, err)
	}
	if p.OrderID == "" {
		return delivery.CanonicalOrderDraft{}, fmt.Errorf("%w: missing order id", delivery.ErrValidation)
	}
	total, _ := decimal.NewFromString(p.Total)
	return delivery.CanonicalOrderDraft{
		Provider:        a.code,
		ExternalOrderID: p.OrderID,
		ExternalStatus:  p.Status,
		State:           a.MapStatus(p.Status),
		Total:           total,
		Currency:        "AED",
		PlacedAt:        time.Now(),
	}, nil
}

func (a *fakeAdapter) VerifyWebhookSignature(body []byte, headers http.Header, secret string) bool {
	return headers.Get("X-"+a.code.String()+"-Signature") == secret
}

func (a *fakeAdapter) MapStatus(providerStatus string) delivery.CanonicalOrderState {
	switch providerStatus {
	case "placed":
		return delivery.OrderStateReceived
	case "accepted":
		return delivery.OrderStateConfirmed
	case "in_kitchen":
		return delivery.OrderStatePreparing
	case "on_the_way":
		return delivery.OrderStateDispatched
	case "delivered":
		return delivery.OrderStateDelivered
	case "cancelled":
		return delivery.OrderStateCancelled
	default:
		return delivery.OrderStateUnknown
	}
}

var _ delivery.ProviderAdapter = (*fakeAdapter)(nil)

// ---------------------------------------------------------------------------
// Fake vault and config repository
// ---------------------------------------------------------------------------

func tripleKey(tenantID, branchID uuid.UUID, provider delivery.ProviderCode) string {
	return tenantID.String() + "|" + branchID.String() + "|" + provider.String()
}

type fakeVault struct {
	mu        sync.Mutex
	bundles   map[string]*delivery.SecretBundle
	rotations int
}

func newFakeVault() *fakeVault {
	return &fakeVault{bundles: make(map[string]*delivery.SecretBundle)}
}

func (v *fakeVault) seed(bundle delivery.SecretBundle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bundles[tripleKey(bundle.TenantID, bundle.BranchID, bundle.Provider)] = &bundle
}

func (v *fakeVault) Put(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode, creds delivery.Credentials) (*delivery.ProviderConfig, error) {
	cfg, err := delivery.NewProviderConfig(tenantID, branchID, provider, creds.StoreID)
	if err != nil {
		return nil, err
	}
	v.seed(delivery.SecretBundle{
		ConfigID:    cfg.ID,
		TenantID:    tenantID,
		BranchID:    branchID,
		Provider:    provider,
		Credentials: creds,
	})
	return cfg, nil
}

func (v *fakeVault) Get(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode) (*delivery.SecretBundle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	bundle, ok := v.bundles[tripleKey(tenantID, branchID, provider)]
	if !ok {
		return nil, delivery.ErrConfigNotFound
	}
	copied := *bundle
	return &copied, nil
}

func (v *fakeVault) Rotate(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode, tokens delivery.TokenSet) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	bundle, ok := v.bundles[tripleKey(tenantID, branchID, provider)]
	if !ok {
		return delivery.ErrConfigNotFound
	}
	bundle.Tokens = tokens
	v.rotations++
	return nil
}

var _ delivery.CredentialVault = (*fakeVault)(nil)

type fakeConfigRepo struct {
	mu      sync.Mutex
	configs map[uuid.UUID]*delivery.ProviderConfig
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{configs: make(map[uuid.UUID]*delivery.ProviderConfig)}
}

func (r *fakeConfigRepo) FindByID(ctx context.Context, id uuid.UUID) (*delivery.ProviderConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[id]
	if !ok {
		return nil, delivery.ErrConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (r *fakeConfigRepo) FindByTriple(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode) (*delivery.ProviderConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cfg := range r.configs {
		if cfg.TenantID == tenantID && cfg.BranchID == branchID && cfg.Provider == provider && cfg.IsActive {
			copied := *cfg
			return &copied, nil
		}
	}
	return nil, delivery.ErrConfigNotFound
}

func (r *fakeConfigRepo) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]delivery.ProviderConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []delivery.ProviderConfig
	for _, cfg := range r.configs {
		if cfg.TenantID == tenantID {
			out = append(out, *cfg)
		}
	}
	return out, nil
}

func (r *fakeConfigRepo) Save(ctx context.Context, cfg *delivery.ProviderConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *cfg
	r.configs[cfg.ID] = &copied
	return nil
}

func (r *fakeConfigRepo) UpdateTokens(ctx context.Context, id uuid.UUID, encryptedTokens []byte, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[id]
	if !ok {
		return delivery.ErrConfigNotFound
	}
	cfg.EncryptedTokens = encryptedTokens
	cfg.TokenExpiresAt = expiresAt
	return nil
}

func (r *fakeConfigRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[id]
	if !ok {
		return delivery.ErrConfigNotFound
	}
	cfg.Deactivate()
	return nil
}

var _ delivery.ProviderConfigRepository = (*fakeConfigRepo)(nil)

// ---------------------------------------------------------------------------
// Fake job, mapping and event repositories
// ---------------------------------------------------------------------------

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*delivery.MenuSyncJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[uuid.UUID]*delivery.MenuSyncJob)}
}

func (r *fakeJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*delivery.MenuSyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, delivery.ErrSyncJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *fakeJobRepo) FindRunning(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode) (*delivery.MenuSyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.TenantID == tenantID && job.BranchID == branchID && job.Provider == provider &&
			job.Kind != delivery.SyncKindAvailability && !job.Status.IsTerminal() {
			copied := *job
			return &copied, nil
		}
	}
	return nil, delivery.ErrSyncJobNotFound
}

func (r *fakeJobRepo) FindRecent(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode, limit int) ([]delivery.MenuSyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []delivery.MenuSyncJob
	for _, job := range r.jobs {
		if job.TenantID == tenantID && job.BranchID == branchID && job.Provider == provider {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) Save(ctx context.Context, job *delivery.MenuSyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

var _ delivery.MenuSyncJobRepository = (*fakeJobRepo)(nil)

type fakeEntityMappingRepo struct {
	mu       sync.Mutex
	mappings []*delivery.EntityMapping
}

func newFakeEntityMappingRepo() *fakeEntityMappingRepo {
	return &fakeEntityMappingRepo{}
}

func (r *fakeEntityMappingRepo) FindActive(ctx context.Context, tenantID uuid.UUID, provider delivery.ProviderCode, internalID uuid.UUID) (*delivery.EntityMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.mappings {
		if m.TenantID == tenantID && m.Provider == provider && m.InternalID == internalID && m.IsActive {
			copied := *m
			return &copied, nil
		}
	}
	return nil, delivery.ErrMappingNotFound
}

func (r *fakeEntityMappingRepo) FindActiveForProvider(ctx context.Context, tenantID uuid.UUID, provider delivery.ProviderCode) (map[uuid.UUID]delivery.EntityMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]delivery.EntityMapping)
	for _, m := range r.mappings {
		if m.TenantID == tenantID && m.Provider == provider && m.IsActive {
			out[m.InternalID] = *m
		}
	}
	return out, nil
}

func (r *fakeEntityMappingRepo) Save(ctx context.Context, mapping *delivery.EntityMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *mapping
	r.mappings = append(r.mappings, &copied)
	return nil
}

func (r *fakeEntityMappingRepo) Replace(ctx context.Context, mapping *delivery.EntityMapping) error {
	r.mu.Lock()
	for _, m := range r.mappings {
		if m.TenantID == mapping.TenantID && m.Provider == mapping.Provider && m.InternalID == mapping.InternalID && m.IsActive {
			m.Supersede()
		}
	}
	r.mu.Unlock()
	return r.Save(ctx, mapping)
}

var _ delivery.EntityMappingRepository = (*fakeEntityMappingRepo)(nil)

type fakeOrderMappingRepo struct {
	mu       sync.Mutex
	mappings map[string]*delivery.OrderMapping
	// missOnce makes the next FindByExternal miss even when the mapping
	// exists, simulating the create race window.
	missOnce bool
}

func newFakeOrderMappingRepo() *fakeOrderMappingRepo {
	return &fakeOrderMappingRepo{mappings: make(map[string]*delivery.OrderMapping)}
}

func orderKey(tenantID uuid.UUID, provider delivery.ProviderCode, externalOrderID string) string {
	return tenantID.String() + "|" + provider.String() + "|" + externalOrderID
}

func (r *fakeOrderMappingRepo) FindByExternal(ctx context.Context, tenantID uuid.UUID, provider delivery.ProviderCode, externalOrderID string) (*delivery.OrderMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missOnce {
		r.missOnce = false
		return nil, delivery.ErrMappingNotFound
	}
	m, ok := r.mappings[orderKey(tenantID, provider, externalOrderID)]
	if !ok {
		return nil, delivery.ErrMappingNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeOrderMappingRepo) FindByInternal(ctx context.Context, tenantID uuid.UUID, internalOrderID uuid.UUID) ([]delivery.OrderMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []delivery.OrderMapping
	for _, m := range r.mappings {
		if m.TenantID == tenantID && m.InternalOrderID == internalOrderID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeOrderMappingRepo) Create(ctx context.Context, mapping *delivery.OrderMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := orderKey(mapping.TenantID, mapping.Provider, mapping.ExternalOrderID)
	if _, exists := r.mappings[key]; exists {
		return delivery.ErrMappingConflict
	}
	copied := *mapping
	r.mappings[key] = &copied
	return nil
}

func (r *fakeOrderMappingRepo) Update(ctx context.Context, mapping *delivery.OrderMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := orderKey(mapping.TenantID, mapping.Provider, mapping.ExternalOrderID)
	if _, exists := r.mappings[key]; !exists {
		return delivery.ErrMappingNotFound
	}
	copied := *mapping
	r.mappings[key] = &copied
	return nil
}

var _ delivery.OrderMappingRepository = (*fakeOrderMappingRepo)(nil)

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]*delivery.WebhookEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[uuid.UUID]*delivery.WebhookEvent)}
}

func (r *fakeEventRepo) FindByID(ctx context.Context, id uuid.UUID) (*delivery.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, delivery.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *fakeEventRepo) FindByExternalOrder(ctx context.Context, tenantID uuid.UUID, provider delivery.ProviderCode, externalOrderID string) ([]delivery.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []delivery.WebhookEvent
	for _, e := range r.events {
		if e.TenantID == tenantID && e.Provider == provider && e.ExternalOrderID == externalOrderID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) FindByStatus(ctx context.Context, status delivery.WebhookEventStatus, limit int) ([]delivery.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []delivery.WebhookEvent
	for _, e := range r.events {
		if e.Status == status {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) Save(ctx context.Context, event *delivery.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

var _ delivery.WebhookEventRepository = (*fakeEventRepo)(nil)

// ---------------------------------------------------------------------------
// Fake platform ports
// ---------------------------------------------------------------------------

type fakeMenuReader struct {
	menu *delivery.Menu
	err  error
}

func (r *fakeMenuReader) Load(ctx context.Context, tenantID, branchID uuid.UUID) (*delivery.Menu, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.menu, nil
}

var _ delivery.MenuReader = (*fakeMenuReader)(nil)

type fakeOrderWriter struct {
	mu    sync.Mutex
	calls int
	// orders keys internal order ids by external id so retries of the same
	// draft stay idempotent.
	orders map[string]uuid.UUID
	err    error
	// delayFn runs outside the lock so concurrent writes can overlap.
	delayFn func(draft delivery.CanonicalOrderDraft)
}

func newFakeOrderWriter() *fakeOrderWriter {
	return &fakeOrderWriter{orders: make(map[string]uuid.UUID)}
}

func (w *fakeOrderWriter) CreateOrUpdateOrder(ctx context.Context, tenantID uuid.UUID, draft delivery.CanonicalOrderDraft) (uuid.UUID, error) {
	w.mu.Lock()
	w.calls++
	err := w.err
	var id uuid.UUID
	if err == nil {
		var ok bool
		id, ok = w.orders[draft.ExternalOrderID]
		if !ok {
			id = uuid.New()
			w.orders[draft.ExternalOrderID] = id
		}
	}
	delay := w.delayFn
	w.mu.Unlock()

	if err != nil {
		return uuid.Nil, err
	}
	if delay != nil {
		delay(draft)
	}
	return id, nil
}

var _ delivery.OrderWriter = (*fakeOrderWriter)(nil)

// ---------------------------------------------------------------------------
// Menu fixture
// ---------------------------------------------------------------------------

// buildMenu creates a single-category menu with n items priced ascending.
func buildMenu(tenantID, branchID uuid.UUID, n int) *delivery.Menu {
	category := delivery.MenuCategory{ID: uuid.New(), Name: "Mains"}
	for i := 0; i < n; i++ {
		category.Items = append(category.Items, delivery.MenuItem{
			ID:         uuid.New(),
			CategoryID: category.ID,
			Name:       fmt.Sprintf("Item %d", i+1),
			Price:      decimal.NewFromInt(int64(10 + i)),
			Currency:   "AED",
			Available:  true,
		})
	}
	return &delivery.Menu{TenantID: tenantID, BranchID: branchID, Categories: []delivery.MenuCategory{category}}
}
