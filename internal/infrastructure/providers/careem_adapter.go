package providers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
)

// minorUnitsFactor converts between major currency units and the minor
// units (fils, halalas, pence) several provider APIs expect.
const minorUnitsFactor = 100

// CareemSignatureHeader carries the webhook HMAC.
const CareemSignatureHeader = "X-Careem-Signature"

// CareemAdapter implements delivery.ProviderAdapter for Careem Now.
// Careem uses OAuth2 client credentials without a refresh grant, takes the
// whole catalog in one PUT, and signs webhooks with base64 HMAC-SHA256.
type CareemAdapter struct {
	config     *CareemConfig
	httpClient *http.Client
}

// NewCareemAdapter creates a Careem adapter with the given configuration.
func NewCareemAdapter(config *CareemConfig) (*CareemAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &CareemAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Code returns the provider code this adapter handles.
func (a *CareemAdapter) Code() delivery.ProviderCode {
	return delivery.ProviderCareem
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// Authenticate exchanges client credentials for an access token.
func (a *CareemAdapter) Authenticate(ctx context.Context, creds delivery.Credentials) (delivery.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.APIBaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return delivery.TokenSet{}, fmt.Errorf("careem: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return delivery.TokenSet{}, transportErr(delivery.ProviderCareem, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return delivery.TokenSet{}, transportErr(delivery.ProviderCareem, err)
	}
	if err := classifyStatus(delivery.ProviderCareem, resp.StatusCode); err != nil {
		return delivery.TokenSet{}, err
	}

	var tok careemTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return delivery.TokenSet{}, fmt.Errorf("careem: failed to parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return delivery.TokenSet{}, fmt.Errorf("%w: careem returned empty access token", delivery.ErrAuth)
	}

	return delivery.TokenSet{
		AccessToken: tok.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}, nil
}

// Refresh re-authenticates. Careem's client-credentials flow has no refresh
// grant.
func (a *CareemAdapter) Refresh(ctx context.Context, creds delivery.Credentials, _ delivery.TokenSet) (delivery.TokenSet, error) {
	return a.Authenticate(ctx, creds)
}

// ---------------------------------------------------------------------------
// Menu operations
// ---------------------------------------------------------------------------

// TransformMenu renders internal menu items into Careem's catalog format.
func (a *CareemAdapter) TransformMenu(storeID string, items []delivery.MenuItem) (delivery.MenuPayload, error) {
	catalog := careemCatalog{Items: make([]careemCatalogItem, 0, len(items))}

	for _, item := range items {
		ci := careemCatalogItem{
			ID:          item.ID.String(),
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price.Mul(decimal.NewFromInt(minorUnitsFactor)).IntPart(),
			Currency:    item.Currency,
			ImageURL:    item.ImageURL,
			Available:   item.Available,
		}
		for _, group := range item.Modifiers {
			cg := careemCatalogOptGroup{
				ID:   group.ID.String(),
				Name: group.Name,
				Min:  group.MinSelect,
				Max:  group.MaxSelect,
			}
			for _, opt := range group.Options {
				cg.Options = append(cg.Options, careemCatalogOpt{
					ID:        opt.ID.String(),
					Name:      opt.Name,
					Price:     opt.Price.Mul(decimal.NewFromInt(minorUnitsFactor)).IntPart(),
					Available: opt.Available,
				})
			}
			ci.Options = append(ci.Options, cg)
		}
		catalog.Items = append(catalog.Items, ci)
	}

	body, err := json.Marshal(catalog)
	if err != nil {
		return delivery.MenuPayload{}, fmt.Errorf("careem: failed to marshal catalog: %w", err)
	}
	return delivery.MenuPayload{
		Provider:  delivery.ProviderCareem,
		StoreID:   storeID,
		ItemCount: len(items),
		Body:      body,
	}, nil
}

// TransformAvailability renders an availability-only update.
func (a *CareemAdapter) TransformAvailability(storeID string, changes []delivery.AvailabilityChange, external map[uuid.UUID]string) (delivery.MenuPayload, error) {
	update := careemAvailabilityUpdate{Items: make([]careemItemAvailability, 0, len(changes))}
	for _, change := range changes {
		id, ok := external[change.ItemID]
		if !ok {
			// Internal ID doubles as the external one when no mapping exists;
			// Careem catalogs are keyed by the IDs we upload.
			id = change.ItemID.String()
		}
		update.Items = append(update.Items, careemItemAvailability{ID: id, Available: change.Available})
	}

	body, err := json.Marshal(update)
	if err != nil {
		return delivery.MenuPayload{}, fmt.Errorf("careem: failed to marshal availability update: %w", err)
	}
	return delivery.MenuPayload{
		Provider:  delivery.ProviderCareem,
		StoreID:   storeID,
		ItemCount: len(changes),
		Body:      body,
	}, nil
}

// PushMenu submits a catalog payload. Careem replaces the branch catalog
// wholesale.
func (a *CareemAdapter) PushMenu(ctx context.Context, tokens delivery.TokenSet, payload delivery.MenuPayload) error {
	path := fmt.Sprintf("/v1/catalogs/%s", payload.StoreID)
	return a.doJSON(ctx, tokens, http.MethodPut, path, payload.Body)
}

// ---------------------------------------------------------------------------
// Order operations
// ---------------------------------------------------------------------------

// PushOrderStatus reports a canonical state change to Careem.
func (a *CareemAdapter) PushOrderStatus(ctx context.Context, tokens delivery.TokenSet, externalOrderID string, state delivery.CanonicalOrderState) error {
	status := mapToCareemOrderStatus(state)
	if status == "" {
		// Careem tracks terminal delivery states itself.
		return nil
	}
	body, err := json.Marshal(careemStatusUpdate{Status: status})
	if err != nil {
		return fmt.Errorf("careem: failed to marshal status update: %w", err)
	}
	path := fmt.Sprintf("/v1/orders/%s/status", externalOrderID)
	return a.doJSON(ctx, tokens, http.MethodPost, path, body)
}

// TransformOrder parses a Careem order payload into a canonical draft.
func (a *CareemAdapter) TransformOrder(payload []byte) (delivery.CanonicalOrderDraft, error) {
	var order careemOrder
	if err := json.Unmarshal(payload, &order); err != nil {
		return delivery.CanonicalOrderDraft{}, fmt.Errorf("%w: careem order payload is not valid JSON: %v", delivery.ErrValidation, err)
	}
	if order.OrderID == "" {
		return delivery.CanonicalOrderDraft{}, fmt.Errorf("%w: careem order payload missing order_id", delivery.ErrValidation)
	}

	minor := decimal.NewFromInt(minorUnitsFactor)
	draft := delivery.CanonicalOrderDraft{
		Provider:        delivery.ProviderCareem,
		ExternalOrderID: order.OrderID,
		ExternalStatus:  order.Status,
		State:           a.MapStatus(order.Status),
		StoreID:         order.BranchID,
		CustomerName:    order.Customer.Name,
		CustomerPhone:   order.Customer.Phone,
		DeliveryAddress: order.Delivery.Address,
		DeliveryNotes:   order.Delivery.Notes,
		Subtotal:        decimal.NewFromInt(order.Subtotal).Div(minor),
		DeliveryFee:     decimal.NewFromInt(order.DeliveryFee).Div(minor),
		Total:           decimal.NewFromInt(order.Total).Div(minor),
		Currency:        order.Currency,
	}
	if order.CreatedAt > 0 {
		draft.PlacedAt = time.Unix(order.CreatedAt, 0)
	}

	for _, item := range order.Items {
		di := delivery.DraftItem{
			ExternalItemID: item.ID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      decimal.NewFromInt(item.UnitPrice).Div(minor),
		}
		for _, opt := range item.Options {
			di.Modifiers = append(di.Modifiers, delivery.DraftModifier{
				ExternalID: opt.ID,
				Name:       opt.Name,
				Price:      decimal.NewFromInt(opt.Price).Div(minor),
			})
		}
		draft.Items = append(draft.Items, di)
	}
	return draft, nil
}

// VerifyWebhookSignature checks the base64 HMAC-SHA256 of the raw body.
func (a *CareemAdapter) VerifyWebhookSignature(body []byte, headers http.Header, secret string) bool {
	provided := headers.Get(CareemSignatureHeader)
	if provided == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(provided), []byte(expected))
}

// MapStatus converts a Careem status string to the canonical state.
func (a *CareemAdapter) MapStatus(providerStatus string) delivery.CanonicalOrderState {
	switch strings.ToUpper(providerStatus) {
	case CareemOrderStatusPending:
		return delivery.OrderStateReceived
	case CareemOrderStatusAccepted:
		return delivery.OrderStateConfirmed
	case CareemOrderStatusPreparing:
		return delivery.OrderStatePreparing
	case CareemOrderStatusReadyForPickup:
		return delivery.OrderStateReady
	case CareemOrderStatusOutForDelivery:
		return delivery.OrderStateDispatched
	case CareemOrderStatusDelivered:
		return delivery.OrderStateDelivered
	case CareemOrderStatusCancelled:
		return delivery.OrderStateCancelled
	case CareemOrderStatusFailed:
		return delivery.OrderStateFailed
	default:
		return delivery.OrderStateUnknown
	}
}

// mapToCareemOrderStatus maps canonical states to the statuses Careem
// accepts on its status endpoint. Empty means no outbound call is needed.
func mapToCareemOrderStatus(state delivery.CanonicalOrderState) string {
	switch state {
	case delivery.OrderStateConfirmed:
		return CareemOrderStatusAccepted
	case delivery.OrderStatePreparing:
		return CareemOrderStatusPreparing
	case delivery.OrderStateReady:
		return CareemOrderStatusReadyForPickup
	case delivery.OrderStateCancelled:
		return CareemOrderStatusCancelled
	default:
		return ""
	}
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// doJSON performs an authenticated JSON request and classifies the response.
func (a *CareemAdapter) doJSON(ctx context.Context, tokens delivery.TokenSet, method, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("careem: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return transportErr(delivery.ProviderCareem, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
	return classifyStatus(delivery.ProviderCareem, resp.StatusCode)
}

// Ensure CareemAdapter implements ProviderAdapter.
var _ delivery.ProviderAdapter = (*CareemAdapter)(nil)
