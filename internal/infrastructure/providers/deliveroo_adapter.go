package providers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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

// DeliverooSignatureHeader carries the webhook HMAC as lowercase hex.
const DeliverooSignatureHeader = "X-Deliveroo-Hmac-Sha256"

// DeliverooAdapter implements delivery.ProviderAdapter for Deliveroo.
// Deliveroo issues refresh tokens, keys menus by site, and signs webhooks
// with hex HMAC-SHA256.
type DeliverooAdapter struct {
	config     *DeliverooConfig
	httpClient *http.Client
}

// NewDeliverooAdapter creates a Deliveroo adapter with the given
// configuration.
func NewDeliverooAdapter(config *DeliverooConfig) (*DeliverooAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &DeliverooAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Code returns the provider code this adapter handles.
func (a *DeliverooAdapter) Code() delivery.ProviderCode {
	return delivery.ProviderDeliveroo
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// Authenticate exchanges client credentials for an access/refresh token pair.
func (a *DeliverooAdapter) Authenticate(ctx context.Context, creds delivery.Credentials) (delivery.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	return a.tokenRequest(ctx, creds, form)
}

// Refresh redeems the refresh token, falling back to full authentication
// when none is held.
func (a *DeliverooAdapter) Refresh(ctx context.Context, creds delivery.Credentials, tokens delivery.TokenSet) (delivery.TokenSet, error) {
	if tokens.RefreshToken == "" {
		return a.Authenticate(ctx, creds)
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", tokens.RefreshToken)
	return a.tokenRequest(ctx, creds, form)
}

func (a *DeliverooAdapter) tokenRequest(ctx context.Context, creds delivery.Credentials, form url.Values) (delivery.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.AuthBaseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return delivery.TokenSet{}, fmt.Errorf("deliveroo: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return delivery.TokenSet{}, transportErr(delivery.ProviderDeliveroo, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return delivery.TokenSet{}, transportErr(delivery.ProviderDeliveroo, err)
	}
	if err := classifyStatus(delivery.ProviderDeliveroo, resp.StatusCode); err != nil {
		return delivery.TokenSet{}, err
	}

	var tok deliverooTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return delivery.TokenSet{}, fmt.Errorf("deliveroo: failed to parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return delivery.TokenSet{}, fmt.Errorf("%w: deliveroo returned empty access token", delivery.ErrAuth)
	}

	return delivery.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}, nil
}

// ---------------------------------------------------------------------------
// Menu operations
// ---------------------------------------------------------------------------

// TransformMenu renders internal menu items into Deliveroo's menu format.
// Modifier sets are deduplicated by ID and referenced from items.
func (a *DeliverooAdapter) TransformMenu(storeID string, items []delivery.MenuItem) (delivery.MenuPayload, error) {
	menu := deliverooMenu{
		Name:    "Menu",
		SiteIDs: []string{storeID},
		Items:   make([]deliverooMenuItem, 0, len(items)),
	}

	seenSets := make(map[string]struct{})
	for _, item := range items {
		mi := deliverooMenuItem{
			ID:          item.ID.String(),
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price.StringFixed(2),
			Currency:    item.Currency,
			Image:       item.ImageURL,
			Available:   item.Available,
		}
		for _, group := range item.Modifiers {
			setID := group.ID.String()
			mi.ModifierIDs = append(mi.ModifierIDs, setID)
			if _, ok := seenSets[setID]; ok {
				continue
			}
			seenSets[setID] = struct{}{}

			set := deliverooModifierSet{
				ID:         setID,
				Name:       group.Name,
				MinChoices: group.MinSelect,
				MaxChoices: group.MaxSelect,
			}
			for _, opt := range group.Options {
				set.Options = append(set.Options, deliverooModifierOption{
					ID:        opt.ID.String(),
					Name:      opt.Name,
					Price:     opt.Price.StringFixed(2),
					Available: opt.Available,
				})
			}
			menu.Modifiers = append(menu.Modifiers, set)
		}
		menu.Items = append(menu.Items, mi)
	}

	body, err := json.Marshal(menu)
	if err != nil {
		return delivery.MenuPayload{}, fmt.Errorf("deliveroo: failed to marshal menu: %w", err)
	}
	return delivery.MenuPayload{
		Provider:  delivery.ProviderDeliveroo,
		StoreID:   storeID,
		ItemCount: len(items),
		Body:      body,
	}, nil
}

// TransformAvailability renders an item availability update.
func (a *DeliverooAdapter) TransformAvailability(storeID string, changes []delivery.AvailabilityChange, external map[uuid.UUID]string) (delivery.MenuPayload, error) {
	update := deliverooItemUpdate{SiteID: storeID}
	for _, change := range changes {
		id, ok := external[change.ItemID]
		if !ok {
			id = change.ItemID.String()
		}
		if change.Available {
			update.Available = append(update.Available, id)
		} else {
			update.Unavailable = append(update.Unavailable, id)
		}
	}

	body, err := json.Marshal(update)
	if err != nil {
		return delivery.MenuPayload{}, fmt.Errorf("deliveroo: failed to marshal item update: %w", err)
	}
	return delivery.MenuPayload{
		Provider:  delivery.ProviderDeliveroo,
		StoreID:   storeID,
		ItemCount: len(changes),
		Body:      body,
	}, nil
}

// PushMenu submits a menu payload.
func (a *DeliverooAdapter) PushMenu(ctx context.Context, tokens delivery.TokenSet, payload delivery.MenuPayload) error {
	path := fmt.Sprintf("/menu/v1/brands/default/menus/%s", payload.StoreID)
	return a.doJSON(ctx, tokens, http.MethodPut, path, payload.Body)
}

// ---------------------------------------------------------------------------
// Order operations
// ---------------------------------------------------------------------------

// PushOrderStatus reports a canonical state change to Deliveroo.
func (a *DeliverooAdapter) PushOrderStatus(ctx context.Context, tokens delivery.TokenSet, externalOrderID string, state delivery.CanonicalOrderState) error {
	status := mapToDeliverooOrderStatus(state)
	if status == "" {
		return nil
	}
	body, err := json.Marshal(deliverooSyncStatus{
		Status:     status,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("deliveroo: failed to marshal sync status: %w", err)
	}
	path := fmt.Sprintf("/order/v1/orders/%s/sync_status", externalOrderID)
	return a.doJSON(ctx, tokens, http.MethodPost, path, body)
}

// TransformOrder parses a Deliveroo webhook payload into a canonical draft.
func (a *DeliverooAdapter) TransformOrder(payload []byte) (delivery.CanonicalOrderDraft, error) {
	var envelope deliverooOrderEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return delivery.CanonicalOrderDraft{}, fmt.Errorf("%w: deliveroo order payload is not valid JSON: %v", delivery.ErrValidation, err)
	}
	order := envelope.Order
	if order.ID == "" {
		return delivery.CanonicalOrderDraft{}, fmt.Errorf("%w: deliveroo order payload missing id", delivery.ErrValidation)
	}

	draft := delivery.CanonicalOrderDraft{
		Provider:        delivery.ProviderDeliveroo,
		ExternalOrderID: order.ID,
		ExternalStatus:  order.Status,
		State:           a.MapStatus(order.Status),
		StoreID:         order.LocationID,
		CustomerName:    order.Customer.FirstName,
		CustomerPhone:   order.Customer.ContactNumber,
		DeliveryAddress: order.Delivery.AddressLine,
		DeliveryNotes:   order.Delivery.Notes,
		Subtotal:        parseDecimal(order.Subtotal),
		DeliveryFee:     parseDecimal(order.DeliveryFee),
		Total:           parseDecimal(order.Total),
		Currency:        order.Currency,
	}
	if t, err := time.Parse(time.RFC3339, order.PlacedAt); err == nil {
		draft.PlacedAt = t
	}

	for _, item := range order.Items {
		di := delivery.DraftItem{
			ExternalItemID: item.ID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      parseDecimal(item.UnitPrice),
		}
		for _, mod := range item.Modifiers {
			di.Modifiers = append(di.Modifiers, delivery.DraftModifier{
				ExternalID: mod.ID,
				Name:       mod.Name,
				Price:      parseDecimal(mod.Price),
			})
		}
		draft.Items = append(draft.Items, di)
	}
	return draft, nil
}

// VerifyWebhookSignature checks the hex HMAC-SHA256 of the raw body.
func (a *DeliverooAdapter) VerifyWebhookSignature(body []byte, headers http.Header, secret string) bool {
	provided := headers.Get(DeliverooSignatureHeader)
	if provided == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected))
}

// MapStatus converts a Deliveroo status string to the canonical state.
// rider_delayed is informational and maps to unknown.
func (a *DeliverooAdapter) MapStatus(providerStatus string) delivery.CanonicalOrderState {
	switch strings.ToLower(providerStatus) {
	case DeliverooOrderStatusPlaced:
		return delivery.OrderStateReceived
	case DeliverooOrderStatusAccepted:
		return delivery.OrderStateConfirmed
	case DeliverooOrderStatusInKitchen:
		return delivery.OrderStatePreparing
	case DeliverooOrderStatusReady:
		return delivery.OrderStateReady
	case DeliverooOrderStatusCollected:
		return delivery.OrderStateDispatched
	case DeliverooOrderStatusDelivered:
		return delivery.OrderStateDelivered
	case DeliverooOrderStatusCanceled:
		return delivery.OrderStateCancelled
	case DeliverooOrderStatusFailed:
		return delivery.OrderStateFailed
	default:
		return delivery.OrderStateUnknown
	}
}

// mapToDeliverooOrderStatus maps canonical states to Deliveroo sync
// statuses. Empty means no outbound call is needed.
func mapToDeliverooOrderStatus(state delivery.CanonicalOrderState) string {
	switch state {
	case delivery.OrderStateConfirmed:
		return DeliverooOrderStatusAccepted
	case delivery.OrderStatePreparing:
		return DeliverooOrderStatusInKitchen
	case delivery.OrderStateReady:
		return DeliverooOrderStatusReady
	case delivery.OrderStateCancelled:
		return DeliverooOrderStatusCanceled
	default:
		return ""
	}
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (a *DeliverooAdapter) doJSON(ctx context.Context, tokens delivery.TokenSet, method, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("deliveroo: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return transportErr(delivery.ProviderDeliveroo, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
	return classifyStatus(delivery.ProviderDeliveroo, resp.StatusCode)
}

// parseDecimal parses a provider money string, treating malformed or empty
// values as zero. Validation of totals happens downstream.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Ensure DeliverooAdapter implements ProviderAdapter.
var _ delivery.ProviderAdapter = (*DeliverooAdapter)(nil)
