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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
)

// JahezSignatureHeader carries the webhook HMAC as lowercase hex.
const JahezSignatureHeader = "X-Jahez-Signature"

// jahezTokenLifetime is how long an issued token is treated as valid. Jahez
// tokens are long-lived and carry no expiry in the response.
const jahezTokenLifetime = 24 * time.Hour

// JahezAdapter implements delivery.ProviderAdapter for Jahez. Jahez uses a
// static API key exchanged for a long-lived token, single-letter order
// statuses, and hex HMAC-SHA256 webhook signatures.
type JahezAdapter struct {
	config     *JahezConfig
	httpClient *http.Client
}

// NewJahezAdapter creates a Jahez adapter with the given configuration.
func NewJahezAdapter(config *JahezConfig) (*JahezAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &JahezAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Code returns the provider code this adapter handles.
func (a *JahezAdapter) Code() delivery.ProviderCode {
	return delivery.ProviderJahez
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// Authenticate exchanges the API key pair for a long-lived token.
func (a *JahezAdapter) Authenticate(ctx context.Context, creds delivery.Credentials) (delivery.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.APIBaseURL+"/token", nil)
	if err != nil {
		return delivery.TokenSet{}, fmt.Errorf("jahez: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", creds.ClientID)
	req.Header.Set("x-api-secret", creds.ClientSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return delivery.TokenSet{}, transportErr(delivery.ProviderJahez, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return delivery.TokenSet{}, transportErr(delivery.ProviderJahez, err)
	}
	if err := classifyStatus(delivery.ProviderJahez, resp.StatusCode); err != nil {
		return delivery.TokenSet{}, err
	}

	var tok jahezTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return delivery.TokenSet{}, fmt.Errorf("jahez: failed to parse token response: %w", err)
	}
	if tok.Token == "" {
		return delivery.TokenSet{}, fmt.Errorf("%w: jahez returned empty token", delivery.ErrAuth)
	}

	return delivery.TokenSet{
		AccessToken: tok.Token,
		ExpiresAt:   time.Now().Add(jahezTokenLifetime),
	}, nil
}

// Refresh re-authenticates. Jahez has no refresh grant.
func (a *JahezAdapter) Refresh(ctx context.Context, creds delivery.Credentials, _ delivery.TokenSet) (delivery.TokenSet, error) {
	return a.Authenticate(ctx, creds)
}

// ---------------------------------------------------------------------------
// Menu operations
// ---------------------------------------------------------------------------

// TransformMenu renders internal menu items into Jahez's product format.
func (a *JahezAdapter) TransformMenu(storeID string, items []delivery.MenuItem) (delivery.MenuPayload, error) {
	upload := jahezMenuUpload{
		BranchID: storeID,
		Products: make([]jahezProduct, 0, len(items)),
	}

	for _, item := range items {
		p := jahezProduct{
			ProductID:   item.ID.String(),
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price.InexactFloat64(),
			ImagePath:   item.ImageURL,
			IsVisible:   item.Available,
		}
		for _, group := range item.Modifiers {
			m := jahezModifier{
				ModifierID: group.ID.String(),
				Name:       group.Name,
				MinOptions: group.MinSelect,
				MaxOptions: group.MaxSelect,
			}
			for _, opt := range group.Options {
				m.Options = append(m.Options, jahezModifierOption{
					OptionID:  opt.ID.String(),
					Name:      opt.Name,
					Price:     opt.Price.InexactFloat64(),
					IsVisible: opt.Available,
				})
			}
			p.Modifiers = append(p.Modifiers, m)
		}
		upload.Products = append(upload.Products, p)
	}

	body, err := json.Marshal(upload)
	if err != nil {
		return delivery.MenuPayload{}, fmt.Errorf("jahez: failed to marshal menu upload: %w", err)
	}
	return delivery.MenuPayload{
		Provider:  delivery.ProviderJahez,
		StoreID:   storeID,
		ItemCount: len(items),
		Body:      body,
	}, nil
}

// TransformAvailability renders a visibility-only update.
func (a *JahezAdapter) TransformAvailability(storeID string, changes []delivery.AvailabilityChange, external map[uuid.UUID]string) (delivery.MenuPayload, error) {
	upload := jahezAvailabilityUpload{BranchID: storeID}
	for _, change := range changes {
		id, ok := external[change.ItemID]
		if !ok {
			id = change.ItemID.String()
		}
		upload.Products = append(upload.Products, jahezProductVisibility{
			ProductID: id,
			IsVisible: change.Available,
		})
	}

	body, err := json.Marshal(upload)
	if err != nil {
		return delivery.MenuPayload{}, fmt.Errorf("jahez: failed to marshal availability upload: %w", err)
	}
	return delivery.MenuPayload{
		Provider:  delivery.ProviderJahez,
		StoreID:   storeID,
		ItemCount: len(changes),
		Body:      body,
	}, nil
}

// PushMenu submits a menu payload.
func (a *JahezAdapter) PushMenu(ctx context.Context, tokens delivery.TokenSet, payload delivery.MenuPayload) error {
	return a.doJSON(ctx, tokens, http.MethodPost, "/categories/categories_upload", payload.Body)
}

// ---------------------------------------------------------------------------
// Order operations
// ---------------------------------------------------------------------------

// PushOrderStatus reports a canonical state change to Jahez.
func (a *JahezAdapter) PushOrderStatus(ctx context.Context, tokens delivery.TokenSet, externalOrderID string, state delivery.CanonicalOrderState) error {
	status := mapToJahezOrderStatus(state)
	if status == "" {
		return nil
	}
	body, err := json.Marshal(jahezStatusUpdate{JahezID: externalOrderID, Status: status})
	if err != nil {
		return fmt.Errorf("jahez: failed to marshal status update: %w", err)
	}
	return a.doJSON(ctx, tokens, http.MethodPost, "/webhooks/status_update", body)
}

// TransformOrder parses a Jahez order payload into a canonical draft.
func (a *JahezAdapter) TransformOrder(payload []byte) (delivery.CanonicalOrderDraft, error) {
	var order jahezOrder
	if err := json.Unmarshal(payload, &order); err != nil {
		return delivery.CanonicalOrderDraft{}, fmt.Errorf("%w: jahez order payload is not valid JSON: %v", delivery.ErrValidation, err)
	}
	if order.JahezID == "" {
		return delivery.CanonicalOrderDraft{}, fmt.Errorf("%w: jahez order payload missing jahez_id", delivery.ErrValidation)
	}

	draft := delivery.CanonicalOrderDraft{
		Provider:        delivery.ProviderJahez,
		ExternalOrderID: order.JahezID,
		ExternalStatus:  order.Status,
		State:           a.MapStatus(order.Status),
		StoreID:         order.BranchID,
		CustomerName:    order.Customer.Name,
		CustomerPhone:   order.Customer.Mobile,
		DeliveryAddress: order.Address,
		DeliveryNotes:   order.Notes,
		Subtotal:        decimal.NewFromFloat(order.SubTotal),
		DeliveryFee:     decimal.NewFromFloat(order.DeliveryFee),
		Total:           decimal.NewFromFloat(order.FinalPrice),
		Currency:        "SAR",
	}
	if t, err := time.Parse(time.RFC3339, order.CreatedAtISO); err == nil {
		draft.PlacedAt = t
	}

	for _, item := range order.Products {
		di := delivery.DraftItem{
			ExternalItemID: item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      decimal.NewFromFloat(item.Price),
		}
		for _, opt := range item.Options {
			di.Modifiers = append(di.Modifiers, delivery.DraftModifier{
				ExternalID: opt.OptionID,
				Name:       opt.Name,
				Price:      decimal.NewFromFloat(opt.Price),
			})
		}
		draft.Items = append(draft.Items, di)
	}
	return draft, nil
}

// VerifyWebhookSignature checks the hex HMAC-SHA256 of the raw body.
func (a *JahezAdapter) VerifyWebhookSignature(body []byte, headers http.Header, secret string) bool {
	provided := headers.Get(JahezSignatureHeader)
	if provided == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected))
}

// MapStatus converts a Jahez single-letter status to the canonical state.
// Jahez has no separate preparing/ready signals; acceptance is the last
// kitchen-side status it reports.
func (a *JahezAdapter) MapStatus(providerStatus string) delivery.CanonicalOrderState {
	switch strings.ToUpper(providerStatus) {
	case JahezOrderStatusNew:
		return delivery.OrderStateReceived
	case JahezOrderStatusAccepted:
		return delivery.OrderStateConfirmed
	case JahezOrderStatusOutForDelivery:
		return delivery.OrderStateDispatched
	case JahezOrderStatusDelivered:
		return delivery.OrderStateDelivered
	case JahezOrderStatusCancelled:
		return delivery.OrderStateCancelled
	case JahezOrderStatusRejected:
		return delivery.OrderStateFailed
	default:
		return delivery.OrderStateUnknown
	}
}

// mapToJahezOrderStatus maps canonical states to the statuses Jahez accepts.
// Empty means no outbound call is needed.
func mapToJahezOrderStatus(state delivery.CanonicalOrderState) string {
	switch state {
	case delivery.OrderStateConfirmed:
		return JahezOrderStatusAccepted
	case delivery.OrderStateCancelled:
		return JahezOrderStatusCancelled
	default:
		return ""
	}
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (a *JahezAdapter) doJSON(ctx context.Context, tokens delivery.TokenSet, method, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("jahez: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return transportErr(delivery.ProviderJahez, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
	return classifyStatus(delivery.ProviderJahez, resp.StatusCode)
}

// Ensure JahezAdapter implements ProviderAdapter.
var _ delivery.ProviderAdapter = (*JahezAdapter)(nil)
