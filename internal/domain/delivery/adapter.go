package delivery

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Credentials and tokens
// ---------------------------------------------------------------------------

// Credentials are the static secrets issued by a provider for one store.
type Credentials struct {
	// ClientID is the OAuth client or app identifier.
	ClientID string `json:"client_id"`
	// ClientSecret is the OAuth client secret or static API key.
	ClientSecret string `json:"client_secret"`
	// StoreID is the provider-assigned identifier of the branch.
	StoreID string `json:"store_id"`
	// WebhookSecret signs inbound webhook payloads.
	WebhookSecret string `json:"webhook_secret"`
}

// TokenSet holds the live access/refresh token pair for one provider session.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsExpired reports whether the access token has expired, applying a safety
// margin so a token about to lapse is refreshed before the outbound call.
func (t TokenSet) IsExpired(margin time.Duration) bool {
	if t.AccessToken == "" {
		return true
	}
	return !time.Now().Add(margin).Before(t.ExpiresAt)
}

// ---------------------------------------------------------------------------
// Menu wire payloads
// ---------------------------------------------------------------------------

// MenuPayload is the provider-specific wire form of one menu batch, produced
// by an adapter's TransformMenu. Body is the serialized request body; the
// engine treats it as opaque.
type MenuPayload struct {
	Provider  ProviderCode
	StoreID   string
	ItemCount int
	Body      []byte
}

// AvailabilityChange flips the availability flag of one already-synced item.
type AvailabilityChange struct {
	ItemID    uuid.UUID
	Available bool
}

// ---------------------------------------------------------------------------
// Canonical order draft
// ---------------------------------------------------------------------------

// CanonicalOrderDraft is the provider-independent rendering of an inbound
// order payload, handed to the hosting platform's order subsystem.
type CanonicalOrderDraft struct {
	Provider        ProviderCode
	ExternalOrderID string
	ExternalStatus  string
	State           CanonicalOrderState
	StoreID         string
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	DeliveryNotes   string
	Items           []DraftItem
	Subtotal        decimal.Decimal
	DeliveryFee     decimal.Decimal
	Total           decimal.Decimal
	Currency        string
	PlacedAt        time.Time
}

// DraftItem is one line of a canonical order draft.
type DraftItem struct {
	ExternalItemID string
	Name           string
	Quantity       int
	UnitPrice      decimal.Decimal
	Modifiers      []DraftModifier
}

// DraftModifier is a selected modifier option on a draft item.
type DraftModifier struct {
	ExternalID string
	Name       string
	Price      decimal.Decimal
}

// ---------------------------------------------------------------------------
// ProviderAdapter port
// ---------------------------------------------------------------------------

// ProviderAdapter is the fixed capability surface each marketplace implements.
// One concrete adapter exists per provider, selected by code through the
// AdapterRegistry; callers never branch on concrete types.
type ProviderAdapter interface {
	// Code returns the provider this adapter handles.
	Code() ProviderCode

	// Authenticate exchanges static credentials for a token set.
	Authenticate(ctx context.Context, creds Credentials) (TokenSet, error)

	// Refresh obtains a fresh token set from an expired or expiring one.
	// Adapters without a refresh grant re-authenticate instead.
	Refresh(ctx context.Context, creds Credentials, tokens TokenSet) (TokenSet, error)

	// TransformMenu renders one batch of internal menu items into the
	// provider's wire format.
	TransformMenu(storeID string, items []MenuItem) (MenuPayload, error)

	// TransformAvailability renders an availability-only update. It bypasses
	// the full menu transformation and produces a minimal payload.
	TransformAvailability(storeID string, changes []AvailabilityChange, external map[uuid.UUID]string) (MenuPayload, error)

	// PushMenu submits a transformed payload to the provider.
	PushMenu(ctx context.Context, tokens TokenSet, payload MenuPayload) error

	// PushOrderStatus reports a canonical state change back to the provider.
	PushOrderStatus(ctx context.Context, tokens TokenSet, externalOrderID string, state CanonicalOrderState) error

	// TransformOrder parses a provider order payload into a canonical draft.
	TransformOrder(payload []byte) (CanonicalOrderDraft, error)

	// VerifyWebhookSignature checks the authenticity of a raw webhook body.
	VerifyWebhookSignature(body []byte, headers http.Header, secret string) bool

	// MapStatus converts a provider status string to the canonical state.
	// Unknown statuses map to OrderStateUnknown, never to an error.
	MapStatus(providerStatus string) CanonicalOrderState
}

// AdapterRegistry resolves the adapter for a provider code.
type AdapterRegistry interface {
	// Adapter returns the adapter for the given code, or
	// ErrProviderNotSupported.
	Adapter(code ProviderCode) (ProviderAdapter, error)

	// Adapters returns every registered adapter.
	Adapters() []ProviderAdapter
}
