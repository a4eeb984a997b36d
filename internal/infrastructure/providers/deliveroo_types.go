package providers

// Deliveroo order statuses as they appear in webhook payloads.
const (
	DeliverooOrderStatusPlaced      = "placed"
	DeliverooOrderStatusAccepted    = "accepted"
	DeliverooOrderStatusInKitchen   = "in_kitchen"
	DeliverooOrderStatusReady       = "ready_for_collection"
	DeliverooOrderStatusCollected   = "collected"
	DeliverooOrderStatusDelivered   = "delivered"
	DeliverooOrderStatusCanceled    = "canceled"
	DeliverooOrderStatusFailed      = "failed"
	DeliverooOrderStatusRiderDelay  = "rider_delayed"
)

// deliverooTokenResponse is the OAuth token endpoint response.
type deliverooTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// deliverooMenu is the menu upload request body. Deliveroo separates items
// from modifier groups and references them by ID; prices are strings in
// major units.
type deliverooMenu struct {
	Name       string                 `json:"name"`
	Items      []deliverooMenuItem    `json:"items"`
	Modifiers  []deliverooModifierSet `json:"modifiers,omitempty"`
	SiteIDs    []string               `json:"site_ids"`
}

type deliverooMenuItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       string   `json:"price"`
	Currency    string   `json:"currency"`
	Image       string   `json:"image,omitempty"`
	Available   bool     `json:"available"`
	ModifierIDs []string `json:"modifier_ids,omitempty"`
}

type deliverooModifierSet struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	MinChoices int                     `json:"min_choices"`
	MaxChoices int                     `json:"max_choices"`
	Options   []deliverooModifierOption `json:"options"`
}

type deliverooModifierOption struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Available bool   `json:"available"`
}

// deliverooItemUpdate is the unavailabilities request body.
type deliverooItemUpdate struct {
	SiteID      string   `json:"site_id"`
	Unavailable []string `json:"unavailable_ids"`
	Available   []string `json:"available_ids"`
}

// deliverooOrderEnvelope wraps the order in webhook payloads.
type deliverooOrderEnvelope struct {
	Event string         `json:"event"`
	Order deliverooOrder `json:"body"`
}

type deliverooOrder struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	LocationID string `json:"location_id"`
	Customer   struct {
		FirstName     string `json:"first_name"`
		ContactNumber string `json:"contact_number"`
	} `json:"customer"`
	Delivery struct {
		AddressLine string `json:"address_line"`
		Notes       string `json:"notes"`
	} `json:"delivery"`
	Items []deliverooOrderItem `json:"items"`
	// Amounts are strings in major units, e.g. "12.50".
	Subtotal    string `json:"subtotal"`
	DeliveryFee string `json:"delivery_fee"`
	Total       string `json:"total"`
	Currency    string `json:"currency"`
	PlacedAt    string `json:"placed_at"` // RFC 3339
}

type deliverooOrderItem struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Quantity  int                      `json:"quantity"`
	UnitPrice string                   `json:"unit_price"`
	Modifiers []deliverooOrderModifier `json:"modifiers,omitempty"`
}

type deliverooOrderModifier struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// deliverooSyncStatus is the outbound order status request body.
type deliverooSyncStatus struct {
	Status     string `json:"status"`
	OccurredAt string `json:"occurred_at"`
}
