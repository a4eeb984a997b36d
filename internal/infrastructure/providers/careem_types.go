package providers

// Careem order statuses as they appear in webhook payloads and the order API.
const (
	CareemOrderStatusPending        = "PENDING"
	CareemOrderStatusAccepted       = "ACCEPTED"
	CareemOrderStatusPreparing      = "PREPARING"
	CareemOrderStatusReadyForPickup = "READY_FOR_PICKUP"
	CareemOrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	CareemOrderStatusDelivered      = "DELIVERED"
	CareemOrderStatusCancelled      = "CANCELLED"
	CareemOrderStatusFailed         = "FAILED"
)

// careemTokenResponse is the OAuth token endpoint response.
type careemTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// careemCatalog is the menu upload request body. Careem takes the whole
// catalog for a branch in one call; prices are in minor units (fils).
type careemCatalog struct {
	BrandID string              `json:"brand_id,omitempty"`
	Items   []careemCatalogItem `json:"items"`
}

type careemCatalogItem struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Price       int64                   `json:"price"`
	Currency    string                  `json:"currency"`
	ImageURL    string                  `json:"image_url,omitempty"`
	Available   bool                    `json:"available"`
	Options     []careemCatalogOptGroup `json:"option_groups,omitempty"`
}

type careemCatalogOptGroup struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Min     int               `json:"min"`
	Max     int               `json:"max"`
	Options []careemCatalogOpt `json:"options"`
}

type careemCatalogOpt struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Available bool   `json:"available"`
}

// careemAvailabilityUpdate is the items-availability request body.
type careemAvailabilityUpdate struct {
	Items []careemItemAvailability `json:"items"`
}

type careemItemAvailability struct {
	ID        string `json:"id"`
	Available bool   `json:"available"`
}

// careemOrder is the inbound order webhook payload.
type careemOrder struct {
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	BranchID string `json:"branch_id"`
	Customer struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"customer"`
	Delivery struct {
		Address string `json:"address"`
		Notes   string `json:"notes"`
	} `json:"delivery"`
	Items []careemOrderItem `json:"items"`
	// Amounts are in minor units.
	Subtotal    int64  `json:"subtotal"`
	DeliveryFee int64  `json:"delivery_fee"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
	CreatedAt   int64  `json:"created_at"` // Unix seconds
}

type careemOrderItem struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Quantity  int                 `json:"quantity"`
	UnitPrice int64               `json:"unit_price"`
	Options   []careemOrderOption `json:"options,omitempty"`
}

type careemOrderOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// careemStatusUpdate is the outbound order status request body.
type careemStatusUpdate struct {
	Status string `json:"status"`
}
