package providers

// Jahez event types and order statuses as they appear in webhook payloads.
const (
	JahezOrderStatusNew            = "N"
	JahezOrderStatusAccepted       = "A"
	JahezOrderStatusOutForDelivery = "O"
	JahezOrderStatusDelivered      = "D"
	JahezOrderStatusCancelled      = "C"
	JahezOrderStatusRejected       = "R"
)

// jahezTokenResponse is the token endpoint response. Jahez tokens are
// long-lived; the API reports no expiry.
type jahezTokenResponse struct {
	Token   string `json:"token"`
	Success bool   `json:"success"`
}

// jahezMenuUpload is the menu upload request body. Jahez takes products
// with embedded modifiers; prices are decimal numbers in SAR.
type jahezMenuUpload struct {
	BranchID string         `json:"branch_id"`
	Products []jahezProduct `json:"products"`
}

type jahezProduct struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       float64         `json:"price"`
	ImagePath   string          `json:"image_path,omitempty"`
	IsVisible   bool            `json:"is_visible"`
	Modifiers   []jahezModifier `json:"modifiers,omitempty"`
}

type jahezModifier struct {
	ModifierID string                `json:"modifier_id"`
	Name       string                `json:"name"`
	MinOptions int                   `json:"min_options"`
	MaxOptions int                   `json:"max_options"`
	Options    []jahezModifierOption `json:"options"`
}

type jahezModifierOption struct {
	OptionID  string  `json:"option_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	IsVisible bool    `json:"is_visible"`
}

// jahezAvailabilityUpload is the product visibility request body.
type jahezAvailabilityUpload struct {
	BranchID string                    `json:"branch_id"`
	Products []jahezProductVisibility `json:"products"`
}

type jahezProductVisibility struct {
	ProductID string `json:"product_id"`
	IsVisible bool   `json:"is_visible"`
}

// jahezOrder is the inbound order webhook payload.
type jahezOrder struct {
	JahezID  string `json:"jahez_id"`
	Status   string `json:"status"`
	BranchID string `json:"branch_id"`
	Customer struct {
		Name   string `json:"name"`
		Mobile string `json:"mobile"`
	} `json:"customer"`
	Address  string           `json:"address"`
	Notes    string           `json:"notes"`
	Products []jahezOrderItem `json:"products"`
	// Amounts are decimal numbers in SAR.
	SubTotal     float64 `json:"sub_total"`
	DeliveryFee  float64 `json:"delivery_fee"`
	FinalPrice   float64 `json:"final_price"`
	CreatedAtISO string  `json:"created_at"` // RFC 3339
}

type jahezOrderItem struct {
	ProductID string               `json:"product_id"`
	Name      string               `json:"name"`
	Quantity  int                  `json:"quantity"`
	Price     float64              `json:"price"`
	Options   []jahezOrderOption   `json:"options,omitempty"`
}

type jahezOrderOption struct {
	OptionID string  `json:"option_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
}

// jahezStatusUpdate is the outbound order status request body.
type jahezStatusUpdate struct {
	JahezID string `json:"jahez_id"`
	Status  string `json:"status"`
}
