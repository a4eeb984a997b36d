package providers

import "errors"

// DeliverooConfig holds configuration for the Deliveroo partner API
// integration.
type DeliverooConfig struct {
	// APIBaseURL is the base URL for the Deliveroo partner API.
	APIBaseURL string
	// AuthBaseURL is the base URL for the OAuth token service. Deliveroo
	// runs auth on a separate host.
	AuthBaseURL string
	// IsSandbox indicates if this is a sandbox environment.
	IsSandbox bool
	// TimeoutSeconds is the HTTP request timeout.
	TimeoutSeconds int
}

const (
	// DeliverooProductionAPIURL is the production API endpoint.
	DeliverooProductionAPIURL = "https://api.developers.deliveroo.com"
	// DeliverooProductionAuthURL is the production OAuth endpoint.
	DeliverooProductionAuthURL = "https://auth.developers.deliveroo.com"
	// DeliverooSandboxAPIURL is the sandbox API endpoint.
	DeliverooSandboxAPIURL = "https://api-sandbox.developers.deliveroo.com"
	// DeliverooSandboxAuthURL is the sandbox OAuth endpoint.
	DeliverooSandboxAuthURL = "https://auth-sandbox.developers.deliveroo.com"
)

// ErrDeliverooConfigMissingBaseURL is returned when no API base URL can be
// derived.
var ErrDeliverooConfigMissingBaseURL = errors.New("deliveroo: API base URL is required")

// NewDeliverooConfig creates a Deliveroo configuration with production
// defaults.
func NewDeliverooConfig() *DeliverooConfig {
	return &DeliverooConfig{
		APIBaseURL:     DeliverooProductionAPIURL,
		AuthBaseURL:    DeliverooProductionAuthURL,
		IsSandbox:      false,
		TimeoutSeconds: 30,
	}
}

// Validate validates the configuration, filling defaults where possible.
func (c *DeliverooConfig) Validate() error {
	if c.APIBaseURL == "" {
		if c.IsSandbox {
			c.APIBaseURL = DeliverooSandboxAPIURL
		} else {
			c.APIBaseURL = DeliverooProductionAPIURL
		}
	}
	if c.AuthBaseURL == "" {
		if c.IsSandbox {
			c.AuthBaseURL = DeliverooSandboxAuthURL
		} else {
			c.AuthBaseURL = DeliverooProductionAuthURL
		}
	}
	if c.APIBaseURL == "" {
		return ErrDeliverooConfigMissingBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
