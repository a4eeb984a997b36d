package providers

import "errors"

// CareemConfig holds configuration for the Careem Now API integration.
type CareemConfig struct {
	// APIBaseURL is the base URL for the Careem partner API.
	APIBaseURL string
	// IsSandbox indicates if this is a sandbox environment.
	IsSandbox bool
	// TimeoutSeconds is the HTTP request timeout.
	TimeoutSeconds int
}

const (
	// CareemProductionAPIURL is the production API endpoint.
	CareemProductionAPIURL = "https://partners-api.careem.com"
	// CareemSandboxAPIURL is the sandbox API endpoint.
	CareemSandboxAPIURL = "https://partners-api-sandbox.careem.com"
)

// ErrCareemConfigMissingBaseURL is returned when no API base URL can be
// derived.
var ErrCareemConfigMissingBaseURL = errors.New("careem: API base URL is required")

// NewCareemConfig creates a Careem configuration with production defaults.
func NewCareemConfig() *CareemConfig {
	return &CareemConfig{
		APIBaseURL:     CareemProductionAPIURL,
		IsSandbox:      false,
		TimeoutSeconds: 30,
	}
}

// Validate validates the configuration, filling defaults where possible.
func (c *CareemConfig) Validate() error {
	if c.APIBaseURL == "" {
		if c.IsSandbox {
			c.APIBaseURL = CareemSandboxAPIURL
		} else {
			c.APIBaseURL = CareemProductionAPIURL
		}
	}
	if c.APIBaseURL == "" {
		return ErrCareemConfigMissingBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
