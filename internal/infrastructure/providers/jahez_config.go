package providers

import "errors"

// JahezConfig holds configuration for the Jahez API integration.
type JahezConfig struct {
	// APIBaseURL is the base URL for the Jahez integration API.
	APIBaseURL string
	// IsStaging indicates if this is the staging environment.
	IsStaging bool
	// TimeoutSeconds is the HTTP request timeout.
	TimeoutSeconds int
}

const (
	// JahezProductionAPIURL is the production API endpoint.
	JahezProductionAPIURL = "https://integration-api.jahez.net"
	// JahezStagingAPIURL is the staging API endpoint.
	JahezStagingAPIURL = "https://integration-api-staging.jahez.net"
)

// ErrJahezConfigMissingBaseURL is returned when no API base URL can be
// derived.
var ErrJahezConfigMissingBaseURL = errors.New("jahez: API base URL is required")

// NewJahezConfig creates a Jahez configuration with production defaults.
func NewJahezConfig() *JahezConfig {
	return &JahezConfig{
		APIBaseURL:     JahezProductionAPIURL,
		IsStaging:      false,
		TimeoutSeconds: 30,
	}
}

// Validate validates the configuration, filling defaults where possible.
func (c *JahezConfig) Validate() error {
	if c.APIBaseURL == "" {
		if c.IsStaging {
			c.APIBaseURL = JahezStagingAPIURL
		} else {
			c.APIBaseURL = JahezProductionAPIURL
		}
	}
	if c.APIBaseURL == "" {
		return ErrJahezConfigMissingBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
