// Package providers contains the marketplace adapters. Each provider gets an
// adapter, a config and a types file; all of them classify failures into the
// shared delivery error taxonomy so retry policy stays out of adapter code.
package providers

import (
	"fmt"
	"net/http"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
)

// maxResponseSize limits response bodies to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// classifyStatus maps an HTTP response code to the delivery error taxonomy.
// Auth failures surface as ErrAuth so the caller can refresh once and retry;
// 5xx and 429 are transient; the remaining 4xx are permanent payload faults.
func classifyStatus(provider delivery.ProviderCode, status int) error {
	if status < 400 {
		return nil
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned HTTP %d", delivery.ErrAuth, provider, status)
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %s returned HTTP %d", delivery.ErrConflict, provider, status)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: %s returned HTTP %d", delivery.ErrTransient, provider, status)
	default:
		return fmt.Errorf("%w: %s returned HTTP %d", delivery.ErrValidation, provider, status)
	}
}

// transportErr wraps a network-level failure as transient.
func transportErr(provider delivery.ProviderCode, err error) error {
	return fmt.Errorf("%w: %s request failed: %v", delivery.ErrTransient, provider, err)
}
