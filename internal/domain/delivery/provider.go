package delivery

import "errors"

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// Classification errors. Adapters translate raw provider failures into exactly
// one of these before anything reaches the sync engine or the coordinator, so
// the upper layers never inspect provider-specific error shapes.
var (
	// ErrAuth indicates invalid or expired credentials. Triggers a single
	// forced token refresh and one retry before surfacing.
	ErrAuth = errors.New("delivery: provider authentication failed")
	// ErrValidation indicates a malformed payload or signature. Never retried.
	ErrValidation = errors.New("delivery: payload validation failed")
	// ErrTransient indicates a 5xx, timeout or network failure. Retried with
	// backoff under the resilience policy.
	ErrTransient = errors.New("delivery: transient provider error")
	// ErrConflict indicates a state conflict such as a sync already running.
	// Surfaced to the caller immediately, never retried silently.
	ErrConflict = errors.New("delivery: conflicting operation in progress")
	// ErrCrypto indicates a vault encryption or decryption failure. Fatal for
	// the calling operation.
	ErrCrypto = errors.New("delivery: credential crypto failure")
)

var (
	ErrProviderNotSupported = errors.New("delivery: provider not supported")
	ErrConfigNotFound       = errors.New("delivery: provider configuration not found")
	ErrConfigInactive       = errors.New("delivery: provider configuration is deactivated")
	ErrSyncInProgress       = errors.New("delivery: menu sync already running for this branch and provider")
	ErrSyncJobNotFound      = errors.New("delivery: menu sync job not found")
	ErrSyncJobTerminal      = errors.New("delivery: menu sync job already finished")
	ErrEventNotFound        = errors.New("delivery: webhook event not found")
	ErrMappingNotFound      = errors.New("delivery: mapping not found")
	ErrMappingConflict      = errors.New("delivery: external order already mapped to a different internal order")
	ErrInvalidTenantID      = errors.New("delivery: invalid tenant ID")
	ErrInvalidBranchID      = errors.New("delivery: invalid branch ID")
	ErrInvalidProviderCode  = errors.New("delivery: invalid provider code")
)

// ---------------------------------------------------------------------------
// ProviderCode
// ---------------------------------------------------------------------------

// ProviderCode identifies an external food-delivery marketplace.
type ProviderCode string

const (
	// ProviderCareem represents Careem Now.
	ProviderCareem ProviderCode = "CAREEM"
	// ProviderDeliveroo represents Deliveroo.
	ProviderDeliveroo ProviderCode = "DELIVEROO"
	// ProviderJahez represents Jahez.
	ProviderJahez ProviderCode = "JAHEZ"
	// ProviderTalabat represents Talabat.
	ProviderTalabat ProviderCode = "TALABAT"
)

// IsValid returns true if the provider code is a known marketplace.
func (c ProviderCode) IsValid() bool {
	switch c {
	case ProviderCareem, ProviderDeliveroo, ProviderJahez, ProviderTalabat:
		return true
	default:
		return false
	}
}

// String returns the string representation of ProviderCode.
func (c ProviderCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the provider.
func (c ProviderCode) DisplayName() string {
	switch c {
	case ProviderCareem:
		return "Careem Now"
	case ProviderDeliveroo:
		return "Deliveroo"
	case ProviderJahez:
		return "Jahez"
	case ProviderTalabat:
		return "Talabat"
	default:
		return string(c)
	}
}

// AllProviderCodes returns every known provider code.
func AllProviderCodes() []ProviderCode {
	return []ProviderCode{ProviderCareem, ProviderDeliveroo, ProviderJahez, ProviderTalabat}
}

// ---------------------------------------------------------------------------
// CanonicalOrderState
// ---------------------------------------------------------------------------

// CanonicalOrderState is the platform's own order-status vocabulary,
// independent of any provider's wording.
type CanonicalOrderState string

const (
	OrderStateReceived   CanonicalOrderState = "received"
	OrderStateConfirmed  CanonicalOrderState = "confirmed"
	OrderStatePreparing  CanonicalOrderState = "preparing"
	OrderStateReady      CanonicalOrderState = "ready"
	OrderStateDispatched CanonicalOrderState = "dispatched"
	OrderStateDelivered  CanonicalOrderState = "delivered"
	OrderStateCancelled  CanonicalOrderState = "cancelled"
	OrderStateFailed     CanonicalOrderState = "failed"

	// OrderStateUnknown is returned by adapters for provider statuses they
	// cannot map. It is never persisted: the coordinator logs a warning and
	// treats the transition as a no-op.
	OrderStateUnknown CanonicalOrderState = ""
)

// IsValid returns true if the state is part of the canonical vocabulary.
func (s CanonicalOrderState) IsValid() bool {
	switch s {
	case OrderStateReceived, OrderStateConfirmed, OrderStatePreparing, OrderStateReady,
		OrderStateDispatched, OrderStateDelivered, OrderStateCancelled, OrderStateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of CanonicalOrderState.
func (s CanonicalOrderState) String() string {
	return string(s)
}

// IsTerminal returns true for absorbing states.
func (s CanonicalOrderState) IsTerminal() bool {
	switch s {
	case OrderStateDelivered, OrderStateCancelled, OrderStateFailed:
		return true
	default:
		return false
	}
}

// Rank returns the position of the state in the fixed total order
// received < confirmed < preparing < ready < dispatched < delivered.
// Cancelled and failed sit outside the progression and rank -1.
func (s CanonicalOrderState) Rank() int {
	switch s {
	case OrderStateReceived:
		return 0
	case OrderStateConfirmed:
		return 1
	case OrderStatePreparing:
		return 2
	case OrderStateReady:
		return 3
	case OrderStateDispatched:
		return 4
	case OrderStateDelivered:
		return 5
	default:
		return -1
	}
}

// CanTransitionTo reports whether the lifecycle may move from s to next.
// Forward progress only: a state behind the current one is rejected, guarding
// against out-of-order webhook delivery. Cancelled and failed are absorbing
// and reachable from any non-terminal state.
func (s CanonicalOrderState) CanTransitionTo(next CanonicalOrderState) bool {
	if !next.IsValid() {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	if next == OrderStateCancelled || next == OrderStateFailed {
		return true
	}
	return next.Rank() > s.Rank()
}
