// Package delivery contains the domain model for the delivery marketplace
// integration engine: provider codes, the canonical order lifecycle, per-tenant
// provider configurations, menu synchronization jobs, webhook events, and the
// identifier mappings between internal entities and their provider-side
// counterparts.
//
// The package follows the Ports & Adapters pattern: all external capabilities
// (provider APIs, the credential vault, the webhook queue, persistence) are
// defined here as interfaces and implemented in the infrastructure layer.
package delivery
