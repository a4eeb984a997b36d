// Package delivery contains the application services of the provider
// integration engine: credential administration, menu synchronization,
// webhook ingestion and the order lifecycle coordinator.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/resilience"
	"github.com/google/uuid"
)

// defaultExpiryMargin refreshes tokens that lapse within the margin so an
// outbound call never races its own token expiry.
const defaultExpiryMargin = 2 * time.Minute

// TokenSource hands out valid provider tokens, refreshing through the vault
// when needed. Concurrent refreshes for the same configuration are collapsed
// into one provider call via singleflight.
type TokenSource struct {
	vault    delivery.CredentialVault
	registry delivery.AdapterRegistry
	margin   time.Duration
	group    singleflight.Group
	logger   *zap.Logger
}

// NewTokenSource creates a token source with the default expiry margin.
func NewTokenSource(vault delivery.CredentialVault, registry delivery.AdapterRegistry, logger *zap.Logger) *TokenSource {
	return &TokenSource{
		vault:    vault,
		registry: registry,
		margin:   defaultExpiryMargin,
		logger:   logger.Named("tokens"),
	}
}

// Tokens returns a token set valid for at least the expiry margin,
// authenticating or refreshing first when necessary.
func (ts *TokenSource) Tokens(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode) (delivery.TokenSet, error) {
	bundle, err := ts.vault.Get(ctx, tenantID, branchID, provider)
	if err != nil {
		return delivery.TokenSet{}, err
	}
	if !bundle.Tokens.IsExpired(ts.margin) {
		return bundle.Tokens, nil
	}
	return ts.refresh(ctx, bundle)
}

// ForceRefresh discards the cached tokens and obtains fresh ones. Called
// after a provider rejects a token the vault still considered valid.
func (ts *TokenSource) ForceRefresh(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode) (delivery.TokenSet, error) {
	bundle, err := ts.vault.Get(ctx, tenantID, branchID, provider)
	if err != nil {
		return delivery.TokenSet{}, err
	}
	return ts.refresh(ctx, bundle)
}

// pushWithFreshTokens runs one provider push under the retry policy. When
// the provider rejects a token the vault still considered valid, it forces
// a refresh once and tries again within the same attempt, so a revoked
// token costs one extra round-trip instead of failing the push.
func pushWithFreshTokens(ctx context.Context, policy resilience.Policy, ts *TokenSource, tenantID, branchID uuid.UUID, provider delivery.ProviderCode, push func(delivery.TokenSet) error) error {
	refreshed := false
	return policy.Do(ctx, func() error {
		tokens, err := ts.Tokens(ctx, tenantID, branchID, provider)
		if err != nil {
			return err
		}
		err = push(tokens)
		if errors.Is(err, delivery.ErrAuth) && !refreshed {
			refreshed = true
			tokens, err = ts.ForceRefresh(ctx, tenantID, branchID, provider)
			if err != nil {
				return err
			}
			err = push(tokens)
		}
		return err
	})
}

// refresh runs one provider round-trip per configuration, no matter how many
// callers ask at once, and rotates the result into the vault.
func (ts *TokenSource) refresh(ctx context.Context, bundle *delivery.SecretBundle) (delivery.TokenSet, error) {
	key := bundle.ConfigID.String()
	result, err, _ := ts.group.Do(key, func() (any, error) {
		adapter, err := ts.registry.Adapter(bundle.Provider)
		if err != nil {
			return nil, err
		}

		tokens, err := adapter.Refresh(ctx, bundle.Credentials, bundle.Tokens)
		if err != nil {
			return nil, fmt.Errorf("token refresh for %s failed: %w", bundle.Provider, err)
		}
		if err := ts.vault.Rotate(ctx, bundle.TenantID, bundle.BranchID, bundle.Provider, tokens); err != nil {
			return nil, err
		}

		ts.logger.Info("refreshed provider tokens",
			zap.String("tenant_id", bundle.TenantID.String()),
			zap.String("provider", bundle.Provider.String()),
			zap.Time("expires_at", tokens.ExpiresAt))
		return tokens, nil
	})
	if err != nil {
		return delivery.TokenSet{}, err
	}
	return result.(delivery.TokenSet), nil
}
