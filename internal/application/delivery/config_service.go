package delivery

import (
	"context"

	"go.uber.org/zap"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/google/uuid"
)

// ConfigService administers provider configurations. Secrets flow through
// the vault only; this service never sees or returns plaintext credentials
// after registration.
type ConfigService struct {
	vault    delivery.CredentialVault
	configs  delivery.ProviderConfigRepository
	registry delivery.AdapterRegistry
	logger   *zap.Logger
}

// NewConfigService creates a new ConfigService.
func NewConfigService(vault delivery.CredentialVault, configs delivery.ProviderConfigRepository, registry delivery.AdapterRegistry, logger *zap.Logger) *ConfigService {
	return &ConfigService{
		vault:    vault,
		configs:  configs,
		registry: registry,
		logger:   logger.Named("provider-config"),
	}
}

// Register stores credentials for a triple and verifies them with one
// authentication round-trip before accepting them.
func (s *ConfigService) Register(ctx context.Context, req RegisterProviderRequest) (ProviderConfigView, error) {
	adapter, err := s.registry.Adapter(req.Provider)
	if err != nil {
		return ProviderConfigView{}, err
	}

	// Reject credentials the provider itself refuses.
	tokens, err := adapter.Authenticate(ctx, req.Credentials)
	if err != nil {
		return ProviderConfigView{}, err
	}

	cfg, err := s.vault.Put(ctx, req.TenantID, req.BranchID, req.Provider, req.Credentials)
	if err != nil {
		return ProviderConfigView{}, err
	}
	if err := s.vault.Rotate(ctx, req.TenantID, req.BranchID, req.Provider, tokens); err != nil {
		return ProviderConfigView{}, err
	}

	s.logger.Info("registered provider configuration",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("provider", req.Provider.String()))

	// Re-read so the view carries the token expiry written by Rotate.
	stored, err := s.configs.FindByID(ctx, cfg.ID)
	if err != nil {
		return NewProviderConfigView(cfg), nil
	}
	return NewProviderConfigView(stored), nil
}

// List returns the secret-free views of all configs for a tenant.
func (s *ConfigService) List(ctx context.Context, tenantID uuid.UUID) ([]ProviderConfigView, error) {
	configs, err := s.configs.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	views := make([]ProviderConfigView, len(configs))
	for i := range configs {
		views[i] = NewProviderConfigView(&configs[i])
	}
	return views, nil
}

// Deactivate soft-deletes a config. Orders referencing it keep working from
// history; new syncs and webhooks are refused.
func (s *ConfigService) Deactivate(ctx context.Context, tenantID, configID uuid.UUID) error {
	cfg, err := s.configs.FindByID(ctx, configID)
	if err != nil {
		return err
	}
	if cfg.TenantID != tenantID {
		return delivery.ErrConfigNotFound
	}
	if err := s.configs.Deactivate(ctx, configID); err != nil {
		return err
	}

	s.logger.Info("deactivated provider configuration",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", cfg.Provider.String()))
	return nil
}
