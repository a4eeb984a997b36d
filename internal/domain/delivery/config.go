package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// ProviderConfig Entity
// ---------------------------------------------------------------------------

// ProviderConfig ties a (tenant, branch, provider) triple to its encrypted
// credentials and live token state. It is owned exclusively by the credential
// vault: tokens change only through Rotate, credentials only through Put.
// Configs referenced by orders are never deleted, only deactivated.
type ProviderConfig struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	BranchID uuid.UUID
	Provider ProviderCode
	// EncryptedCredentials is the AEAD-sealed Credentials bundle. Plaintext
	// never leaves the vault boundary except as the return value of Get.
	EncryptedCredentials []byte
	// EncryptedTokens is the AEAD-sealed TokenSet, empty until the first
	// authentication.
	EncryptedTokens []byte
	TokenExpiresAt  *time.Time
	// StoreID mirrors the provider-assigned store identifier for lookups
	// without decrypting the bundle.
	StoreID   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProviderConfig creates an active configuration shell. The encrypted
// fields are populated by the vault.
func NewProviderConfig(tenantID, branchID uuid.UUID, provider ProviderCode, storeID string) (*ProviderConfig, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if branchID == uuid.Nil {
		return nil, ErrInvalidBranchID
	}
	if !provider.IsValid() {
		return nil, ErrInvalidProviderCode
	}

	now := time.Now()
	return &ProviderConfig{
		ID:        uuid.New(),
		TenantID:  tenantID,
		BranchID:  branchID,
		Provider:  provider,
		StoreID:   storeID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Deactivate soft-deletes the configuration.
func (c *ProviderConfig) Deactivate() {
	c.IsActive = false
	c.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// SecretBundle
// ---------------------------------------------------------------------------

// SecretBundle is the decrypted view of a provider configuration returned by
// the vault. Callers must not retain it beyond the scope of one operation.
type SecretBundle struct {
	ConfigID    uuid.UUID
	TenantID    uuid.UUID
	BranchID    uuid.UUID
	Provider    ProviderCode
	Credentials Credentials
	Tokens      TokenSet
}

// ---------------------------------------------------------------------------
// CredentialVault port
// ---------------------------------------------------------------------------

// CredentialVault is the single source of truth for provider secrets. All
// reads decrypt on demand; no component caches tokens outside the vault.
type CredentialVault interface {
	// Put stores (or replaces) the static credentials for a triple.
	Put(ctx context.Context, tenantID, branchID uuid.UUID, provider ProviderCode, creds Credentials) (*ProviderConfig, error)

	// Get returns the decrypted bundle, ErrConfigNotFound if absent, or
	// ErrCrypto on decryption failure.
	Get(ctx context.Context, tenantID, branchID uuid.UUID, provider ProviderCode) (*SecretBundle, error)

	// Rotate transactionally replaces the token set. The old tokens stay
	// readable until the new ones are durably stored, so there is never a
	// window with no usable token.
	Rotate(ctx context.Context, tenantID, branchID uuid.UUID, provider ProviderCode, tokens TokenSet) error
}

// ---------------------------------------------------------------------------
// ProviderConfigRepository
// ---------------------------------------------------------------------------

// ProviderConfigRepository persists provider configurations. Only the vault
// writes the encrypted columns.
type ProviderConfigRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProviderConfig, error)

	// FindByTriple finds the active config for a (tenant, branch, provider).
	FindByTriple(ctx context.Context, tenantID, branchID uuid.UUID, provider ProviderCode) (*ProviderConfig, error)

	// FindByTenant lists all configs for a tenant, active or not.
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]ProviderConfig, error)

	Save(ctx context.Context, cfg *ProviderConfig) error

	// UpdateTokens replaces only the encrypted token columns and expiry, in a
	// single statement so Rotate is atomic.
	UpdateTokens(ctx context.Context, id uuid.UUID, encryptedTokens []byte, expiresAt *time.Time) error

	// Deactivate flips the active flag without touching secrets.
	Deactivate(ctx context.Context, id uuid.UUID) error
}
