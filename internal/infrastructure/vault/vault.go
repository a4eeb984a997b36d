// Package vault implements the credential vault on top of an AEAD cipher and
// the provider-configuration repository. Secrets are sealed with a
// tenant-independent master key and a random per-record nonce; plaintext is
// produced only inside Get and never persisted.
package vault

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
)

// Vault implements delivery.CredentialVault.
type Vault struct {
	key    []byte
	repo   delivery.ProviderConfigRepository
	logger *zap.Logger
}

// New creates a vault from a base64-encoded 32-byte master key.
func New(masterKeyB64 string, repo delivery.ProviderConfigRepository, logger *zap.Logger) (*Vault, error) {
	key, err := base64.StdEncoding.DecodeString(masterKeyB64)
	if err != nil {
		return nil, fmt.Errorf("vault: master key is not valid base64: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("vault: master key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Vault{key: key, repo: repo, logger: logger.Named("vault")}, nil
}

// ---------------------------------------------------------------------------
// CredentialVault implementation
// ---------------------------------------------------------------------------

// Put stores or replaces the static credentials for a triple.
func (v *Vault) Put(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode, creds delivery.Credentials) (*delivery.ProviderConfig, error) {
	sealed, err := v.seal(creds)
	if err != nil {
		return nil, err
	}

	cfg, err := v.repo.FindByTriple(ctx, tenantID, branchID, provider)
	if err != nil {
		if err != delivery.ErrConfigNotFound {
			return nil, err
		}
		cfg, err = delivery.NewProviderConfig(tenantID, branchID, provider, creds.StoreID)
		if err != nil {
			return nil, err
		}
	}

	cfg.EncryptedCredentials = sealed
	cfg.StoreID = creds.StoreID
	cfg.UpdatedAt = time.Now()
	if err := v.repo.Save(ctx, cfg); err != nil {
		return nil, err
	}

	v.logger.Info("stored provider credentials",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", provider.String()))
	return cfg, nil
}

// Get returns the decrypted bundle for a triple.
func (v *Vault) Get(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode) (*delivery.SecretBundle, error) {
	cfg, err := v.repo.FindByTriple(ctx, tenantID, branchID, provider)
	if err != nil {
		return nil, err
	}
	if !cfg.IsActive {
		return nil, delivery.ErrConfigInactive
	}

	bundle := &delivery.SecretBundle{
		ConfigID: cfg.ID,
		TenantID: cfg.TenantID,
		BranchID: cfg.BranchID,
		Provider: cfg.Provider,
	}
	if err := v.open(cfg.EncryptedCredentials, &bundle.Credentials); err != nil {
		return nil, err
	}
	if len(cfg.EncryptedTokens) > 0 {
		if err := v.open(cfg.EncryptedTokens, &bundle.Tokens); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

// Rotate replaces the token set. The encrypted column is swapped in a single
// UPDATE, so a concurrent Get sees either the old tokens or the new ones,
// never an empty window.
func (v *Vault) Rotate(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode, tokens delivery.TokenSet) error {
	cfg, err := v.repo.FindByTriple(ctx, tenantID, branchID, provider)
	if err != nil {
		return err
	}

	sealed, err := v.seal(tokens)
	if err != nil {
		return err
	}

	expiresAt := tokens.ExpiresAt
	if err := v.repo.UpdateTokens(ctx, cfg.ID, sealed, &expiresAt); err != nil {
		return err
	}

	v.logger.Info("rotated provider tokens",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider", provider.String()),
		zap.Time("expires_at", expiresAt))
	return nil
}

// ---------------------------------------------------------------------------
// Sealing helpers
// ---------------------------------------------------------------------------

// seal marshals val to JSON and encrypts it. The nonce is prepended to the
// ciphertext.
func (v *Vault) seal(val any) ([]byte, error) {
	plaintext, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrCrypto, err)
	}

	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrCrypto, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", delivery.ErrCrypto, err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts a sealed blob into out.
func (v *Vault) open(sealed []byte, out any) error {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return fmt.Errorf("%w: %v", delivery.ErrCrypto, err)
	}
	if len(sealed) < aead.NonceSize() {
		return fmt.Errorf("%w: ciphertext too short", delivery.ErrCrypto)
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", delivery.ErrCrypto, err)
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("%w: %v", delivery.ErrCrypto, err)
	}
	return nil
}

// Ensure Vault implements CredentialVault.
var _ delivery.CredentialVault = (*Vault)(nil)
