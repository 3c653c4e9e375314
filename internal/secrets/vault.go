package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/arwahdevops/fplsync/internal/config"
)

// VaultManager implements the SecretManager interface for HashiCorp Vault.
type VaultManager struct {
	client *vault.Client
	cfg    *config.Config
	logger *zap.Logger
	mount  string
}

func NewVaultManager(cfg *config.Config, baseLogger *zap.Logger) (*VaultManager, error) {
	log := baseLogger.Named("vault-manager")
	if !cfg.VaultEnabled {
		log.Debug("Vault secret manager is disabled via configuration.")
		return &VaultManager{cfg: cfg, logger: log, mount: "secret"}, nil
	}

	log.Info("Initializing Vault secret manager", zap.String("address", cfg.VaultAddr))

	vConfig := vault.DefaultConfig()
	vConfig.Address = cfg.VaultAddr
	vConfig.Timeout = 10 * time.Second

	tlsConfig := &vault.TLSConfig{
		CACert:   cfg.VaultCACert,
		Insecure: cfg.VaultSkipVerify,
	}
	if err := vConfig.ConfigureTLS(tlsConfig); err != nil {
		return nil, fmt.Errorf("failed to configure Vault TLS: %w", err)
	}

	client, err := vault.NewClient(vConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if cfg.VaultToken != "" {
		client.SetToken(cfg.VaultToken)
	} else {
		log.Warn("Vault is enabled, but no VAULT_TOKEN provided; requests will rely on the client's default token lookup")
	}

	return &VaultManager{
		client: client,
		cfg:    cfg,
		logger: log,
		mount:  "secret",
	}, nil
}

func (m *VaultManager) IsEnabled() bool {
	return m.cfg != nil && m.cfg.VaultEnabled && m.client != nil
}

// GetSecret reads key from the KV v2 secret at path.
func (m *VaultManager) GetSecret(ctx context.Context, path, key string) (string, error) {
	if !m.IsEnabled() {
		return "", errors.New("vault manager is not enabled or not initialized")
	}
	if path == "" {
		return "", errors.New("vault secret path cannot be empty")
	}
	if key == "" {
		return "", errors.New("vault secret key cannot be empty")
	}

	log := m.logger.With(zap.String("vault_path", path), zap.String("key", key))
	log.Info("Reading secret from Vault KV v2")

	secret, err := m.client.KVv2(m.mount).Get(ctx, path)
	if err != nil {
		var vaultErr *vault.ResponseError
		if errors.As(err, &vaultErr) && vaultErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("secret '%s' not found in Vault: %w", path, err)
		}
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", fmt.Errorf("secret '%s' not found in Vault: %w", path, err)
		}
		return "", fmt.Errorf("failed to read secret '%s' from Vault: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret data for '%s' is empty", path)
	}

	raw, ok := secret.Data[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("key '%s' not found or is null in secret '%s'", key, path)
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", fmt.Errorf("value for key '%s' in secret '%s' is not a non-empty string", key, path)
	}

	log.Info("Successfully retrieved secret from Vault")
	return value, nil
}
