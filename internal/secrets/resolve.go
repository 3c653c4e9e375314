package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arwahdevops/fplsync/internal/config"
)

// ResolveAuthToken returns the store auth token: TURSO_AUTH_TOKEN when set,
// otherwise the first secret manager that yields a value. An empty token is
// accepted when no secret path is configured (local sqld, sqlite files).
func ResolveAuthToken(ctx context.Context, cfg *config.Config, managers []SecretManager, log *zap.Logger) (string, error) {
	if cfg.AuthToken != "" {
		log.Debug("Using auth token from environment variable")
		return cfg.AuthToken, nil
	}
	if cfg.AuthTokenSecretPath == "" {
		log.Debug("No auth token configured and no secret path set; connecting without token")
		return "", nil
	}

	var errs []error
	enabled := 0
	for _, sm := range managers {
		if !sm.IsEnabled() {
			continue
		}
		enabled++
		getCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		token, err := sm.GetSecret(getCtx, cfg.AuthTokenSecretPath, cfg.AuthTokenSecretKey)
		cancel()
		if err == nil {
			log.Info("Auth token retrieved from secret manager", zap.String("manager_type", fmt.Sprintf("%T", sm)))
			return token, nil
		}
		log.Warn("Failed to retrieve auth token from secret manager. Trying next if available.",
			zap.String("manager_type", fmt.Sprintf("%T", sm)), zap.Error(err))
		errs = append(errs, err)
	}
	if enabled == 0 {
		errs = append(errs, errors.New("secret path is configured but no secret manager is enabled (set VAULT_ENABLED=true)"))
	}
	return "", &config.ConfigurationError{Field: "AUTH_TOKEN_SECRET_PATH", Err: multierr.Combine(errs...)}
}
