package secrets

import "context"

// SecretManager defines the interface for interacting with different secret backends.
type SecretManager interface {
	// GetSecret reads a single string value stored under key at pathOrID.
	GetSecret(ctx context.Context, pathOrID string, key string) (string, error)

	// IsEnabled checks if this specific secret manager is configured and enabled.
	IsEnabled() bool
}
