package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TURSO_DATABASE_URL", "libsql://fpl-test.turso.io")
	t.Setenv("TURSO_AUTH_TOKEN", "secret-token")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "libsql", cfg.StoreDialect)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, SourceCSV, cfg.SourceFormat)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 5, cfg.MaxRejectionDetails)
	assert.Equal(t, ForceLedgerRefresh, cfg.ForceLedgerPolicy)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.RetryInterval)
	assert.Equal(t, "auth_token", cfg.AuthTokenSecretKey)
	assert.Equal(t, filepath.Join("data", DefaultLedgerFile), cfg.ResolvedLedgerPath())
}

func TestLoadMissingURLIsConfigurationError(t *testing.T) {
	t.Setenv("TURSO_DATABASE_URL", "")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, IsConfigurationError(err))
}

func TestLoadLocalAllowsMissingURL(t *testing.T) {
	t.Setenv("TURSO_DATABASE_URL", "")
	t.Setenv("DATA_DIR", "fixtures")

	cfg, err := LoadLocal()
	require.NoError(t, err)
	assert.Equal(t, "fixtures", cfg.DataDir)

	t.Setenv("SOURCE_FORMAT", "xml")
	_, err = LoadLocal()
	assert.True(t, IsConfigurationError(err))
}

func TestLoadOverridesAndNormalisation(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DIALECT", "Turso")
	t.Setenv("SOURCE_FORMAT", "JSON")
	t.Setenv("FORCE_LEDGER_POLICY", "Changed-Only")
	t.Setenv("LEDGER_PATH", "/var/lib/fplsync/hashes.json")
	t.Setenv("BATCH_SIZE", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "libsql", cfg.StoreDialect)
	assert.Equal(t, SourceJSON, cfg.SourceFormat)
	assert.Equal(t, ForceLedgerChangedOnly, cfg.ForceLedgerPolicy)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, "/var/lib/fplsync/hashes.json", cfg.ResolvedLedgerPath())
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			DatabaseURL:       "file:test.db",
			StoreDialect:      "sqlite",
			DataDir:           "data",
			SourceFormat:      SourceCSV,
			BatchSize:         100,
			ForceLedgerPolicy: ForceLedgerRefresh,
			ConnPoolSize:      1,
			MetricsPort:       9091,
		}
	}

	testCases := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"empty url", func(c *Config) { c.DatabaseURL = "  " }, "TURSO_DATABASE_URL"},
		{"unknown dialect", func(c *Config) { c.StoreDialect = "oracle" }, "STORE_DIALECT"},
		{"unknown format", func(c *Config) { c.SourceFormat = "xml" }, "SOURCE_FORMAT"},
		{"unknown policy", func(c *Config) { c.ForceLedgerPolicy = "sometimes" }, "FORCE_LEDGER_POLICY"},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, "BATCH_SIZE"},
		{"oversized batch", func(c *Config) { c.BatchSize = MaxBatchSize + 1 }, "BATCH_SIZE"},
		{"negative details", func(c *Config) { c.MaxRejectionDetails = -1 }, "MAX_REJECTION_DETAILS"},
		{"bad port", func(c *Config) { c.MetricsPort = 70000 }, "METRICS_PORT"},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "DATA_DIR"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
		})
	}

	assert.NoError(t, base().Validate())
}
