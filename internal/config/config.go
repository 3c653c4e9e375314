package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v8"

	"github.com/arwahdevops/fplsync/internal/utils"
)

type ForceLedgerPolicy string

const (
	ForceLedgerRefresh     ForceLedgerPolicy = "refresh"      // Default, forced runs rewrite every synced entry
	ForceLedgerChangedOnly ForceLedgerPolicy = "changed-only" // Keep entries whose hash already matches
)

type SourceFormat string

const (
	SourceCSV  SourceFormat = "csv"
	SourceJSON SourceFormat = "json"
)

// DefaultLedgerFile is the ledger file name inside DATA_DIR when LEDGER_PATH is unset.
const DefaultLedgerFile = ".migration_hashes.json"

// MaxBatchSize keeps one multi-row upsert of the widest table under the
// bind-parameter limit of every supported dialect.
const MaxBatchSize = 500

type Config struct {
	// Store
	DatabaseURL  string `env:"TURSO_DATABASE_URL"`
	AuthToken    string `env:"TURSO_AUTH_TOKEN"`
	StoreDialect string `env:"STORE_DIALECT" envDefault:"libsql"`

	// Sources & ledger
	DataDir      string       `env:"DATA_DIR" envDefault:"data"`
	SourceFormat SourceFormat `env:"SOURCE_FORMAT" envDefault:"csv"`
	LedgerPath   string       `env:"LEDGER_PATH"` // Empty means <DATA_DIR>/.migration_hashes.json

	// Sync Settings
	BatchSize           int               `env:"BATCH_SIZE" envDefault:"100"`
	MaxRejectionDetails int               `env:"MAX_REJECTION_DETAILS" envDefault:"5"`
	ForceLedgerPolicy   ForceLedgerPolicy `env:"FORCE_LEDGER_POLICY" envDefault:"refresh"`

	// Retry Logic (connection establishment only)
	MaxRetries    int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryInterval time.Duration `env:"RETRY_INTERVAL" envDefault:"5s"`

	// Connection Pool
	ConnPoolSize    int           `env:"CONN_POOL_SIZE" envDefault:"4"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`

	// Observability & Debugging
	EnableJsonLogging   bool   `env:"ENABLE_JSON_LOGGING" envDefault:"false"`
	DebugMode           bool   `env:"DEBUG_MODE" envDefault:"false"`
	LogFile             string `env:"LOG_FILE"`
	EnableMetricsServer bool   `env:"ENABLE_METRICS_SERVER" envDefault:"false"`
	EnablePprof         bool   `env:"ENABLE_PPROF" envDefault:"false"`
	MetricsPort         int    `env:"METRICS_PORT" envDefault:"9091"`

	// Vault
	VaultEnabled        bool   `env:"VAULT_ENABLED" envDefault:"false"`
	VaultAddr           string `env:"VAULT_ADDR" envDefault:"https://127.0.0.1:8200"`
	VaultToken          string `env:"VAULT_TOKEN"`
	VaultCACert         string `env:"VAULT_CACERT"`
	VaultSkipVerify     bool   `env:"VAULT_SKIP_VERIFY" envDefault:"false"`
	AuthTokenSecretPath string `env:"AUTH_TOKEN_SECRET_PATH"`
	AuthTokenSecretKey  string `env:"AUTH_TOKEN_SECRET_KEY" envDefault:"auth_token"`
}

// ConfigurationError is returned when the process environment cannot produce
// a usable configuration. It is always fatal before any table is touched.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error (%s): %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err (or anything it wraps) is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func Load() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLocal is Load for commands that never touch the store (status, tables):
// the store URL may be absent.
func LoadLocal() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateLocal(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("config parsing error: %w", err)}
	}
	return cfg, nil
}

// ResolvedLedgerPath returns LEDGER_PATH or its default location inside DATA_DIR.
func (c *Config) ResolvedLedgerPath() string {
	if c.LedgerPath != "" {
		return c.LedgerPath
	}
	return filepath.Join(c.DataDir, DefaultLedgerFile)
}

// Validate checks cross-field rules. It is re-run after CLI overrides.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return &ConfigurationError{Field: "TURSO_DATABASE_URL", Err: errors.New("store URL is not set")}
	}
	return c.ValidateLocal()
}

// ValidateLocal checks everything except the store URL.
func (c *Config) ValidateLocal() error {

	// Validasi dialect
	allowedDialects := map[string]bool{
		"libsql":   true,
		"sqlite":   true,
		"postgres": true,
		"mysql":    true,
	}
	c.StoreDialect = utils.NormalizeDialect(c.StoreDialect)
	if !allowedDialects[c.StoreDialect] {
		return &ConfigurationError{Field: "STORE_DIALECT", Err: fmt.Errorf("invalid store dialect: %s. Valid options: %v",
			c.StoreDialect, getMapKeys(allowedDialects))}
	}

	c.SourceFormat = SourceFormat(strings.ToLower(string(c.SourceFormat)))
	if c.SourceFormat != SourceCSV && c.SourceFormat != SourceJSON {
		return &ConfigurationError{Field: "SOURCE_FORMAT", Err: fmt.Errorf("invalid source format: %s. Valid options: %s, %s",
			c.SourceFormat, SourceCSV, SourceJSON)}
	}

	policy := ForceLedgerPolicy(strings.ToLower(string(c.ForceLedgerPolicy)))
	if policy != ForceLedgerRefresh && policy != ForceLedgerChangedOnly {
		return &ConfigurationError{Field: "FORCE_LEDGER_POLICY", Err: fmt.Errorf("invalid force ledger policy: %s. Valid options: %s, %s",
			c.ForceLedgerPolicy, ForceLedgerRefresh, ForceLedgerChangedOnly)}
	}
	c.ForceLedgerPolicy = policy

	if strings.TrimSpace(c.DataDir) == "" {
		return &ConfigurationError{Field: "DATA_DIR", Err: errors.New("data directory cannot be empty")}
	}

	// Validasi nilai numerik
	if c.BatchSize <= 0 {
		return &ConfigurationError{Field: "BATCH_SIZE", Err: errors.New("batch size must be positive")}
	}
	if c.BatchSize > MaxBatchSize {
		return &ConfigurationError{Field: "BATCH_SIZE", Err: fmt.Errorf("batch size cannot exceed %d", MaxBatchSize)}
	}
	if c.MaxRejectionDetails < 0 {
		return &ConfigurationError{Field: "MAX_REJECTION_DETAILS", Err: errors.New("max rejection details cannot be negative")}
	}
	if c.MaxRetries < 0 {
		return &ConfigurationError{Field: "MAX_RETRIES", Err: errors.New("max retries cannot be negative")}
	}
	if c.ConnPoolSize <= 0 {
		return &ConfigurationError{Field: "CONN_POOL_SIZE", Err: errors.New("connection pool size must be positive")}
	}
	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return &ConfigurationError{Field: "METRICS_PORT", Err: fmt.Errorf("invalid metrics port: %d", c.MetricsPort)}
	}

	if c.VaultEnabled && c.AuthTokenSecretPath != "" && c.AuthTokenSecretKey == "" {
		return &ConfigurationError{Field: "AUTH_TOKEN_SECRET_KEY", Err: errors.New("secret key cannot be empty when AUTH_TOKEN_SECRET_PATH is set")}
	}

	return nil
}

func getMapKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Sort for consistent error messages
	return keys
}
