package main

import (
	"context"
	"fmt"
	stdlog "log"

	"github.com/caarlos0/env/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/arwahdevops/fplsync/internal/config"
	"github.com/arwahdevops/fplsync/internal/db"
	"github.com/arwahdevops/fplsync/internal/logger"
	"github.com/arwahdevops/fplsync/internal/metrics"
	"github.com/arwahdevops/fplsync/internal/secrets"
	"github.com/arwahdevops/fplsync/internal/server"
)

// bootstrap memuat .env dan menyiapkan logger global sebelum config penuh dibaca.
func bootstrap() error {
	if err := godotenv.Overload(".env"); err != nil {
		stdlog.Printf("Warning: Could not load .env file: %v. Relying on environment variables.\n", err)
	}

	preCfg := &struct {
		EnableJsonLogging bool   `env:"ENABLE_JSON_LOGGING" envDefault:"false"`
		DebugMode         bool   `env:"DEBUG_MODE" envDefault:"false"`
		LogFile           string `env:"LOG_FILE"`
	}{}
	if err := env.Parse(preCfg); err != nil {
		return &config.ConfigurationError{Err: fmt.Errorf("failed to parse pre-configuration for logger: %w", err)}
	}

	if err := logger.Init(logger.Options{
		Debug:      preCfg.DebugMode,
		JSONOutput: preCfg.EnableJsonLogging,
		LogFile:    preCfg.LogFile,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig membaca config dari environment lalu menerapkan override CLI.
// local=true dipakai command yang tidak pernah menyentuh store.
func loadConfig(ov *overrides, local bool) (*config.Config, error) {
	load := config.Load
	if local {
		load = config.LoadLocal
	}
	cfg, err := load()
	if err != nil {
		return nil, err
	}

	applyCliOverrides(cfg, ov)

	// Override bisa membuat config tidak valid, cek ulang.
	validate := cfg.Validate
	if local {
		validate = cfg.ValidateLocal
	}
	if err := validate(); err != nil {
		return nil, err
	}

	logLoadedConfig(cfg)
	return cfg, nil
}

// applyCliOverrides menerapkan nilai dari flag CLI ke struct Config.
func applyCliOverrides(cfg *config.Config, ov *overrides) {
	if ov == nil {
		return
	}
	if ov.dataDir != "" {
		logger.Log.Info("Overriding DATA_DIR with CLI flag", zap.String("env_value", cfg.DataDir), zap.String("cli_value", ov.dataDir))
		cfg.DataDir = ov.dataDir
	}
	if ov.format != "" {
		logger.Log.Info("Overriding SOURCE_FORMAT with CLI flag", zap.String("env_value", string(cfg.SourceFormat)), zap.String("cli_value", ov.format))
		cfg.SourceFormat = config.SourceFormat(ov.format)
	}
	if ov.batchSize != 0 {
		logger.Log.Info("Overriding BATCH_SIZE with CLI flag", zap.Int("env_value", cfg.BatchSize), zap.Int("cli_value", ov.batchSize))
		cfg.BatchSize = ov.batchSize
	}
	if ov.ledger != "" {
		logger.Log.Info("Overriding LEDGER_PATH with CLI flag", zap.String("env_value", cfg.LedgerPath), zap.String("cli_value", ov.ledger))
		cfg.LedgerPath = ov.ledger
	}
}

// logLoadedConfig mencatat konfigurasi final yang digunakan.
func logLoadedConfig(cfg *config.Config) {
	tokenSource := "not set"
	if cfg.AuthToken != "" {
		tokenSource = "env var"
	} else if cfg.VaultEnabled && cfg.AuthTokenSecretPath != "" {
		tokenSource = "vault"
	}

	logger.Log.Info("Final configuration in use",
		zap.String("store_dialect", cfg.StoreDialect),
		zap.Bool("store_url_present", cfg.DatabaseURL != ""),
		zap.String("auth_token_source", tokenSource),
		zap.String("data_dir", cfg.DataDir),
		zap.String("source_format", string(cfg.SourceFormat)),
		zap.String("ledger_path", cfg.ResolvedLedgerPath()),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("max_rejection_details", cfg.MaxRejectionDetails),
		zap.String("force_ledger_policy", string(cfg.ForceLedgerPolicy)),
		zap.Int("max_retries", cfg.MaxRetries), zap.Duration("retry_interval", cfg.RetryInterval),
		zap.Int("conn_pool_size", cfg.ConnPoolSize), zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		zap.Bool("json_logging", cfg.EnableJsonLogging), zap.Bool("debug_mode", cfg.DebugMode), zap.String("log_file", cfg.LogFile),
		zap.Bool("metrics_server", cfg.EnableMetricsServer), zap.Bool("enable_pprof", cfg.EnablePprof), zap.Int("metrics_port", cfg.MetricsPort),
		zap.Bool("vault_enabled", cfg.VaultEnabled), zap.String("vault_addr", cfg.VaultAddr), zap.Bool("vault_token_present", cfg.VaultToken != ""),
		zap.String("vault_cacert", cfg.VaultCACert), zap.Bool("vault_skip_verify", cfg.VaultSkipVerify),
		zap.String("auth_token_secret_path", cfg.AuthTokenSecretPath), zap.String("auth_token_secret_key", cfg.AuthTokenSecretKey),
	)
}

// openStore menyiapkan secret manager, mengambil auth token lalu membuka koneksi store.
func openStore(ctx context.Context, cfg *config.Config, metricsStore *metrics.Store) (*db.Connector, error) {
	vaultMgr, vaultErr := secrets.NewVaultManager(cfg, logger.Log)
	if vaultErr != nil {
		if cfg.VaultEnabled {
			return nil, &config.ConfigurationError{Field: "VAULT_ENABLED", Err: fmt.Errorf("failed to initialize Vault secret manager: %w", vaultErr)}
		}
		logger.Log.Warn("Could not initialize Vault secret manager (Vault not enabled or config error)", zap.Error(vaultErr))
	}
	availableSecretManagers := make([]secrets.SecretManager, 0)
	if vaultMgr != nil && vaultMgr.IsEnabled() {
		availableSecretManagers = append(availableSecretManagers, vaultMgr)
	}

	logger.Log.Info("Resolving store credentials...")
	token, err := secrets.ResolveAuthToken(ctx, cfg, availableSecretManagers, logger.Log)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Connecting to store...")
	conn, err := db.ConnectWithRetry(ctx, db.ConnectOptions{
		Dialect:       cfg.StoreDialect,
		URL:           cfg.DatabaseURL,
		AuthToken:     token,
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval,
	}, logger.GetGormLogger(), logger.Log, metricsStore)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Optimizing store connection pool")
	if err := conn.Optimize(cfg.ConnPoolSize, cfg.ConnMaxLifetime); err != nil {
		logger.Log.Warn("Failed to optimize store pool", zap.Error(err))
	}
	return conn, nil
}

func closeStore(conn *db.Connector) {
	logger.Log.Info("Closing store connection...")
	if err := conn.Close(); err != nil {
		logger.Log.Error("Error closing store", zap.Error(err))
	}
}

// startMetricsServer menjalankan server HTTP bila ENABLE_METRICS_SERVER aktif.
// Server berhenti saat ctx dibatalkan.
func startMetricsServer(ctx context.Context, cfg *config.Config, metricsStore *metrics.Store, conn *db.Connector) {
	if !cfg.EnableMetricsServer {
		return
	}
	go server.RunHTTPServer(ctx, server.Options{Port: cfg.MetricsPort, EnablePprof: cfg.EnablePprof}, metricsStore, conn, logger.Log)
}
