package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arwahdevops/fplsync/internal/logger"
	"github.com/arwahdevops/fplsync/internal/metrics"
	"github.com/arwahdevops/fplsync/internal/utils"
)

// ConnectOptions describes how to reach the remote store.
type ConnectOptions struct {
	Dialect       string
	URL           string
	AuthToken     string
	MaxRetries    int
	RetryInterval time.Duration
}

// BuildDSN turns the configured store URL into a driver DSN.
//   - libsql: the auth token is appended as the authToken query parameter
//     unless the URL already carries one.
//   - sqlite: a bare path becomes a file: URI with foreign keys enforced.
//   - postgres, mysql: the URL is already a driver DSN and passes through.
func BuildDSN(dialect, rawURL, authToken string) (string, error) {
	switch utils.NormalizeDialect(dialect) {
	case "libsql":
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", fmt.Errorf("invalid libsql URL: %w", err)
		}
		if u.Scheme == "" {
			return "", fmt.Errorf("libsql URL %q has no scheme (expected libsql://, https:// or wss://)", redactURL(u))
		}
		if authToken != "" {
			q := u.Query()
			if q.Get("authToken") == "" {
				q.Set("authToken", authToken)
				u.RawQuery = q.Encode()
			}
		}
		return u.String(), nil
	case "sqlite":
		if strings.HasPrefix(rawURL, "file:") || rawURL == ":memory:" {
			return rawURL, nil
		}
		// _foreign_keys=1: FK dicek per koneksi, _busy_timeout=5000: tunggu 5 detik jika DB terkunci
		return fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000", rawURL), nil
	case "postgres", "mysql":
		return rawURL, nil
	default:
		return "", fmt.Errorf("cannot build DSN: unsupported dialect %s", dialect)
	}
}

func redactURL(u *url.URL) string {
	c := *u
	q := c.Query()
	if q.Has("authToken") {
		q.Set("authToken", "***REDACTED***")
		c.RawQuery = q.Encode()
	}
	return c.Redacted()
}

// ConnectWithRetry opens the store and pings it, retrying up to MaxRetries
// times. Only connection establishment is retried; batches never are.
func ConnectWithRetry(
	ctx context.Context,
	opts ConnectOptions,
	gl logger.GormLoggerInterface,
	log *zap.Logger,
	metricsStore *metrics.Store,
) (*Connector, error) {
	log = log.Named("connector")
	var lastErr error

	dsn, err := BuildDSN(opts.Dialect, opts.URL, opts.AuthToken)
	if err != nil {
		metricsStore.SyncErrorsTotal.WithLabelValues("connection", "").Inc()
		return nil, err
	}

	for i := 0; i <= opts.MaxRetries; i++ {
		attemptStartTime := time.Now()
		if i > 0 {
			log.Warn("Retrying store connection",
				zap.Int("attempt", i+1),
				zap.Int("max_attempts", opts.MaxRetries+1),
				zap.Duration("wait_interval", opts.RetryInterval),
				zap.NamedError("previous_error", lastErr),
			)
			timer := time.NewTimer(opts.RetryInterval)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				metricsStore.SyncErrorsTotal.WithLabelValues("connection_cancelled", "").Inc()
				return nil, fmt.Errorf("context cancelled while waiting to retry store connection (attempt %d): %w; last error: %v", i+1, ctx.Err(), lastErr)
			}
		}

		log.Info("Attempting to connect",
			zap.String("dialect", opts.Dialect),
			zap.Bool("auth_token_present", opts.AuthToken != ""),
			zap.Int("attempt", i+1))

		conn, err := New(opts.Dialect, dsn, gl)
		if err != nil {
			lastErr = fmt.Errorf("connect attempt %d/%d failed: %w", i+1, opts.MaxRetries+1, err)
			continue
		}

		if pingErr := conn.Ping(ctx); pingErr != nil {
			lastErr = fmt.Errorf("ping attempt %d/%d failed: %w", i+1, opts.MaxRetries+1, pingErr)
			_ = conn.Close()
			continue
		}

		log.Info("Store connection successful",
			zap.String("dialect", conn.Dialect),
			zap.Duration("connect_duration", time.Since(attemptStartTime)))
		return conn, nil
	}

	log.Error("Failed to connect to store after all retries",
		zap.Int("attempts", opts.MaxRetries+1),
		zap.NamedError("final_error", lastErr))
	metricsStore.SyncErrorsTotal.WithLabelValues("connection_failed", "").Inc()
	return nil, fmt.Errorf("failed to connect to %s store after %d attempts: %w", opts.Dialect, opts.MaxRetries+1, lastErr)
}
