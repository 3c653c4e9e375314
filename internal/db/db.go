package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // registers the "libsql" database/sql driver
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arwahdevops/fplsync/internal/logger"
	"github.com/arwahdevops/fplsync/internal/utils"
)

type Connector struct {
	DB      *gorm.DB
	Dialect string
}

// Statement is one parameterized SQL statement. Placeholders are written as
// "?" and rebound by GORM for the target dialect.
type Statement struct {
	SQL  string
	Args []any
}

// StatementError identifies the statement inside a batch that the store rejected.
type StatementError struct {
	Index int
	SQL   string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d failed: %v", e.Index, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

func New(dialect, dsn string, gl logger.GormLoggerInterface) (*Connector, error) {
	var dialector gorm.Dialector

	lcDialect := utils.NormalizeDialect(dialect)
	switch lcDialect {
	case "libsql":
		// libSQL speaks the SQLite grammar; only the database/sql driver differs.
		dialector = sqlite.New(sqlite.Config{DriverName: "libsql", DSN: dsn})
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true, // ExecBatch manages its own transaction
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database (%s): %w", lcDialect, err)
	}

	return &Connector{
		DB:      db,
		Dialect: lcDialect,
	}, nil
}

// ExecBatch runs statements in order inside one transaction. Either all of
// them commit or none do; the first failure is returned as *StatementError.
// A single statement is atomic on its own and is sent as one Exec without
// BEGIN/COMMIT, keeping an upsert batch to one store request.
func (c *Connector) ExecBatch(ctx context.Context, stmts []Statement) error {
	switch len(stmts) {
	case 0:
		return nil
	case 1:
		if err := c.DB.WithContext(ctx).Exec(stmts[0].SQL, stmts[0].Args...).Error; err != nil {
			return &StatementError{Index: 0, SQL: stmts[0].SQL, Err: err}
		}
		return nil
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, st := range stmts {
			if err := tx.Exec(st.SQL, st.Args...).Error; err != nil {
				return &StatementError{Index: i, SQL: st.SQL, Err: err}
			}
		}
		return nil
	})
}

// Optimize configures the underlying connection pool.
func (c *Connector) Optimize(poolSize int, maxLifetime time.Duration) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB for optimization: %w", err)
	}

	if poolSize <= 0 {
		poolSize = 4
	}
	if maxLifetime <= 0 {
		maxLifetime = time.Hour
	}

	switch c.Dialect {
	case "mysql", "postgres", "libsql":
		sqlDB.SetMaxIdleConns(max(poolSize/2, 1))
		sqlDB.SetMaxOpenConns(poolSize)
		sqlDB.SetConnMaxLifetime(maxLifetime)
	case "sqlite":
		// SQLite file: satu koneksi saja supaya tidak ada "database is locked"
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}
	return nil
}

func (c *Connector) Ping(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB for ping: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(pingCtx)
}

func (c *Connector) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB handle to close: %w", err)
	}
	if logger.Log != nil {
		logger.Log.Info("Closing database connection pool", zap.String("dialect", c.Dialect))
	}
	return sqlDB.Close()
}
