package sync

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arwahdevops/fplsync/internal/db"
	"github.com/arwahdevops/fplsync/internal/tables"
	"github.com/arwahdevops/fplsync/internal/utils"
)

// physicalType maps a logical column kind onto the dialect's SQL type.
// keyed menandakan kolom dipakai di PK/UNIQUE/FK (MySQL butuh panjang tetap untuk TEXT).
func physicalType(kind tables.Kind, dialect string, keyed bool) string {
	switch dialect {
	case "postgres":
		switch kind {
		case tables.Integer:
			return "BIGINT"
		case tables.Real:
			return "DOUBLE PRECISION"
		case tables.Boolean:
			return "BOOLEAN"
		case tables.Timestamp:
			return "TIMESTAMPTZ"
		default:
			return "TEXT"
		}
	case "mysql":
		switch kind {
		case tables.Integer:
			return "BIGINT"
		case tables.Real:
			return "DOUBLE"
		case tables.Boolean:
			return "BOOLEAN"
		case tables.Timestamp:
			return "DATETIME"
		default:
			if keyed {
				return "VARCHAR(255)"
			}
			return "TEXT"
		}
	default: // sqlite, libsql
		switch kind {
		case tables.Integer:
			return "INTEGER"
		case tables.Real:
			return "REAL"
		case tables.Boolean:
			return "BOOLEAN"
		case tables.Timestamp:
			return "TIMESTAMP"
		default:
			return "TEXT"
		}
	}
}

func keyedColumns(spec *tables.Spec) map[string]bool {
	keyed := map[string]bool{}
	for _, c := range spec.PrimaryKey {
		keyed[c] = true
	}
	for _, c := range spec.ConflictKey {
		keyed[c] = true
	}
	for _, fk := range spec.ForeignKeys {
		keyed[fk.Column] = true
	}
	for _, c := range spec.Columns {
		if c.Unique {
			keyed[c.Name] = true
		}
	}
	return keyed
}

// CreateTableSQL renders a create-if-absent statement for spec. Running it
// against a table that already exists is a no-op.
func CreateTableSQL(spec *tables.Spec, dialect string) string {
	var builder strings.Builder
	keyed := keyedColumns(spec)

	builder.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", utils.QuoteIdentifier(spec.Name, dialect)))

	defs := make([]string, 0, len(spec.Columns)+2+len(spec.ForeignKeys))
	for _, col := range spec.Columns {
		var def strings.Builder
		def.WriteString("  ")
		def.WriteString(utils.QuoteIdentifier(col.Name, dialect))
		def.WriteString(" ")
		def.WriteString(physicalType(col.Kind, dialect, keyed[col.Name]))
		if !col.Nullable {
			def.WriteString(" NOT NULL")
		}
		if col.Unique {
			def.WriteString(" UNIQUE")
		}
		defs = append(defs, def.String())
	}

	if len(spec.PrimaryKey) > 0 {
		defs = append(defs, fmt.Sprintf("  PRIMARY KEY (%s)", utils.QuoteIdentifiers(spec.PrimaryKey, dialect)))
	}

	// Conflict key selain PK butuh unique index sendiri supaya upsert bisa mendeteksi konflik.
	if !sameColumns(spec.ConflictKey, spec.PrimaryKey) && len(spec.ConflictKey) > 1 {
		defs = append(defs, fmt.Sprintf("  UNIQUE (%s)", utils.QuoteIdentifiers(spec.ConflictKey, dialect)))
	}

	for _, fk := range spec.ForeignKeys {
		defs = append(defs, fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s (%s)",
			utils.QuoteIdentifier(fk.Column, dialect),
			utils.QuoteIdentifier(fk.RefTable, dialect),
			utils.QuoteIdentifier(fk.RefColumn, dialect)))
	}

	builder.WriteString(strings.Join(defs, ",\n"))
	builder.WriteString("\n)")
	return builder.String()
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if !set[c] {
			return false
		}
	}
	return true
}

// Provisioner ensures every table of a run exists before any data is written.
type Provisioner struct {
	store   Store
	dialect string
	logger  *zap.Logger
}

func NewProvisioner(store Store, dialect string, logger *zap.Logger) *Provisioner {
	return &Provisioner{store: store, dialect: dialect, logger: logger.Named("provisioner")}
}

// Provision sends one create-if-absent statement per spec, in the given
// order, as a single batch. Existing tables and their data are untouched.
func (p *Provisioner) Provision(ctx context.Context, ordered []*tables.Spec) error {
	if len(ordered) == 0 {
		return nil
	}
	stmts := make([]db.Statement, len(ordered))
	names := make([]string, len(ordered))
	for i, spec := range ordered {
		stmts[i] = db.Statement{SQL: CreateTableSQL(spec, p.dialect)}
		names[i] = spec.Name
		p.logger.Debug("Generated CREATE TABLE DDL", zap.String("table", spec.Name), zap.String("ddl", stmts[i].SQL))
	}

	p.logger.Info("Provisioning tables", zap.Strings("tables", names), zap.String("dialect", p.dialect))
	if err := p.store.ExecBatch(ctx, stmts); err != nil {
		return &ProvisioningError{Tables: names, Err: err}
	}
	return nil
}
