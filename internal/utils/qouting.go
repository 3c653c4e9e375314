package utils

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// QuoteIdentifier quotes an identifier based on the specified SQL dialect.
// Handles basic escaping for the quote character itself within the name.
func QuoteIdentifier(name, dialect string) string {
	switch NormalizeDialect(dialect) {
	case "mysql":
		// Escape backticks within the name
		return fmt.Sprintf("`%s`", strings.ReplaceAll(name, "`", "``"))
	case "postgres":
		return pq.QuoteIdentifier(name)
	default:
		// sqlite, libsql dan fallback: double quotes (ANSI SQL standard)
		return fmt.Sprintf("\"%s\"", strings.ReplaceAll(name, "\"", "\"\""))
	}
}

// QuoteIdentifiers quotes every name and joins them with ", ".
func QuoteIdentifiers(names []string, dialect string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdentifier(n, dialect)
	}
	return strings.Join(quoted, ", ")
}

// NormalizeDialect lowercases the dialect and folds the aliases we accept
// onto the canonical names used across the codebase.
func NormalizeDialect(dialect string) string {
	d := strings.ToLower(strings.TrimSpace(dialect))
	switch d {
	case "turso":
		return "libsql"
	case "postgresql", "pg":
		return "postgres"
	case "sqlite3":
		return "sqlite"
	default:
		return d
	}
}

// IsSQLiteFamily reports whether the dialect speaks the SQLite grammar
// (local sqlite files and remote libSQL/Turso).
func IsSQLiteFamily(dialect string) bool {
	switch NormalizeDialect(dialect) {
	case "sqlite", "libsql":
		return true
	default:
		return false
	}
}
