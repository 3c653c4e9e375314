// Package tables holds the static, compiled-in descriptors of every table
// fplsync knows how to provision and load.
package tables

import (
	"fmt"
	"path/filepath"
)

// Kind is the logical column type. Physical SQL types are chosen per dialect
// by the provisioner.
type Kind int

const (
	Integer Kind = iota
	Real
	Text
	Boolean
	Timestamp
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Text:
		return "text"
	case Boolean:
		return "boolean"
	case Timestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
	Unique   bool
}

type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Record is a validated row. Values are nil, int64, float64, string, bool or time.Time.
type Record map[string]any

// Spec describes one table: its structure, conflict key and dependency rank.
type Spec struct {
	Name string
	// Rank orders provisioning and loading; a table never ranks at or below a table it references.
	Rank        int
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
	// ConflictKey identifies one logical record for insert-or-update.
	ConflictKey []string
	// ToArgs overrides the default column-order parameter mapping.
	ToArgs func(Record) []any
}

// ColumnNames returns the column names in declaration order.
func (s *Spec) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by name.
func (s *Spec) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// UpdateColumns returns every column that is not part of the conflict key,
// in declaration order.
func (s *Spec) UpdateColumns() []string {
	key := make(map[string]bool, len(s.ConflictKey))
	for _, k := range s.ConflictKey {
		key[k] = true
	}
	var cols []string
	for _, c := range s.Columns {
		if !key[c.Name] {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// UpsertArgs maps a validated record onto the ordered statement parameters.
func (s *Spec) UpsertArgs(rec Record) []any {
	if s.ToArgs != nil {
		return s.ToArgs(rec)
	}
	args := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		args[i] = rec[c.Name]
	}
	return args
}

// SourcePath is the conventional staged file for this table.
func (s *Spec) SourcePath(dataDir, ext string) string {
	return filepath.Join(dataDir, s.Name+"."+ext)
}

// References returns the distinct tables this table points at.
func (s *Spec) References() []string {
	seen := map[string]bool{}
	var refs []string
	for _, fk := range s.ForeignKeys {
		if !seen[fk.RefTable] {
			seen[fk.RefTable] = true
			refs = append(refs, fk.RefTable)
		}
	}
	return refs
}
