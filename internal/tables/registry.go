package tables

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

// ErrUnknownTable is returned when a table name is not in the registry.
var ErrUnknownTable = errors.New("unknown table")

// Registry is an ordered, name-indexed set of table descriptors.
// Declaration order is significant: it breaks rank ties.
type Registry struct {
	specs  []*Spec
	byName map[string]int
}

// NewRegistry builds a registry and checks its structural invariants.
func NewRegistry(specs ...*Spec) (*Registry, error) {
	r := &Registry{
		specs:  specs,
		byName: make(map[string]int, len(specs)),
	}
	for i, s := range specs {
		if _, dup := r.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate table %q in registry", s.Name)
		}
		r.byName[s.Name] = i
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry is NewRegistry for compiled-in descriptor sets.
func MustRegistry(specs ...*Spec) *Registry {
	r, err := NewRegistry(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// All returns descriptors in declaration order.
func (r *Registry) All() []*Spec {
	out := make([]*Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Names returns table names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.Name
	}
	return names
}

func (r *Registry) Lookup(name string) (*Spec, error) {
	i, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return r.specs[i], nil
}

// Index is the declaration index of name, or -1.
func (r *Registry) Index(name string) int {
	i, ok := r.byName[name]
	if !ok {
		return -1
	}
	return i
}

// Resolve maps names onto descriptors. Unknown names are returned separately
// and do not fail the call; duplicates are collapsed.
func (r *Registry) Resolve(names []string) (specs []*Spec, unknown []string) {
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		s, err := r.Lookup(n)
		if err != nil {
			unknown = append(unknown, n)
			continue
		}
		specs = append(specs, s)
	}
	return specs, unknown
}

// Validate checks every descriptor and cross-table reference.
func (r *Registry) Validate() error {
	var errs error
	for _, s := range r.specs {
		errs = multierr.Append(errs, r.validateSpec(s))
	}
	return errs
}

func (r *Registry) validateSpec(s *Spec) error {
	if s.Name == "" {
		return errors.New("table with empty name in registry")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("table %s declares no columns", s.Name)
	}

	var errs error
	cols := map[string]Column{}
	for _, c := range s.Columns {
		if _, dup := cols[c.Name]; dup {
			errs = multierr.Append(errs, fmt.Errorf("table %s: duplicate column %s", s.Name, c.Name))
		}
		cols[c.Name] = c
	}

	pk := map[string]bool{}
	for _, k := range s.PrimaryKey {
		c, ok := cols[k]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("table %s: primary key column %s not declared", s.Name, k))
			continue
		}
		if c.Nullable {
			errs = multierr.Append(errs, fmt.Errorf("table %s: primary key column %s is nullable", s.Name, k))
		}
		pk[k] = true
	}

	if len(s.ConflictKey) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("table %s: empty conflict key", s.Name))
	}
	for _, k := range s.ConflictKey {
		c, ok := cols[k]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("table %s: conflict key column %s not declared", s.Name, k))
			continue
		}
		if c.Nullable {
			errs = multierr.Append(errs, fmt.Errorf("table %s: conflict key column %s is nullable", s.Name, k))
		}
	}
	// ON CONFLICT needs a matching unique index: the primary key, or a single unique column.
	if !sameSet(s.ConflictKey, s.PrimaryKey) {
		if len(s.ConflictKey) != 1 || !cols[s.ConflictKey[0]].Unique {
			errs = multierr.Append(errs, fmt.Errorf("table %s: conflict key %v is neither the primary key nor a unique column", s.Name, s.ConflictKey))
		}
	}

	for _, fk := range s.ForeignKeys {
		if _, ok := cols[fk.Column]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("table %s: foreign key column %s not declared", s.Name, fk.Column))
		}
		ref, err := r.Lookup(fk.RefTable)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("table %s: foreign key %s references %w", s.Name, fk.Column, err))
			continue
		}
		if ref.Rank >= s.Rank {
			errs = multierr.Append(errs, fmt.Errorf("table %s (rank %d) references %s (rank %d): referenced table must rank lower",
				s.Name, s.Rank, ref.Name, ref.Rank))
		}
		refCol, ok := ref.Column(fk.RefColumn)
		refIsKey := ok && (refCol.Unique || (len(ref.PrimaryKey) == 1 && ref.PrimaryKey[0] == fk.RefColumn))
		if !refIsKey {
			errs = multierr.Append(errs, fmt.Errorf("table %s: foreign key target %s(%s) is not a primary key or unique column",
				s.Name, fk.RefTable, fk.RefColumn))
		}
	}
	return errs
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
