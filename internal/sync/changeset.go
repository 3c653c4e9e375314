package sync

import (
	"errors"

	"github.com/arwahdevops/fplsync/internal/ledger"
	"github.com/arwahdevops/fplsync/internal/tables"
)

type TableStatus int

const (
	StatusChanged TableStatus = iota
	StatusUpToDate
	StatusMissing
)

func (s TableStatus) String() string {
	switch s {
	case StatusUpToDate:
		return "up-to-date"
	case StatusMissing:
		return "missing"
	default:
		return "changed"
	}
}

// TableState describes one table's source against the ledger.
type TableState struct {
	Spec        *tables.Spec
	Path        string
	Status      TableStatus
	Fingerprint string
	Recorded    string
	Err         error
}

// Inspect compares every spec's current fingerprint with the ledger.
// A file that cannot be hashed for another reason is reported as changed
// with Err set, so the sync itself surfaces the failure.
func Inspect(specs []*tables.Spec, l *ledger.Ledger, loc SourceLocator) []TableState {
	states := make([]TableState, 0, len(specs))
	for _, spec := range specs {
		st := TableState{Spec: spec, Path: loc.Path(spec)}
		st.Recorded, _ = l.Get(spec.Name)

		h, err := loc.Fingerprint(spec)
		switch {
		case errors.Is(err, ErrSourceMissing):
			st.Status = StatusMissing
		case err != nil:
			st.Status = StatusChanged
			st.Err = err
		default:
			st.Fingerprint = h
			if st.Recorded == h {
				st.Status = StatusUpToDate
			} else {
				st.Status = StatusChanged
			}
		}
		states = append(states, st)
	}
	return states
}

// ResolveChanges returns the subset of specs to sync. With force every spec
// is returned; otherwise only tables whose source exists and whose hash
// differs from the ledger. The ledger is not modified.
func ResolveChanges(specs []*tables.Spec, l *ledger.Ledger, loc SourceLocator, force bool) []*tables.Spec {
	if force {
		return append([]*tables.Spec(nil), specs...)
	}
	var changed []*tables.Spec
	for _, st := range Inspect(specs, l, loc) {
		if st.Status == StatusChanged {
			changed = append(changed, st.Spec)
		}
	}
	return changed
}
