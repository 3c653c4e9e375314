package sync

import (
	"sort"

	"github.com/arwahdevops/fplsync/internal/tables"
)

// Order sorts specs by ascending rank. Equal ranks keep registry declaration
// order, so the result is deterministic for a given registry.
func Order(specs []*tables.Spec, reg *tables.Registry) []*tables.Spec {
	out := append([]*tables.Spec(nil), specs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return reg.Index(out[i].Name) < reg.Index(out[j].Name)
	})
	return out
}
