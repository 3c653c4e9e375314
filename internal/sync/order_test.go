package sync

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arwahdevops/fplsync/internal/tables"
)

func TestOrderRespectsRankAndDeclaration(t *testing.T) {
	all := tables.Default.All()

	for seed := int64(0); seed < 20; seed++ {
		shuffled := append([]*tables.Spec(nil), all...)
		rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		ordered := Order(shuffled, tables.Default)
		assert.Equal(t, []string{
			"teams", "chips", "element_types", "element_stats",
			"fixtures", "elements",
			"team_elos", "element_history", "element_history_past",
			"elo_changes", "players", "player_stats",
		}, specNames(ordered), "seed %d", seed)

		// Every referenced table appears strictly before the referencing one.
		pos := map[string]int{}
		for i, s := range ordered {
			pos[s.Name] = i
		}
		for _, s := range ordered {
			for _, ref := range s.References() {
				assert.Less(t, pos[ref], pos[s.Name], "%s must follow %s", s.Name, ref)
			}
		}
	}
}

func TestOrderSubsetDoesNotMutateInput(t *testing.T) {
	in := []*tables.Spec{tables.PlayerStats, tables.Fixtures, tables.Teams}
	out := Order(in, tables.Default)

	assert.Equal(t, []string{"teams", "fixtures", "player_stats"}, specNames(out))
	assert.Equal(t, []string{"player_stats", "fixtures", "teams"}, specNames(in))
}
