package sync

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arwahdevops/fplsync/internal/config"
	"github.com/arwahdevops/fplsync/internal/fingerprint"
	"github.com/arwahdevops/fplsync/internal/ledger"
	"github.com/arwahdevops/fplsync/internal/metrics"
	"github.com/arwahdevops/fplsync/internal/tables"
)

func testOptions(dir string) Options {
	return Options{
		Dialect:             "sqlite",
		DataDir:             dir,
		Format:              config.SourceCSV,
		BatchSize:           100,
		MaxRejectionDetails: 5,
		ForceLedgerPolicy:   config.ForceLedgerRefresh,
	}
}

func readLedger(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries map[string]string
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestRunTeamsAndFixturesEndToEnd(t *testing.T) {
	dir := t.TempDir()
	teams := writeFile(t, dir, "teams.csv", teamsCSV(20))
	fixtures := writeFile(t, dir, "fixtures.csv", fixturesCSV(5))
	ledgerPath := filepath.Join(dir, config.DefaultLedgerFile)

	conn := openSQLite(t)
	log := zaptest.NewLogger(t)
	l, err := ledger.Load(ledgerPath, log)
	require.NoError(t, err)

	o := NewOrchestrator(conn, tables.Default, l, testOptions(dir), log, metrics.NewMetricsStore())
	var seen []string
	o.OnTableDone = func(tr TableReport) { seen = append(seen, tr.Table) }

	report, err := o.Run(context.Background(), Request{Tables: []string{"fixtures", "teams"}})
	require.NoError(t, err)
	assert.Equal(t, StateDone, o.State())
	assert.Equal(t, StateDone, report.FinalState)
	assert.NotEmpty(t, report.RunID)

	assert.Equal(t, []string{"teams", "fixtures"}, seen)
	teamsReport, ok := report.Table("teams")
	require.True(t, ok)
	assert.Equal(t, 20, teamsReport.RowsWritten)
	assert.Equal(t, OutcomeSynced, teamsReport.Outcome)
	fixturesReport, _ := report.Table("fixtures")
	assert.Equal(t, 5, fixturesReport.RowsWritten)
	assert.Equal(t, 25, report.TotalWritten)
	assert.Zero(t, report.TotalRejected)

	assert.Equal(t, int64(20), countRows(t, conn, "teams"))
	assert.Equal(t, int64(5), countRows(t, conn, "fixtures"))

	teamsHash, err := fingerprint.File(teams)
	require.NoError(t, err)
	fixturesHash, err := fingerprint.File(fixtures)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"teams": teamsHash, "fixtures": fixturesHash}, readLedger(t, ledgerPath))

	// Nothing changed on disk: a changed-only run has nothing to do.
	l2, err := ledger.Load(ledgerPath, log)
	require.NoError(t, err)
	o2 := NewOrchestrator(conn, tables.Default, l2, testOptions(dir), log, metrics.NewMetricsStore())
	report, err = o2.Run(context.Background(), Request{ChangedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, report.Tables)
	assert.Zero(t, report.TotalWritten)
	assert.Equal(t, int64(20), countRows(t, conn, "teams"))
}

func TestRunRejectedRowsDoNotFailTheRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "teams.csv", "code,id,name,short_name\n1,1,Arsenal,ARS\n2,x,Broken,BRK\n3,3,,NUL\n")

	store := &fakeStore{}
	l := ledger.New(filepath.Join(dir, config.DefaultLedgerFile))
	o := NewOrchestrator(store, tables.Default, l, testOptions(dir), zaptest.NewLogger(t), metrics.NewMetricsStore())

	report, err := o.Run(context.Background(), Request{Tables: []string{"teams"}})
	require.NoError(t, err)
	tr, _ := report.Table("teams")
	assert.Equal(t, 1, tr.RowsWritten)
	assert.Equal(t, 2, tr.RowsRejected)
	assert.Len(t, tr.Rejections, 2)
	assert.Equal(t, 2, report.TotalRejected)
	assert.True(t, tr.LedgerUpdated)
}

func TestRunPartialFailureKeepsEarlierLedgerEntries(t *testing.T) {
	dir := t.TempDir()
	teams := writeFile(t, dir, "teams.csv", teamsCSV(20))
	writeFile(t, dir, "fixtures.csv", fixturesCSV(5))
	writeFile(t, dir, "team_elos.csv", "team_id,off_elo,def_elo\n1,1500.5,1490\n")
	ledgerPath := filepath.Join(dir, config.DefaultLedgerFile)

	store := &fakeStore{failTable: "fixtures"}
	l := ledger.New(ledgerPath)
	o := NewOrchestrator(store, tables.Default, l, testOptions(dir), zaptest.NewLogger(t), metrics.NewMetricsStore())

	report, err := o.Run(context.Background(), Request{Tables: []string{"teams", "fixtures", "team_elos"}})
	require.Error(t, err)
	var be *BatchError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "fixtures", be.Table)

	assert.Equal(t, StateAborted, o.State())
	assert.True(t, report.Aborted())
	assert.Equal(t, "fixtures", report.FailedTable)

	teamsHash, err := fingerprint.File(teams)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"teams": teamsHash}, readLedger(t, ledgerPath))

	require.Len(t, report.Tables, 3)
	assert.Equal(t, OutcomeSynced, report.Tables[0].Outcome)
	assert.Equal(t, OutcomeFailed, report.Tables[1].Outcome)
	assert.Equal(t, OutcomeNotRun, report.Tables[2].Outcome)
	assert.Zero(t, report.Tables[2].RowsWritten)
	assert.Empty(t, store.insertBatches("team_elos"))
}

func TestRunMissingSourceIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "teams.csv", teamsCSV(2))

	l := ledger.New(filepath.Join(dir, config.DefaultLedgerFile))
	l.Set("players", "previous")
	o := NewOrchestrator(&fakeStore{}, tables.Default, l, testOptions(dir), zaptest.NewLogger(t), metrics.NewMetricsStore())

	report, err := o.Run(context.Background(), Request{Tables: []string{"teams", "players", "nope"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"nope"}, report.UnknownTables)

	players, ok := report.Table("players")
	require.True(t, ok)
	assert.Equal(t, OutcomeSkipped, players.Outcome)
	assert.False(t, players.LedgerUpdated)

	recorded, _ := l.Get("players")
	assert.Equal(t, "previous", recorded)
}

func TestRunParseFailureAborts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "teams.csv", "code,id,name,short_name\n1,1\n")
	writeFile(t, dir, "fixtures.csv", fixturesCSV(1))

	store := &fakeStore{}
	l := ledger.New(filepath.Join(dir, config.DefaultLedgerFile))
	o := NewOrchestrator(store, tables.Default, l, testOptions(dir), zaptest.NewLogger(t), metrics.NewMetricsStore())

	report, err := o.Run(context.Background(), Request{Tables: []string{"teams", "fixtures"}})
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "teams", report.FailedTable)
	assert.Zero(t, l.Len())
	assert.Empty(t, store.insertBatches("fixtures"))
}

func TestRunProvisioningFailureAbortsBeforeData(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "teams.csv", teamsCSV(2))

	o := NewOrchestrator(&fakeStore{failDDL: true}, tables.Default, ledger.New(filepath.Join(dir, "l.json")),
		testOptions(dir), zaptest.NewLogger(t), metrics.NewMetricsStore())

	report, err := o.Run(context.Background(), Request{Tables: []string{"teams"}})
	var pe *ProvisioningError
	require.True(t, errors.As(err, &pe))
	require.Len(t, report.Tables, 1)
	assert.Equal(t, OutcomeNotRun, report.Tables[0].Outcome)
	assert.Equal(t, StateAborted, report.FinalState)
}

func TestForcedRunLedgerPolicy(t *testing.T) {
	dir := t.TempDir()
	teams := writeFile(t, dir, "teams.csv", teamsCSV(3))
	h, err := fingerprint.File(teams)
	require.NoError(t, err)

	compact := []byte(`{"teams":"` + h + `"}`)
	ledgerPath := writeFile(t, dir, config.DefaultLedgerFile, string(compact))
	log := zaptest.NewLogger(t)

	run := func(policy config.ForceLedgerPolicy) TableReport {
		l, err := ledger.Load(ledgerPath, log)
		require.NoError(t, err)
		opts := testOptions(dir)
		opts.ForceLedgerPolicy = policy
		o := NewOrchestrator(&fakeStore{}, tables.Default, l, opts, log, metrics.NewMetricsStore())
		report, err := o.Run(context.Background(), Request{Tables: []string{"teams"}})
		require.NoError(t, err)
		tr, _ := report.Table("teams")
		assert.Equal(t, 3, tr.RowsWritten)
		return tr
	}

	tr := run(config.ForceLedgerChangedOnly)
	assert.False(t, tr.LedgerUpdated)
	data, err := os.ReadFile(ledgerPath)
	require.NoError(t, err)
	assert.Equal(t, compact, data)

	tr = run(config.ForceLedgerRefresh)
	assert.True(t, tr.LedgerUpdated)
	data, err = os.ReadFile(ledgerPath)
	require.NoError(t, err)
	assert.NotEqual(t, compact, data)
	assert.Equal(t, map[string]string{"teams": h}, readLedger(t, ledgerPath))
}

func TestRunJSONSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chips.json", `[
  {"id": 1, "name": "wildcard", "number": 1, "start_event": 2, "stop_event": 19, "chip_type": "transfer"},
  {"id": 2, "name": "3xc", "number": 1, "start_event": 1, "stop_event": 38, "chip_type": "team"}
]`)

	conn := openSQLite(t)
	opts := testOptions(dir)
	opts.Format = config.SourceJSON
	o := NewOrchestrator(conn, tables.Default, ledger.New(filepath.Join(dir, config.DefaultLedgerFile)),
		opts, zaptest.NewLogger(t), metrics.NewMetricsStore())

	report, err := o.Run(context.Background(), Request{ChangedOnly: true})
	require.NoError(t, err)
	require.Len(t, report.Tables, 1)
	assert.Equal(t, 2, report.TotalWritten)
	assert.Equal(t, int64(2), countRows(t, conn, "chips"))
}
