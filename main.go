package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/arwahdevops/fplsync/internal/config"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfigError = 2
)

// Flag overrides applied on top of the environment after config.Load().
type overrides struct {
	dataDir   string
	format    string
	batchSize int
	ledger    string
}

type syncFlags struct {
	all     bool
	changed bool
	force   bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, huh.ErrUserAborted):
		return exitOK
	case config.IsConfigurationError(err):
		return exitConfigError
	default:
		return exitFailure
	}
}

func newRootCmd() *cobra.Command {
	var ov overrides
	var sf syncFlags

	root := &cobra.Command{
		Use:   "fplsync [tables...]",
		Short: "Sync staged FPL data files into a Turso/libSQL store",
		Long: `fplsync loads staged per-table files (CSV or JSON) from DATA_DIR, validates
them, and upserts them into the remote store in dependency order.

Only tables whose files changed since the last successful sync are picked up
by --changed; --all and --force sync every table; naming tables syncs exactly
those. With no flags and no table names an interactive selection is shown.`,
		Example: `  fplsync --changed
  fplsync --all
  fplsync -f teams fixtures
  fplsync status`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, &ov, sf, args)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&ov.dataDir, "data-dir", "", "Override DATA_DIR")
	pf.StringVar(&ov.format, "format", "", "Override SOURCE_FORMAT (csv, json)")
	pf.IntVar(&ov.batchSize, "batch-size", 0, "Override BATCH_SIZE (1 to 500)")
	pf.StringVar(&ov.ledger, "ledger", "", "Override LEDGER_PATH")

	f := root.Flags()
	f.BoolVarP(&sf.all, "all", "a", false, "Sync all tables (skip interactive selection)")
	f.BoolVarP(&sf.changed, "changed", "c", false, "Sync only changed tables (skip interactive selection)")
	f.BoolVarP(&sf.force, "force", "f", false, "Sync every selected table, ignoring change detection")

	root.AddCommand(newStatusCmd(&ov), newWatchCmd(&ov), newTablesCmd(&ov))

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &config.ConfigurationError{Field: "flags", Err: fmt.Errorf("%w\n\n%s", err, cmd.UsageString())}
	})
	return root
}
