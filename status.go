package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/arwahdevops/fplsync/internal/ledger"
	"github.com/arwahdevops/fplsync/internal/logger"
	projectSync "github.com/arwahdevops/fplsync/internal/sync"
	"github.com/arwahdevops/fplsync/internal/tables"
)

var (
	styleOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleFail   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleHeader = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleCell   = lipgloss.NewStyle().Padding(0, 1)
)

func newStatusCmd(ov *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which tables changed since the last sync",
		Long:  "Compares every staged source file against the ledger. Does not connect to the store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = logger.Log.Sync() }()
			cfg, err := loadConfig(ov, true)
			if err != nil {
				return err
			}
			l, err := ledger.Load(cfg.ResolvedLedgerPath(), logger.Log)
			if err != nil {
				return err
			}
			loc := projectSync.SourceLocator{DataDir: cfg.DataDir, Format: cfg.SourceFormat}
			states := projectSync.Inspect(tables.Default.All(), l, loc)
			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(states))
			fmt.Fprintln(cmd.OutOrStdout(), summarizeStatus(states))
			return nil
		},
	}
}

func statusLabel(st projectSync.TableState) string {
	switch st.Status {
	case projectSync.StatusUpToDate:
		return styleOK.Render("up to date")
	case projectSync.StatusMissing:
		return styleMuted.Render("no source")
	default:
		if st.Err != nil {
			return styleFail.Render("unreadable")
		}
		if st.Recorded == "" {
			return styleWarn.Render("new")
		}
		return styleWarn.Render("changed")
	}
}

// renderStatus draws the per-table change table shown by status and the
// interactive selection.
func renderStatus(states []projectSync.TableState) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleMuted).
		Headers("TABLE", "RANK", "STATUS", "SOURCE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		})
	for _, st := range states {
		t.Row(st.Spec.Name, strconv.Itoa(st.Spec.Rank), statusLabel(st), filepath.Base(st.Path))
	}
	return t.String()
}

func summarizeStatus(states []projectSync.TableState) string {
	var changed, missing int
	for _, st := range states {
		switch st.Status {
		case projectSync.StatusChanged:
			changed++
		case projectSync.StatusMissing:
			missing++
		}
	}
	if changed == 0 {
		return fmt.Sprintf("All tables are up to date (%d without a source file).", missing)
	}
	return fmt.Sprintf("%d of %d tables changed (%d without a source file).", changed, len(states), missing)
}

func newTablesCmd(ov *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List registered tables in sync order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = logger.Log.Sync() }()
			cfg, err := loadConfig(ov, true)
			if err != nil {
				return err
			}
			printTables(cmd.OutOrStdout(), tables.Default, string(cfg.SourceFormat))
			return nil
		},
	}
}

func printTables(out io.Writer, reg *tables.Registry, ext string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleMuted).
		Headers("TABLE", "RANK", "SOURCE", "REFERENCES").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		})
	for _, s := range projectSync.Order(reg.All(), reg) {
		refs := "-"
		if r := s.References(); len(r) > 0 {
			refs = strings.Join(r, ", ")
		}
		t.Row(s.Name, strconv.Itoa(s.Rank), filepath.Base(s.SourcePath("", ext)), refs)
	}
	fmt.Fprintln(out, t.String())
}
