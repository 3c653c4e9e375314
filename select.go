package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/huh"

	"github.com/arwahdevops/fplsync/internal/ledger"
	projectSync "github.com/arwahdevops/fplsync/internal/sync"
	"github.com/arwahdevops/fplsync/internal/tables"
)

const (
	choiceChanged = "changed"
	choiceForce   = "force"
	choiceSelect  = "select"
	choiceQuit    = "quit"
)

// requestForChoice turns a menu answer into a run request. ok is false when
// the user chose to quit or selected nothing.
func requestForChoice(choice string, selected []string) (req projectSync.Request, ok bool) {
	switch choice {
	case choiceChanged:
		return projectSync.Request{ChangedOnly: true}, true
	case choiceForce:
		return projectSync.Request{}, true
	case choiceSelect:
		if len(selected) == 0 {
			return projectSync.Request{}, false
		}
		return projectSync.Request{Tables: selected}, true
	default:
		return projectSync.Request{}, false
	}
}

// selectInteractively shows the change table and asks what to sync.
func selectInteractively(out io.Writer, reg *tables.Registry, l *ledger.Ledger, loc projectSync.SourceLocator) (projectSync.Request, bool, error) {
	states := projectSync.Inspect(reg.All(), l, loc)
	fmt.Fprintln(out, renderStatus(states))

	var changed []string
	for _, st := range states {
		if st.Status == projectSync.StatusChanged {
			changed = append(changed, st.Spec.Name)
		}
	}

	if len(changed) == 0 {
		force := false
		if err := huh.NewConfirm().
			Title("All tables are up to date.").
			Description("Force a sync anyway?").
			Affirmative("Yes").
			Negative("No").
			Value(&force).
			Run(); err != nil {
			return projectSync.Request{}, false, err
		}
		if !force {
			return projectSync.Request{}, false, nil
		}
		selected, err := pickTables(reg.Names(), nil)
		if err != nil {
			return projectSync.Request{}, false, err
		}
		req, ok := requestForChoice(choiceSelect, selected)
		return req, ok, nil
	}

	choice := choiceChanged
	if err := huh.NewSelect[string]().
		Title(fmt.Sprintf("%d table(s) changed. What do you want to sync?", len(changed))).
		Options(
			huh.NewOption("Sync all changed tables", choiceChanged),
			huh.NewOption("Force sync all tables", choiceForce),
			huh.NewOption("Select tables", choiceSelect),
			huh.NewOption("Quit", choiceQuit),
		).
		Value(&choice).
		Run(); err != nil {
		return projectSync.Request{}, false, err
	}

	var selected []string
	if choice == choiceSelect {
		var err error
		if selected, err = pickTables(reg.Names(), changed); err != nil {
			return projectSync.Request{}, false, err
		}
	}
	req, ok := requestForChoice(choice, selected)
	return req, ok, nil
}

// pickTables opens a multi-select over names with preselected already ticked.
func pickTables(names, preselected []string) ([]string, error) {
	pre := map[string]bool{}
	for _, n := range preselected {
		pre[n] = true
	}
	opts := make([]huh.Option[string], 0, len(names))
	for _, n := range names {
		opts = append(opts, huh.NewOption(n, n).Selected(pre[n]))
	}

	var selected []string
	err := huh.NewMultiSelect[string]().
		Title("Select tables to sync").
		Description("space to toggle, enter to confirm").
		Options(opts...).
		Value(&selected).
		Run()
	return selected, err
}
