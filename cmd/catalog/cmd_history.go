package main

import (
	"errors"
	"fmt"

	"appcatalog/cmd/catalog/ui"
	"appcatalog/internal/pagination"
	"appcatalog/internal/store"

	"github.com/spf13/cobra"
)

var (
	historyPage     int
	historyPageSize int
	historyApp      string
)

// historyCmd shows onboardings completed from this machine
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show onboardings completed from this machine",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <association-id>",
	Short: "Show the repositories, Jira projects and documents of one onboarding",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.Flags().IntVar(&historyPage, "page", 1, "Page to show")
	historyCmd.Flags().IntVar(&historyPageSize, "page-size", 0, "Rows per page (default: ui.page_size)")
	historyCmd.Flags().StringVar(&historyApp, "app", "", "Only show onboardings of this application id")
	historyCmd.AddCommand(historyShowCmd)
}

func openHistoryStore() (*store.LocalStore, error) {
	if cfg.Store.Disabled {
		return nil, fmt.Errorf("onboarding history is disabled (store.disabled)")
	}
	return store.NewLocalStore(cfg.Store.DatabasePath)
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var entries []store.HistoryEntry
	if historyApp != "" {
		entries, err = st.ListByApp(ctx, historyApp)
	} else {
		var total int
		if total, err = st.CountAssociations(ctx); err == nil {
			entries, err = st.ListAssociations(ctx, total, 0)
		}
	}
	if err != nil {
		return err
	}

	size := historyPageSize
	if size < 1 {
		size = cfg.GetPageSize()
	}
	page := pagination.Paginate(entries, size, historyPage)

	out := cmd.OutOrStdout()
	if page.TotalItems == 0 {
		fmt.Fprintln(out, "No onboardings recorded yet.")
		return nil
	}

	table := ui.NewSimpleTable(fmt.Sprintf("Onboarding history (%d)", page.TotalItems),
		[]string{"When", "Application", "Product", "Repos", "Jira", "Docs", "Association"})
	for _, e := range page.Items {
		table.AddRow(
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.AppName,
			e.ProductName,
			fmt.Sprint(e.RepoCount),
			fmt.Sprint(e.JiraCount),
			fmt.Sprint(e.DocCount),
			e.Association.ID,
		)
	}
	table.Footer = ui.PageFooter(page)
	fmt.Fprint(out, table.View(ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	st, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	e, err := st.GetAssociation(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no onboarding recorded for association %q", args[0])
	}
	if err != nil {
		return err
	}

	assoc := e.Association
	table := ui.NewSimpleTable("Onboarding "+assoc.ID, []string{"Field", "Value"})
	table.AddRow("When", e.CreatedAt.Local().Format("2006-01-02 15:04"))
	table.AddRow("Application", fmt.Sprintf("%s (%s)", e.AppName, e.AppID))
	table.AddRow("Product", fmt.Sprintf("%s (%s)", e.ProductName, e.ProductID))
	table.AddRow("Session", e.SessionID)
	for _, r := range assoc.Repos {
		table.AddRow("Repository", fmt.Sprintf("%s [%s]", r.Name, r.Source))
	}
	for _, p := range assoc.JiraProjects {
		table.AddRow("Jira project", fmt.Sprintf("%s %s", p.Key, p.Name))
	}
	for _, d := range assoc.Documentation {
		table.AddRow(string(d.Type), d.URL)
	}
	fmt.Fprint(cmd.OutOrStdout(), table.View(ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))))
	return nil
}
