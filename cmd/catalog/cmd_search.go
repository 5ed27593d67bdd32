package main

import (
	"context"
	"fmt"
	"strings"

	"appcatalog/cmd/catalog/ui"
	"appcatalog/internal/catalog"
	"appcatalog/internal/search"

	"github.com/spf13/cobra"
)

// =============================================================================
// SEARCH COMMANDS
// =============================================================================

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "CMDB application commands",
}

var appsSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search CMDB applications by name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAppsSearch,
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Product commands",
}

var productsSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search products by name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProductsSearch,
}

func init() {
	appsCmd.AddCommand(appsSearchCmd)
	productsCmd.AddCommand(productsSearchCmd)
}

// searchOnce runs a single search through a Searcher so the command applies the
// same term threshold and error mapping as the wizard.
func searchOnce[T any](ctx context.Context, name, term string, fn search.Func[T]) ([]T, error) {
	s := search.New(func(_ context.Context, term string) ([]T, error) {
		return fn(ctx, term)
	}, search.Options[T]{MinChars: cfg.GetSearchMinChars(), Name: name})

	req, ok := s.Begin(term)
	if !ok {
		return nil, fmt.Errorf("search term must be at least %d characters", s.MinChars())
	}
	results, err := s.Run(req)
	s.Apply(req.Gen, results, err)

	st := s.State()
	if st.Err != "" {
		return nil, fmt.Errorf("%s: %w", st.Err, st.Cause)
	}
	return st.Results, nil
}

func runAppsSearch(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	apps, err := searchOnce[catalog.App](ctx, "apps", strings.Join(args, " "), client.SearchApplications)
	if err != nil {
		return err
	}

	table := ui.NewSimpleTable(fmt.Sprintf("Applications (%d)", len(apps)), []string{"ID", "Name", "Owner", "Onboarded"})
	for _, app := range apps {
		table.AddRow(app.ID, app.DisplayName(), app.Owner, yesNo(app.IsOnboarded))
	}
	fmt.Fprint(cmd.OutOrStdout(), table.View(ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))))
	return nil
}

func runProductsSearch(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	products, err := searchOnce[catalog.Product](ctx, "products", strings.Join(args, " "), client.SearchProducts)
	if err != nil {
		return err
	}

	table := ui.NewSimpleTable(fmt.Sprintf("Products (%d)", len(products)), []string{"ID", "Name", "Owner"})
	for _, p := range products {
		table.AddRow(p.ID, p.Name, p.Owner)
	}
	fmt.Fprint(cmd.OutOrStdout(), table.View(ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
