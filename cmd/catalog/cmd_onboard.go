package main

import (
	"context"
	"fmt"

	"appcatalog/cmd/catalog/ui"
	"appcatalog/internal/api"
	"appcatalog/internal/catalog"
	"appcatalog/internal/store"
	"appcatalog/internal/wizard"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// ONBOARDING WIZARD
// =============================================================================

// onboardCmd launches the onboarding wizard
var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Onboard an application into a product",
	Long: `Starts the interactive onboarding wizard.

The wizard walks through:
  1. Finding the CMDB application
  2. Choosing its product
  3. Reviewing details and service instances
  4. Selecting repositories and Jira projects
  5. Linking the required governance documents
  6. Reviewing and submitting

Applications that are already onboarded to another product skip straight
from the product to the review.`,
	Args: cobra.NoArgs,
	RunE: runOnboard,
}

// catalogLookups wires the wizard's search inputs to the backend and records
// what they return in the shared cache.
func catalogLookups(client *api.Client, cache *catalog.Cache) ui.Lookups {
	return ui.Lookups{
		Apps: func(ctx context.Context, term string) ([]catalog.App, error) {
			apps, err := client.SearchApplications(ctx, term)
			if err == nil {
				cache.AddApps(apps...)
			}
			return apps, err
		},
		Products: func(ctx context.Context, term string) ([]catalog.Product, error) {
			products, err := client.SearchProducts(ctx, term)
			if err == nil {
				cache.AddProducts(products...)
			}
			return products, err
		},
		Repos: client.SearchRepos,
		Jira:  client.SearchJiraProjects,
	}
}

// openHistory opens the local history database unless it is disabled. A
// history that cannot be opened only costs the record, not the onboarding.
func openHistory() *store.LocalStore {
	if cfg.Store.Disabled {
		return nil
	}
	st, err := store.NewLocalStore(cfg.Store.DatabasePath)
	if err != nil {
		logger.Warn("Onboarding history unavailable", zap.String("path", cfg.Store.DatabasePath), zap.Error(err))
		return nil
	}
	return st
}

func runOnboard(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	cache := catalog.NewCache()
	notifier := &ui.Notifier{}

	opts := wizard.Options{
		Cache:        cache,
		Notify:       notifier.Notify,
		FetchTimeout: cfg.GetBackendTimeout(),
	}
	if history := openHistory(); history != nil {
		defer history.Close()
		opts.History = history
	}
	session := wizard.NewSession(client, opts)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	model := ui.NewWizardModel(ui.WizardOptions{
		Session:  session,
		Lookups:  catalogLookups(client, cache),
		Cache:    cache,
		Notifier: notifier,
		Styles:   ui.NewStyles(ui.ThemeFor(cfg.UI.Theme)),
		MinChars: cfg.GetSearchMinChars(),
		Debounce: cfg.GetSearchDebounce(),
		PageSize: cfg.GetPageSize(),
		Context:  ctx,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	notifier.Attach(p)

	logger.Debug("Starting onboarding wizard", zap.String("session", session.ID()), zap.String("backend", client.BaseURL()))
	final, err := p.Run()
	notifier.Attach(nil)
	model.Wait()
	if err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}

	done, ok := final.(ui.WizardModel)
	if !ok {
		return nil
	}
	printOutcome(cmd, done.Outcome())
	return nil
}

func printOutcome(cmd *cobra.Command, outcome *wizard.Submission) {
	out := cmd.OutOrStdout()
	switch {
	case outcome == nil:
		fmt.Fprintln(out, "Onboarding cancelled.")
	case outcome.Succeeded:
		if outcome.Association != nil && outcome.Association.ID != "" {
			fmt.Fprintf(out, "Onboarding complete (association %s).\n", outcome.Association.ID)
			return
		}
		fmt.Fprintln(out, "Onboarding complete.")
	default:
		fmt.Fprintf(out, "Onboarding failed: %s\n", outcome.Error)
	}
}
