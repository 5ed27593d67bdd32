package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"appcatalog/internal/api"
	"appcatalog/internal/config"
	"appcatalog/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg     *config.Config
	watcher *config.Watcher

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Application catalog console",
	Long: `catalog is a terminal console for the application catalog.

It onboards CMDB applications into products (repositories, Jira projects and
governance documents) and browses the catalog's resources.

Run "catalog onboard" to start the onboarding wizard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zc := zap.NewProductionConfig()
		zc.OutputPaths = []string{"stderr"}
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if err := logging.Initialize(cfg.LoggingOptions()); err != nil {
			logger.Warn("File logging disabled", zap.Error(err))
		}
		logging.Boot("catalog %s starting (config=%s)", cmd.CommandPath(), path)

		// Only the long running wizard benefits from hot reload.
		if cmd.Name() == "onboard" {
			startWatcher(cmd.Context(), path)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if watcher != nil {
			watcher.Stop()
			watcher = nil
		}
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.catalog/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(resourceCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// startWatcher reloads the logging level when the config file changes.
func startWatcher(ctx context.Context, path string) {
	w, err := config.NewWatcher(path, func(next *config.Config) {
		if err := logging.SetLevel(next.Logging.Level); err != nil {
			logging.ConfigWarn("ignoring reloaded log level %q: %v", next.Logging.Level, err)
			return
		}
		logger.Debug("Config reloaded", zap.String("level", next.Logging.Level))
	})
	if err != nil {
		logger.Debug("Config watcher unavailable", zap.Error(err))
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := w.Start(ctx); err != nil {
		logger.Debug("Config watcher failed to start", zap.Error(err))
		w.Stop()
		return
	}
	watcher = w
}

// commandContext bounds a command by --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// newClient builds the REST client from the loaded config.
func newClient() (*api.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return api.New(api.Options{
		BaseURL:    cfg.Backend.BaseURL,
		Token:      cfg.Backend.Token,
		Timeout:    cfg.GetBackendTimeout(),
		MaxRetries: cfg.Backend.MaxRetries,
	})
}
