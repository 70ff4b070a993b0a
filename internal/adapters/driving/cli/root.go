// Package cli implements the intentflow command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intentflow/internal/adapters/driven/ai"
	"github.com/custodia-labs/intentflow/internal/adapters/driven/config/file"
	"github.com/custodia-labs/intentflow/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/intentflow/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
	"github.com/custodia-labs/intentflow/internal/core/ports/driving"
	"github.com/custodia-labs/intentflow/internal/core/services"
	"github.com/custodia-labs/intentflow/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "intentflow",
	Short: "Turn natural-language goals into executable flows",
	Long: `intentflow decomposes a natural-language intent into goals, asks an LLM
for candidate execution flows and stores them as DIML documents.

Run "intentflow serve" for the HTTP API or "intentflow mcp serve" for AI
assistants. The diml commands work offline.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", file.DefaultConfigFile, "path to the TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// app is the wired application behind the service commands.
type app struct {
	settings *domain.Settings
	intents  driving.IntentService
	warnings []string
	closers  []func() error
}

// Close releases the store and the LLM client.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// newApp wires settings, store and planner. requireLLM turns a missing or
// unreachable LLM into an error. Tests replace it.
var newApp = func(_ context.Context, requireLLM bool) (*app, error) {
	settingsService := services.NewSettingsService(configStore(), os.LookupEnv)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}
	if err := configureLogger(settings); err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(settings.Storage)
	if err != nil {
		return nil, err
	}

	required := requireLLM || settings.Environment == domain.EnvProduction
	aiResult, err := ai.Init(settings, required)
	if err != nil {
		closeStore() //nolint:errcheck
		return nil, fmt.Errorf("initialise LLM: %w", err)
	}
	for _, w := range aiResult.Warnings {
		logger.Warn(w)
	}

	return &app{
		settings: settings,
		intents:  services.NewIntentService(store, aiResult.Planner),
		warnings: aiResult.Warnings,
		closers: []func() error{
			closeStore,
			func() error { aiResult.Close(); return nil },
		},
	}, nil
}

// configStore reads --config, or nothing at all when it is empty.
func configStore() driven.ConfigStore {
	if configPath == "" {
		return memory.NewConfigStore(nil)
	}
	return file.NewConfigStore(configPath)
}

// configureLogger applies the log settings. --verbose wins over log.level.
func configureLogger(settings *domain.Settings) error {
	logger.SetFormat(settings.Log.Format)
	if verbose {
		logger.SetVerbose(true)
		return nil
	}
	if err := logger.SetLevel(settings.Log.Level); err != nil {
		return fmt.Errorf("log level %q: %w", settings.Log.Level, err)
	}
	return nil
}

// openStore creates the Store selected by the storage driver.
func openStore(driver domain.StorageDriver) (driven.Store, func() error, error) {
	switch driver {
	case domain.StorageSQLite:
		store, err := sqlite.NewStore()
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, store.Close, nil
	case domain.StorageMemory, "":
		return memory.NewStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidStorageDriver, driver)
	}
}
