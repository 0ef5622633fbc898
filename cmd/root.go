// Package cmd defines and implements the CLI commands for the hot100 executable.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/hot100-crawler/internal/app"
	"github.com/JakeFAU/hot100-crawler/internal/config"
	"github.com/JakeFAU/hot100-crawler/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can swap it.
var newApp = func(cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(cfg, logger)
}

// rootCommand is the root cobra command plus the App its pre-run built, kept
// here so the App is released even when the subcommand fails.
type rootCommand struct {
	*cobra.Command
	app *app.App
}

// newRootCmd creates and configures the root command.
func newRootCmd() *rootCommand {
	var cfgFile string
	root := &rootCommand{}

	root.Command = &cobra.Command{
		Use:   "hot100",
		Short: "Crawls the Billboard Hot 100 archive.",
		Long: `hot100 walks the Billboard Hot 100 archive: the list of years, the chart
dates published in each year, and the 100 ranked entries of every chart.`,
		SilenceUsage: true,

		// Build the application once the flags are parsed and hand it to the subcommand.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Config{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			appInstance, err := newApp(cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			root.app = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML, or JSON)")

	root.AddCommand(newCrawlCmd())
	root.AddCommand(newYearsCmd())
	root.AddCommand(newDatesCmd())
	root.AddCommand(newChartCmd())

	return root
}

// Close flushes the logger and releases the App, if one was built. It is
// safe to call more than once.
func (r *rootCommand) Close() error {
	if r.app == nil {
		return nil
	}
	appInstance := r.app
	r.app = nil
	_ = appInstance.Logger().Sync()
	return appInstance.Close()
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	if closeErr := root.Close(); closeErr != nil {
		fmt.Fprintln(os.Stderr, "error:", closeErr)
		if err == nil {
			os.Exit(1)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
