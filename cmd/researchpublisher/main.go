package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ResearchPublisher/internal/app"
	"ResearchPublisher/internal/config"
	"ResearchPublisher/internal/logging"
)

var configPath string

// rootCmd is the researchpublisher entry point.
var rootCmd = &cobra.Command{
	Use:   "researchpublisher",
	Short: "Collect AI research, rank it and draft posts about the best items",
	Long: `researchpublisher scans papers, blogs, Hacker News and GitHub, keeps the relevant
and unique items, ranks them and runs a multi-stage LLM analysis over the top candidates.

Configuration is read from --config, RESEARCH_PUBLISHER_CONFIG or built-in defaults;
secrets come from the environment or a .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	rootCmd.AddCommand(fetchCmd, generateCmd, runCmd, scheduleCmd, candidatesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}

// withApp loads configuration, builds the application and closes it after fn returns.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("close application", "error", cerr)
		}
	}()

	return fn(ctx, application)
}
