package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ResearchPublisher/internal/app"
	"ResearchPublisher/internal/usecase"
)

var (
	generateCount int
	listLimit     int
)

// fetchCmd runs triage and stores ranked candidates
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch, filter, dedupe and rank new items",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			report, err := a.Fetch(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
			fmt.Fprintln(cmd.OutOrStdout(), renderCandidates(report.Ranked, 10))
			return nil
		})
	},
}

// generateCmd analyzes the best unanalyzed candidates
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Analyze the top unanalyzed candidates and publish a digest",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			results, err := a.Generate(ctx, generateCount)
			if errors.Is(err, usecase.ErrNoCandidates) {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("nothing to analyze, run fetch first"))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderAnalyses(results))
			return nil
		})
	},
}

// runCmd does fetch and generate in one go
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch and generate once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			results, err := a.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderAnalyses(results))
			return nil
		})
	},
}

// scheduleCmd keeps running on the configured cron expression
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily pipeline on the configured cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			return a.Schedule(ctx)
		})
	},
}

// candidatesCmd lists stored candidates awaiting analysis
var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List stored candidates awaiting analysis",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			items, err := a.Candidates(ctx, listLimit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCandidates(items, listLimit))
			return nil
		})
	},
}

func init() {
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 0, "number of candidates to analyze (0 uses analysis.topN)")
	candidatesCmd.Flags().IntVarP(&listLimit, "limit", "l", 20, "maximum rows to show")
}
