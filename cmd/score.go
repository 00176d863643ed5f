package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [neighborhood-id...]",
	Short: "Score neighborhoods for development suitability",
	Long: `Computes the eight component scores (accessibility, university
proximity, amenities, affordability, safety, cultural scene, planning
feasibility, competition) and the weighted overall for each neighborhood,
and persists the results.

With no arguments every neighborhood in the catalog is scored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if len(args) == 1 {
			metrics, err := app.scoring.ScoreNeighborhood(ctx, args[0])
			if err != nil {
				return err
			}
			return printResult(metrics)
		}

		result, err := app.scoring.ScoreAll(ctx, args)
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

func init() { rootCmd.AddCommand(scoreCmd) }
