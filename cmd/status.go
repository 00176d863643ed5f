package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quadrant-invest/geointel/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog contents and existing analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, closeStore, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		neighborhoods, err := store.ListNeighborhoods(ctx)
		if err != nil {
			return err
		}
		scored := 0
		for _, n := range neighborhoods {
			if !n.Metrics.CalculatedAt.IsZero() {
				scored++
			}
		}

		analyses, err := store.ListAnalyses(ctx)
		if err != nil {
			return err
		}
		summaries := make([]map[string]any, 0, len(analyses))
		for _, a := range analyses {
			summaries = append(summaries, map[string]any{
				"id":       a.ID,
				"city":     a.City,
				"country":  a.Country,
				"version":  a.Version,
				"students": a.TotalStudentPopulation,
				"maturity": a.MarketMaturity(),
			})
		}

		return printResult(map[string]any{
			"driver":               cfg.Store.Driver,
			"neighborhoods":        len(neighborhoods),
			"scored_neighborhoods": scored,
			"categories":           model.Categories(),
			"analyses":             summaries,
		})
	},
}

func init() { rootCmd.AddCommand(statusCmd) }
