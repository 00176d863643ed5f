package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Build and compare city-level market analyses",
}

var (
	marketCountry string
	marketRefresh bool
)

var marketBuildCmd = &cobra.Command{
	Use:   "build <city>",
	Short: "Build a market analysis for a city",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		analysis, err := app.market.BuildAnalysis(ctx, args[0], marketCountry, marketRefresh)
		if err != nil {
			return err
		}
		return printResult(analysis)
	},
}

var marketUpdateCmd = &cobra.Command{
	Use:   "update <analysis-id>",
	Short: "Recompute an existing analysis in place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		analysis, err := app.market.UpdateAnalysis(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(analysis)
	},
}

var marketCompareCmd = &cobra.Command{
	Use:   "compare <analysis-id> <analysis-id> [analysis-id...]",
	Short: "Compare several market analyses side by side",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		comparison, err := app.market.CompareMarkets(ctx, args)
		if err != nil {
			return err
		}
		return printResult(comparison)
	},
}

var marketExpandRadius float64

var marketExpandCmd = &cobra.Command{
	Use:   "expand <city>",
	Short: "Scout expansion opportunities near an analyzed city",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		opportunities, err := app.market.ExpansionOpportunities(ctx, args[0], marketExpandRadius)
		if err != nil {
			return err
		}
		return printResult(opportunities)
	},
}

func init() {
	marketBuildCmd.Flags().StringVar(&marketCountry, "country", "", "country of the city")
	marketBuildCmd.Flags().BoolVar(&marketRefresh, "refresh", false, "rebuild even if an analysis exists")
	_ = marketBuildCmd.MarkFlagRequired("country")
	marketExpandCmd.Flags().Float64Var(&marketExpandRadius, "radius", 0, "search radius in km (default from config)")

	marketCmd.AddCommand(marketBuildCmd, marketUpdateCmd, marketCompareCmd, marketExpandCmd)
	rootCmd.AddCommand(marketCmd)
}
