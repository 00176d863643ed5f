package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quadrant-invest/geointel/internal/geo"
)

var (
	analyzeLat    float64
	analyzeLng    float64
	analyzeRadius float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a full location intelligence report around a point",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		report, err := app.intel.AnalyzeLocation(ctx,
			geo.Point{Lat: analyzeLat, Lng: analyzeLng}, analyzeRadius)
		if err != nil {
			return err
		}
		return printResult(report)
	},
}

var (
	optimalMaxResults  int
	optimalMinStudents int
	optimalMaxDistance float64
)

var optimalCmd = &cobra.Command{
	Use:   "optimal <city>",
	Short: "Rank candidate development locations in a city",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		candidates, err := app.intel.FindOptimalLocations(ctx, args[0],
			optimalMaxResults, optimalMinStudents, optimalMaxDistance)
		if err != nil {
			return err
		}
		return printResult(candidates)
	},
}

func init() {
	analyzeCmd.Flags().Float64Var(&analyzeLat, "lat", 0, "latitude of the point to analyze")
	analyzeCmd.Flags().Float64Var(&analyzeLng, "lng", 0, "longitude of the point to analyze")
	analyzeCmd.Flags().Float64Var(&analyzeRadius, "radius", 0, "analysis radius in km (default from config)")
	_ = analyzeCmd.MarkFlagRequired("lat")
	_ = analyzeCmd.MarkFlagRequired("lng")

	optimalCmd.Flags().IntVar(&optimalMaxResults, "max-results", 0, "candidate cap (default from config)")
	optimalCmd.Flags().IntVar(&optimalMinStudents, "min-students", 0, "minimum anchor enrollment (default from config)")
	optimalCmd.Flags().Float64Var(&optimalMaxDistance, "max-distance-km", 0, "analysis radius around each campus (default from config)")

	rootCmd.AddCommand(analyzeCmd, optimalCmd)
}
