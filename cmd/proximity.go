package main

import (
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

var (
	nearbyLat      float64
	nearbyLng      float64
	nearbyCategory string
	nearbyMaxKM    float64
	nearbyLimit    int
)

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "Find the nearest POIs of a category around a point",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		pois, err := app.proximity.NearestOfType(ctx,
			geo.Point{Lat: nearbyLat, Lng: nearbyLng},
			model.Category(nearbyCategory), nearbyMaxKM, nearbyLimit)
		if err != nil {
			return err
		}
		return printResult(pois)
	},
}

var (
	accessLat float64
	accessLng float64
)

var accessibilityCmd = &cobra.Command{
	Use:   "accessibility",
	Short: "Compute the weighted accessibility score of a point",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.proximity.AccessibilityScore(ctx, geo.Point{Lat: accessLat, Lng: accessLng})
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

var (
	radiusLat     float64
	radiusLng     float64
	radiusTargets string
	radiusMaxKM   float64
)

var radiusCmd = &cobra.Command{
	Use:   "radius",
	Short: "Find the smallest radius meeting amenity targets",
	Long: `Walks an ascending radius ladder around a point and reports the
smallest radius meeting the most targets.

Targets are comma-separated category=count pairs, e.g.:
  radius --lat 51.5 --lng -0.12 --targets grocery=2,metro=1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		targets, err := parseTargets(radiusTargets)
		if err != nil {
			return err
		}
		result, err := app.proximity.OptimalRadius(ctx,
			geo.Point{Lat: radiusLat, Lng: radiusLng}, targets, radiusMaxKM)
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

var catchmentMinutes int

var catchmentCmd = &cobra.Command{
	Use:   "catchment <university-id>",
	Short: "Analyze a university's travel-time catchment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		uni, err := app.store.GetUniversity(ctx, args[0])
		if err != nil {
			return err
		}
		result, err := app.proximity.CatchmentArea(ctx, uni, catchmentMinutes)
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

func parseTargets(s string) (map[model.Category]int, error) {
	targets := make(map[model.Category]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, countStr, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, eris.Errorf("bad target %q, want category=count", pair)
		}
		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			return nil, eris.Errorf("bad target count in %q", pair)
		}
		targets[model.Category(strings.TrimSpace(name))] = count
	}
	return targets, nil
}

func init() {
	nearbyCmd.Flags().Float64Var(&nearbyLat, "lat", 0, "latitude")
	nearbyCmd.Flags().Float64Var(&nearbyLng, "lng", 0, "longitude")
	nearbyCmd.Flags().StringVar(&nearbyCategory, "category", "", "POI category to search for")
	nearbyCmd.Flags().Float64Var(&nearbyMaxKM, "max-km", 0, "search radius in km (default from config)")
	nearbyCmd.Flags().IntVar(&nearbyLimit, "limit", 0, "maximum results (default from config)")
	_ = nearbyCmd.MarkFlagRequired("lat")
	_ = nearbyCmd.MarkFlagRequired("lng")
	_ = nearbyCmd.MarkFlagRequired("category")

	accessibilityCmd.Flags().Float64Var(&accessLat, "lat", 0, "latitude")
	accessibilityCmd.Flags().Float64Var(&accessLng, "lng", 0, "longitude")
	_ = accessibilityCmd.MarkFlagRequired("lat")
	_ = accessibilityCmd.MarkFlagRequired("lng")

	radiusCmd.Flags().Float64Var(&radiusLat, "lat", 0, "latitude")
	radiusCmd.Flags().Float64Var(&radiusLng, "lng", 0, "longitude")
	radiusCmd.Flags().StringVar(&radiusTargets, "targets", "", "comma-separated category=count pairs")
	radiusCmd.Flags().Float64Var(&radiusMaxKM, "max-km", 0, "stop the ladder past this radius")
	_ = radiusCmd.MarkFlagRequired("lat")
	_ = radiusCmd.MarkFlagRequired("lng")
	_ = radiusCmd.MarkFlagRequired("targets")

	catchmentCmd.Flags().IntVar(&catchmentMinutes, "minutes", 15, "travel time in minutes")

	rootCmd.AddCommand(nearbyCmd, accessibilityCmd, radiusCmd, catchmentCmd)
}
