package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quadrant-invest/geointel/internal/cluster"
	"github.com/quadrant-invest/geointel/internal/geo"
	"github.com/quadrant-invest/geointel/internal/model"
)

var (
	clusterWest       float64
	clusterSouth      float64
	clusterEast       float64
	clusterNorth      float64
	clusterZoom       int
	clusterCategories []string
	clusterMinSize    int
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster catalog POIs for a map viewport",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		cats := make([]model.Category, len(clusterCategories))
		for i, c := range clusterCategories {
			cats[i] = model.Category(c)
		}
		result, err := app.cluster.Map(ctx, cluster.Request{
			Bounds: geo.BBox{
				West:  clusterWest,
				South: clusterSouth,
				East:  clusterEast,
				North: clusterNorth,
			},
			Zoom:           clusterZoom,
			Categories:     cats,
			MinClusterSize: clusterMinSize,
		})
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

func init() {
	f := clusterCmd.Flags()
	f.Float64Var(&clusterWest, "west", 0, "viewport west edge (lng)")
	f.Float64Var(&clusterSouth, "south", 0, "viewport south edge (lat)")
	f.Float64Var(&clusterEast, "east", 0, "viewport east edge (lng)")
	f.Float64Var(&clusterNorth, "north", 0, "viewport north edge (lat)")
	f.IntVar(&clusterZoom, "zoom", 12, "map zoom level (1-20)")
	f.StringSliceVar(&clusterCategories, "categories", nil, "restrict to these categories")
	f.IntVar(&clusterMinSize, "min-cluster-size", 0, "minimum POIs per cluster (default from config)")
	_ = clusterCmd.MarkFlagRequired("west")
	_ = clusterCmd.MarkFlagRequired("south")
	_ = clusterCmd.MarkFlagRequired("east")
	_ = clusterCmd.MarkFlagRequired("north")

	rootCmd.AddCommand(clusterCmd)
}
