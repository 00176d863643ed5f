package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/quadrant-invest/geointel/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load catalog data from external files",
}

var ingestPOIsCmd = &cobra.Command{
	Use:   "pois <file.csv>",
	Short: "Import a POI extract from CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, closeStore, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "open %s", args[0])
		}
		defer func() { _ = f.Close() }()

		source, _ := cmd.Flags().GetString("source")
		report, err := ingest.ImportPOIs(ctx, store, f, ingest.CSVOptions{Source: source})
		if err != nil {
			return err
		}
		return printResult(report)
	},
}

var ingestUniversitiesCmd = &cobra.Command{
	Use:   "universities <file.xlsx>",
	Short: "Import a university register from XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, closeStore, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		sheet, _ := cmd.Flags().GetString("sheet")
		report, err := ingest.ImportUniversities(ctx, store, args[0], ingest.XLSXOptions{SheetName: sheet})
		if err != nil {
			return err
		}
		return printResult(report)
	},
}

var ingestNeighborhoodsCmd = &cobra.Command{
	Use:   "neighborhoods <file.shp>",
	Short: "Import neighborhood boundaries from a shapefile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, closeStore, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		nameField, _ := cmd.Flags().GetString("name-field")
		descField, _ := cmd.Flags().GetString("desc-field")
		report, err := ingest.ImportNeighborhoods(ctx, store, args[0], ingest.ShapefileOptions{
			NameField: nameField,
			DescField: descField,
		})
		if err != nil {
			return err
		}
		return printResult(report)
	},
}

func init() {
	ingestPOIsCmd.Flags().String("source", "csv", "source tag recorded on imported POIs")
	ingestUniversitiesCmd.Flags().String("sheet", "", "sheet name (default: first sheet)")
	ingestNeighborhoodsCmd.Flags().String("name-field", "name", "attribute holding the neighborhood name")
	ingestNeighborhoodsCmd.Flags().String("desc-field", "", "attribute holding a description")

	ingestCmd.AddCommand(ingestPOIsCmd, ingestUniversitiesCmd, ingestNeighborhoodsCmd)
	rootCmd.AddCommand(ingestCmd)
}
