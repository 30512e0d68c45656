package main

import (
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/openfipe/fipe-harvester/internal/export"
	"github.com/openfipe/fipe-harvester/internal/snapshot"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Load the harvested catalog into PostgreSQL",
	Long:  "Merges every partial snapshot (first file wins) and bulk-loads the catalog into PostgreSQL: dimension tables are upserted on their identity keys, the value table is replaced via COPY.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		outputDir, _ := cmd.Flags().GetString("output")
		if outputDir == "" {
			outputDir = cfg.Output.Dir
		}
		dbURL, _ := cmd.Flags().GetString("database-url")
		if dbURL == "" {
			dbURL = cfg.Export.DatabaseURL
		}
		if dbURL == "" {
			return eris.New("export requires a database URL (--database-url or FIPE_EXPORT_DATABASE_URL)")
		}

		result, sources, err := snapshot.NewStore(outputDir).Merged()
		if err != nil {
			return err
		}

		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return eris.Wrap(err, "export: connect")
		}
		defer pool.Close()

		exporter := export.NewExporter(pool)
		if err := exporter.Migrate(ctx); err != nil {
			return err
		}

		stats, err := exporter.Export(ctx, result)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Exported catalog from %d snapshot file(s)\n", sources)
		fmt.Fprintf(os.Stdout, "  periods:     %d\n", stats.Periods)
		fmt.Fprintf(os.Stdout, "  brands:      %d\n", stats.Brands)
		fmt.Fprintf(os.Stdout, "  models:      %d\n", stats.Models)
		fmt.Fprintf(os.Stdout, "  year-models: %d\n", stats.YearModels)
		fmt.Fprintf(os.Stdout, "  values:      %d\n", stats.Values)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("output", "", "snapshot output directory (default from config)")
	exportCmd.Flags().String("database-url", "", "PostgreSQL connection string")
	rootCmd.AddCommand(exportCmd)
}
