package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openfipe/fipe-harvester/internal/harvest"
	"github.com/openfipe/fipe-harvester/internal/snapshot"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest the FIPE catalog into partial snapshot files",
	Long:  "Decomposes the selected period range and vehicle types into per-brand tasks, runs them through rate-limited workers, and persists a cumulative snapshot after every batch. Run consolidate afterwards to produce the final artifact.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		typesCSV, _ := cmd.Flags().GetString("types")
		sequential, _ := cmd.Flags().GetBool("sequential")
		workers, _ := cmd.Flags().GetInt("workers")
		outputDir, _ := cmd.Flags().GetString("output")

		if err := validatePeriod("start", start); err != nil {
			return err
		}
		if err := validatePeriod("end", end); err != nil {
			return err
		}
		types, err := parseVehicleTypes(typesCSV)
		if err != nil {
			return err
		}
		if workers <= 0 {
			workers = cfg.Harvest.Workers
		}
		if outputDir == "" {
			outputDir = cfg.Output.Dir
		}
		if err := ensureDir(outputDir); err != nil {
			return err
		}

		ledger, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck
		if err := ledger.Migrate(ctx); err != nil {
			return err
		}

		orchestrator := harvest.NewOrchestrator(newClientFactory(), snapshot.NewStore(outputDir), ledger)
		summary, err := orchestrator.Run(ctx, harvest.Spec{
			StartPeriod:  start,
			EndPeriod:    end,
			VehicleTypes: types,
			Sequential:   sequential,
			Workers:      workers,
		})
		if err != nil {
			return err
		}

		periods, brands, models, yearModels, values := summary.Result.Counts()
		fmt.Fprintf(os.Stdout, "Harvest complete (run %s)\n", summary.RunID)
		fmt.Fprintf(os.Stdout, "  tasks:       %d (%d failed)\n", summary.TasksTotal, summary.TasksFailed)
		fmt.Fprintf(os.Stdout, "  periods:     %d\n", periods)
		fmt.Fprintf(os.Stdout, "  brands:      %d\n", brands)
		fmt.Fprintf(os.Stdout, "  models:      %d\n", models)
		fmt.Fprintf(os.Stdout, "  year-models: %d\n", yearModels)
		fmt.Fprintf(os.Stdout, "  values:      %d\n", values)
		return nil
	},
}

func init() {
	harvestCmd.Flags().String("start", "", "earliest reference period to harvest (MM/yyyy)")
	harvestCmd.Flags().String("end", "", "latest reference period to harvest (MM/yyyy)")
	harvestCmd.Flags().String("types", "", "comma-separated vehicle types: car, bike, truck (default all)")
	harvestCmd.Flags().Bool("sequential", false, "run tasks one at a time on a single client")
	harvestCmd.Flags().Int("workers", 0, "parallel worker count (default from config)")
	harvestCmd.Flags().String("output", "", "snapshot output directory (default from config)")
	rootCmd.AddCommand(harvestCmd)
}
