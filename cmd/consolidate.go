package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openfipe/fipe-harvester/internal/snapshot"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Merge all partial snapshots into the final catalog artifact",
	Long:  "Scans every partial file in the output directory, deduplicates by identity keys (first file wins), sorts, and writes the consolidated catalog. Partial files are kept; run cleanup to remove them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		outputDir, _ := cmd.Flags().GetString("output")
		if outputDir == "" {
			outputDir = cfg.Output.Dir
		}

		path, err := snapshot.NewStore(outputDir).Consolidate()
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Consolidated catalog written to %s\n", path)
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove partial snapshot files",
	Long:  "Deletes every batch partial in the output directory. The consolidated artifact is never touched.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		outputDir, _ := cmd.Flags().GetString("output")
		if outputDir == "" {
			outputDir = cfg.Output.Dir
		}

		removed, err := snapshot.NewStore(outputDir).CleanupPartials()
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Removed %d partial file(s)\n", removed)
		return nil
	},
}

func init() {
	consolidateCmd.Flags().String("output", "", "snapshot output directory (default from config)")
	cleanupCmd.Flags().String("output", "", "snapshot output directory (default from config)")
	rootCmd.AddCommand(consolidateCmd)
	rootCmd.AddCommand(cleanupCmd)
}
