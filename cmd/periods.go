package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openfipe/fipe-harvester/internal/extract"
)

var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "List available reference periods",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		if err := validatePeriod("start", start); err != nil {
			return err
		}
		if err := validatePeriod("end", end); err != nil {
			return err
		}

		periods, err := extract.NewPeriodExtractor(newClient()).Extract(ctx, extract.PeriodQuery{})
		if err != nil {
			return err
		}
		periods = extract.FilterRange(periods, start, end)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PERIOD\tCODE")
		for _, p := range periods {
			fmt.Fprintf(w, "%s\t%d\n", p.Period, p.Code)
		}
		return w.Flush()
	},
}

func init() {
	periodsCmd.Flags().String("start", "", "earliest period to show (MM/yyyy)")
	periodsCmd.Flags().String("end", "", "latest period to show (MM/yyyy)")
	rootCmd.AddCommand(periodsCmd)
}
