package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/openfipe/fipe-harvester/internal/extract"
	"github.com/openfipe/fipe-harvester/internal/model"
)

var brandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "List brands of one vehicle type",
	Long:  "Lists the brand universe. The latest strategy snapshots the most recent period; the historical strategy walks every period oldest to newest and records when each brand first appeared.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		typeFlag, _ := cmd.Flags().GetString("type")
		strategy, _ := cmd.Flags().GetString("strategy")
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")

		vt, err := model.ParseVehicleType(typeFlag)
		if err != nil {
			return err
		}
		if err := validatePeriod("start", start); err != nil {
			return err
		}
		if err := validatePeriod("end", end); err != nil {
			return err
		}

		client := newClient()
		periods, err := extract.NewPeriodExtractor(client).Extract(ctx, extract.PeriodQuery{})
		if err != nil {
			return err
		}
		periods = extract.FilterRange(periods, start, end)
		if len(periods) == 0 {
			return eris.New("no reference periods in range")
		}

		brandExtractor := extract.NewBrandExtractor(client)

		var brands []*model.Brand
		switch strategy {
		case "latest":
			latest, _ := extract.LatestPeriod(periods)
			brands, err = brandExtractor.Extract(ctx, extract.BrandQuery{Period: latest, VehicleType: vt})
		case "historical":
			brands, err = brandExtractor.Historical(ctx, periods, vt)
		default:
			return eris.Errorf("invalid --strategy %q (valid: latest, historical)", strategy)
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCODE\tFIRST_SEEN")
		for _, b := range brands {
			firstSeen := b.InitialPeriod
			if firstSeen == "" {
				firstSeen = "-"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", b.Name, b.Code, firstSeen)
		}
		return w.Flush()
	},
}

func init() {
	brandsCmd.Flags().String("type", "car", "vehicle type: car, bike, truck")
	brandsCmd.Flags().String("strategy", "latest", "discovery strategy: latest or historical")
	brandsCmd.Flags().String("start", "", "earliest period for historical discovery (MM/yyyy)")
	brandsCmd.Flags().String("end", "", "latest period for historical discovery (MM/yyyy)")
	rootCmd.AddCommand(brandsCmd)
}
