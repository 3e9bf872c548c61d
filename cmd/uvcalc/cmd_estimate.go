package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sunsafe/sunsafe/internal/api/models"
	"github.com/sunsafe/sunsafe/internal/uv"
)

func newEstimateCmd(now func() time.Time) *cobra.Command {
	var (
		flags inputFlags
		at    string
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate UV exposure at one instant",
		Long: `Evaluate the UV model once. --time is RFC 3339 and its offset is the
civil time zone; without it the current time in the zone nearest the
longitude is used.`,
		Example: "  uvcalc estimate --lat 52.37 --lon 4.9 --time 2024-06-21T13:00:00+02:00 --skin TYPE_II --spf 30",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts := now().In(uv.NominalZone(flags.lon))
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--time must be RFC 3339: %w", err)
				}
				ts = parsed
			}

			in, err := flags.inputs(ts)
			if err != nil {
				return err
			}
			result := uv.Calculate(in)
			estimate := models.NewUVEstimate(result, ts, flags.colorblindSafe)

			out := cmd.OutOrStdout()
			if flags.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(estimate)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "time\t%s\n", ts.Format(time.RFC3339))
			if result.SunBelowHorizon {
				fmt.Fprintf(tw, "sun\tbelow horizon\n")
			} else {
				fmt.Fprintf(tw, "solar zenith\t%.2f°\n", result.SolarZenithDegrees)
			}
			fmt.Fprintf(tw, "uv index\t%.2f\n", result.UVIndex)
			fmt.Fprintf(tw, "uv power\t%.4f W/m²\n", result.UVPowerWattsPerM2)
			fmt.Fprintf(tw, "risk\t%s (%s)\n", result.Risk, estimate.RiskColor)
			fmt.Fprintf(tw, "burn time\t%s\n", formatBurnTime(result.BurnTimeSeconds))
			fmt.Fprintf(tw, "burn time with spf\t%s\n", formatBurnTime(result.BurnTimeWithSPFSeconds))
			fmt.Fprintf(tw, "advice\t%s\n", estimate.Recommendation)
			return tw.Flush()
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&at, "time", "", "RFC 3339 timestamp (default now)")
	return cmd
}
