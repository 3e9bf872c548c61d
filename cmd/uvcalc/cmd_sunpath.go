package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sunsafe/sunsafe/internal/api/models"
	"github.com/sunsafe/sunsafe/internal/uv"
)

func newSunPathCmd(now func() time.Time) *cobra.Command {
	var (
		flags inputFlags
		date  string
	)

	cmd := &cobra.Command{
		Use:     "sun-path",
		Short:   "Print the hourly UV curve of one day",
		Long:    `Evaluate the UV model at every whole hour of a day in the zone nearest the longitude.`,
		Example: "  uvcalc sun-path --lat -33.87 --lon 151.21 --date 2024-12-21",
		RunE: func(cmd *cobra.Command, _ []string) error {
			zone := uv.NominalZone(flags.lon)
			day := now().In(zone)
			if date != "" {
				parsed, err := time.ParseInLocation(time.DateOnly, date, zone)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				day = parsed
			}

			in, err := flags.inputs(day)
			if err != nil {
				return err
			}
			samples := uv.DayProfile(in)
			path := models.NewSunPath(models.Point{Lat: flags.lat, Lon: flags.lon},
				day.Format(time.DateOnly), samples, flags.colorblindSafe)

			out := cmd.OutOrStdout()
			if flags.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(path)
			}

			fmt.Fprintf(out, "%s %s (%.2f, %.2f)\n", path.Date, path.Zone, flags.lat, flags.lon)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, s := range samples {
				bar := strings.Repeat("#", int(s.Result.UVIndex+0.5))
				fmt.Fprintf(tw, "%s\t%5.2f\t%s\t%s\n", s.Time.Format("15:04"), s.Result.UVIndex, s.Result.Risk, bar)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if path.Peak == nil {
				fmt.Fprintln(out, "peak: sun stays below the horizon")
				return nil
			}
			fmt.Fprintf(out, "peak: %.2f at %s\n", path.Peak.UVIndex, time.Time(path.Peak.Time).Format("15:04"))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	return cmd
}
