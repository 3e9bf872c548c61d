// Package main provides uvcalc, a command line front end to the UV engine.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func newRootCmd(now func() time.Time) *cobra.Command {
	root := &cobra.Command{
		Use:   "uvcalc",
		Short: "SunSafe UV calculator",
		Long: `uvcalc evaluates the SunSafe UV model for a position and time:
UV Index, risk category and time to sunburn with and without sunscreen.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newEstimateCmd(now))
	root.AddCommand(newSunPathCmd(now))
	root.AddCommand(newTokenCmd())
	return root
}

func main() {
	if err := newRootCmd(time.Now).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
