package cmd

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisdamba/urbanwatch/internal/dashboard"
	"github.com/chrisdamba/urbanwatch/internal/metrics"
)

var simulateDelay time.Duration

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one refresh and print the snapshot as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cameras, notice, release, err := loadCameras(ctx)
		if err != nil {
			return err
		}
		defer release()

		// stdout carries the snapshot document, so console records go to stderr.
		d, dest, err := newDashboard(ctx, cameras, notice, metrics.Nop, os.Stderr, dashboard.WithRefreshDelay(simulateDelay))
		if err != nil {
			return err
		}
		defer closeDestination(dest, logger)

		snap, err := d.Refresh(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func init() {
	simulateCmd.Flags().DurationVar(&simulateDelay, "delay", 0, "Wait this long before simulating, like the dashboard refresh")
}
