package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chrisdamba/urbanwatch/internal/dashboard"
	"github.com/chrisdamba/urbanwatch/internal/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Refresh on an interval and stream every snapshot to the configured output",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cameras, notice, release, err := loadCameras(ctx)
		if err != nil {
			return err
		}
		defer release()

		d, dest, err := newDashboard(ctx, cameras, notice, metrics.Nop, os.Stdout)
		if err != nil {
			return err
		}
		defer closeDestination(dest, logger)

		bar := progressbar.NewOptions(progressMax(cfg.RefreshCycles),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("refreshing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("snapshots"),
			progressbar.OptionShowIts(),
			progressbar.OptionClearOnFinish(),
		)

		logger.Info("simulation starts",
			zap.Int("cameras", len(cameras)),
			zap.Duration("interval", cfg.RefreshInterval),
			zap.Int("cycles", cfg.RefreshCycles),
			zap.String("output", cfg.OutputDestination))

		events := 0
		err = d.Run(ctx, cfg.RefreshInterval, cfg.RefreshCycles, func(done int, snap *dashboard.Snapshot) {
			events += len(snap.Events)
			_ = bar.Add(1)
		})
		_ = bar.Finish()
		if err != nil {
			return err
		}

		logger.Info("simulation completed",
			zap.Int("events", events),
			zap.Time("finished_at", time.Now().UTC()))
		return nil
	},
}

// progressMax turns an unbounded run into a spinner.
func progressMax(cycles int) int {
	if cycles <= 0 {
		return -1
	}
	return cycles
}

func init() {
	runCmd.Flags().Int("cycles", 0, "Number of refreshes to run (0 runs until interrupted)")
	runCmd.Flags().Duration("interval", 30*time.Second, "Time between refreshes")
	bindFlags(runCmd, map[string]string{
		"refresh_cycles":   "cycles",
		"refresh_interval": "interval",
	}, false)
}
