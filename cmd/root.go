package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/chrisdamba/urbanwatch/internal/dashboard"
	"github.com/chrisdamba/urbanwatch/internal/loader"
	"github.com/chrisdamba/urbanwatch/internal/logging"
	"github.com/chrisdamba/urbanwatch/internal/metrics"
	"github.com/chrisdamba/urbanwatch/internal/models"
	"github.com/chrisdamba/urbanwatch/internal/output"
	"github.com/chrisdamba/urbanwatch/internal/repositories"
	"github.com/chrisdamba/urbanwatch/internal/repositories/postgres"
	"github.com/chrisdamba/urbanwatch/internal/simulator"
)

var (
	cfgFile string
	cfg     *models.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "urbanwatch",
	Short: "Simulates camera detection events for a live city dashboard",
	Long: `urbanwatch loads a set of traffic cameras, simulates the events they detect
(fires, accidents, congestion) and serves the latest snapshot over HTTP. Each
snapshot can also be streamed to files, Kafka or Postgres.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = models.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", zap.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./urbanwatch.yaml or $HOME/urbanwatch.yaml)")
	rootCmd.PersistentFlags().Int64("seed", 0, "Random seed for simulation (0 picks a time based seed)")
	rootCmd.PersistentFlags().String("category-preset", models.PresetNZ, "Category preset: nz or urban")
	rootCmd.PersistentFlags().String("output-destination", "none", "Snapshot sink: none, console, json, csv, parquet, kafka or postgres")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level")
	rootCmd.PersistentFlags().String("log-format", logging.FormatConsole, "Log format: console or json")

	bindFlags(rootCmd, map[string]string{
		"seed":               "seed",
		"category_preset":    "category-preset",
		"output_destination": "output-destination",
		"log_level":          "log-level",
		"log_format":         "log-format",
	}, true)

	rootCmd.AddCommand(serveCmd, simulateCmd, runCmd, camerasCmd)
}

// bindFlags maps config keys onto command flags so flags override the file
// and the environment.
func bindFlags(cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for key, flag := range keys {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(flag)))
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadCameras resolves the configured camera source. The returned func
// releases any database pool it opened.
func loadCameras(ctx context.Context) ([]models.Camera, string, func(), error) {
	release := func() {}

	var repo repositories.CameraRepository
	if cfg.CameraSource.Type == models.SourcePostgres {
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, "", release, err
		}
		release = pool.Close
		repo = postgres.NewCameraRepository(pool)
	}

	provider, err := loader.NewProvider(ctx, cfg, repo, logger)
	if err != nil {
		release()
		return nil, "", func() {}, err
	}

	cameras, notice := dashboard.LoadCameras(ctx, provider, logger)
	return cameras, notice, release, nil
}

// newDashboard assembles a dashboard around the configured sink. A console
// sink writes to console. The caller closes the returned destination with
// closeDestination.
func newDashboard(ctx context.Context, cameras []models.Camera, notice string, recorder metrics.Recorder, console io.Writer, opts ...dashboard.Option) (*dashboard.Dashboard, output.Destination, error) {
	dest, err := output.NewDestinationWith(ctx, cfg, logger, console)
	if err != nil {
		return nil, nil, err
	}

	base := []dashboard.Option{
		dashboard.WithCategories(cfg.Categories),
		dashboard.WithRand(simulator.NewRand(cfg.Seed)),
		dashboard.WithRefreshDelay(cfg.RefreshDelay),
		dashboard.WithDestination(dest, cfg.TopicEvents, cfg.TopicStats),
		dashboard.WithMetrics(recorder),
		dashboard.WithLogger(logger),
		dashboard.WithNotice(notice),
	}
	return dashboard.New(cameras, append(base, opts...)...), dest, nil
}

// closeDestination flushes the sink. Some sinks only finalise or upload
// their files here, so a failure is logged.
func closeDestination(dest output.Destination, logger *zap.Logger) {
	if err := dest.Close(); err != nil {
		logger.Error("failed to close output", zap.Error(err))
	}
}
