package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chrisdamba/urbanwatch/internal/factories"
	"github.com/chrisdamba/urbanwatch/internal/models"
	"github.com/chrisdamba/urbanwatch/internal/repositories/postgres"
)

var (
	generateCount  int
	generateOutput string
	importReplace  bool
)

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "Manage the camera set",
}

var camerasGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write synthetic cameras around the configured city as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cameras := factories.NewCameraFactory(cfg.Seed).CreateCameras(cfg, generateCount)

		var w io.Writer = os.Stdout
		if generateOutput != "" && generateOutput != "-" {
			f, err := os.Create(generateOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cameras); err != nil {
			return err
		}
		logger.Info("cameras generated",
			zap.Int("count", len(cameras)),
			zap.String("city", cfg.CityName))
		return nil
	},
}

var camerasImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load cameras from the configured source into Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cfg.CameraSource.Type == models.SourcePostgres {
			return fmt.Errorf("camera source is already postgres")
		}

		cameras, notice, release, err := loadCameras(ctx)
		if err != nil {
			return err
		}
		defer release()
		if len(cameras) == 0 {
			return fmt.Errorf("nothing to import: %s", notice)
		}

		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return err
		}

		repo := postgres.NewCameraRepository(pool)
		if importReplace {
			if err := repo.DeleteAll(ctx); err != nil {
				return err
			}
		}
		if err := repo.BulkCreate(ctx, cameras); err != nil {
			return err
		}

		total, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		logger.Info("cameras imported",
			zap.Int("imported", len(cameras)),
			zap.Int("total", total))
		return nil
	},
}

func init() {
	camerasGenerateCmd.Flags().IntVar(&generateCount, "count", 50, "Number of cameras to generate")
	camerasGenerateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output file (default stdout)")
	camerasImportCmd.Flags().BoolVar(&importReplace, "replace", false, "Delete existing cameras before importing")

	camerasCmd.AddCommand(camerasGenerateCmd, camerasImportCmd)
}
