package dashboard

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/chrisdamba/urbanwatch/internal/loader"
	"github.com/chrisdamba/urbanwatch/internal/models"
)

// ProgressFunc is told how many refreshes have completed after each one.
type ProgressFunc func(done int, snap *Snapshot)

// Run refreshes immediately and then every interval. It stops after cycles
// completed refreshes, or when ctx is done if cycles is zero. Refreshes
// rejected because another one is running are skipped and not counted.
func (d *Dashboard) Run(ctx context.Context, interval time.Duration, cycles int, progress ProgressFunc) error {
	if interval <= 0 {
		interval = time.Nanosecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	done := 0
	for {
		snap, err := d.Refresh(ctx)
		switch {
		case err == nil:
			done++
			if progress != nil {
				progress(done, snap)
			}
		case errors.Is(err, ErrRefreshInProgress):
			d.logger.Debug("skipping tick, refresh already running")
		default:
			return d.stopped(ctx, cycles, err)
		}

		if cycles > 0 && done >= cycles {
			d.logger.Info("run completed", zap.Int("refreshes", done))
			return nil
		}

		select {
		case <-ctx.Done():
			return d.stopped(ctx, cycles, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (d *Dashboard) stopped(ctx context.Context, cycles int, err error) error {
	if cycles == 0 && ctx.Err() != nil {
		d.logger.Info("run stopped")
		return nil
	}
	return err
}

// LoadCameras asks p for the camera set. A failure is logged and turned into
// an empty set plus a notice for users, so the dashboard still starts.
func LoadCameras(ctx context.Context, p loader.Provider, logger *zap.Logger) ([]models.Camera, string) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cameras, err := p.Cameras(ctx)
	if err != nil {
		logger.Error("failed to load cameras", zap.Error(err))
		return []models.Camera{}, "Camera data is unavailable: " + err.Error()
	}
	if len(cameras) == 0 {
		return cameras, "No cameras are configured."
	}
	return cameras, ""
}
