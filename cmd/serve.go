package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chrisdamba/urbanwatch/internal/api"
	"github.com/chrisdamba/urbanwatch/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cameras, notice, release, err := loadCameras(ctx)
		if err != nil {
			return err
		}
		defer release()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		d, dest, err := newDashboard(ctx, cameras, notice, metrics.New(reg), os.Stdout)
		if err != nil {
			return err
		}
		defer closeDestination(dest, logger)

		server := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.NewRouter(d, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		logger.Info("urbanwatch listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.Int("cameras", len(cameras)),
			zap.String("output", cfg.OutputDestination))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("urbanwatch stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	bindFlags(serveCmd, map[string]string{"http_addr": "addr"}, false)
}
