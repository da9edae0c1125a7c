package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/macocr/internal/config"
	"github.com/MeKo-Tech/macocr/internal/render"
	"github.com/MeKo-Tech/macocr/internal/server"
	"github.com/MeKo-Tech/macocr/internal/version"
	"github.com/spf13/cobra"
)

// maintenanceInterval is how often idle rate-limit clients are pruned.
const maintenanceInterval = 10 * time.Minute

// serverCmd represents the server command.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the OCR HTTP server",
	Long: `Start an HTTP server exposing the OCR service.

The server provides the following endpoints:
  POST /ocr     - Recognize an image given by path or base64 payload
  GET  /ws/ocr  - WebSocket stream of OCR requests
  GET  /health  - Health check endpoint
  GET  /metrics - Prometheus metrics

When --token is set, /ocr and /ws/ocr require the exact token in the
Authorization header.

Examples:
  macocr server
  macocr server --port 8080 --token secret
  macocr server -H 127.0.0.1 -p 3000 -l debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		serverConfig, shutdownTimeout := serverOptions(cmd, cfg)

		if serverConfig.Port < 1 || serverConfig.Port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", serverConfig.Port)
		}

		svc, err := newService(cfg)
		if err != nil {
			return err
		}
		ocrServer, err := server.NewServer(serverConfig, svc)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		banner := fmt.Sprintf("正在启动 OCR 服务器\nhost: %s\nport: %d\nauth: %t",
			serverConfig.Host, serverConfig.Port, ocrServer.AuthEnabled())
		_ = render.Panel(cmd.OutOrStdout(), "macocr "+version.Version, banner)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		go ocrServer.RunMaintenance(ctx, maintenanceInterval)

		httpServer := ocrServer.HTTPServer(serverConfig.Host, serverConfig.Port)
		return serve(ctx, cancel, httpServer, shutdownTimeout)
	},
}

// serve runs httpServer until a signal arrives or ctx ends, then shuts it down.
func serve(ctx context.Context, cancel context.CancelFunc, httpServer *http.Server, shutdownTimeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting OCR server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			serveErr <- err
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}
	slog.Info("Graceful shutdown completed")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// serverOptions merges the server flags over the loaded configuration.
func serverOptions(cmd *cobra.Command, cfg *config.Config) (server.Config, time.Duration) {
	flags := cmd.Flags()
	sc := cfg.Server

	if flags.Changed("host") {
		sc.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		sc.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("token") {
		sc.Token, _ = flags.GetString("token")
	}
	if flags.Changed("cors-origin") {
		sc.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-upload-size") {
		sc.MaxUploadMB, _ = flags.GetInt("max-upload-size")
	}
	if flags.Changed("timeout") {
		sc.TimeoutSec, _ = flags.GetInt("timeout")
	}
	if flags.Changed("shutdown-timeout") {
		sc.ShutdownTimeout, _ = flags.GetInt("shutdown-timeout")
	}
	if flags.Changed("rate-limit-enabled") {
		sc.RateLimit.Enabled, _ = flags.GetBool("rate-limit-enabled")
	}
	if flags.Changed("requests-per-minute") {
		sc.RateLimit.RequestsPerMinute, _ = flags.GetInt("requests-per-minute")
	}
	if flags.Changed("requests-per-hour") {
		sc.RateLimit.RequestsPerHour, _ = flags.GetInt("requests-per-hour")
	}
	if flags.Changed("max-requests-per-day") {
		sc.RateLimit.MaxRequestsPerDay, _ = flags.GetInt("max-requests-per-day")
	}
	if flags.Changed("max-data-per-day") {
		sc.RateLimit.MaxDataPerDay, _ = flags.GetInt64("max-data-per-day")
	}

	return server.Config{
		Host:        sc.Host,
		Port:        sc.Port,
		Token:       sc.Token,
		CORSOrigin:  sc.CORSOrigin,
		MaxUploadMB: int64(sc.MaxUploadMB),
		TimeoutSec:  sc.TimeoutSec,
		RateLimit: server.RateLimitConfig{
			Enabled:           sc.RateLimit.Enabled,
			RequestsPerMinute: sc.RateLimit.RequestsPerMinute,
			RequestsPerHour:   sc.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: sc.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     sc.RateLimit.MaxDataPerDay,
		},
	}, time.Duration(sc.ShutdownTimeout) * time.Second
}

func init() {
	rootCmd.AddCommand(serverCmd)
	f := serverCmd.Flags()
	f.StringP("host", "H", "0.0.0.0", "server host")
	f.IntP("port", "p", 8000, "server port")
	f.StringP("token", "t", "", "shared secret required in the Authorization header (empty disables auth)")
	f.String("cors-origin", "*", "CORS allowed origins")
	f.Int("max-upload-size", 50, "maximum request body size in MB")
	f.Int("timeout", 120, "request read timeout in seconds")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	// Rate limiting flags
	f.Bool("rate-limit-enabled", false, "enable rate limiting")
	f.Int("requests-per-minute", 60, "maximum requests per minute per client")
	f.Int("requests-per-hour", 1000, "maximum requests per hour per client")
	f.Int("max-requests-per-day", 5000, "maximum requests per day per client")
	f.Int64("max-data-per-day", 500*1024*1024, "maximum request bytes per day per client")
}
