package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facewatch/internal/alert"
	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/monitor"
	"github.com/kozaktomas/facewatch/internal/roster"
	"github.com/kozaktomas/facewatch/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the detector API",
	Long: `Start the facewatch detector API.
Operators start and stop the camera, request scans and follow the live
overlay over a websocket. Matches are published to MQTT when
ALERT_MQTT_BROKER is set.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Bool("fabricated", false, "Produce fabricated scan verdicts")
}

// resolveServeHostPort applies --host and --port over the environment.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	resolveServeHostPort(cmd, cfg)
	logger := newLogger()

	r, err := roster.Default()
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}

	backend, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	cam, err := newCamera(cfg, logger)
	if err != nil {
		return err
	}

	var notifier monitor.Notifier
	if cfg.Alert.Broker != "" {
		emitter := alert.NewEmitter(&cfg.Alert, logger)
		if err := emitter.Connect(cfg.Alert.ClientID); err != nil {
			logger.Warn("alerts disabled", "error", err)
		} else {
			defer emitter.Disconnect()
			notifier = emitter
		}
	}

	mon := newMonitor(cfg, cam, backend, r, notifier, mustGetBool(cmd, "fabricated"), logger)
	defer mon.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first status check is informational; Start checks again.
	mon.RefreshBackend(ctx)

	server := web.NewServer(cfg, mon, r, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		if err := mon.Stop(); err != nil {
			fmt.Printf("Error stopping camera: %v\n", err)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting facewatch on http://%s:%d (backend %s, camera %s)\n",
		cfg.Web.Host, cfg.Web.Port, backend.Name(), cfg.Camera.Kind)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
