package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/monitor"
	"github.com/kozaktomas/facewatch/internal/roster"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Open the camera and run one or more scans",
	Long: `Open the configured camera, wait for the first frame and run scans,
printing each verdict and the session counters.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Int("count", 1, "Number of scans")
	scanCmd.Flags().Duration("every", 2*time.Second, "Pause between scans")
	scanCmd.Flags().Duration("wait", 10*time.Second, "How long to wait for the first frame")
	scanCmd.Flags().Bool("fabricated", false, "Produce fabricated verdicts")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger()
	count := mustGetInt(cmd, "count")
	every := mustGetDuration(cmd, "every")
	fabricated := mustGetBool(cmd, "fabricated")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

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
	mon := newMonitor(cfg, cam, backend, r, nil, fabricated, logger)
	defer mon.Close()

	if st, err := mon.RefreshBackend(ctx); (err != nil || !st.Ready) && !mon.Fabricated() {
		return fmt.Errorf("%w: %s", monitor.ErrBackendNotReady, st.Message)
	}

	if err := cam.Start(ctx); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, mustGetDuration(cmd, "wait"))
	defer cancel()
	if err := cam.WaitReady(waitCtx); err != nil && !mon.Fabricated() {
		return err
	}

	var last monitor.ScanReport
	for i := range count {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(every):
			}
		}

		report, err := mon.Scan(ctx)
		if err != nil {
			return fmt.Errorf("scan %d: %w", i+1, err)
		}
		printVerdict(fmt.Sprintf("[%d/%d]", i+1, count), report.Result)
		if report.Error != "" {
			colorYellow.Printf("    backend error: %s\n", report.Error)
		}
		last = report
	}

	fmt.Println()
	printCounters(last.Counters)
	return nil
}
