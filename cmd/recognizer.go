package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/recognition/local"
	"github.com/kozaktomas/facewatch/internal/recognizer"
)

var recognizerCmd = &cobra.Command{
	Use:   "recognizer",
	Short: "Start the recognition service used by the remote backend",
	Long: `Start the recognition service. It loads the trained reference set
(PostgreSQL when DATABASE_URL is set, otherwise EMBEDDINGS_FILE) and answers
/health, /info, /recognize, /verify and /reload.`,
	RunE: runRecognizer,
}

func init() {
	rootCmd.AddCommand(recognizerCmd)

	recognizerCmd.Flags().Int("port", 5000, "Port to listen on")
	recognizerCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

func runRecognizer(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	detector, err := local.NewDetector(cfg.Local.Detector, cfg.Embedding.URL, cfg.Local.ModelDir)
	if err != nil {
		return err
	}
	defer detector.Close()

	store, closeStore, err := openReferenceStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	source := cfg.Service.EmbeddingsFile
	if cfg.Database.URL != "" {
		source = "postgres"
	}
	svc := recognizer.NewService(detector, store, recognizer.Options{
		Threshold:     cfg.Service.Threshold,
		Model:         cfg.Service.Model,
		Detector:      cfg.Service.Detector,
		Source:        source,
		HNSWIndexPath: cfg.Service.HNSWIndexPath,
		Logger:        logger,
	})

	// A missing reference set is not fatal: /recognize answers 400 until /reload succeeds.
	if _, err := svc.Reload(ctx); err != nil {
		fmt.Printf("Warning: %v\n", err)
		fmt.Println("Train a person first: facewatch train <photo-dir> --name <name>")
	}

	server := recognizer.NewServer(svc, mustGetString(cmd, "host"), mustGetInt(cmd, "port"))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Recognition service on http://%s:%d (threshold %.2f)\n",
		mustGetString(cmd, "host"), mustGetInt(cmd, "port"), cfg.Service.Threshold)
	return server.Start()
}
