package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage face-api.js model weights",
}

var modelsDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the face-api.js weight files",
	RunE:  runModelsDownload,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsDownloadCmd)

	modelsDownloadCmd.Flags().String("dir", "", "Target directory (overrides MODELS_DIR)")
}

func runModelsDownload(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	dir := cfg.Models.Dir
	if d := mustGetString(cmd, "dir"); d != "" {
		dir = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bar := progressbar.NewOptions(len(models.Files),
		progressbar.OptionSetDescription("Downloading models"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	results, err := models.NewDownloader(cfg.Models.BaseURL, dir).Download(ctx, bar)
	fmt.Println()
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Err != nil {
			colorRed.Printf("  x %s: %v\n", r.File, r.Err)
			continue
		}
		colorGreen.Printf("  ok %s (%d bytes)\n", r.File, r.Bytes)
	}

	if failed := models.Failed(results); failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	fmt.Printf("\nAll models downloaded to %s\n", dir)
	return nil
}
