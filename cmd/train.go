package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/recognition/local"
	"github.com/kozaktomas/facewatch/internal/trainer"
)

var trainCmd = &cobra.Command{
	Use:   "train <photo-dir>",
	Short: "Build the reference set of one person from a photo directory",
	Long: `Extract one face embedding per photo, report how consistent the photos
are and store the reference set (PostgreSQL when DATABASE_URL is set,
otherwise EMBEDDINGS_FILE plus a timestamped backup).

Examples:
  facewatch train ./photos/juan --name "Juan Carlos Mendoza Ríos"
  facewatch train ./photos/juan --name "Juan Carlos Mendoza Ríos" --descriptor-file public/trained-faces/face-descriptors.json`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("name", "", "Name of the person in the photos (required)")
	trainCmd.Flags().Int("concurrency", 4, "Number of parallel extractions")
	trainCmd.Flags().String("descriptor-file", "", "Also write a descriptor file for the local backend")
	trainCmd.MarkFlagRequired("name")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger()
	dir := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	photos, err := trainer.ListPhotos(dir)
	if err != nil {
		return err
	}

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

	fmt.Printf("Found %d photos in %s\n", len(photos), dir)

	bar := progressbar.NewOptions(len(photos),
		progressbar.OptionSetDescription("Extracting embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	report, err := trainer.New(detector, store).Train(ctx, dir, trainer.Options{
		Name:           mustGetString(cmd, "name"),
		Model:          cfg.Service.Model,
		Detector:       detector.Name(),
		Concurrency:    mustGetInt(cmd, "concurrency"),
		DescriptorFile: mustGetString(cmd, "descriptor-file"),
		Progress:       bar,
	})
	fmt.Println()

	if report != nil && report.Set != nil {
		for _, f := range report.Set.FailedPhotos {
			colorYellow.Printf("  skipped %s: %s\n", filepath.Base(f.Path), f.Error)
		}
	}
	if err != nil {
		return err
	}

	set, stats := report.Set, report.Statistics
	fmt.Printf("\nPerson:      %s\n", set.Name)
	fmt.Printf("Embeddings:  %d of %d photos (dimension %d)\n", len(set.Embeddings), len(photos), stats.Dimension)
	if stats.Count > 1 {
		fmt.Printf("Similarity:  mean %.3f  std %.3f  min %.3f  max %.3f\n",
			stats.MeanSimilarity, stats.StdSimilarity, stats.MinSimilarity, stats.MaxSimilarity)
		printQuality(stats.Quality())
	}

	switch s := store.(type) {
	case interface{ Path() string }:
		fmt.Printf("Saved to %s\n", s.Path())
	default:
		fmt.Println("Saved to PostgreSQL")
	}
	if path := mustGetString(cmd, "descriptor-file"); path != "" {
		fmt.Printf("Descriptor file written to %s\n", path)
	}
	if len(set.FailedPhotos) > 0 {
		return errors.New("some photos were skipped, see above")
	}
	return nil
}
