package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/facewatch/internal/camera"
	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/database/postgres"
	"github.com/kozaktomas/facewatch/internal/demo"
	"github.com/kozaktomas/facewatch/internal/facematch"
	"github.com/kozaktomas/facewatch/internal/monitor"
	"github.com/kozaktomas/facewatch/internal/recognition"
	"github.com/kozaktomas/facewatch/internal/recognition/local"
	"github.com/kozaktomas/facewatch/internal/recognition/remote"
	"github.com/kozaktomas/facewatch/internal/roster"
)

// newBackend builds the recognition backend selected by RECOGNITION_BACKEND.
func newBackend(cfg *config.Config, logger *slog.Logger) (recognition.Backend, error) {
	switch cfg.Recognition.Backend {
	case config.BackendRemote:
		client := remote.NewClient(cfg.Remote.URL, cfg.Remote.Timeout)
		logger.Info("using remote recognition backend", "url", client.BaseURL())
		return remote.NewBackend(client), nil
	case config.BackendLocal:
		detector, err := local.NewDetector(cfg.Local.Detector, cfg.Embedding.URL, cfg.Local.ModelDir)
		if err != nil {
			return nil, err
		}
		logger.Info("using local recognition backend", "detector", detector.Name())
		return local.NewBackend(detector, cfg.Local.DescriptorFile, cfg.Local.MaxDistance, logger), nil
	default:
		return nil, fmt.Errorf("unknown recognition backend %q", cfg.Recognition.Backend)
	}
}

// newCamera builds the camera controller selected by CAMERA_KIND.
func newCamera(cfg *config.Config, logger *slog.Logger) (*camera.Controller, error) {
	source, err := camera.New(&cfg.Camera, logger)
	if err != nil {
		return nil, err
	}
	return camera.NewController(source, camera.ConstraintsFromConfig(&cfg.Camera), logger), nil
}

// newMonitor wires the session monitor. Fabricated scans are used when
// SCAN_MODE=fabricated or fabricated is set.
func newMonitor(cfg *config.Config, cam *camera.Controller, backend recognition.Backend, r *roster.Roster,
	notifier monitor.Notifier, fabricated bool, logger *slog.Logger,
) *monitor.Monitor {
	opts := monitor.Options{
		Policy: facematch.Policy{
			Threshold:       cfg.Recognition.MatchThreshold,
			ClearConfidence: cfg.Recognition.ClearConfidence,
		},
		Interval:  cfg.Recognition.PollInterval(),
		ScanDelay: cfg.Recognition.ScanDelay,
		Lookup:    r,
		Notifier:  notifier,
		Logger:    logger,
	}
	if fabricated || cfg.Recognition.ScanMode == config.ScanModeFabricated {
		logger.Warn("scans produce fabricated verdicts")
		opts.Fabricator = demo.NewFabricator(r, nil)
	}
	return monitor.New(cam, backend, opts)
}

// openReferenceStore returns the Postgres reference store when DATABASE_URL is
// set and the JSON file store otherwise. The returned closer is never nil.
func openReferenceStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.ReferenceStore, func(), error) {
	if cfg.Database.URL == "" {
		logger.Info("using reference file", "path", cfg.Service.EmbeddingsFile)
		return database.NewFileStore(cfg.Service.EmbeddingsFile), func() {}, nil
	}

	logger.Info("connecting to PostgreSQL reference store")
	pool, err := postgres.Open(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewReferenceRepository(pool), func() { pool.Close() }, nil
}
