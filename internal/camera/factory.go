package camera

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/facewatch/internal/config"
)

// Source kinds for CAMERA_KIND.
const (
	KindDir      = "dir"
	KindSnapshot = "snapshot"
	KindDevice   = "device"
)

// newDeviceSource is set when the binary is built with the gocv tag.
var newDeviceSource func(device int, logger *slog.Logger) Source

// New creates the source selected by the camera configuration.
func New(cfg *config.CameraConfig, logger *slog.Logger) (Source, error) {
	switch cfg.Kind {
	case KindDir, "":
		return NewDirSource(cfg.Dir, logger), nil
	case KindSnapshot:
		if cfg.SnapshotURL == "" {
			return nil, errors.New("CAMERA_SNAPSHOT_URL is required for the snapshot camera")
		}
		return NewSnapshotSource(cfg.SnapshotURL, logger), nil
	case KindDevice:
		if newDeviceSource == nil {
			return nil, errors.New("device camera requires a build with -tags gocv")
		}
		return newDeviceSource(cfg.Device, logger), nil
	default:
		return nil, fmt.Errorf("unknown camera kind %q", cfg.Kind)
	}
}

// ConstraintsFromConfig builds capture constraints from configuration,
// falling back to the defaults for unset values.
func ConstraintsFromConfig(cfg *config.CameraConfig) Constraints {
	c := DefaultConstraints()
	if cfg.Width > 0 {
		c.Width = cfg.Width
	}
	if cfg.Height > 0 {
		c.Height = cfg.Height
	}
	if cfg.Facing != "" {
		c.Facing = cfg.Facing
	}
	if cfg.FPS > 0 {
		c.FPS = cfg.FPS
	}
	return c
}
