package camera

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/facewatch/internal/constants"
)

// DirSource replays the images of a directory in name order, looping forever.
// It stands in for a webcam on machines without one.
type DirSource struct {
	frameBuffer

	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDirSource creates a source over dir.
func NewDirSource(dir string, logger *slog.Logger) *DirSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSource{dir: dir, logger: logger}
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp":
		return true
	}
	return false
}

func (s *DirSource) listImages() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, s.dir)
		}
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && isImageFile(e.Name()) {
			files = append(files, filepath.Join(s.dir, e.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrDeviceUnavailable, s.dir)
	}
	return files, nil
}

// Open starts replaying. The first frame is published asynchronously.
func (s *DirSource) Open(ctx context.Context, c Constraints) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	files, err := s.listImages()
	if err != nil {
		return err
	}

	s.reset()
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(loopCtx, files, c)
	return nil
}

func (s *DirSource) run(ctx context.Context, files []string, c Constraints) {
	defer close(s.done)

	ticker := time.NewTicker(c.interval())
	defer ticker.Stop()

	maxSize := c.maxSize()
	i := 0
	for {
		if !s.Paused() {
			path := files[i%len(files)]
			i++
			if err := s.capture(path, maxSize); err != nil {
				s.logger.Warn("skipping frame", "path", path, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *DirSource) capture(path string, maxSize int) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the configured directory
	if err != nil {
		return fmt.Errorf("reading frame: %w", err)
	}
	encoded, w, h, err := EncodeFrame(data, maxSize, constants.FrameJPEGQuality)
	if err != nil {
		return err
	}
	s.publish(encoded, w, h)
	return nil
}

// Close stops replaying and clears the latest frame.
func (s *DirSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.clear()
	return nil
}
