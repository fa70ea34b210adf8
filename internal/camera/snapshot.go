package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/facewatch/internal/constants"
)

// SnapshotSource polls an IP camera's JPEG snapshot endpoint.
type SnapshotSource struct {
	frameBuffer

	url    string
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSnapshotSource creates a source for the given snapshot URL.
func NewSnapshotSource(url string, logger *slog.Logger) *SnapshotSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotSource{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (s *SnapshotSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w (status %d)", ErrPermissionDenied, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w (status %d)", ErrDeviceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return body, nil
}

func (s *SnapshotSource) capture(ctx context.Context, maxSize int) error {
	data, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	encoded, w, h, err := EncodeFrame(data, maxSize, constants.FrameJPEGQuality)
	if err != nil {
		return err
	}
	s.publish(encoded, w, h)
	return nil
}

// Open probes the endpoint once, publishes the probe as the first frame and
// starts polling.
func (s *SnapshotSource) Open(ctx context.Context, c Constraints) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyRunning
	}
	if s.url == "" {
		return fmt.Errorf("%w: no snapshot URL configured", ErrDeviceUnavailable)
	}

	// The probe separates refused credentials from unreachable cameras.
	probe, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	s.reset()
	if encoded, w, h, err := EncodeFrame(probe, c.maxSize(), constants.FrameJPEGQuality); err != nil {
		s.logger.Warn("snapshot probe not decodable", "error", err)
	} else {
		s.publish(encoded, w, h)
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(loopCtx, c)
	return nil
}

func (s *SnapshotSource) run(ctx context.Context, c Constraints) {
	defer close(s.done)

	ticker := time.NewTicker(c.interval())
	defer ticker.Stop()

	// Open already published the probe frame; the first capture waits a tick.
	maxSize := c.maxSize()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !s.Paused() {
			if err := s.capture(ctx, maxSize); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("snapshot failed", "error", err)
			}
		}
	}
}

// Close stops polling and clears the latest frame.
func (s *SnapshotSource) Close() error {
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
