//go:build gocv

package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kozaktomas/facewatch/internal/constants"
	"gocv.io/x/gocv"
)

func init() {
	newDeviceSource = func(device int, logger *slog.Logger) Source {
		return NewDeviceSource(device, logger)
	}
}

// DeviceSource captures from a local video device through OpenCV.
type DeviceSource struct {
	frameBuffer

	device int
	logger *slog.Logger

	mu      sync.Mutex
	capture *gocv.VideoCapture
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDeviceSource creates a source for the video device index.
func NewDeviceSource(device int, logger *slog.Logger) *DeviceSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeviceSource{device: device, logger: logger}
}

// Open opens the device with the requested resolution.
func (s *DeviceSource) Open(ctx context.Context, c Constraints) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	capture, err := gocv.OpenVideoCapture(s.device)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("%w: device %d is not opened", ErrDeviceUnavailable, s.device)
	}

	if c.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	}
	if c.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	}

	s.reset()
	s.capture = capture
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(loopCtx, capture, c)
	return nil
}

func (s *DeviceSource) run(ctx context.Context, capture *gocv.VideoCapture, c Constraints) {
	defer close(s.done)

	ticker := time.NewTicker(c.interval())
	defer ticker.Stop()

	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.Paused() {
			continue
		}
		if ok := capture.Read(&img); !ok || img.Empty() {
			s.logger.Warn("device read failed", "device", s.device)
			continue
		}

		buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), constants.FrameJPEGQuality})
		if err != nil {
			s.logger.Warn("frame encode failed", "error", err)
			continue
		}
		data := make([]byte, len(buf.GetBytes()))
		copy(data, buf.GetBytes())
		buf.Close()

		s.publish(data, img.Cols(), img.Rows())
	}
}

// Close releases the device.
func (s *DeviceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}
	s.cancel()
	<-s.done
	s.cancel = nil

	err := s.capture.Close()
	s.capture = nil
	s.clear()
	if err != nil {
		return fmt.Errorf("closing video capture: %w", err)
	}
	return nil
}
