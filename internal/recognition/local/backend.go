// Package local implements the in-process recognition backend: a face
// detector plus a descriptor matcher loaded once from the trained file.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/kozaktomas/facewatch/internal/camera"
	"github.com/kozaktomas/facewatch/internal/facematch"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

// BackendName identifies results produced by this backend.
const BackendName = "local"

// Backend detects faces with a Detector and matches them with a FaceMatcher.
// Without a descriptor file it runs detection only.
type Backend struct {
	detector Detector
	matcher  *FaceMatcher
	person   string
	logger   *slog.Logger
}

// NewBackend loads the descriptor file at descriptorPath. A missing or broken
// file is logged and disables matching; detection keeps working.
func NewBackend(detector Detector, descriptorPath string, maxDistance float64, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{detector: detector, logger: logger}

	file, err := LoadDescriptorFile(descriptorPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no descriptor file, running detection only", "path", descriptorPath)
	case err != nil:
		logger.Warn("descriptor file unusable, running detection only", "path", descriptorPath, "error", err)
	default:
		b.matcher = NewFaceMatcher([]LabeledDescriptors{{Label: file.Name, Descriptors: file.Descriptors}}, maxDistance)
		b.person = file.Name
		logger.Info("descriptors loaded", "person", file.Name, "descriptors", len(file.Descriptors), "dimension", b.matcher.Dim(), "images", file.ImageCount)
	}
	return b
}

// NewBackendWithMatcher creates a backend with an explicit matcher. A nil or
// empty matcher runs detection only.
func NewBackendWithMatcher(detector Detector, matcher *FaceMatcher, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if matcher != nil && matcher.Dim() == 0 {
		matcher = nil
	}
	b := &Backend{detector: detector, matcher: matcher, logger: logger}
	if matcher != nil {
		if labels := matcher.Labels(); len(labels) > 0 {
			b.person = labels[0]
		}
	}
	return b
}

func (b *Backend) Name() string { return BackendName }

// Status reports whether matching is enabled.
func (b *Backend) Status(ctx context.Context) (recognition.Status, error) {
	return recognition.Status{
		Backend:          BackendName,
		Ready:            true,
		ReferencesLoaded: b.matcher != nil,
		Person:           b.person,
		Detector:         b.detector.Name(),
	}, nil
}

// Recognize detects faces in the frame and matches the most confident one.
func (b *Backend) Recognize(ctx context.Context, frame camera.Frame) (*facematch.RawResult, error) {
	if len(frame.Data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", recognition.ErrTransientDetection)
	}

	observations, err := b.detector.Detect(ctx, frame.Data)
	if err != nil {
		return nil, classifyDetectError(err)
	}

	raw := &facematch.RawResult{
		Observations:     observations,
		ReferencesLoaded: b.matcher != nil,
		Backend:          BackendName,
		FrameWidth:       frame.Width,
		FrameHeight:      frame.Height,
		CapturedAt:       frame.CapturedAt,
	}
	if len(observations) == 0 || b.matcher == nil {
		return raw, nil
	}

	desc := observations[0].Descriptor
	if len(desc) != b.matcher.Dim() {
		return nil, fmt.Errorf("%w: face descriptor has dimension %d, references have %d",
			recognition.ErrTransientDetection, len(desc), b.matcher.Dim())
	}

	best := b.matcher.FindBestMatch(desc)
	raw.Match = &best
	return raw, nil
}

func classifyDetectError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && !urlErr.Timeout() {
		return fmt.Errorf("%w: %v", recognition.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%w: %v", recognition.ErrTransientDetection, err)
}

// Close releases the detector.
func (b *Backend) Close() error {
	if err := b.detector.Close(); err != nil {
		return fmt.Errorf("closing detector: %w", err)
	}
	return nil
}
