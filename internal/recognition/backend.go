// Package recognition defines the capability shared by the local and remote
// recognition backends.
package recognition

import (
	"context"
	"errors"

	"github.com/kozaktomas/facewatch/internal/camera"
	"github.com/kozaktomas/facewatch/internal/facematch"
)

var (
	// ErrBackendUnavailable means the model or service cannot be reached.
	ErrBackendUnavailable = errors.New("recognition backend unavailable")
	// ErrTransientDetection is a single failed attempt; the next frame may succeed.
	ErrTransientDetection = errors.New("transient detection failure")
)

// Status describes a backend's readiness.
type Status struct {
	Backend          string `json:"backend"`
	Ready            bool   `json:"ready"`
	ReferencesLoaded bool   `json:"references_loaded"`
	Person           string `json:"person,omitempty"`
	Model            string `json:"model,omitempty"`
	Detector         string `json:"detector,omitempty"`
	Message          string `json:"message,omitempty"`
}

// Backend detects faces in a frame and matches the first one against a
// reference set. A frame without faces yields a RawResult with no observations.
type Backend interface {
	Name() string
	Status(ctx context.Context) (Status, error)
	Recognize(ctx context.Context, frame camera.Frame) (*facematch.RawResult, error)
	Close() error
}
