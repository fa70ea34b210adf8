//go:build dlib

package local

import (
	"context"
	"fmt"
	"sync"

	face "github.com/Kagami/go-face"
	"github.com/kozaktomas/facewatch/internal/facematch"
)

func init() {
	newDlibDetector = func(modelDir string) (Detector, error) {
		return NewGoFaceDetector(modelDir)
	}
}

// GoFaceDetector runs dlib face detection and 128-d descriptors in process.
type GoFaceDetector struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// NewGoFaceDetector loads the dlib models from modelDir.
func NewGoFaceDetector(modelDir string) (*GoFaceDetector, error) {
	rec, err := face.NewRecognizer(modelDir)
	if err != nil {
		return nil, fmt.Errorf("loading dlib models from %s: %w", modelDir, err)
	}
	return &GoFaceDetector{rec: rec}, nil
}

func (d *GoFaceDetector) Name() string { return DetectorDlib }

// Detect runs the recognizer on one JPEG. The recognizer is not safe for
// concurrent use.
func (d *GoFaceDetector) Detect(ctx context.Context, jpeg []byte) ([]facematch.FaceObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	faces, err := d.rec.Recognize(jpeg)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}

	observations := make([]facematch.FaceObservation, 0, len(faces))
	for _, f := range faces {
		r := f.Rectangle
		desc := make([]float32, len(f.Descriptor))
		copy(desc, f.Descriptor[:])
		observations = append(observations, facematch.FaceObservation{
			Box: facematch.BoundingBox{
				X:      float64(r.Min.X),
				Y:      float64(r.Min.Y),
				Width:  float64(r.Dx()),
				Height: float64(r.Dy()),
			},
			Descriptor: desc,
			Score:      1,
		})
	}
	return observations, nil
}

func (d *GoFaceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rec.Close()
	return nil
}
