package local

import (
	"context"
	"fmt"
	"sort"

	"github.com/kozaktomas/facewatch/internal/embedding"
	"github.com/kozaktomas/facewatch/internal/facematch"
)

// Detector finds faces and their descriptors in a JPEG frame.
type Detector interface {
	Name() string
	Detect(ctx context.Context, jpeg []byte) ([]facematch.FaceObservation, error)
	Close() error
}

// Detector kinds for LOCAL_DETECTOR.
const (
	DetectorEmbedding = "embedding"
	DetectorDlib      = "dlib"
)

// newDlibDetector is set when the binary is built with the dlib tag.
var newDlibDetector func(modelDir string) (Detector, error)

// NewDetector creates the detector of the given kind.
func NewDetector(kind, embeddingURL, modelDir string) (Detector, error) {
	switch kind {
	case DetectorEmbedding, "":
		return NewEmbeddingDetector(embedding.NewClient(embeddingURL)), nil
	case DetectorDlib:
		if newDlibDetector == nil {
			return nil, fmt.Errorf("dlib detector requires a build with -tags dlib")
		}
		return newDlibDetector(modelDir)
	default:
		return nil, fmt.Errorf("unknown detector %q", kind)
	}
}

// EmbeddingDetector delegates detection to the embedding sidecar.
type EmbeddingDetector struct {
	client *embedding.Client
}

// NewEmbeddingDetector wraps an embedding client.
func NewEmbeddingDetector(client *embedding.Client) *EmbeddingDetector {
	return &EmbeddingDetector{client: client}
}

func (d *EmbeddingDetector) Name() string { return DetectorEmbedding }

// Detect returns one observation per face, highest detection score first.
func (d *EmbeddingDetector) Detect(ctx context.Context, jpeg []byte) ([]facematch.FaceObservation, error) {
	resp, err := d.client.ComputeFaceEmbeddings(ctx, jpeg)
	if err != nil {
		return nil, fmt.Errorf("computing face embeddings: %w", err)
	}

	observations := make([]facematch.FaceObservation, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		box, _ := facematch.BoxFromCorners(f.BBox)
		observations = append(observations, facematch.FaceObservation{
			Box:        box,
			Descriptor: f.Embedding,
			Score:      f.DetScore,
		})
	}
	sortByScore(observations)
	return observations, nil
}

func (d *EmbeddingDetector) Close() error { return nil }

func sortByScore(obs []facematch.FaceObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Score > obs[j].Score
	})
}
