// Package recognizer is the recognition service consumed by the remote backend.
// It compares the first face of a submitted image against one trained person.
package recognizer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/embedding"
	"github.com/kozaktomas/facewatch/internal/recognition/local"
	"github.com/kozaktomas/facewatch/internal/recognition/remote"
)

var (
	ErrNoEmbeddings = errors.New("no trained embeddings loaded")
	ErrNoFace       = errors.New("no face detected")
	ErrInvalidImage = errors.New("invalid image")
)

// Options configures a Service.
type Options struct {
	Threshold     float64 // cosine similarity a match must exceed
	Model         string
	Detector      string
	Source        string // where references come from, reported by /info
	HNSWIndexPath string
	Logger        *slog.Logger
}

// Service holds the trained reference set and answers recognition requests.
type Service struct {
	detector local.Detector
	store    database.ReferenceReader
	opts     Options
	logger   *slog.Logger

	mu    sync.RWMutex
	set   *database.ReferenceSet
	index *database.ReferenceIndex
}

// NewService creates a service without references. Call Reload to load them.
func NewService(detector local.Detector, store database.ReferenceReader, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Threshold == 0 {
		opts.Threshold = constants.DefaultSimilarityThreshold
	}
	return &Service{
		detector: detector,
		store:    store,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Reload replaces the references with the store's current set. On failure the
// previous references stay active.
func (s *Service) Reload(ctx context.Context) (*database.ReferenceSet, error) {
	set, err := s.store.LoadReferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading references: %w", err)
	}
	index, err := database.LoadOrBuildIndex(s.opts.HNSWIndexPath, set)
	if err != nil {
		return nil, fmt.Errorf("indexing references: %w", err)
	}

	s.mu.Lock()
	s.set = set
	s.index = index
	s.mu.Unlock()

	s.logger.Info("embeddings loaded",
		"person", set.Name,
		"embeddings", len(set.Embeddings),
		"model", set.Model,
		"dim", set.Dim(),
	)
	return set, nil
}

func (s *Service) references() (*database.ReferenceSet, *database.ReferenceIndex) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set, s.index
}

// Health reports the service state.
func (s *Service) Health() remote.HealthResponse {
	set, _ := s.references()
	h := remote.HealthResponse{
		Status:           "ok",
		Model:            s.opts.Model,
		Detector:         s.opts.Detector,
		EmbeddingsLoaded: set != nil,
	}
	if set != nil {
		h.Person = set.Name
	}
	return h
}

// Info describes the loaded references.
func (s *Service) Info() remote.InfoResponse {
	set, _ := s.references()
	if set == nil {
		return remote.InfoResponse{Loaded: false, Message: "no embeddings loaded"}
	}
	return remote.InfoResponse{
		Loaded:             true,
		PersonName:         set.Name,
		NumEmbeddings:      len(set.Embeddings),
		EmbeddingDimension: set.Dim(),
		Model:              s.opts.Model,
		Detector:           s.opts.Detector,
		Threshold:          s.opts.Threshold,
		EmbeddingsFile:     s.opts.Source,
	}
}

// DecodeImage accepts plain base64 or a data URL.
func DecodeImage(s string) ([]byte, error) {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	return data, nil
}

// firstDescriptor returns the descriptor of the highest-scoring face.
func (s *Service) firstDescriptor(ctx context.Context, image []byte) ([]float32, error) {
	faces, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, err
	}
	for _, f := range faces {
		if len(f.Descriptor) > 0 {
			return f.Descriptor, nil
		}
	}
	return nil, ErrNoFace
}

// Recognize compares the first face in image with every trained embedding.
// A frame without a face is a successful answer with FaceDetected false.
func (s *Service) Recognize(ctx context.Context, image []byte) (*remote.RecognizeResponse, error) {
	set, index := s.references()
	if set == nil {
		return nil, ErrNoEmbeddings
	}

	desc, err := s.firstDescriptor(ctx, image)
	if errors.Is(err, ErrNoFace) {
		return &remote.RecognizeResponse{Success: true, FaceDetected: false, Message: "no face detected"}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(desc) != set.Dim() {
		return nil, fmt.Errorf("face embedding has dimension %d, references have %d", len(desc), set.Dim())
	}

	best, err := index.Best(desc)
	if err != nil {
		return nil, fmt.Errorf("searching references: %w", err)
	}

	var sum float64
	for _, ref := range set.Embeddings {
		sum += embedding.CosineSimilarity(desc, ref)
	}
	avg := sum / float64(len(set.Embeddings))

	isMatch := best.Similarity > s.opts.Threshold
	resp := &remote.RecognizeResponse{
		Success:       true,
		FaceDetected:  true,
		IsMatch:       isMatch,
		PersonName:    constants.UnknownLabel,
		Confidence:    best.Similarity * 100,
		MaxSimilarity: best.Similarity,
		AvgSimilarity: avg,
		Threshold:     s.opts.Threshold,
		Details: &remote.RecognizeDetails{
			Model:          s.opts.Model,
			NumComparisons: len(set.Embeddings),
		},
	}
	if isMatch {
		resp.PersonName = set.Name
	}
	return resp, nil
}

// Verify reports whether two images show the same person, by cosine distance
// between their first faces.
func (s *Service) Verify(ctx context.Context, image1, image2 []byte) (*remote.VerifyResponse, error) {
	d1, err := s.firstDescriptor(ctx, image1)
	if err != nil {
		return nil, fmt.Errorf("first image: %w", err)
	}
	d2, err := s.firstDescriptor(ctx, image2)
	if err != nil {
		return nil, fmt.Errorf("second image: %w", err)
	}
	if len(d1) != len(d2) {
		return nil, errors.New("face embeddings have different dimensions")
	}

	distance := 1 - embedding.CosineSimilarity(d1, d2)
	return &remote.VerifyResponse{
		Success:   true,
		Verified:  distance <= constants.VerifyDistanceThreshold,
		Distance:  distance,
		Threshold: constants.VerifyDistanceThreshold,
		Model:     s.opts.Model,
	}, nil
}
