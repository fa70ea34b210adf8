// Package trainer builds the reference set of one person from a photo directory.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/recognition/local"
)

var ErrNoPhotos = errors.New("no photos found")

// Progress is advanced once per processed photo.
type Progress interface {
	Add(n int) error
}

// Options configures a training run.
type Options struct {
	Name        string // person the photos show
	Model       string
	Detector    string
	Concurrency int
	// DescriptorFile, when set, also receives a face-descriptors.json for the local backend.
	DescriptorFile string
	Progress       Progress
}

// Report summarizes a training run.
type Report struct {
	Set        *database.ReferenceSet
	Statistics Statistics
}

// Trainer extracts one embedding per photo and stores the result.
type Trainer struct {
	detector local.Detector
	store    database.ReferenceWriter
}

// New creates a trainer.
func New(detector local.Detector, store database.ReferenceWriter) *Trainer {
	return &Trainer{detector: detector, store: store}
}

func isPhoto(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp":
		return true
	}
	return false
}

// ListPhotos returns the photos of dir sorted by name.
func ListPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading photo directory: %w", err)
	}

	var photos []string
	for _, e := range entries {
		if !e.IsDir() && isPhoto(e.Name()) {
			photos = append(photos, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(photos)

	if len(photos) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPhotos, dir)
	}
	return photos, nil
}

type extraction struct {
	embedding []float32
	err       error
}

// Extract computes the embedding of the best face in every photo. Photos
// without a face or with a detector error are recorded as failed.
func (t *Trainer) Extract(ctx context.Context, photos []string, opts Options) *database.ReferenceSet {
	concurrency := max(opts.Concurrency, 1)
	results := make([]extraction, len(photos))

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)
	var barMu sync.Mutex

	for i, path := range photos {
		wg.Add(1)
		go func(idx int, p string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = t.extractOne(ctx, p)

			if opts.Progress != nil {
				barMu.Lock()
				opts.Progress.Add(1)
				barMu.Unlock()
			}
		}(i, path)
	}
	wg.Wait()

	set := &database.ReferenceSet{
		Name:     opts.Name,
		Model:    opts.Model,
		Detector: opts.Detector,
	}
	for i, r := range results {
		if r.err != nil {
			set.FailedPhotos = append(set.FailedPhotos, database.FailedPhoto{Path: photos[i], Error: r.err.Error()})
			continue
		}
		set.Embeddings = append(set.Embeddings, r.embedding)
		set.ValidPhotos = append(set.ValidPhotos, photos[i])
	}
	set.NumPhotos = len(set.ValidPhotos)
	set.EmbeddingSize = set.Dim()
	return set
}

func (t *Trainer) extractOne(ctx context.Context, path string) extraction {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the training directory
	if err != nil {
		return extraction{err: err}
	}
	faces, err := t.detector.Detect(ctx, data)
	if err != nil {
		return extraction{err: err}
	}
	for _, f := range faces {
		if len(f.Descriptor) > 0 {
			return extraction{embedding: f.Descriptor}
		}
	}
	return extraction{err: errors.New("no face detected")}
}

// Train extracts embeddings from the photos in dir, stores the reference set
// and optionally writes the local descriptor file.
func (t *Trainer) Train(ctx context.Context, dir string, opts Options) (*Report, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return nil, errors.New("person name is required")
	}

	photos, err := ListPhotos(dir)
	if err != nil {
		return nil, err
	}

	set := t.Extract(ctx, photos, opts)
	if len(set.Embeddings) == 0 {
		return &Report{Set: set}, fmt.Errorf("no embedding could be extracted from %d photos", len(photos))
	}
	if err := set.Validate(); err != nil {
		return &Report{Set: set}, err
	}

	report := &Report{Set: set, Statistics: ComputeStatistics(set.Embeddings)}

	if err := t.store.SaveReferences(ctx, set); err != nil {
		return report, fmt.Errorf("saving references: %w", err)
	}
	if opts.DescriptorFile != "" {
		if err := local.SaveDescriptorFile(opts.DescriptorFile, set.Name, set.Embeddings, set.NumPhotos); err != nil {
			return report, fmt.Errorf("saving descriptor file: %w", err)
		}
	}
	return report, nil
}
