package database

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoReferences is returned when no reference set has been stored yet.
var ErrNoReferences = errors.New("no reference embeddings stored")

// FailedPhoto is a training photo the embedder rejected.
type FailedPhoto struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ReferenceSet is the trained person: one embedding per accepted photo.
// Its JSON form is the face_embeddings.json file.
type ReferenceSet struct {
	Name          string        `json:"name"`
	Model         string        `json:"model"`
	Detector      string        `json:"detector"`
	Embeddings    [][]float32   `json:"embeddings"`
	EmbeddingSize int           `json:"embedding_size"`
	NumPhotos     int           `json:"num_photos"`
	Timestamp     time.Time     `json:"timestamp"`
	ValidPhotos   []string      `json:"valid_photos"`
	FailedPhotos  []FailedPhoto `json:"failed_photos"`
}

// Validate checks that the set has embeddings of one dimension.
func (s *ReferenceSet) Validate() error {
	if s == nil || len(s.Embeddings) == 0 {
		return ErrNoReferences
	}
	dim := len(s.Embeddings[0])
	if dim == 0 {
		return errors.New("empty embedding vector")
	}
	for i, e := range s.Embeddings {
		if len(e) != dim {
			return fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(e), dim)
		}
	}
	if s.EmbeddingSize != 0 && s.EmbeddingSize != dim {
		return fmt.Errorf("embedding_size %d does not match vectors of dimension %d", s.EmbeddingSize, dim)
	}
	return nil
}

// Dim returns the embedding dimension, or 0 for an empty set.
func (s *ReferenceSet) Dim() int {
	if s == nil || len(s.Embeddings) == 0 {
		return 0
	}
	return len(s.Embeddings[0])
}
