package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore keeps the reference set in a JSON file and writes a timestamped
// backup next to it on every save.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore creates a store over path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the file path.
func (s *FileStore) Path() string {
	return s.path
}

// LoadReferences reads and validates the file.
func (s *FileStore) LoadReferences(_ context.Context) (*ReferenceSet, error) {
	data, err := os.ReadFile(s.path) //nolint:gosec // path is from trusted config
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found", ErrNoReferences, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reference file: %w", err)
	}

	var set ReferenceSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse reference file: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reference file %s: %w", s.path, err)
	}
	return &set, nil
}

// SaveReferences writes the file and its backup.
func (s *FileStore) SaveReferences(_ context.Context, set *ReferenceSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	if set.EmbeddingSize == 0 {
		set.EmbeddingSize = set.Dim()
	}
	if set.Timestamp.IsZero() {
		set.Timestamp = s.now()
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal references: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create reference directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil { //nolint:gosec // reference files are not secret
		return fmt.Errorf("failed to write reference file: %w", err)
	}
	if err := os.WriteFile(s.BackupPath(set.Name, set.Timestamp), data, 0o644); err != nil { //nolint:gosec // same as above
		return fmt.Errorf("failed to write reference backup: %w", err)
	}
	return nil
}

// BackupPath returns face_embeddings_<name>_<unix>.json next to the main file.
func (s *FileStore) BackupPath(name string, at time.Time) string {
	ext := filepath.Ext(s.path)
	base := strings.TrimSuffix(filepath.Base(s.path), ext)
	file := fmt.Sprintf("%s_%s_%d%s", base, strings.ReplaceAll(name, " ", "_"), at.Unix(), ext)
	return filepath.Join(filepath.Dir(s.path), file)
}
