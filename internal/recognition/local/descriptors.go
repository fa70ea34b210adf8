package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// DescriptorFile is the trained reference set for the local backend.
type DescriptorFile struct {
	Name        string      `json:"name"`
	Descriptors [][]float32 `json:"descriptors"`
	Timestamp   string      `json:"timestamp"`
	ImageCount  int         `json:"imageCount"`
}

// LoadDescriptorFile reads a descriptor file. A missing file returns an error
// satisfying errors.Is(err, os.ErrNotExist).
func LoadDescriptorFile(path string) (*DescriptorFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading descriptor file: %w", err)
	}

	var file DescriptorFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing descriptor file: %w", err)
	}
	if file.Name == "" {
		return nil, fmt.Errorf("descriptor file %s has no name", path)
	}
	if _, err := descriptorDim(file.Descriptors); err != nil {
		return nil, fmt.Errorf("descriptor file %s: %w", path, err)
	}
	return &file, nil
}

// descriptorDim returns the shared length of descriptors. An empty set, an
// empty vector or mixed lengths are rejected.
func descriptorDim(descriptors [][]float32) (int, error) {
	if len(descriptors) == 0 {
		return 0, errors.New("no descriptors")
	}
	dim := len(descriptors[0])
	if dim == 0 {
		return 0, errors.New("empty descriptor")
	}
	for i, d := range descriptors[1:] {
		if len(d) != dim {
			return 0, fmt.Errorf("descriptor %d has dimension %d, expected %d", i+1, len(d), dim)
		}
	}
	return dim, nil
}

// SaveDescriptorFile writes descriptors for one person.
func SaveDescriptorFile(path, name string, descriptors [][]float32, imageCount int) error {
	file := DescriptorFile{
		Name:        name,
		Descriptors: descriptors,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		ImageCount:  imageCount,
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling descriptor file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // reference data, not secret
		return fmt.Errorf("writing descriptor file: %w", err)
	}
	return nil
}
