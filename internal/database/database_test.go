package database

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleSet() *ReferenceSet {
	return &ReferenceSet{
		Name:     "Juan Carlos Mendoza Ríos",
		Model:    "Facenet512",
		Detector: "opencv",
		Embeddings: [][]float32{
			{1, 0, 0, 0},
			{0.9, 0.1, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
		},
		NumPhotos:   4,
		ValidPhotos: []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg"},
	}
}

func TestReferenceSet_Validate(t *testing.T) {
	tests := []struct {
		name    string
		set     *ReferenceSet
		wantErr bool
	}{
		{"valid", sampleSet(), false},
		{"nil", nil, true},
		{"no embeddings", &ReferenceSet{Name: "x"}, true},
		{"empty vector", &ReferenceSet{Embeddings: [][]float32{{}}}, true},
		{"mixed dimensions", &ReferenceSet{Embeddings: [][]float32{{1, 2}, {1, 2, 3}}}, true},
		{"wrong declared size", &ReferenceSet{Embeddings: [][]float32{{1, 2}}, EmbeddingSize: 512}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "trained", "face_embeddings.json"))
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return at }

	set := sampleSet()
	if err := store.SaveReferences(context.Background(), set); err != nil {
		t.Fatalf("SaveReferences: %v", err)
	}

	got, err := store.LoadReferences(context.Background())
	if err != nil {
		t.Fatalf("LoadReferences: %v", err)
	}
	if got.Name != set.Name || got.EmbeddingSize != 4 || len(got.Embeddings) != 4 {
		t.Errorf("unexpected set %+v", got)
	}
	if !got.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, at)
	}

	backup := store.BackupPath(set.Name, at)
	if filepath.Base(backup) != "face_embeddings_Juan_Carlos_Mendoza_Ríos_1772366400.json" {
		t.Errorf("unexpected backup name %s", filepath.Base(backup))
	}
	if _, err := os.Stat(backup); err != nil {
		t.Errorf("backup not written: %v", err)
	}
}

func TestFileStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, err := NewFileStore(filepath.Join(dir, "none.json")).LoadReferences(context.Background())
		if !errors.Is(err, ErrNoReferences) {
			t.Errorf("error = %v, want ErrNoReferences", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		os.WriteFile(path, []byte("{"), 0o600)
		if _, err := NewFileStore(path).LoadReferences(context.Background()); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("empty set", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		os.WriteFile(path, []byte(`{"name":"x","embeddings":[]}`), 0o600)
		_, err := NewFileStore(path).LoadReferences(context.Background())
		if !errors.Is(err, ErrNoReferences) {
			t.Errorf("error = %v, want ErrNoReferences", err)
		}
	})
}

func TestFileStore_RejectsInvalidSet(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "f.json"))
	if err := store.SaveReferences(context.Background(), &ReferenceSet{Name: "x"}); err == nil {
		t.Error("expected error for empty set")
	}
}

func TestReferenceIndex_Best(t *testing.T) {
	idx, err := NewReferenceIndex(sampleSet())
	if err != nil {
		t.Fatalf("NewReferenceIndex: %v", err)
	}
	if idx.Len() != 4 {
		t.Errorf("Len() = %d", idx.Len())
	}

	best, err := idx.Best([]float32{0, 0, 2, 0})
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if best.Index != 3 || math.Abs(best.Similarity-1) > 1e-6 {
		t.Errorf("Best() = %+v, want index 3 similarity 1", best)
	}

	if _, err := idx.Best([]float32{1, 0}); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestReferenceIndex_SearchOrdered(t *testing.T) {
	idx, err := NewReferenceIndex(sampleSet())
	if err != nil {
		t.Fatalf("NewReferenceIndex: %v", err)
	}

	got, err := idx.Search([]float32{1, 0, 0, 0}, 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) == 0 || got[0].Index != 0 {
		t.Fatalf("unexpected neighbors %+v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Similarity > got[i-1].Similarity {
			t.Errorf("neighbors not ordered: %+v", got)
		}
	}
}

func TestReferenceIndex_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.hnsw")
	set := sampleSet()

	idx, err := LoadOrBuildIndex(path, set)
	if err != nil {
		t.Fatalf("LoadOrBuildIndex: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("index not saved: %v", err)
	}

	loaded, err := LoadReferenceIndex(path, set)
	if err != nil {
		t.Fatalf("LoadReferenceIndex: %v", err)
	}
	if loaded.Len() != idx.Len() {
		t.Errorf("loaded %d nodes, want %d", loaded.Len(), idx.Len())
	}

	other := &ReferenceSet{Embeddings: [][]float32{{1, 0, 0, 0}}}
	if _, err := LoadReferenceIndex(path, other); err == nil {
		t.Error("expected stale index error")
	}
}
