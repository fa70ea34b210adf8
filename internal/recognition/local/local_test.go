package local

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/facewatch/internal/camera"
	"github.com/kozaktomas/facewatch/internal/embedding"
	"github.com/kozaktomas/facewatch/internal/facematch"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

// fakeDetector returns fixed observations.
type fakeDetector struct {
	observations []facematch.FaceObservation
	err          error
}

func (f *fakeDetector) Name() string { return "fake" }

func (f *fakeDetector) Detect(ctx context.Context, jpeg []byte) ([]facematch.FaceObservation, error) {
	return f.observations, f.err
}

func (f *fakeDetector) Close() error { return nil }

func testFrame() camera.Frame {
	return camera.Frame{Seq: 1, Data: []byte{0xFF, 0xD8, 0xFF}, Width: 1280, Height: 720, CapturedAt: time.Now()}
}

func TestFaceMatcher_FindBestMatch(t *testing.T) {
	m := NewFaceMatcher([]LabeledDescriptors{
		{Label: "alice", Descriptors: [][]float32{{0, 0}, {0, 0.2}}},
		{Label: "bob", Descriptors: [][]float32{{1, 1}}},
	}, 0.6)

	tests := []struct {
		name      string
		query     []float32
		wantLabel string
		wantDist  float64
	}{
		{"close to alice", []float32{0, 0.1}, "alice", 0.1},
		{"exactly bob", []float32{1, 1}, "bob", 0},
		{"far from everyone", []float32{5, 5}, "unknown", math.Sqrt(32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.FindBestMatch(tt.query)
			if got.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", got.Label, tt.wantLabel)
			}
			if math.Abs(got.Distance-tt.wantDist) > 1e-6 {
				t.Errorf("Distance = %v, want %v", got.Distance, tt.wantDist)
			}
			if got.Kind != facematch.KindDistance {
				t.Errorf("Kind = %q", got.Kind)
			}
		})
	}
}

func TestFaceMatcher_DefaultDistance(t *testing.T) {
	m := NewFaceMatcher([]LabeledDescriptors{{Label: "a", Descriptors: [][]float32{{0}}}}, 0)

	if got := m.FindBestMatch([]float32{0.59}); got.Label != "a" {
		t.Errorf("0.59 should match with default 0.6 limit, got %q", got.Label)
	}
	if got := m.FindBestMatch([]float32{0.61}); got.Label != "unknown" {
		t.Errorf("0.61 should be unknown, got %q", got.Label)
	}
}

func TestDescriptorFile_RoundTripFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face-descriptors.json")
	if err := SaveDescriptorFile(path, "Juan Carlos Mendoza Ríos", [][]float32{{0.1, 0.2}}, 3); err != nil {
		t.Fatalf("SaveDescriptorFile: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"name", "descriptors", "timestamp", "imageCount"} {
		if _, ok := generic[key]; !ok {
			t.Errorf("descriptor file is missing %q", key)
		}
	}

	file, err := LoadDescriptorFile(path)
	if err != nil {
		t.Fatalf("LoadDescriptorFile: %v", err)
	}
	if file.ImageCount != 3 || len(file.Descriptors) != 1 {
		t.Errorf("unexpected file %+v", file)
	}
}

func TestNewBackend_MissingFileFailsOpen(t *testing.T) {
	det := &fakeDetector{observations: []facematch.FaceObservation{{Descriptor: []float32{0, 0}}}}
	b := NewBackend(det, filepath.Join(t.TempDir(), "missing.json"), 0.6, nil)

	st, err := b.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.ReferencesLoaded {
		t.Error("references must not be loaded without a file")
	}

	raw, err := b.Recognize(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(raw.Observations) != 1 || raw.Match != nil {
		t.Errorf("expected detection without match, got %+v", raw)
	}

	got := facematch.Decide(raw, facematch.DefaultPolicy(), nil)
	if !got.FaceDetected || got.IsMatch || got.Confidence != 95 {
		t.Errorf("unexpected verdict %+v", got)
	}
}

func TestNewBackend_CorruptFileFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	b := NewBackend(&fakeDetector{}, path, 0.6, nil)
	if st, _ := b.Status(context.Background()); st.ReferencesLoaded {
		t.Error("corrupt file must disable matching")
	}
}

func TestBackend_RecognizeWithDescriptors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face-descriptors.json")
	if err := SaveDescriptorFile(path, "Juan Carlos Mendoza Ríos", [][]float32{{0, 0}, {0, 0.2}}, 2); err != nil {
		t.Fatal(err)
	}

	det := &fakeDetector{observations: []facematch.FaceObservation{{Descriptor: []float32{0, 0.1}}}}
	b := NewBackend(det, path, 0.6, nil)

	raw, err := b.Recognize(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if raw.Match == nil || raw.Match.Label != "Juan Carlos Mendoza Ríos" {
		t.Fatalf("unexpected match %+v", raw.Match)
	}

	got := facematch.Decide(raw, facematch.DefaultPolicy(), nil)
	if !got.IsMatch || math.Abs(got.Confidence-90) > 1e-6 {
		t.Errorf("unexpected verdict %+v", got)
	}
}

func TestBackend_NoFace(t *testing.T) {
	b := NewBackendWithMatcher(&fakeDetector{}, NewFaceMatcher(nil, 0.6), nil)

	raw, err := b.Recognize(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	got := facematch.Decide(raw, facematch.DefaultPolicy(), nil)
	if got.FaceDetected || got.IsMatch || got.Confidence != 0 {
		t.Errorf("unexpected verdict %+v", got)
	}
}

func TestBackend_Errors(t *testing.T) {
	b := NewBackendWithMatcher(&fakeDetector{err: errors.New("boom")}, nil, nil)

	if _, err := b.Recognize(context.Background(), camera.Frame{}); !errors.Is(err, recognition.ErrTransientDetection) {
		t.Errorf("empty frame error = %v, want ErrTransientDetection", err)
	}
	if _, err := b.Recognize(context.Background(), testFrame()); !errors.Is(err, recognition.ErrTransientDetection) {
		t.Errorf("detector error = %v, want ErrTransientDetection", err)
	}
}

func TestBackend_SidecarDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	b := NewBackendWithMatcher(NewEmbeddingDetector(embedding.NewClient(url)), nil, nil)
	if _, err := b.Recognize(context.Background(), testFrame()); !errors.Is(err, recognition.ErrBackendUnavailable) {
		t.Errorf("error = %v, want ErrBackendUnavailable", err)
	}
}

func TestEmbeddingDetector_OrdersByScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedding.FaceResponse{
			FacesCount: 2,
			Faces: []embedding.Face{
				{FaceIndex: 0, Embedding: []float32{1}, BBox: []float64{0, 0, 10, 10}, DetScore: 0.6},
				{FaceIndex: 1, Embedding: []float32{2}, BBox: []float64{20, 20, 60, 70}, DetScore: 0.9},
			},
		})
	}))
	defer server.Close()

	obs, err := NewEmbeddingDetector(embedding.NewClient(server.URL)).Detect(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(obs) != 2 || obs[0].Score != 0.9 {
		t.Fatalf("unexpected observations %+v", obs)
	}
	want := facematch.BoundingBox{X: 20, Y: 20, Width: 40, Height: 50}
	if obs[0].Box != want {
		t.Errorf("Box = %v, want %v", obs[0].Box, want)
	}
}

func TestNewDetector_UnknownKind(t *testing.T) {
	if _, err := NewDetector("magic", "", ""); err == nil {
		t.Error("expected error for unknown detector")
	}
}

func TestBackend_DescriptorDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face-descriptors.json")
	ref := make([]float32, 128)
	if err := SaveDescriptorFile(path, "Juan Carlos Mendoza Ríos", [][]float32{ref}, 1); err != nil {
		t.Fatal(err)
	}

	det := &fakeDetector{observations: []facematch.FaceObservation{{Descriptor: make([]float32, 512), Score: 0.9}}}
	b := NewBackend(det, path, 0.6, nil)
	if st, _ := b.Status(context.Background()); !st.ReferencesLoaded {
		t.Fatal("128-d references should load")
	}

	raw, err := b.Recognize(context.Background(), testFrame())
	if !errors.Is(err, recognition.ErrTransientDetection) {
		t.Fatalf("error = %v, want ErrTransientDetection", err)
	}
	if raw != nil {
		t.Errorf("expected no result, got %+v", raw)
	}
}

func TestNewBackend_UnusableDescriptorsDetectOnly(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty list", `{"name":"Juan","descriptors":[],"timestamp":"2026-01-01T00:00:00Z","imageCount":0}`},
		{"empty vector", `{"name":"Juan","descriptors":[[]],"timestamp":"2026-01-01T00:00:00Z","imageCount":1}`},
		{"mixed lengths", `{"name":"Juan","descriptors":[[0.1,0.2],[0.1]],"timestamp":"2026-01-01T00:00:00Z","imageCount":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "face-descriptors.json")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadDescriptorFile(path); err == nil {
				t.Error("LoadDescriptorFile should reject the file")
			}

			det := &fakeDetector{observations: []facematch.FaceObservation{{Descriptor: make([]float32, 512), Score: 0.9}}}
			b := NewBackend(det, path, 0.6, nil)
			if st, _ := b.Status(context.Background()); st.ReferencesLoaded {
				t.Error("unusable file must disable matching")
			}

			raw, err := b.Recognize(context.Background(), testFrame())
			if err != nil {
				t.Fatalf("Recognize: %v", err)
			}
			if raw.Match != nil {
				t.Errorf("expected detection without match, got %+v", raw.Match)
			}

			got := facematch.Decide(raw, facematch.DefaultPolicy(), nil)
			if math.IsInf(got.Confidence, 0) || math.IsNaN(got.Confidence) {
				t.Fatalf("Confidence = %v", got.Confidence)
			}
			if _, err := json.Marshal(got); err != nil {
				t.Errorf("verdict not encodable: %v", err)
			}
		})
	}
}

func TestNewFaceMatcher_DropsInconsistentLabels(t *testing.T) {
	m := NewFaceMatcher([]LabeledDescriptors{
		{Label: "empty"},
		{Label: "alice", Descriptors: [][]float32{{0, 0}}},
		{Label: "wide", Descriptors: [][]float32{{0, 0, 0}}},
	}, 0.6)

	if m.Dim() != 2 {
		t.Errorf("Dim() = %d, want 2", m.Dim())
	}
	if labels := m.Labels(); len(labels) != 1 || labels[0] != "alice" {
		t.Errorf("Labels() = %v, want [alice]", labels)
	}
	if got := m.FindBestMatch([]float32{0, 0.1}); got.Label != "alice" || math.IsInf(got.Distance, 0) {
		t.Errorf("unexpected match %+v", got)
	}
}
