// Package facematch turns raw recognition backend output into user-facing verdicts.
// It is shared by the polling loop, the scan action and the CLI.
package facematch

import (
	"fmt"
	"time"

	"github.com/kozaktomas/facewatch/internal/roster"
)

// BoundingBox is a face rectangle in pixel coordinates of the analyzed frame.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FaceObservation is one detected face.
type FaceObservation struct {
	Box        BoundingBox `json:"box"`
	Descriptor []float32   `json:"-"`
	Score      float64     `json:"score,omitempty"`
}

// MatchKind says how a BestMatch expresses closeness.
type MatchKind string

const (
	KindDistance   MatchKind = "distance"   // euclidean/cosine distance, smaller is closer
	KindSimilarity MatchKind = "similarity" // similarity already expressed as a percentage
)

// BestMatch is the closest reference label for a descriptor.
type BestMatch struct {
	Label      string    `json:"label"`
	Distance   float64   `json:"distance,omitempty"`
	Similarity float64   `json:"similarity,omitempty"`
	Kind       MatchKind `json:"kind"`
}

// Confidence converts the match into a percentage. Values outside [0, 100]
// are returned as-is.
func (m BestMatch) Confidence() float64 {
	if m.Kind == KindSimilarity {
		return m.Similarity
	}
	return (1 - m.Distance) * 100
}

// RawResult is what a recognition backend returns for one frame.
// Match is nil when the backend has no reference set to compare against.
type RawResult struct {
	Observations     []FaceObservation
	Match            *BestMatch
	ReferencesLoaded bool
	Backend          string
	FrameWidth       int
	FrameHeight      int
	CapturedAt       time.Time
}

// Verdict is the normalized outcome of one recognition attempt.
type Verdict string

const (
	VerdictNoFace       Verdict = "no_face"
	VerdictRecognized   Verdict = "recognized"
	VerdictUnrecognized Verdict = "unrecognized"
)

// RecognitionResult is the verdict shown to the operator.
type RecognitionResult struct {
	FaceDetected  bool           `json:"face_detected"`
	IsMatch       bool           `json:"is_match"`
	Confidence    float64        `json:"confidence"`
	MatchedLabel  string         `json:"matched_label,omitempty"`
	MatchedPerson *roster.Person `json:"matched_person,omitempty"`
	Backend       string         `json:"backend,omitempty"`
	Fabricated    bool           `json:"fabricated,omitempty"`
	CapturedAt    time.Time      `json:"captured_at"`
}

// Verdict classifies the result.
func (r RecognitionResult) Verdict() Verdict {
	switch {
	case !r.FaceDetected:
		return VerdictNoFace
	case r.IsMatch:
		return VerdictRecognized
	default:
		return VerdictUnrecognized
	}
}

// ConfidenceText formats the confidence with one decimal, e.g. "92.5%".
func (r RecognitionResult) ConfidenceText() string {
	return fmt.Sprintf("%.1f%%", r.Confidence)
}
