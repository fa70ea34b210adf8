package local

import (
	"math"

	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/embedding"
	"github.com/kozaktomas/facewatch/internal/facematch"
)

// LabeledDescriptors groups the reference descriptors of one person.
type LabeledDescriptors struct {
	Label       string
	Descriptors [][]float32
}

// FaceMatcher finds the closest labeled reference for a descriptor.
type FaceMatcher struct {
	labeled     []LabeledDescriptors
	maxDistance float64
	dim         int
}

// NewFaceMatcher creates a matcher. maxDistance <= 0 uses 0.6. Labels whose
// descriptors are empty or disagree with the first label's dimension are dropped.
func NewFaceMatcher(labeled []LabeledDescriptors, maxDistance float64) *FaceMatcher {
	if maxDistance <= 0 {
		maxDistance = constants.DefaultMatcherDistance
	}
	m := &FaceMatcher{maxDistance: maxDistance}
	for _, l := range labeled {
		dim, err := descriptorDim(l.Descriptors)
		if err != nil || (m.dim != 0 && dim != m.dim) {
			continue
		}
		m.dim = dim
		m.labeled = append(m.labeled, l)
	}
	return m
}

// Dim is the descriptor length the matcher accepts, 0 when it has no references.
func (m *FaceMatcher) Dim() int { return m.dim }

// Labels returns the matcher's labels in order.
func (m *FaceMatcher) Labels() []string {
	out := make([]string, 0, len(m.labeled))
	for _, l := range m.labeled {
		out = append(out, l.Label)
	}
	return out
}

// meanDistance is the average euclidean distance to all descriptors of a label.
func meanDistance(query []float32, descriptors [][]float32) float64 {
	if len(descriptors) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for _, d := range descriptors {
		sum += embedding.EuclideanDistance(query, d)
	}
	return sum / float64(len(descriptors))
}

// FindBestMatch returns the label with the smallest mean distance. When that
// distance exceeds the matcher's limit the label is "unknown" and the distance is kept.
// The query must have length Dim; otherwise the distance is infinite.
func (m *FaceMatcher) FindBestMatch(query []float32) facematch.BestMatch {
	best := facematch.BestMatch{
		Label:    constants.UnknownLabel,
		Distance: math.Inf(1),
		Kind:     facematch.KindDistance,
	}

	for _, l := range m.labeled {
		if d := meanDistance(query, l.Descriptors); d < best.Distance {
			best.Label = l.Label
			best.Distance = d
		}
	}

	if best.Distance > m.maxDistance {
		best.Label = constants.UnknownLabel
	}
	return best
}
