package facematch

import (
	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/roster"
)

// Policy holds the thresholds used by Decide.
type Policy struct {
	// Threshold is the confidence percentage a labeled match must exceed.
	Threshold float64
	// ClearConfidence is reported when a face is found but no reference set exists.
	ClearConfidence float64
}

// DefaultPolicy returns the stock 60% threshold and 95% clear confidence.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:       constants.DefaultMatchThreshold,
		ClearConfidence: constants.DefaultClearConfidence,
	}
}

// PersonLookup resolves a matched label to a roster person.
type PersonLookup interface {
	ByName(name string) (*roster.Person, bool)
}

// Decide converts one raw backend result into a verdict. A nil lookup skips
// roster linkage.
func Decide(raw *RawResult, policy Policy, lookup PersonLookup) RecognitionResult {
	if raw == nil || len(raw.Observations) == 0 {
		result := RecognitionResult{}
		if raw != nil {
			result.Backend = raw.Backend
			result.CapturedAt = raw.CapturedAt
		}
		return result
	}

	result := RecognitionResult{
		FaceDetected: true,
		Backend:      raw.Backend,
		CapturedAt:   raw.CapturedAt,
	}

	if raw.Match == nil {
		result.Confidence = policy.ClearConfidence
		return result
	}

	result.Confidence = raw.Match.Confidence()
	if !IsMatch(raw.Match.Label, result.Confidence, policy.Threshold) {
		return result
	}

	result.IsMatch = true
	result.MatchedLabel = raw.Match.Label
	if lookup != nil {
		if person, ok := lookup.ByName(raw.Match.Label); ok {
			result.MatchedPerson = person
		}
	}
	return result
}

// IsMatch applies the decision rule: a real label and a confidence strictly above threshold.
func IsMatch(label string, confidence, threshold float64) bool {
	return label != "" && label != constants.UnknownLabel && confidence > threshold
}
