// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Match decision constants
const (
	// DefaultMatchThreshold is the confidence percentage a labeled match must exceed
	DefaultMatchThreshold = 60.0

	// DefaultClearConfidence is reported when a face is found but no reference set exists
	DefaultClearConfidence = 95.0

	// UnknownLabel is the sentinel label for a descriptor with no close reference
	UnknownLabel = "unknown"
)

// Local matcher constants
const (
	// DefaultMatcherDistance is the euclidean distance above which a descriptor is unknown
	DefaultMatcherDistance = 0.6
)

// Recognition service constants
const (
	// DefaultSimilarityThreshold is the cosine similarity the service requires for a match
	DefaultSimilarityThreshold = 0.4

	// VerifyDistanceThreshold is the cosine distance at or below which /verify reports the same person
	VerifyDistanceThreshold = 0.3

	// HNSWMaxNeighbors is the M parameter of the reference HNSW graph
	HNSWMaxNeighbors = 16
)

// Frame encoding constants
const (
	// FrameJPEGQuality matches the still-frame quality sent to the recognition service
	FrameJPEGQuality = 80

	// MaxFrameSize is the maximum dimension (width or height) of an uploaded frame
	MaxFrameSize = 1280
)

// Remote overlay constants
const (
	// PlaceholderBoxWidth is the width of the centered box drawn for remote results
	PlaceholderBoxWidth = 200

	// PlaceholderBoxHeight is the height of the centered box drawn for remote results
	PlaceholderBoxHeight = 250
)

// Fabricated verdict constants
const (
	// FabricatedMatchRate is the probability of a fabricated positive
	FabricatedMatchRate = 0.3
)
