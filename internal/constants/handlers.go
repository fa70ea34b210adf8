// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for overlay listener channels
	EventChannelBuffer = 16
)

// Request size constants
const (
	// MaxImageBodySize is the maximum accepted JSON body with a base64 image (20MB)
	MaxImageBodySize = 20 << 20
)
