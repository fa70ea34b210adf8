package facematch

import "github.com/kozaktomas/facewatch/internal/constants"

// BoxFromCorners converts an [x1, y1, x2, y2] pixel bbox to a BoundingBox.
// Returns false for malformed input.
func BoxFromCorners(bbox []float64) (BoundingBox, bool) {
	if len(bbox) != 4 {
		return BoundingBox{}, false
	}
	return BoundingBox{
		X:      bbox[0],
		Y:      bbox[1],
		Width:  bbox[2] - bbox[0],
		Height: bbox[3] - bbox[1],
	}, true
}

// Corners returns the box as [x1, y1, x2, y2].
func (b BoundingBox) Corners() []float64 {
	return []float64{b.X, b.Y, b.X + b.Width, b.Y + b.Height}
}

// ComputeIoU calculates Intersection over Union between two boxes.
func ComputeIoU(a, b BoundingBox) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.Width*a.Height + b.Width*b.Height - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}

// Relative converts the box to 0-1 coordinates of a width x height frame.
// Unknown frame dimensions leave the box unchanged.
func (b BoundingBox) Relative(width, height int) BoundingBox {
	if width <= 0 || height <= 0 {
		return b
	}
	return BoundingBox{
		X:      b.X / float64(width),
		Y:      b.Y / float64(height),
		Width:  b.Width / float64(width),
		Height: b.Height / float64(height),
	}
}

// PlaceholderBox returns the fixed-size box centered in the frame that is
// drawn when the backend reports a face without coordinates.
func PlaceholderBox(frameWidth, frameHeight int) BoundingBox {
	w := float64(constants.PlaceholderBoxWidth)
	h := float64(constants.PlaceholderBoxHeight)
	return BoundingBox{
		X:      (float64(frameWidth) - w) / 2,
		Y:      (float64(frameHeight) - h) / 2,
		Width:  w,
		Height: h,
	}
}
