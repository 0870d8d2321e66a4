package yolov5

import (
	"image"

	"github.com/nvr-ai/go-yolov5/images"
)

// Scale holds the per-axis divisors that map pixel boxes into the unit square.
type Scale struct {
	X, Y float32
}

// NewScale returns the divisors for a model input size.
//
// Without a source size the divisors are the input size. With a source size
// and keepRatio the source was padded to a square at the top-left before
// resizing, so each axis is scaled by its share of the padded side; the
// result is relative to the source image rather than the padded canvas.
//
// Arguments:
//   - inputW, inputH: The model input size.
//   - source: The original image size, or the zero point.
//   - keepRatio: Whether the input was letterboxed with PadToSquare.
//
// Returns:
//   - Scale: Positive divisors.
func NewScale(inputW, inputH int, source image.Point, keepRatio bool) Scale {
	s := Scale{X: float32(inputW), Y: float32(inputH)}
	if !keepRatio || source.X <= 0 || source.Y <= 0 || source.X == source.Y {
		return s
	}

	side := float32(max(source.X, source.Y))
	s.X *= float32(source.X) / side
	s.Y *= float32(source.Y) / side
	return s
}

// Normalize divides a pixel box by the scale and clips every coordinate to [0, 1].
func Normalize(box [4]float32, s Scale) [4]float32 {
	r := images.Rect{X1: box[0] / s.X, Y1: box[1] / s.Y, X2: box[2] / s.X, Y2: box[3] / s.Y}
	return r.Clip(0, 1).Array()
}
