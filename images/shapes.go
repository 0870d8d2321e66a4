// Package images - Geometry and image preparation utilities for detection.
package images

import "github.com/chewxy/math32"

// Rect is a lightweight bounding box in corner encoding.
//
// Coordinates are float32 so the same type carries boxes in model-input pixel
// space (before normalization) and in the unit square (after normalization).
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Array returns the box as an (x1, y1, x2, y2) array.
func (r Rect) Array() [4]float32 {
	return [4]float32{r.X1, r.Y1, r.X2, r.Y2}
}

// RectFromArray builds a Rect from an (x1, y1, x2, y2) array.
func RectFromArray(a [4]float32) Rect {
	return Rect{X1: a[0], Y1: a[1], X2: a[2], Y2: a[3]}
}

// Width returns X2 - X1.
func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

// Height returns Y2 - Y1.
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// PixelArea returns the area of the box under the pixel-inclusive convention,
// where a box spanning x1..x2 covers x2-x1+1 pixels.
func (r Rect) PixelArea() float32 {
	return (r.X2 - r.X1 + 1) * (r.Y2 - r.Y1 + 1)
}

// CalculateIoU measures the overlap of two boxes as a continuous region:
//
//	IoU = Area of Intersection / Area of Union
//
// A value of 1.0 means the boxes are identical and 0.0 means they do not
// overlap. Boxes that only touch along an edge have no intersection.
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0. Degenerate boxes yield 0.0.
func CalculateIoU(r, o Rect) float32 {
	interW := math32.Min(r.X2, o.X2) - math32.Max(r.X1, o.X1)
	interH := math32.Min(r.Y2, o.Y2) - math32.Max(r.Y1, o.Y1)
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	// Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
	unionArea := r.Width()*r.Height() + o.Width()*o.Height() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return interArea / unionArea
}

// CalculatePixelIoU measures the overlap of two boxes under the
// pixel-inclusive convention used by the YOLOv5 reference post-processing.
//
// **Why the "+1"**
//
// The reference treats box corners as pixel indices, so a box from x1=0 to
// x2=9 covers ten pixels, not nine. Both the areas and the intersection extent
// therefore add one on each axis:
//
//	area  = (x2 - x1 + 1) * (y2 - y1 + 1)
//	w     = max(0, min(x2a, x2b) - max(x1a, x1b) + 1)
//	h     = max(0, min(y2a, y2b) - max(y1a, y1b) + 1)
//	IoU   = w*h / (areaA + areaB - w*h)
//
// The convention is scale dependent: boxes must be in input pixel units when
// this is called, which is why suppression runs before normalization.
//
// Boxes that share an edge (x2a == x1b) overlap by one pixel column here,
// unlike CalculateIoU.
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float32: The pixel-inclusive IoU. The division is not guarded, so
//     degenerate inputs follow IEEE-754 semantics exactly like the reference.
func CalculatePixelIoU(r, o Rect) float32 {
	w := math32.Max(0, math32.Min(r.X2, o.X2)-math32.Max(r.X1, o.X1)+1)
	h := math32.Max(0, math32.Min(r.Y2, o.Y2)-math32.Max(r.Y1, o.Y1)+1)
	inter := w * h
	return inter / (r.PixelArea() + o.PixelArea() - inter)
}

// Clip returns the box with every coordinate clamped to [lo, hi].
func (r Rect) Clip(lo, hi float32) Rect {
	return Rect{
		X1: clamp(r.X1, lo, hi),
		Y1: clamp(r.Y1, lo, hi),
		X2: clamp(r.X2, lo, hi),
		Y2: clamp(r.Y2, lo, hi),
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
