package yolov5

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// NumLevels is the number of detection scales of a YOLOv5 head.
const NumLevels = 3

// Anchor is a prior box size in input pixels.
type Anchor struct {
	Width  float32 `json:"width"  yaml:"width"`
	Height float32 `json:"height" yaml:"height"`
}

// DefaultStrides returns the P3/P4/P5 strides of the YOLOv5 head, finest first.
func DefaultStrides() []float32 {
	return []float32{8, 16, 32}
}

// DefaultAnchors returns the COCO anchors of the YOLOv5 head, one set per stride.
func DefaultAnchors() [][]Anchor {
	return [][]Anchor{
		{{10, 13}, {16, 30}, {33, 23}},
		{{30, 61}, {62, 45}, {59, 119}},
		{{116, 90}, {156, 198}, {373, 326}},
	}
}

// AnchorTable is the per-level stride and anchor configuration.
type AnchorTable struct {
	Strides [NumLevels]float32
	Anchors [NumLevels][]Anchor
}

// NewAnchorTable copies strides and anchors into a table.
//
// Arguments:
//   - strides: One stride per level, each > 0.
//   - anchors: One non-empty anchor set per level.
//
// Returns:
//   - AnchorTable: The table. It does not share memory with the arguments.
//   - error: ErrInvalidConfig if the level counts or values are wrong.
func NewAnchorTable(strides []float32, anchors [][]Anchor) (AnchorTable, error) {
	var t AnchorTable
	if len(strides) != NumLevels {
		return t, errors.Wrapf(ErrInvalidConfig, "expected %d strides, got %d", NumLevels, len(strides))
	}
	if len(anchors) != NumLevels {
		return t, errors.Wrapf(ErrInvalidConfig, "expected %d anchor sets, got %d", NumLevels, len(anchors))
	}

	for i := 0; i < NumLevels; i++ {
		if strides[i] <= 0 {
			return t, errors.Wrapf(ErrInvalidConfig, "level %d: stride %v must be positive", i, strides[i])
		}
		if len(anchors[i]) == 0 {
			return t, errors.Wrapf(ErrInvalidConfig, "level %d: anchor set is empty", i)
		}
		t.Strides[i] = strides[i]
		t.Anchors[i] = append([]Anchor(nil), anchors[i]...)
	}

	return t, nil
}

// GridSize returns the feature grid dimensions of a level for an input size.
// Dimensions are truncated, so an input that is not a multiple of the stride
// drops the partial cell. Integral strides use integer division.
func (t AnchorTable) GridSize(level, width, height int) (nx, ny int) {
	stride := t.Strides[level]
	if stride == math32.Trunc(stride) {
		s := int(stride)
		return width / s, height / s
	}
	return int(float32(width) / stride), int(float32(height) / stride)
}

// Rows returns the number of prediction rows a level contributes.
func (t AnchorTable) Rows(level, width, height int) int {
	nx, ny := t.GridSize(level, width, height)
	return len(t.Anchors[level]) * nx * ny
}
