// Package yolov5 - decoding of raw YOLOv5 head outputs.
package yolov5

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Sigmoid is the logistic function 1/(1+e^-x).
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// levelShape is the (anchors, rows, cols, features) layout of one raw output.
type levelShape struct {
	A, H, W, F int
}

// rawLevel validates a raw output tensor and returns its layout and backing data.
// Both (A, H, W, F) and (1, A, H, W, F) layouts are accepted.
func rawLevel(raw *tensor.Dense) (levelShape, []float32, error) {
	var ls levelShape
	if raw == nil {
		return ls, nil, errors.Wrap(ErrInvalidInputShape, "tensor is nil")
	}
	if raw.Dtype() != tensor.Float32 {
		return ls, nil, errors.Wrapf(ErrInvalidInputShape, "dtype %v, want float32", raw.Dtype())
	}

	shape := raw.Shape()
	switch len(shape) {
	case 5:
		if shape[0] != 1 {
			return ls, nil, errors.Wrapf(ErrInvalidInputShape, "batch size %d, want 1", shape[0])
		}
		shape = shape[1:]
	case 4:
	default:
		return ls, nil, errors.Wrapf(ErrInvalidInputShape, "rank %d shape %v, want (A, H, W, F)", len(shape), shape)
	}
	ls = levelShape{A: shape[0], H: shape[1], W: shape[2], F: shape[3]}

	if raw.IsMaterializable() {
		materialized, ok := raw.Materialize().(*tensor.Dense)
		if !ok {
			return ls, nil, errors.Wrap(ErrInvalidInputShape, "tensor view cannot be materialized")
		}
		raw = materialized
	}
	data, ok := raw.Data().([]float32)
	if !ok || len(data) != ls.A*ls.H*ls.W*ls.F {
		return ls, nil, errors.Wrapf(ErrInvalidInputShape, "backing data does not match shape %v", raw.Shape())
	}

	return ls, data, nil
}

// DecodeLevel turns the raw predictions of one level into decoded rows.
//
// For every anchor a, grid row r and grid column c (iterated in that order,
// which is the row-major order of the raw tensor) the F channels of the
// prediction are decoded as:
//
//	s        = sigmoid(raw)                          all channels
//	x, y     = (s*2 - 0.5 + grid[r][c]) * stride     channels 0, 1
//	w, h     = (s*2)^2 * anchor[a]                   channels 2, 3
//	obj, cls = s                                     channels 4..F-1
//
// The raw tensor is read only; the rows are written to a new buffer.
//
// Arguments:
//   - raw: The level output, shaped (A, H, W, F) or (1, A, H, W, F).
//   - grid: The level grid from MakeGrid; its size must equal (W, H).
//   - anchors: The level anchors; their count must equal A.
//   - stride: The level stride.
//   - numClasses: The class count; F must equal numClasses+5.
//
// Returns:
//   - []float32: A*H*W rows of F channels each, flattened.
//   - error: ErrInvalidInputShape if the tensor does not match.
func DecodeLevel(raw *tensor.Dense, grid *tensor.Dense, anchors []Anchor, stride float32, numClasses int) ([]float32, error) {
	ls, data, err := rawLevel(raw)
	if err != nil {
		return nil, err
	}
	if ls.F != numClasses+5 {
		return nil, errors.Wrapf(ErrInvalidInputShape, "feature length %d, want %d", ls.F, numClasses+5)
	}
	if ls.A != len(anchors) {
		return nil, errors.Wrapf(ErrInvalidInputShape, "%d anchors, want %d", ls.A, len(anchors))
	}
	nx, ny := gridDims(grid)
	if ls.W != nx || ls.H != ny {
		return nil, errors.Wrapf(ErrInvalidInputShape, "grid %dx%d, want %dx%d", ls.W, ls.H, nx, ny)
	}
	offsets, ok := grid.Data().([]float32)
	if !ok {
		return nil, errors.New("grid is not float32")
	}

	out := make([]float32, len(data))
	for a := 0; a < ls.A; a++ {
		aw, ah := anchors[a].Width, anchors[a].Height
		for r := 0; r < ls.H; r++ {
			for c := 0; c < ls.W; c++ {
				off := ((a*ls.H+r)*ls.W + c) * ls.F
				src := data[off : off+ls.F]
				dst := out[off : off+ls.F]
				for k, v := range src {
					dst[k] = Sigmoid(v)
				}

				g := (r*ls.W + c) * 2
				dst[0] = (dst[0]*2 - 0.5 + offsets[g]) * stride
				dst[1] = (dst[1]*2 - 0.5 + offsets[g+1]) * stride

				w := dst[2] * 2
				h := dst[3] * 2
				dst[2] = w * w * aw
				dst[3] = h * h * ah
			}
		}
	}

	return out, nil
}

// MergeLevels concatenates decoded level rows in level order.
func MergeLevels(levels ...[]float32) []float32 {
	n := 0
	for _, l := range levels {
		n += len(l)
	}
	merged := make([]float32, 0, n)
	for _, l := range levels {
		merged = append(merged, l...)
	}
	return merged
}
