package yolov5

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// rawOutput builds a (1, a, h, w, f) tensor filled with fill.
func rawOutput(a, h, w, f int, fill float32) *tensor.Dense {
	data := make([]float32, a*h*w*f)
	for i := range data {
		data[i] = fill
	}
	return tensor.New(tensor.WithShape(1, a, h, w, f), tensor.WithBacking(data))
}

// setRow writes a prediction row at (anchor, row, col).
func setRow(t *testing.T, raw *tensor.Dense, a, r, c int, values ...float32) {
	t.Helper()
	shape := raw.Shape()
	h, w, f := shape[2], shape[3], shape[4]
	require.Len(t, values, f)
	data := raw.Data().([]float32)
	copy(data[((a*h+r)*w+c)*f:], values)
}

// tinyConfig is a 16x16 single-class model with one anchor per level and a
// 2x2 grid on every level.
func tinyConfig() Config {
	anchor := []Anchor{{Width: 10, Height: 13}}
	return Config{
		Name:        "tiny",
		InputWidth:  16,
		InputHeight: 16,
		NumClasses:  1,
		Strides:     []float32{8, 8, 8},
		Anchors:     [][]Anchor{anchor, anchor, anchor},
	}
}

// tinyOutputs returns three tiny outputs where nothing passes any threshold.
func tinyOutputs() []*tensor.Dense {
	return []*tensor.Dense{
		rawOutput(1, 2, 2, 6, -20),
		rawOutput(1, 2, 2, 6, -20),
		rawOutput(1, 2, 2, 6, -20),
	}
}
