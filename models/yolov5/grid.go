package yolov5

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// MakeGrid builds the cell offset grid of one detection level.
//
// The grid has shape (ny, nx, 1, 2). Cell (row r, col c) holds (c, r): the x
// offset comes first. The singleton axis lines up with the anchor axis of
// the predictions.
//
// Arguments:
//   - nx: Number of grid columns, the input width divided by the stride.
//   - ny: Number of grid rows, the input height divided by the stride.
//
// Returns:
//   - *tensor.Dense: A float32 tensor. Identical arguments give identical grids.
//   - error: ErrInvalidConfig if either dimension is below 1.
func MakeGrid(nx, ny int) (*tensor.Dense, error) {
	if nx < 1 || ny < 1 {
		return nil, errors.Wrapf(ErrInvalidConfig, "grid size %dx%d", nx, ny)
	}

	grid := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(ny, nx, 1, 2),
	)

	for r := 0; r < ny; r++ {
		for c := 0; c < nx; c++ {
			if err := grid.SetAt(float32(c), r, c, 0, 0); err != nil {
				return nil, errors.Wrapf(err, "set grid x at (%d, %d)", r, c)
			}
			if err := grid.SetAt(float32(r), r, c, 0, 1); err != nil {
				return nil, errors.Wrapf(err, "set grid y at (%d, %d)", r, c)
			}
		}
	}

	return grid, nil
}

// gridDims returns the (nx, ny) size of a grid built by MakeGrid.
func gridDims(grid *tensor.Dense) (nx, ny int) {
	shape := grid.Shape()
	return shape[1], shape[0]
}
