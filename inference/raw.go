package inference

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ReadRawTensor reads a headerless little-endian float32 file, the format the
// reference tooling dumps model inputs and outputs in.
//
// Arguments:
//   - path: The file path.
//   - shape: The tensor shape. Empty means a vector of every value in the file.
//
// Returns:
//   - *tensor.Dense: The tensor.
//   - error: An error if the file size does not match the shape.
func ReadRawTensor(path string, shape ...int) (*tensor.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open raw tensor %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat raw tensor %s", path)
	}
	if info.Size()%4 != 0 {
		return nil, errors.Errorf("raw tensor %s has %d bytes, not a multiple of 4", path, info.Size())
	}

	t, err := DecodeRawTensor(bufio.NewReader(f), int(info.Size()/4), shape...)
	return t, errors.Wrapf(err, "raw tensor %s", path)
}

// DecodeRawTensor reads n little-endian float32 values from r.
func DecodeRawTensor(r io.Reader, n int, shape ...int) (*tensor.Dense, error) {
	if len(shape) == 0 {
		shape = []int{n}
	}
	size := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, errors.Errorf("invalid dimension in shape %v", shape)
		}
		size *= d
	}
	if size != n {
		return nil, errors.Errorf("%d values do not fill shape %v", n, shape)
	}

	data := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, errors.Wrap(err, "decode float32 values")
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)), nil
}

// WriteRawTensor writes the tensor values as little-endian float32.
func WriteRawTensor(path string, t *tensor.Dense) error {
	data, ok := t.Data().([]float32)
	if !ok {
		return errors.Errorf("tensor is %v, want float32", t.Dtype())
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create raw tensor %s", path)
	}
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, data); err != nil {
		f.Close()
		return errors.Wrapf(err, "write raw tensor %s", path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "flush raw tensor %s", path)
	}
	return f.Close()
}
