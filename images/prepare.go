package images

import (
	"image"
	"image/draw"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// PrepareInput converts an image into the model input tensor.
//
// The image is optionally padded to a square (the source is anchored top-left
// and the padding is black), resized to width x height, scaled to [0, 1] and
// laid out as [1, 3, height, width] in RGB channel order.
//
// Arguments:
//   - img: The source image.
//   - width: The model input width.
//   - height: The model input height.
//   - keepRatio: Pad non-square images to a square before resizing so the
//     aspect ratio survives the resize.
//
// Returns:
//   - *tensor.Dense: A float32 tensor of shape [1, 3, height, width].
//   - error: An error if the image is nil or the target size is invalid.
func PrepareInput(img image.Image, width, height int, keepRatio bool) (*tensor.Dense, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid input size %dx%d", width, height)
	}

	if keepRatio {
		img = PadToSquare(img)
	}

	img = resize.Resize(uint(width), uint(height), img, resize.Bilinear)

	channelSize := width * height
	data := make([]float32, 3*channelSize)
	red := data[0:channelSize]
	green := data[channelSize : channelSize*2]
	blue := data[channelSize*2 : channelSize*3]

	bounds := img.Bounds()
	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}

	return tensor.New(
		tensor.WithShape(1, 3, height, width),
		tensor.WithBacking(data),
	), nil
}

// PadToSquare returns img placed at the top-left of a black square canvas whose
// side is the larger of the image dimensions. Square images are returned as is.
func PadToSquare(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return img
	}

	side := max(w, h)
	canvas := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(canvas, image.Rect(0, 0, w, h), img, b.Min, draw.Src)
	return canvas
}
