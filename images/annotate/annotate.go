// Package annotate - Draws detection results onto images.
package annotate

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"

	"github.com/nvr-ai/go-yolov5/images"
	"github.com/nvr-ai/go-yolov5/models/postprocess"
	"gocv.io/x/gocv"
)

// BoxThickness is the outline width of a detection box in pixels.
const BoxThickness = 5

// Style holds the text settings for an image size. Larger images get thicker
// text and taller label bars so labels stay legible.
type Style struct {
	TextThickness int
	FontScale     float64
	LabelHeight   int
}

// StyleFor returns the label style for an image of the given size.
func StyleFor(width, height int) Style {
	var s Style
	switch {
	case width < 1000:
		s.TextThickness, s.FontScale = 2, 0.8
	case width < 2000:
		s.TextThickness, s.FontScale = 3, 2
	default:
		s.TextThickness, s.FontScale = 6, 3
	}
	switch {
	case height < 1000:
		s.LabelHeight = 20
	case height < 2000:
		s.LabelHeight = 70
	default:
		s.LabelHeight = 150
	}
	return s
}

// Color returns a stable color for a class id.
func Color(class int) color.RGBA {
	h := fnv.New32a()
	fmt.Fprintf(h, "class-%d", class)
	v := h.Sum32()
	return color.RGBA{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: 255}
}

// Label returns "<name> <score>" for a detection, falling back to the class
// id when no name is known.
func Label(labels []string, class int, score float32) string {
	name := fmt.Sprintf("class %d", class)
	if class >= 0 && class < len(labels) {
		name = labels[class]
	}
	return fmt.Sprintf("%s %.2f", name, score)
}

// PixelBox converts a normalized box to pixel coordinates clipped to the image.
func PixelBox(box images.Rect, width, height int) image.Rectangle {
	w, h := float32(width), float32(height)
	scaled := images.Rect{X1: box.X1 * w, Y1: box.Y1 * h, X2: box.X2 * w, Y2: box.Y2 * h}
	x := scaled.Clip(0, w-1)
	y := scaled.Clip(0, h-1)
	return image.Rect(int(x.X1), int(y.Y1), int(x.X2), int(y.Y2))
}

// labelBar returns the label background for a box. The bar sits above the
// box, or inside its bottom edge when there is no room.
func labelBar(box image.Rectangle, imageHeight, labelHeight int) image.Rectangle {
	y1, y2 := box.Min.Y-labelHeight, box.Min.Y
	if y1 < 0 {
		y1, y2 = box.Max.Y, box.Max.Y+labelHeight
	}
	if y2 > imageHeight {
		y1, y2 = box.Max.Y-labelHeight, box.Max.Y
	}
	return image.Rect(box.Min.X, y1, box.Max.X, y2)
}

// Draw renders each detection as a colored box with a filled label bar.
//
// Arguments:
//   - mat: The BGR image to draw on. It is modified in place.
//   - results: Detections with boxes normalized to [0, 1].
//   - labels: Class names indexed by class id. May be nil.
func Draw(mat *gocv.Mat, results []postprocess.Result, labels []string) {
	width, height := mat.Cols(), mat.Rows()
	style := StyleFor(width, height)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	for _, r := range results {
		c := Color(r.Class)
		box := PixelBox(r.Box, width, height)
		gocv.Rectangle(mat, box, c, BoxThickness)

		bar := labelBar(box, height, style.LabelHeight)
		gocv.Rectangle(mat, bar, c, -1)
		gocv.PutText(mat, Label(labels, r.Class, r.Score), image.Pt(bar.Min.X+5, bar.Max.Y-2),
			gocv.FontHersheySimplex, style.FontScale, white, style.TextThickness)
	}
}
