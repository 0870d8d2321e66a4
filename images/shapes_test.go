package images

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the continuous IoU against known cases.
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
	}{
		{"Identical rectangles", Rect{0, 0, 100, 100}, Rect{0, 0, 100, 100}, 1.0},
		{"No overlap", Rect{0, 0, 100, 100}, Rect{200, 200, 300, 300}, 0.0},
		{"Touching edges", Rect{0, 0, 100, 100}, Rect{100, 0, 200, 100}, 0.0},
		// intersection=2500, union=17500
		{"Half overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 150, 150}, 1.0 / 7.0},
		{"One inside other", Rect{0, 0, 100, 100}, Rect{25, 25, 75, 75}, 0.25},
		{"Zero area", Rect{0, 0, 0, 0}, Rect{0, 0, 100, 100}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.InDelta(t, tt.expected, result, 1e-4)

			// IoU(A, B) must equal IoU(B, A).
			assert.InDelta(t, result, CalculateIoU(tt.r2, tt.r1), 1e-6)
		})
	}
}

// TestIoU_vs_ImageRectangle compares integral boxes against image.Rectangle.
func TestIoU_vs_ImageRectangle(t *testing.T) {
	testCases := []struct {
		name string
		r1   image.Rectangle
		r2   image.Rectangle
	}{
		{"No overlap", image.Rect(0, 0, 100, 100), image.Rect(200, 200, 300, 300)},
		{"Partial overlap", image.Rect(0, 0, 100, 100), image.Rect(50, 50, 150, 150)},
		{"Full overlap", image.Rect(50, 50, 150, 150), image.Rect(50, 50, 150, 150)},
		{"Large boxes", image.Rect(0, 0, 1920, 1080), image.Rect(960, 540, 1920, 1080)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateIoU(fromImageRect(tc.r1), fromImageRect(tc.r2))
			assert.InDelta(t, imageRectangleIoU(tc.r1, tc.r2), got, 1e-4)
		})
	}
}

func TestPixelIoU(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
	}{
		{"Identical", Rect{0, 0, 9, 9}, Rect{0, 0, 9, 9}, 1.0},
		// Each box covers 10x10 pixels, they share one column of 10 pixels.
		{"Shared edge", Rect{0, 0, 9, 9}, Rect{9, 0, 18, 9}, 10.0 / 190.0},
		{"Disjoint", Rect{0, 0, 9, 9}, Rect{20, 20, 29, 29}, 0.0},
		// Gap of exactly one pixel: min(x2)-max(x1)+1 == 0.
		{"One pixel gap", Rect{0, 0, 9, 9}, Rect{10, 0, 19, 9}, 0.0},
		// 5x5 box inside a 10x10 box: 25 / 100.
		{"Nested", Rect{0, 0, 9, 9}, Rect{2, 2, 6, 6}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CalculatePixelIoU(tt.r1, tt.r2), 1e-6)
			assert.InDelta(t, tt.expected, CalculatePixelIoU(tt.r2, tt.r1), 1e-6)
		})
	}
}

func TestRect_ClipAndArea(t *testing.T) {
	r := Rect{X1: -0.5, Y1: 0.25, X2: 1.5, Y2: 2}
	assert.Equal(t, Rect{X1: 0, Y1: 0.25, X2: 1, Y2: 1}, r.Clip(0, 1))

	assert.Equal(t, float32(100), Rect{0, 0, 9, 9}.PixelArea())
	assert.Equal(t, [4]float32{1, 2, 3, 4}, Rect{1, 2, 3, 4}.Array())
	assert.Equal(t, Rect{1, 2, 3, 4}, RectFromArray([4]float32{1, 2, 3, 4}))
}

func fromImageRect(r image.Rectangle) Rect {
	return Rect{
		X1: float32(r.Min.X),
		Y1: float32(r.Min.Y),
		X2: float32(r.Max.X),
		Y2: float32(r.Max.Y),
	}
}

// imageRectangleIoU implements IoU using Go's standard library image.Rectangle.
func imageRectangleIoU(r1, r2 image.Rectangle) float32 {
	intersect := r1.Intersect(r2)
	if intersect.Empty() {
		return 0.0
	}

	intersectArea := intersect.Dx() * intersect.Dy()
	union := r1.Dx()*r1.Dy() + r2.Dx()*r2.Dy() - intersectArea

	return float32(intersectArea) / float32(union)
}
