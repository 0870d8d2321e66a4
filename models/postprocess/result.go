// Package postprocess - Postprocessing utilities for models.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-yolov5/images"
)

// Result represents a single detection result.
type Result struct {
	// The bounding box of the result.
	Box images.Rect `json:"box" yaml:"box"`
	// The confidence score of the result.
	Score float32 `json:"score" yaml:"score"`
	// The predicted class index of the result.
	Class int `json:"class" yaml:"class"`
}

// String formats the result for display.
func (r Result) String() string {
	return fmt.Sprintf("class=%d score=%.4f box=(%.4f, %.4f, %.4f, %.4f)",
		r.Class, r.Score, r.Box.X1, r.Box.Y1, r.Box.X2, r.Box.Y2)
}
