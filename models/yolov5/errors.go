// Package yolov5 - errors returned by the YOLOv5 post-processing engine.
package yolov5

import "github.com/pkg/errors"

var (
	// ErrInvalidInputShape is returned when the raw output tensors do not match
	// the configured model: wrong tensor count, rank, anchor count, grid size,
	// feature length or data type. The call cannot succeed without fixing the input.
	ErrInvalidInputShape = errors.New("invalid input shape")

	// ErrNoDetectionsFound is returned when no prediction passes the confidence
	// threshold. It is an expected outcome for images without objects.
	ErrNoDetectionsFound = errors.New("no detections found")

	// ErrConfigurationNotSet is returned by Detect on an engine that was never
	// configured.
	ErrConfigurationNotSet = errors.New("configuration not set")

	// ErrInvalidConfig is returned when a model configuration is rejected.
	ErrInvalidConfig = errors.New("invalid model config")
)

// IsNoDetections reports whether err means the image simply had no confident
// detections.
func IsNoDetections(err error) bool {
	return errors.Is(err, ErrNoDetectionsFound)
}
