package yolov5

import (
	"image"

	"github.com/nvr-ai/go-yolov5/models/postprocess"
)

// DetectOptions are the per-call detection parameters.
//
// Zero thresholds are taken literally: the zero value keeps every row with
// positive objectness and suppresses any overlapping pair. Start from
// DefaultDetectOptions and override fields instead.
type DetectOptions struct {
	// ConfidenceThreshold is the objectness threshold. Rows must exceed it.
	ConfidenceThreshold float32 `json:"confidenceThreshold" yaml:"confidenceThreshold"`
	// NMS configures suppression.
	NMS postprocess.NMSConfig `json:"nms" yaml:"nms"`
	// SourceSize is the size of the original image. Optional.
	SourceSize image.Point `json:"-" yaml:"-"`
	// KeepRatio tells the normalizer the input was padded to a square.
	KeepRatio bool `json:"keepRatio" yaml:"keepRatio"`
}

// DefaultDetectOptions returns a confidence threshold of 0.25 and a
// class-agnostic IoU threshold of 0.45.
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		ConfidenceThreshold: 0.25,
		NMS:                 *postprocess.DefaultNMSConfig(),
	}
}
