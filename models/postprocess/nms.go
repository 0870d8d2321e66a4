// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-yolov5/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// Overlap threshold for suppression. Pairs with IoU strictly above it are suppressed.
	IoUThreshold float32 `json:"iouThreshold" yaml:"iouThreshold"`
	// If true, suppress only within same class.
	ClassAware bool `json:"classAware" yaml:"classAware"`
	// Upper bound on kept detections. Zero keeps everything that survives.
	MaxDetections int `json:"maxDetections" yaml:"maxDetections"`
}

// DefaultNMSConfig returns the class-agnostic configuration with an IoU
// threshold of 0.45.
func DefaultNMSConfig() *NMSConfig {
	return &NMSConfig{IoUThreshold: 0.45}
}

// SortByScore returns the indices of results ordered by descending score.
// Equal scores keep their original relative order, so the lower index wins.
//
// Arguments:
//   - results: The results to rank. The slice is not reordered.
//
// Returns:
//   - []int: Indices into results, highest score first.
func SortByScore(results []Result) []int {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return results[order[a]].Score > results[order[b]].Score
	})
	return order
}

// ApplyGreedyNMS performs greedy Non-Maximum Suppression with the
// pixel-inclusive IoU of the YOLOv5 reference.
//
// The algorithm keeps an order list of candidate indices sorted by descending
// score. Each round takes the head of the list, keeps it, and retains only the
// remaining candidates whose IoU with the head is <= the threshold. It stops
// when the list is empty.
//
// Boxes must be in pixel units; see images.CalculatePixelIoU.
//
// Arguments:
//   - results: Unsorted detections in pixel space.
//   - config: NMS configuration. A nil config uses DefaultNMSConfig.
//
// Returns:
//   - The kept detections in selection order (descending score). If no
//     detections are provided, returns nil.
func ApplyGreedyNMS(results []Result, config *NMSConfig) []Result {
	n := len(results)
	if n == 0 {
		return nil
	}
	if config == nil {
		config = DefaultNMSConfig()
	}

	order := SortByScore(results)
	kept := make([]Result, 0, n)

	for len(order) > 0 {
		anchor := results[order[0]]
		kept = append(kept, anchor)
		if config.MaxDetections > 0 && len(kept) == config.MaxDetections {
			break
		}

		// Filter the tail in place; writes never overtake reads.
		rest := order[1:]
		next := rest[:0]
		for _, j := range rest {
			if config.ClassAware && results[j].Class != anchor.Class {
				next = append(next, j)
				continue
			}
			if images.CalculatePixelIoU(anchor.Box, results[j].Box) <= config.IoUThreshold {
				next = append(next, j)
			}
		}
		order = next
	}

	return kept
}
