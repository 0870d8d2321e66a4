// Package models - Definitions for model families and output class sets.
package models

// ModelFamily is the family of models, which also names the label set used to
// interpret class indices.
type ModelFamily string

const (
	// ModelFamilyCOCO is the 80 COCO classes plus a background class at index 0.
	ModelFamilyCOCO ModelFamily = "coco"
	// ModelFamilyYOLO is the 80 COCO classes without a background class.
	ModelFamilyYOLO ModelFamily = "yolo"
)
