package yolov5

import (
	"github.com/nvr-ai/go-yolov5/images"
	"github.com/nvr-ai/go-yolov5/models/postprocess"
)

// Detections is the output of Detect: parallel slices of normalized boxes,
// scores and class ids in selection order.
type Detections struct {
	// Boxes are (x1, y1, x2, y2) in [0, 1].
	Boxes [][4]float32 `json:"boxes" yaml:"boxes"`
	// Scores are the best class scores.
	Scores []float32 `json:"scores" yaml:"scores"`
	// ClassIDs are the best class indices.
	ClassIDs []int `json:"classIds" yaml:"classIds"`
}

// Len returns the number of detections.
func (d *Detections) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Scores)
}

// Results returns the detections as postprocess results.
func (d *Detections) Results() []postprocess.Result {
	out := make([]postprocess.Result, d.Len())
	for i := range out {
		out[i] = postprocess.Result{
			Box:   images.RectFromArray(d.Boxes[i]),
			Score: d.Scores[i],
			Class: d.ClassIDs[i],
		}
	}
	return out
}

func (d *Detections) append(box [4]float32, score float32, class int) {
	d.Boxes = append(d.Boxes, box)
	d.Scores = append(d.Scores, score)
	d.ClassIDs = append(d.ClassIDs, class)
}
