package yolov5

import (
	"github.com/nvr-ai/go-yolov5/images"
	"github.com/nvr-ai/go-yolov5/models/postprocess"
)

// XYWH2XYXY converts a (centerX, centerY, width, height) box to corners.
func XYWH2XYXY(b [4]float32) [4]float32 {
	hw, hh := b[2]/2, b[3]/2
	return [4]float32{b[0] - hw, b[1] - hh, b[0] + hw, b[1] + hh}
}

// XYXY2XYWH converts a corner box back to (centerX, centerY, width, height).
func XYXY2XYWH(b [4]float32) [4]float32 {
	w, h := b[2]-b[0], b[3]-b[1]
	return [4]float32{b[0] + w/2, b[1] + h/2, w, h}
}

// ResolveClass returns the best class score and its index. Ties resolve to
// the lowest index. An empty slice yields (0, -1).
func ResolveClass(scores []float32) (float32, int) {
	if len(scores) == 0 {
		return 0, -1
	}
	best, id := scores[0], 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > best {
			best, id = scores[i], i
		}
	}
	return best, id
}

// ToResults converts filtered rows to pixel-space results. The box is
// converted to corners and the score is the best class score; objectness is
// dropped.
func ToResults(rows []float32, featureLen int) []postprocess.Result {
	results := make([]postprocess.Result, 0, len(rows)/featureLen)
	for off := 0; off+featureLen <= len(rows); off += featureLen {
		row := rows[off : off+featureLen]
		score, class := ResolveClass(row[objectnessChannel+1:])
		results = append(results, postprocess.Result{
			Box:   images.RectFromArray(XYWH2XYXY([4]float32{row[0], row[1], row[2], row[3]})),
			Score: score,
			Class: class,
		})
	}
	return results
}
