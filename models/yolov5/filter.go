package yolov5

import "github.com/pkg/errors"

// objectnessChannel is the index of the objectness score within a row.
const objectnessChannel = 4

// FilterByObjectness keeps the rows whose objectness strictly exceeds the
// threshold. Relative order is preserved.
//
// Arguments:
//   - rows: Flattened decoded rows, featureLen channels each.
//   - featureLen: The number of channels per row.
//   - threshold: The objectness threshold.
//
// Returns:
//   - []float32: The surviving rows, flattened, in a new buffer.
//   - error: ErrNoDetectionsFound if no row survives.
func FilterByObjectness(rows []float32, featureLen int, threshold float32) ([]float32, error) {
	if featureLen <= objectnessChannel || len(rows)%featureLen != 0 {
		return nil, errors.Wrapf(ErrInvalidInputShape, "%d values do not split into rows of %d", len(rows), featureLen)
	}

	var kept []float32
	for off := 0; off < len(rows); off += featureLen {
		row := rows[off : off+featureLen]
		if row[objectnessChannel] > threshold {
			kept = append(kept, row...)
		}
	}
	if len(kept) == 0 {
		return nil, errors.Wrapf(ErrNoDetectionsFound, "no objectness above %v", threshold)
	}

	return kept, nil
}
