package annotate

import (
	"crypto/sha256"
	"encoding/hex"

	"gocv.io/x/gocv"
)

// MatChecksum returns a hex SHA-256 of the pixel data of a Mat, or "empty".
// Identical frames give identical checksums.
func MatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	data, err := mat.DataPtrUint8()
	if err != nil {
		return "unreadable"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
