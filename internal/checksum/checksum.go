// Package checksum provides the two digests used by the exporter:
// SHA-256 for content addressing media, and the rolling sort-field sum
// the target application uses for duplicate detection.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first 16 hex characters of the SHA-256 digest,
// enough to content-address media filenames without collisions at
// deck scale.
func Short(data []byte) string {
	return Sum(data)[:16]
}

// SortField computes the duplicate-detection checksum over a note's
// first field: h = h*239 + codepoint, truncated to 32 bits. The
// importer recomputes this exact value, so the algorithm is a wire
// contract, not a tunable.
func SortField(text string) uint32 {
	var h uint32
	for _, r := range text {
		h = h*239 + uint32(r)
	}
	return h
}
