package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// EncodeCID hashes a cid into a short fixed-width hex name, safe for use as
// a filename or a flat storage key regardless of what characters the cid
// contains. 16 hex chars (64 bits) is plenty for a single bin; the clear cid
// is stored inside the entry envelope and verified on read.
func EncodeCID(cid string) string {
	sum := sha256.Sum256([]byte(cid))
	return hex.EncodeToString(sum[:8])
}
