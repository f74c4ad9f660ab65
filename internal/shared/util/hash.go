package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashOwner maps a principal ("user:<id>" or "guest:<id>") to the hex
// directory name its uploads live under, so object keys never carry raw ids.
func HashOwner(principal string) string {
	sum := sha256.Sum256([]byte("owner\x00" + principal))
	return hex.EncodeToString(sum[:])
}
