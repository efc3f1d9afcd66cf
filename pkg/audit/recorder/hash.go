package recorder

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit"
)

// HashContent returns the hex-encoded SHA-256 of content. Empty content
// hashes to "".
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// VerifyRecord reports whether record's ResultHash matches its ResultJSON.
// A record stored without a result payload has nothing to check and verifies.
func VerifyRecord(record *audit.Record) bool {
	return record.ResultHash == HashContent([]byte(record.ResultJSON))
}
