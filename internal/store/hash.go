package store

import (
	"crypto/sha256"
	"fmt"
)

// HashContent returns the hex SHA-256 of a file's content, the key for
// change detection.
func HashContent(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}
