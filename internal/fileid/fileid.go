// Package fileid derives stable identifiers for inbox files and the sentences read from them.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// FileID returns a stable ID for the given absolute path. Same path always yields the same ID.
func FileID(absolutePath string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return prefix + hex.EncodeToString(hash[:])
}

// SentenceID returns a stable ID for a sentence read from the file with the given ID, so an
// edited file can be re-read without storing its unchanged sentences again.
func SentenceID(fileID, sentence string) string {
	h := sha256.New()
	h.Write([]byte(fileID))
	h.Write([]byte{0})
	h.Write([]byte(sentence))
	return hex.EncodeToString(h.Sum(nil))
}
