// Package fileid derives stable knowledge-document IDs for files in the knowledge directories.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

const prefix = "policy:file:"

// Prefix returns the ID prefix shared by every chunk of the file at absolutePath.
func Prefix(absolutePath string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return prefix + hex.EncodeToString(sum[:8])
}

// ChunkID returns the ID of the n-th chunk of the file.
func ChunkID(absolutePath string, n int) string {
	return fmt.Sprintf("%s:%d", Prefix(absolutePath), n)
}
