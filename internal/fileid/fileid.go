// Package fileid names library PDFs in the spelling dictionary, so a document's words can
// be replaced or removed when the file on disk changes.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "pdf:"

// FileDocID returns the dictionary document ID of the PDF at path. Equivalent spellings of
// one path (dot segments, doubled separators) share an ID, so re-uploading
// Year_1/Semester_1/graphs.pdf overwrites the words indexed for it.
func FileDocID(path string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return prefix + hex.EncodeToString(sum[:16])
}
