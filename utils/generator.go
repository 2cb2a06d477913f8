package utils

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NewStorageKey generates an opaque blob-store key for an uploaded file.
// The original extension is kept so stored objects stay recognizable; the
// rest of the name never reaches storage.
func NewStorageKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return uuid.NewString() + ext
}
