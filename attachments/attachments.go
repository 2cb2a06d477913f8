// Package attachments validates message attachments against the size and
// extension policy and persists their bytes behind a BlobStore. Validation
// runs before any bytes are stored, and bytes are stored before the message
// row commits the reference; a failed send deletes the blob and the orphan
// sweep catches anything the delete missed.
package attachments

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jdvalenciag/emprende_hub/models"
)

// ErrAttachmentRejected means the file violates the size or extension
// policy. Permanent, the user must correct the input.
var ErrAttachmentRejected = errors.New("attachments: file rejected by policy")

// ErrNotFound means the storage key does not resolve to a blob.
var ErrNotFound = errors.New("attachments: blob not found")

// DefaultMaxSizeBytes caps attachments at 10 MiB unless configured.
const DefaultMaxSizeBytes = 10 << 20

// classifications maps permitted extensions to a content classification.
var classifications = map[string]string{
	".jpg":  models.ContentImage,
	".jpeg": models.ContentImage,
	".png":  models.ContentImage,
	".gif":  models.ContentImage,
	".webp": models.ContentImage,
	".pdf":  models.ContentDocument,
	".doc":  models.ContentDocument,
	".docx": models.ContentDocument,
	".txt":  models.ContentDocument,
	".ppt":  models.ContentDocument,
	".pptx": models.ContentDocument,
	".xls":  models.ContentSpreadsheet,
	".xlsx": models.ContentSpreadsheet,
	".csv":  models.ContentSpreadsheet,
	".zip":  models.ContentOther,
}

// Policy is the attachment acceptance policy. The allowlist is fixed; the
// size cap comes from configuration.
type Policy struct {
	MaxSizeBytes int64
}

func NewPolicy(maxSizeBytes int64) Policy {
	if maxSizeBytes <= 0 {
		maxSizeBytes = DefaultMaxSizeBytes
	}
	return Policy{MaxSizeBytes: maxSizeBytes}
}

// Classify derives the content classification from the filename extension.
// Unlisted extensions classify as empty.
func Classify(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return classifications[ext]
}

// Validate checks the file against the policy and returns its content
// classification. It must pass before any bytes are stored or any message
// row is created.
func (p Policy) Validate(filename string, size int64) (string, error) {
	if size <= 0 || size > p.MaxSizeBytes {
		return "", ErrAttachmentRejected
	}
	class := Classify(filename)
	if class == "" {
		return "", ErrAttachmentRejected
	}
	return class, nil
}

// BlobInfo describes one stored blob, used by the orphan sweep.
type BlobInfo struct {
	Key       string
	CreatedAt time.Time
}

// BlobStore is the raw byte persistence behind attachments. Implementations
// must make Get on a stored key return byte-identical content until Delete.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]BlobInfo, error)
}
