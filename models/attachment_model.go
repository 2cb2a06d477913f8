package models

import (
	"time"

	"github.com/google/uuid"
)

// Content-type classifications derived from the file extension.
const (
	ContentImage       = "image"
	ContentDocument    = "document"
	ContentSpreadsheet = "spreadsheet"
	ContentOther       = "other"
)

// Attachment belongs to exactly one message. StorageKey is the opaque
// reference into the blob store; the original filename and classification
// are kept for download headers.
type Attachment struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MessageID   uuid.UUID `gorm:"not null;unique" json:"message_id"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	ContentType string    `gorm:"size:20;not null" json:"content_type"`
	SizeBytes   int64     `gorm:"not null" json:"size_bytes"`
	StorageKey  string    `gorm:"size:255;not null;index" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
