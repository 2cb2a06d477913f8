package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is one entry in a conversation's log. Seq is assigned by the
// store inside the append transaction and is strictly increasing and
// gap-free per conversation. Body, sender and seq are immutable after
// creation; only the read flag and timestamp ever change.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID `gorm:"not null;uniqueIndex:idx_conversation_seq" json:"conversation_id"`
	Seq            int64     `gorm:"not null;uniqueIndex:idx_conversation_seq" json:"seq"`
	SenderID       uuid.UUID `gorm:"not null" json:"sender_id"`
	Body           string    `gorm:"type:text" json:"body"`

	Read   bool       `gorm:"not null;default:false" json:"read"`
	ReadAt *time.Time `json:"read_at"`

	Attachment *Attachment `gorm:"foreignkey:MessageID" json:"attachment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
