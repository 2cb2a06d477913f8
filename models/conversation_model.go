package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the canonical chat between an unordered pair of users.
// ParticipantA is always the smaller UUID (bytewise) so the pair key is
// stable regardless of who initiated. PairKey carries the kind tag and is
// unique, which makes first-resolution races collapse onto a single row.
type Conversation struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ParticipantA uuid.UUID `gorm:"not null;index" json:"participant_a"`
	ParticipantB uuid.UUID `gorm:"not null;index" json:"participant_b"`
	Kind         string    `gorm:"size:20;not null" json:"kind"`
	PairKey      string    `gorm:"size:100;not null;unique" json:"-"`

	// LastSeq is the sequence cursor for the conversation. It only moves
	// forward, even across a clear, so sequence numbers never restart.
	LastSeq int64 `gorm:"not null;default:0" json:"last_seq"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Other returns the participant that is not the given user, or uuid.Nil if
// the user is not part of the conversation.
func (c *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if userID == c.ParticipantA {
		return c.ParticipantB
	}
	if userID == c.ParticipantB {
		return c.ParticipantA
	}
	return uuid.Nil
}

// HasParticipant reports whether the user is one of the two participants.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return userID == c.ParticipantA || userID == c.ParticipantB
}
