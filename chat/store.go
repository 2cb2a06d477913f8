package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jdvalenciag/emprende_hub/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// AttachmentInput is the already-validated, already-stored attachment that
// Append commits together with the message row.
type AttachmentInput struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
}

// Store is the durable message log. It owns sequence assignment and
// read-state; everything it guarantees is backed by the database, never by
// the push layer.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get loads a conversation by ID.
func (s *Store) Get(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).First(&conv, "id = ?", conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser returns the user's conversations, most recently active first.
func (s *Store) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("updated_at desc").
		Find(&convs).Error
	return convs, err
}

// Append assigns the next sequence number and persists the message (and its
// attachment row) atomically. The FOR UPDATE lock on the conversation row
// serializes sequence assignment per conversation; appends to different
// conversations do not contend.
func (s *Store) Append(ctx context.Context, conversationID, sender uuid.UUID, body string, att *AttachmentInput) (*models.Message, error) {
	if strings.TrimSpace(body) == "" && att == nil {
		return nil, ErrEmptyMessage
	}

	var msg *models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&conv, "id = ?", conversationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConversationNotFound
			}
			return err
		}
		if !conv.HasParticipant(sender) {
			return ErrNotParticipant
		}

		conv.LastSeq++
		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Update("last_seq", conv.LastSeq).Error; err != nil {
			return err
		}

		m := models.Message{
			ConversationID: conv.ID,
			Seq:            conv.LastSeq,
			SenderID:       sender,
			Body:           body,
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}

		if att != nil {
			a := models.Attachment{
				MessageID:   m.ID,
				FileName:    att.FileName,
				ContentType: att.ContentType,
				SizeBytes:   att.SizeBytes,
				StorageKey:  att.StorageKey,
			}
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
			m.Attachment = &a
		}

		msg = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkRead flags every message up to uptoSeq that was sent by someone other
// than reader. Already-read rows are excluded, so repeating the call is a
// no-op.
func (s *Store) MarkRead(ctx context.Context, conversationID, reader uuid.UUID, uptoSeq int64) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND seq <= ? AND sender_id <> ? AND read = ?",
			conversationID, uptoSeq, reader, false).
		Updates(map[string]interface{}{"read": true, "read_at": now}).Error
}

// ListSince returns messages strictly after afterSeq in ascending sequence
// order, bounded by limit. Serves both initial history (afterSeq = 0) and
// reconnect catch-up.
func (s *Store) ListSince(ctx context.Context, conversationID uuid.UUID, afterSeq int64, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Preload("Attachment").
		Where("conversation_id = ? AND seq > ?", conversationID, afterSeq).
		Order("seq asc").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// UnreadCount is always derived from the log, never cached.
func (s *Store) UnreadCount(ctx context.Context, conversationID, viewer uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read = ?", conversationID, viewer, false).
		Count(&count).Error
	return count, err
}

// Clear deletes every message and attachment row of the conversation while
// preserving the conversation itself and its sequence cursor. It returns
// the storage keys of the deleted attachments so the caller can purge the
// blobs. Not undoable.
func (s *Store) Clear(ctx context.Context, conversationID uuid.UUID) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msgIDs := func() *gorm.DB {
			return tx.Session(&gorm.Session{NewDB: true}).
				Model(&models.Message{}).
				Select("id").
				Where("conversation_id = ?", conversationID)
		}

		if err := tx.Model(&models.Attachment{}).
			Where("message_id IN (?)", msgIDs()).
			Pluck("storage_key", &keys).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", msgIDs()).
			Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Where("conversation_id = ?", conversationID).
			Delete(&models.Message{}).Error
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
