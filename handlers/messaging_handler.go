package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strconv"
	"time"

	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/jdvalenciag/emprende_hub/attachments"
	"github.com/jdvalenciag/emprende_hub/chat"
	config "github.com/jdvalenciag/emprende_hub/configs"
	"github.com/jdvalenciag/emprende_hub/metrics"
	"github.com/jdvalenciag/emprende_hub/models"
	"github.com/jdvalenciag/emprende_hub/utils"
	"github.com/jdvalenciag/emprende_hub/websocket"
)

// Wired once from main before the routes are registered.
var (
	Hub                  *websocket.Hub
	Blob                 attachments.BlobStore
	AttachmentPolicy     attachments.Policy
	MessageStore         *chat.Store
	ConversationResolver *chat.Resolver
)

func InitMessaging(hub *websocket.Hub, blob attachments.BlobStore, policy attachments.Policy, store *chat.Store, resolver *chat.Resolver) {
	Hub = hub
	Blob = blob
	AttachmentPolicy = policy
	MessageStore = store
	ConversationResolver = resolver
}

const sendAttempts = 3

func currentUserID(c *fiber.Ctx) uuid.UUID {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))
	return userID
}

func chatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, chat.ErrInvalidKind):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unsupported conversation kind"})
	case errors.Is(err, chat.ErrEmptyMessage):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message needs a body or an attachment"})
	case errors.Is(err, chat.ErrIneligible):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not allowed to message this user"})
	case errors.Is(err, chat.ErrConversationNotFound), errors.Is(err, chat.ErrNotParticipant):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	default:
		log.Printf("🔥 Chat operation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Send failed, please retry"})
	}
}

// loadOwnConversation fetches the conversation and hides its existence from
// non-participants.
func loadOwnConversation(c *fiber.Ctx, userID uuid.UUID) (*models.Conversation, error) {
	conversationID, err := uuid.Parse(c.Params("conversationId"))
	if err != nil {
		return nil, chat.ErrConversationNotFound
	}
	conv, err := MessageStore.Get(c.Context(), conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, chat.ErrNotParticipant
	}
	return conv, nil
}

type ResolveConversationRequest struct {
	CounterpartID string `json:"counterpart_id" validate:"required,uuid"`
	Kind          string `json:"kind" validate:"required,oneof=ally peer"`
}

// ResolveConversation returns the canonical conversation for the caller and
// the counterpart, creating it on first contact.
func ResolveConversation(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req ResolveConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	counterpartID, _ := uuid.Parse(req.CounterpartID)

	kind, err := chat.ParseKind(req.Kind)
	if err != nil {
		return chatError(c, err)
	}

	conv, err := ConversationResolver.Resolve(c.Context(), userID, counterpartID, kind)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(conv)
}

type counterpartSummary struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	Online    bool      `json:"online"`
}

type conversationSummary struct {
	ID          uuid.UUID          `json:"id"`
	Kind        string             `json:"kind"`
	LastSeq     int64              `json:"last_seq"`
	UnreadCount int64              `json:"unread_count"`
	Counterpart counterpartSummary `json:"counterpart"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// GetUserConversations lists the caller's conversations with unread counts
// and counterpart directory info, most recently active first.
func GetUserConversations(c *fiber.Ctx) error {
	userID := currentUserID(c)

	convs, err := MessageStore.ListForUser(c.Context(), userID)
	if err != nil {
		return chatError(c, err)
	}

	summaries := make([]conversationSummary, 0, len(convs))
	for _, conv := range convs {
		counterpartID := conv.Other(userID)

		unread, err := MessageStore.UnreadCount(c.Context(), conv.ID, userID)
		if err != nil {
			return chatError(c, err)
		}

		summary := conversationSummary{
			ID:          conv.ID,
			Kind:        conv.Kind,
			LastSeq:     conv.LastSeq,
			UnreadCount: unread,
			UpdatedAt:   conv.UpdatedAt,
			Counterpart: counterpartSummary{
				ID:     counterpartID,
				Online: Hub.Presence().Online(counterpartID),
			},
		}
		var counterpart models.User
		if err := directoryLookup(c.Context(), counterpartID, &counterpart); err == nil {
			summary.Counterpart.FullName = counterpart.FullName
			summary.Counterpart.AvatarURL = counterpart.AvatarURL
		}
		summaries = append(summaries, summary)
	}
	return c.JSON(summaries)
}

type SendMessageRequest struct {
	Body string `json:"body" form:"body"`
}

// SendMessage appends a message (optionally with one attachment) and pushes
// it to the recipient's live sessions. Accepts multipart form data when an
// attachment is present, plain JSON otherwise.
func SendMessage(c *fiber.Ctx) error {
	userID := currentUserID(c)

	conv, err := loadOwnConversation(c, userID)
	if err != nil {
		return chatError(c, err)
	}

	var req SendMessageRequest
	fileHeader, fileErr := c.FormFile("attachment")
	if err := c.BodyParser(&req); err != nil && fileErr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}
	if fileErr != nil {
		fileHeader = nil
	}

	att, storageKey, err := storeAttachment(c.Context(), fileHeader)
	if err != nil {
		if errors.Is(err, attachments.ErrAttachmentRejected) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Attachment rejected: type not allowed or file too large"})
		}
		log.Printf("🔥 Attachment storage failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Send failed, please retry"})
	}

	msg, err := appendAndPublish(c.Context(), conv, userID, req.Body, att)
	if err != nil {
		if storageKey != "" {
			if delErr := Blob.Delete(c.Context(), storageKey); delErr != nil {
				log.Printf("🔥 Cleanup of blob %s failed (orphan sweep will retry): %v", storageKey, delErr)
			}
		}
		return chatError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// storeAttachment validates the upload and persists its bytes with bounded
// retries. Nothing is stored when validation fails, so a rejected
// attachment never leaves a partial message behind.
func storeAttachment(ctx context.Context, fileHeader *multipart.FileHeader) (*chat.AttachmentInput, string, error) {
	if fileHeader == nil {
		return nil, "", nil
	}

	class, err := AttachmentPolicy.Validate(fileHeader.Filename, fileHeader.Size)
	if err != nil {
		metrics.AttachmentsRejected.Inc()
		return nil, "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	storageKey := utils.NewStorageKey(fileHeader.Filename)
	var putErr error
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
			if _, err := file.Seek(0, 0); err != nil {
				return nil, "", err
			}
		}
		if putErr = Blob.Put(ctx, storageKey, file, fileHeader.Size); putErr == nil {
			break
		}
	}
	if putErr != nil {
		return nil, "", fmt.Errorf("store attachment after %d attempts: %w", sendAttempts, putErr)
	}

	metrics.AttachmentsStored.Inc()
	return &chat.AttachmentInput{
		FileName:    fileHeader.Filename,
		ContentType: class,
		SizeBytes:   fileHeader.Size,
		StorageKey:  storageKey,
	}, storageKey, nil
}

// appendAndPublish commits the message and only then hands it to the
// broker, so a push can never precede durability. Transient store faults
// retry a bounded number of times.
func appendAndPublish(ctx context.Context, conv *models.Conversation, sender uuid.UUID, body string, att *chat.AttachmentInput) (*models.Message, error) {
	var msg *models.Message
	var err error
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		msg, err = MessageStore.Append(ctx, conv.ID, sender, body, att)
		if err == nil ||
			errors.Is(err, chat.ErrEmptyMessage) ||
			errors.Is(err, chat.ErrNotParticipant) ||
			errors.Is(err, chat.ErrConversationNotFound) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	metrics.MessagesSent.Inc()
	Hub.Publish(msg, conv.Other(sender))
	return msg, nil
}

// GetConversationMessages serves history and reconnect catch-up: messages
// strictly after after_seq, in sequence order, bounded by limit.
func GetConversationMessages(c *fiber.Ctx) error {
	userID := currentUserID(c)

	conv, err := loadOwnConversation(c, userID)
	if err != nil {
		return chatError(c, err)
	}

	afterSeq, _ := strconv.ParseInt(c.Query("after_seq", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(chat.DefaultPageSize)))

	msgs, err := MessageStore.ListSince(c.Context(), conv.ID, afterSeq, limit)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(msgs)
}

type MarkReadRequest struct {
	UptoSeq int64 `json:"upto_seq" validate:"gte=0"`
}

// MarkConversationRead flags everything up to upto_seq sent by the other
// participant. Idempotent.
func MarkConversationRead(c *fiber.Ctx) error {
	userID := currentUserID(c)

	conv, err := loadOwnConversation(c, userID)
	if err != nil {
		return chatError(c, err)
	}

	var req MarkReadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := MessageStore.MarkRead(c.Context(), conv.ID, userID, req.UptoSeq); err != nil {
		return chatError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// GetUnreadCount returns the derived unread counter for the caller.
func GetUnreadCount(c *fiber.Ctx) error {
	userID := currentUserID(c)

	conv, err := loadOwnConversation(c, userID)
	if err != nil {
		return chatError(c, err)
	}

	count, err := MessageStore.UnreadCount(c.Context(), conv.ID, userID)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": count})
}

// ClearConversation removes every message and attachment of the
// conversation. The conversation itself survives, as does its sequence
// cursor. Not undoable.
func ClearConversation(c *fiber.Ctx) error {
	userID := currentUserID(c)

	conv, err := loadOwnConversation(c, userID)
	if err != nil {
		return chatError(c, err)
	}

	keys, err := MessageStore.Clear(c.Context(), conv.ID)
	if err != nil {
		return chatError(c, err)
	}
	for _, key := range keys {
		if err := Blob.Delete(c.Context(), key); err != nil {
			log.Printf("🔥 Deleting blob %s failed (orphan sweep will retry): %v", key, err)
		}
	}
	return c.JSON(fiber.Map{"status": "cleared"})
}

type wsEvent struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message,omitempty"`
}

type MessagePayload struct {
	ConversationID string `json:"conversation_id"`
	Body           string `json:"body"`
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 45 * time.Second
)

// ServeWs is the live-subscription feed. The first frame must be
// {type:"auth", token}; after that the connection receives pushed message
// events and may submit text-only sends. Closing the connection releases
// the subscription and the presence slot synchronously.
func ServeWs(c *websocketcontrib.Conn) {
	userID, err := awaitAuth(c)
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	sub := Hub.Subscribe(userID)
	defer Hub.Unsubscribe(sub)
	log.Printf("WebSocket client subscribed: %s", userID)

	done := make(chan struct{})
	defer close(done)

	// Single writer: pushed messages and pings both go through here.
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-sub.C:
				if !ok {
					return
				}
				c.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := c.WriteJSON(wsEvent{Type: "message", Message: msg}); err != nil {
					return
				}
			case <-ticker.C:
				c.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := c.WriteMessage(websocketcontrib.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	c.SetReadDeadline(time.Now().Add(wsPongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		var payload MessagePayload
		if err := c.ReadJSON(&payload); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("WebSocket closed for client %s: %v", userID, err)
			} else {
				log.Printf("WebSocket read error for client %s: %v", userID, err)
			}
			break
		}

		conversationID, err := uuid.Parse(payload.ConversationID)
		if err != nil {
			log.Printf("Invalid conversation ID from client %s: %v", userID, err)
			continue
		}
		conv, err := MessageStore.Get(context.Background(), conversationID)
		if err != nil || !conv.HasParticipant(userID) {
			log.Printf("Rejected WS send from %s to conversation %s", userID, conversationID)
			continue
		}
		if _, err := appendAndPublish(context.Background(), conv, userID, payload.Body, nil); err != nil {
			log.Printf("Failed to send WS message for client %s: %v", userID, err)
		}
	}
}

// wsReader is the slice of the connection awaitAuth needs.
type wsReader interface {
	SetReadDeadline(t time.Time) error
	ReadJSON(v interface{}) error
}

// awaitAuth reads the first frame, which must be {type:"auth", token}, and
// resolves the caller. The read deadline is armed before the read so a
// client that upgrades and never authenticates is dropped instead of
// parking the connection forever.
func awaitAuth(c wsReader) (uuid.UUID, error) {
	if err := c.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return uuid.Nil, err
	}

	var authMsg struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	if err := c.ReadJSON(&authMsg); err != nil {
		return uuid.Nil, err
	}
	if authMsg.Type != "auth" {
		return uuid.Nil, errors.New("first frame must be an auth message")
	}

	claims, err := parseToken(authMsg.Token)
	if err != nil {
		return uuid.Nil, err
	}
	subject, _ := claims["user_id"].(string)
	return uuid.Parse(subject)
}

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.Config("JWT_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
