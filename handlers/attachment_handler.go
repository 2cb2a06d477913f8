package handlers

import (
	"errors"
	"fmt"
	"log"
	"mime"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jdvalenciag/emprende_hub/attachments"
	"github.com/jdvalenciag/emprende_hub/database"
	"github.com/jdvalenciag/emprende_hub/models"
)

// DownloadAttachment streams an attachment's bytes back with its original
// filename. Only the two conversation participants may fetch it.
func DownloadAttachment(c *fiber.Ctx) error {
	userID := currentUserID(c)

	attachmentID, err := uuid.Parse(c.Params("attachmentId"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Attachment not found"})
	}

	var att models.Attachment
	if err := database.DB.WithContext(c.Context()).First(&att, "id = ?", attachmentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Attachment not found"})
	}

	var msg models.Message
	if err := database.DB.WithContext(c.Context()).First(&msg, "id = ?", att.MessageID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Attachment not found"})
	}
	conv, err := MessageStore.Get(c.Context(), msg.ConversationID)
	if err != nil || !conv.HasParticipant(userID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Attachment not found"})
	}

	reader, err := Blob.Get(c.Context(), att.StorageKey)
	if err != nil {
		if errors.Is(err, attachments.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Attachment not found"})
		}
		log.Printf("🔥 Fetching blob %s failed: %v", att.StorageKey, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch attachment"})
	}

	mimeType := mime.TypeByExtension(filepath.Ext(att.FileName))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Set(fiber.HeaderContentType, mimeType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", att.FileName))
	return c.SendStream(reader, int(att.SizeBytes))
}
