package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jdvalenciag/emprende_hub/handlers"
	"github.com/jdvalenciag/emprende_hub/middleware"
)

func AttachmentRoutes(app *fiber.App) {
	api := app.Group("/api/v1", middleware.Protected())

	attachments := api.Group("/attachments")
	attachments.Get("/:attachmentId", handlers.DownloadAttachment)
}
