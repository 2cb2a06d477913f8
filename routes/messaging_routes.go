package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jdvalenciag/emprende_hub/handlers"
	"github.com/jdvalenciag/emprende_hub/middleware"
)

func MessagingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/directory", middleware.Protected(), handlers.GetDirectory)

	conversations := api.Group("/conversations", middleware.Protected())
	conversations.Get("", handlers.GetUserConversations)
	conversations.Post("", handlers.ResolveConversation)
	conversations.Get("/:conversationId/messages", handlers.GetConversationMessages)
	conversations.Post("/:conversationId/messages", handlers.SendMessage)
	conversations.Delete("/:conversationId/messages", handlers.ClearConversation)
	conversations.Post("/:conversationId/read", handlers.MarkConversationRead)
	conversations.Get("/:conversationId/unread", handlers.GetUnreadCount)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(handlers.ServeWs))
}
