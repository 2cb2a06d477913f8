package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jdvalenciag/emprende_hub/handlers"
	"github.com/jdvalenciag/emprende_hub/middleware"
)

func AdminRoutes(app *fiber.App) {
	admin := app.Group("/api/v1/admin", middleware.Protected(), middleware.AdminRequired())
	admin.Get("/users", handlers.GetAllUsers)
}
