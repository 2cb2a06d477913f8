package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/jdvalenciag/emprende_hub/database"
	"github.com/jdvalenciag/emprende_hub/models"
)

// directoryLookup resolves a user for presentation. Never consulted for
// delivery correctness.
func directoryLookup(ctx context.Context, userID uuid.UUID, user *models.User) error {
	return database.DB.WithContext(ctx).First(user, "id = ?", userID).Error
}

// GetDirectory lists the entrepreneurs visible for peer conversations,
// with their online indicator.
func GetDirectory(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	var users []models.User
	err := database.DB.WithContext(c.Context()).
		Where("role = ? AND directory_visible = ? AND id <> ?", models.RoleEntrepreneur, true, userID).
		Order("full_name asc").
		Find(&users).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch directory"})
	}

	entries := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		entries = append(entries, fiber.Map{
			"id":         u.ID,
			"full_name":  u.FullName,
			"avatar_url": u.AvatarURL,
			"online":     Hub.Presence().Online(u.ID),
		})
	}
	return c.JSON(entries)
}

// GetAllUsers is the admin view of every account, including allies and
// entrepreneurs hidden from the peer directory.
func GetAllUsers(c *fiber.Ctx) error {
	var users []models.User
	err := database.DB.WithContext(c.Context()).
		Order("full_name asc").
		Find(&users).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch users"})
	}

	entries := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		entries = append(entries, fiber.Map{
			"id":                u.ID,
			"full_name":         u.FullName,
			"email":             u.Email,
			"role":              u.Role,
			"directory_visible": u.DirectoryVisible,
			"online":            Hub.Presence().Online(u.ID),
		})
	}
	return c.JSON(entries)
}
