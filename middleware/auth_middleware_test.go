package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// newRoleApp mounts AdminRequired behind a stub that injects the verified
// token the JWT middleware would normally store in Locals.
func newRoleApp(role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": role})
		c.Locals("user", token)
		return c.Next()
	})
	app.Get("/admin", AdminRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestAdminRequiredAllowsAdmins(t *testing.T) {
	app := newRoleApp("admin")

	resp, err := app.Test(httptest.NewRequest("GET", "/admin", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("admin request returned status %d, want 200", resp.StatusCode)
	}
}

func TestAdminRequiredRejectsOtherRoles(t *testing.T) {
	for _, role := range []string{"entrepreneur", "ally"} {
		app := newRoleApp(role)

		resp, err := app.Test(httptest.NewRequest("GET", "/admin", nil))
		if err != nil {
			t.Fatalf("role %s: request failed: %v", role, err)
		}
		if resp.StatusCode != fiber.StatusForbidden {
			t.Errorf("role %s: status %d, want 403", role, resp.StatusCode)
		}
	}
}
