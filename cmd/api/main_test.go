package main

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

// The transport body limit must sit above the attachment cap so uploads the
// policy would accept are never rejected with a bare 413 before routing.
func TestBodyLimitAdmitsUploadsUpToAttachmentCap(t *testing.T) {
	app := newServer()

	body := bytes.Repeat([]byte("a"), 5<<20)
	req := httptest.NewRequest("POST", "/api/v1/conversations/x/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode == fiber.StatusRequestEntityTooLarge {
		t.Fatalf("a %d byte body under the attachment cap must reach the handlers, got 413", len(body))
	}
}

func TestBodyLimitStillCapsOversizeRequests(t *testing.T) {
	app := newServer()

	body := bytes.Repeat([]byte("a"), 12<<20)
	req := httptest.NewRequest("POST", "/api/v1/conversations/x/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusRequestEntityTooLarge {
		t.Errorf("a body over the limit returned status %d, want 413", resp.StatusCode)
	}
}
