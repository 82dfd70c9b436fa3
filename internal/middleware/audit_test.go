package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestAuditLogsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(RequestID())
	app.Use(Audit(logger))
	app.Get("/missing", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).SendString("nope")
	})

	req := httptest.NewRequest(fiber.MethodGet, "/missing", nil)
	req.Header.Set(requestIDHeader, "req-42")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if got := resp.Header.Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "WARN" {
		t.Fatalf("expected WARN for a 404, got %v", entry["level"])
	}
	if entry["status"] != float64(fiber.StatusNotFound) || entry["request_id"] != "req-42" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFrom(c))
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}
}
