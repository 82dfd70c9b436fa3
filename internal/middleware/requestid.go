package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags each request with an identifier, reusing the caller's one
// when present, and echoes it on the response.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Locals(requestIDHeader, reqID)
		return c.Next()
	}
}

// RequestIDFrom returns the identifier assigned by RequestID, if any.
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDHeader).(string)
	return id
}
