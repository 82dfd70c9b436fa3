package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit logs one line per request once the response status is known.
// Request bodies are never logged since they carry PINs.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if id := RequestIDFrom(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}

		switch {
		case err != nil:
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request completed", attrs...)
			return err
		case c.Response().StatusCode() >= fiber.StatusInternalServerError:
			logger.Error("request completed", attrs...)
		case c.Response().StatusCode() >= fiber.StatusBadRequest:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
		return nil
	}
}
