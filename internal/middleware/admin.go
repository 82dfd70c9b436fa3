package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/auth"
	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/respond"
)

const adminPINField = "adminPin"

// AdminAuth admits a request only when it carries the configured admin PIN,
// either as the adminPin query parameter or as the adminPin body field.
func AdminAuth(secret auth.AdminSecret, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		candidate := c.Query(adminPINField)
		if candidate == "" && len(c.Body()) > 0 {
			var body struct {
				AdminPIN string `json:"adminPin"`
			}
			// A malformed body simply yields no candidate.
			_ = c.BodyParser(&body)
			candidate = body.AdminPIN
		}
		if !secret.Matches(candidate) {
			logger.Warn("admin access denied",
				slog.String("path", c.Path()),
				slog.String("ip", c.IP()),
				slog.String("request_id", RequestIDFrom(c)),
			)
			return respond.Fail(c, logger, ledger.ErrUnauthorized)
		}
		return c.Next()
	}
}
