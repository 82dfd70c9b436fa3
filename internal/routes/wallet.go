package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/identity"
	"github.com/coinvault/coinvault/internal/payments"
	"github.com/coinvault/coinvault/internal/wallet"
)

type userHandlers struct {
	wallet   *wallet.Handler
	identity *identity.Handler
	payments *payments.Handler
}

// RegisterUserRoutes wires the unauthenticated wallet endpoints.
func RegisterUserRoutes(r fiber.Router, h userHandlers, loginLimiter fiber.Handler) {
	r.Post("/init", h.wallet.Init)
	r.Post("/login", loginLimiter, h.identity.Login)
	r.Post("/get-user-data", h.wallet.Portfolio)
	r.Post("/get-transactions", h.wallet.History)
	r.Post("/send-asset", h.payments.Send)
}
