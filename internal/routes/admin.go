package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/funding"
	"github.com/coinvault/coinvault/internal/identity"
	"github.com/coinvault/coinvault/internal/wallet"
)

type adminHandlers struct {
	wallet   *wallet.Handler
	identity *identity.Handler
	funding  *funding.Handler
}

// RegisterAdminRoutes wires the admin endpoints. r must already enforce the
// admin PIN.
func RegisterAdminRoutes(r fiber.Router, h adminHandlers) {
	r.Get("/users", h.wallet.ListUsers)
	r.Post("/freeze-wallet", h.wallet.Freeze)
	r.Post("/credit", h.funding.Credit)
	r.Post("/deduct", h.funding.Deduct)
	r.Post("/reset-pin", h.identity.ResetPIN)
}
