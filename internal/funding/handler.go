package funding

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/respond"
)

// Handler exposes the admin balance adjustment endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Credit adds to a user's balance.
func (h *Handler) Credit(c *fiber.Ctx) error {
	return h.adjust(c, h.service.Credit, "Balance Added Successfully.")
}

// Deduct removes from a user's balance.
func (h *Handler) Deduct(c *fiber.Ctx) error {
	return h.adjust(c, h.service.Deduct, "Balance Deducted Successfully.")
}

func (h *Handler) adjust(c *fiber.Ctx, apply func(context.Context, AdjustInput) (ledger.TransactionRecord, error), ok string) error {
	var req AdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return respond.Fail(c, h.logger, ledger.InvalidInput("Invalid data provided."))
	}
	if _, err := apply(c.UserContext(), AdjustInput{
		UserID: req.UserID,
		Asset:  req.AssetSymbol,
		Amount: req.Amount.Decimal,
	}); err != nil {
		return respond.Fail(c, h.logger, err)
	}
	return respond.OK(c, ok)
}
