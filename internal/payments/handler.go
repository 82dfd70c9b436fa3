package payments

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/respond"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type transferRequest struct {
	SenderID        string               `json:"senderId"`
	AssetSymbol     string               `json:"assetSymbol"`
	ReceiverAddress string               `json:"receiverAddress"`
	Amount          ledger.RequestAmount `json:"amount"`
}

// Send processes a user-to-user asset transfer.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return respond.Fail(c, h.logger, ledger.InvalidInput("Invalid data provided."))
	}

	_, err := h.service.Transfer(c.UserContext(), TransferInput{
		SenderID:        req.SenderID,
		Asset:           req.AssetSymbol,
		ReceiverAddress: req.ReceiverAddress,
		Amount:          req.Amount.Decimal,
	})
	if err != nil {
		return respond.Fail(c, h.logger, err)
	}
	return respond.OK(c, fmt.Sprintf("Successfully sent %s %s.", req.Amount.String(), req.AssetSymbol))
}
