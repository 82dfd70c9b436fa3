package identity

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/respond"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type loginRequest struct {
	UserID string `json:"userId"`
	PIN    string `json:"pin"`
}

type resetRequest struct {
	UserID string `json:"userId"`
	NewPIN string `json:"newPin"`
}

// Login verifies the user's PIN.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return respond.Fail(c, h.logger, ledger.InvalidInput("Invalid data provided."))
	}
	if err := h.service.Authenticate(c.UserContext(), Credentials{UserID: req.UserID, PIN: req.PIN}); err != nil {
		return respond.Fail(c, h.logger, err)
	}
	return respond.OK(c, "Login successful.")
}

// ResetPIN lets the admin overwrite a user's PIN.
func (h *Handler) ResetPIN(c *fiber.Ctx) error {
	var req resetRequest
	if err := c.BodyParser(&req); err != nil {
		return respond.Fail(c, h.logger, ledger.InvalidInput("Invalid data provided."))
	}
	if err := h.service.ResetPIN(c.UserContext(), req.UserID, req.NewPIN); err != nil {
		return respond.Fail(c, h.logger, err)
	}
	return respond.OK(c, "PIN Reset Successfully.")
}
