package wallet

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/respond"
)

var errBadRequest = ledger.InvalidInput("Invalid data provided.")

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type initRequest struct {
	UserID  string            `json:"userId"`
	PIN     string            `json:"pin"`
	Wallets map[string]string `json:"wallets"`
}

type userRequest struct {
	UserID string `json:"userId"`
}

type freezeRequest struct {
	UserID string `json:"userId"`
	Status *bool  `json:"status"`
}

// Init opens an account on first launch of the app.
func (h *Handler) Init(c *fiber.Ctx) error {
	var req initRequest
	if err := c.BodyParser(&req); err != nil {
		return respond.Fail(c, h.logger, errBadRequest)
	}
	created, err := h.service.InitializeAccount(c.UserContext(), InitInput{
		UserID:  req.UserID,
		PIN:     req.PIN,
		Wallets: req.Wallets,
	})
	if err != nil {
		return respond.Fail(c, h.logger, err)
	}
	if !created {
		return respond.OK(c, "User already exists.")
	}
	return respond.OK(c, "Wallet initialized successfully.")
}

// Portfolio returns the user's balances and addresses.
func (h *Handler) Portfolio(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		return respond.Fail(c, h.logger, errBadRequest)
	}
	portfolio, err := h.service.Portfolio(c.UserContext(), req.UserID)
	if err != nil {
		return respond.Fail(c, h.logger, err)
	}
	return respond.Success(c, respond.Envelope{Data: portfolio})
}

// History returns the user's transactions, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		return respond.Fail(c, h.logger, errBadRequest)
	}
	records, err := h.service.History(c.UserContext(), req.UserID)
	if err != nil {
		return respond.Fail(c, h.logger, err)
	}
	return respond.Success(c, respond.Envelope{Transactions: records})
}

// ListUsers dumps every user for the admin dashboard.
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers(c.UserContext())
	if err != nil {
		return respond.Fail(c, h.logger, err)
	}
	return respond.Success(c, respond.Envelope{Users: users})
}

// Freeze sets or clears the frozen flag.
func (h *Handler) Freeze(c *fiber.Ctx) error {
	var req freezeRequest
	if err := c.BodyParser(&req); err != nil || req.Status == nil {
		return respond.Fail(c, h.logger, errBadRequest)
	}
	if err := h.service.SetFrozen(c.UserContext(), req.UserID, *req.Status); err != nil {
		return respond.Fail(c, h.logger, err)
	}
	state := "Unfrozen"
	if *req.Status {
		state = "Frozen"
	}
	return respond.OK(c, fmt.Sprintf("User %s successfully.", state))
}
