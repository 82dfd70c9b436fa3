// Package respond renders the {success, message, ...} envelope every route
// returns and maps domain errors onto HTTP statuses.
package respond

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/coinvault/coinvault/internal/ledger"
)

const internalMessage = "Internal server error."

func init() {
	// Balances and amounts go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Envelope is the body of every response. Payload fields are typed as any so
// an empty list still renders as [] rather than being omitted.
type Envelope struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Data         any    `json:"data,omitempty"`
	Users        any    `json:"users,omitempty"`
	Transactions any    `json:"transactions,omitempty"`
}

// OK writes a 200 success envelope carrying message.
func OK(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusOK).JSON(Envelope{Success: true, Message: message})
}

// Success writes env as a 200 success envelope.
func Success(c *fiber.Ctx, env Envelope) error {
	env.Success = true
	return c.Status(http.StatusOK).JSON(env)
}

// Fail writes the failure envelope for err. Internal errors are logged with
// their cause and answered with a generic message.
func Fail(c *fiber.Ctx, logger *slog.Logger, err error) error {
	kind := ledger.KindOf(err)
	status := Status(kind)
	message := err.Error()
	if kind == ledger.KindInternal {
		if logger != nil {
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
		}
		message = internalMessage
	}
	return c.Status(status).JSON(Envelope{Success: false, Message: message})
}

// Status maps an error kind to the HTTP status used for it. Business rule
// failures are reported in-band with 200.
func Status(kind ledger.Kind) int {
	switch kind {
	case ledger.KindInvalidInput:
		return http.StatusBadRequest
	case ledger.KindUnauthorized:
		return http.StatusUnauthorized
	case ledger.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// ErrorHandler renders errors that escape handlers (unknown routes, rejected
// middleware checks, recovered panics) with the same envelope.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			message := fe.Message
			if fe.Code >= http.StatusInternalServerError {
				if logger != nil {
					logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
				}
				message = internalMessage
			}
			return c.Status(fe.Code).JSON(Envelope{Success: false, Message: message})
		}
		return Fail(c, logger, err)
	}
}
