package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/logging"
)

func call(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, 400, Status(ledger.KindInvalidInput))
	assert.Equal(t, 401, Status(ledger.KindUnauthorized))
	assert.Equal(t, 500, Status(ledger.KindInternal))
	for _, k := range []ledger.Kind{
		ledger.KindNotFound, ledger.KindAccountFrozen, ledger.KindWrongCredential,
		ledger.KindInvalidAmount, ledger.KindInsufficientBalance, ledger.KindAddressAssetMismatch,
		ledger.KindSelfTransfer, ledger.KindWouldUnderflow,
	} {
		assert.Equal(t, 200, Status(k), string(k))
	}
}

func TestEnvelopes(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	log := logging.Discard()
	app.Get("/ok", func(c *fiber.Ctx) error { return OK(c, "Login successful.") })
	app.Get("/empty", func(c *fiber.Ctx) error {
		return Success(c, Envelope{Transactions: []ledger.TransactionRecord{}})
	})
	app.Get("/amount", func(c *fiber.Ctx) error {
		return Success(c, Envelope{Data: map[string]decimal.Decimal{"balance": decimal.RequireFromString("0.6")}})
	})
	app.Get("/domain", func(c *fiber.Ctx) error { return Fail(c, log, ledger.ErrWrongPIN) })
	app.Get("/internal", func(c *fiber.Ctx) error { return Fail(c, log, errors.New("disk on fire")) })
	app.Get("/escaped", func(c *fiber.Ctx) error { return ledger.ErrUnauthorized })
	app.Get("/panic", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusInternalServerError, "secret detail") })

	status, body := call(t, app, "/ok")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"success":true,"message":"Login successful."}`, body)

	_, body = call(t, app, "/empty")
	assert.JSONEq(t, `{"success":true,"transactions":[]}`, body)

	_, body = call(t, app, "/amount")
	assert.JSONEq(t, `{"success":true,"data":{"balance":0.6}}`, body)

	status, body = call(t, app, "/domain")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"success":false,"message":"Incorrect PIN."}`, body)

	status, body = call(t, app, "/internal")
	assert.Equal(t, 500, status)
	assert.NotContains(t, body, "disk on fire")

	status, body = call(t, app, "/escaped")
	assert.Equal(t, 401, status)
	assert.JSONEq(t, `{"success":false,"message":"Unauthorized Admin Access"}`, body)

	status, body = call(t, app, "/panic")
	assert.Equal(t, 500, status)
	assert.NotContains(t, body, "secret detail")

	status, body = call(t, app, "/missing")
	assert.Equal(t, 404, status)
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(body), &env))
	assert.False(t, env.Success)
}
