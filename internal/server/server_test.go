package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinvault/coinvault/internal/config"
	"github.com/coinvault/coinvault/internal/logging"
	"github.com/coinvault/coinvault/internal/routes"
)

func TestNewServesHealth(t *testing.T) {
	srv, err := New(routes.Deps{
		Cfg: config.Config{
			AppName:      "coinvault-test",
			Port:         "0",
			AdminPIN:     "pin",
			StoreBackend: config.BackendMemory,
			StoreTimeout: time.Second,
		},
		Logger: logging.Discard(),
	})
	require.NoError(t, err)

	resp, err := srv.App().Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(routes.Deps{
		Cfg:    config.Config{StoreBackend: "cassandra"},
		Logger: logging.Discard(),
	})
	assert.Error(t, err)
}
