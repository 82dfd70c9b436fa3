package middleware

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinvault/coinvault/internal/logging"
)

func loginApp(cache *redis.Client, limit int) *fiber.App {
	app := fiber.New()
	app.Post("/login", LoginRateLimit(cache, limit, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func attempt(t *testing.T, app *fiber.App, userID string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{"userId":"`+userID+`","pin":"0000"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestLoginRateLimitLocal(t *testing.T) {
	app := loginApp(nil, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, fiber.StatusOK, attempt(t, app, "alice"))
	}
	assert.Equal(t, fiber.StatusTooManyRequests, attempt(t, app, "alice"))
	// Other users keep their own budget.
	assert.Equal(t, fiber.StatusOK, attempt(t, app, "bob"))
}

func TestLocalLimiterDropsIdleSubjects(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newLocalLimiter(2)
	l.now = func() time.Time { return clock }
	l.lastSweep = clock

	for i := 0; i < 50; i++ {
		assert.True(t, l.allow(fmt.Sprintf("user-%d", i)))
	}
	assert.True(t, l.allow("alice"))
	assert.True(t, l.allow("alice"))
	assert.False(t, l.allow("alice"))
	assert.Equal(t, 51, l.size())

	clock = clock.Add(30 * time.Second)
	assert.True(t, l.allow("bob"))
	assert.Equal(t, 52, l.size(), "nothing is idle long enough yet")

	clock = clock.Add(40 * time.Second)
	assert.True(t, l.allow("alice"))
	assert.Equal(t, 2, l.size(), "only alice and bob remain")
}

func TestLoginRateLimitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	app := loginApp(cache, 2)

	assert.Equal(t, fiber.StatusOK, attempt(t, app, "alice"))
	assert.Equal(t, fiber.StatusOK, attempt(t, app, "alice"))
	assert.Equal(t, fiber.StatusTooManyRequests, attempt(t, app, "alice"))
	assert.Equal(t, fiber.StatusOK, attempt(t, app, "bob"))
	assert.Greater(t, mr.TTL(loginLimitPrefix+"alice"), time.Duration(0))
}

func TestLoginRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { cache.Close() })
	app := loginApp(cache, 1)
	mr.Close()

	assert.Equal(t, fiber.StatusOK, attempt(t, app, "alice"))
	assert.Equal(t, fiber.StatusOK, attempt(t, app, "alice"))
}
