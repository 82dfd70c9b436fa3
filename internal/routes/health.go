package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
)

// RegisterHealthRoutes adds a readiness endpoint reporting every configured
// backend. Unconfigured backends are omitted.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{}
		healthy := true
		record := func(name string, err error) {
			if err != nil {
				healthy = false
				checks[name] = err.Error()
				return
			}
			checks[name] = "ok"
		}

		if d.DB != nil {
			record("postgres", d.DB.Ping(ctx))
		}
		if d.Mongo != nil {
			record("mongo", d.Mongo.Client().Ping(ctx, nil))
		}
		if d.Cache != nil {
			record("redis", d.Cache.Ping(ctx).Err())
		}
		if d.NATS != nil {
			var err error
			if d.NATS.Status() != nats.CONNECTED {
				err = nats.ErrConnectionClosed
			}
			record("nats", err)
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"success":   healthy,
			"store":     d.Cfg.StoreBackend,
			"status":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
