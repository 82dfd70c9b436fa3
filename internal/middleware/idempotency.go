package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v1:"
	inProgressMarker     = "__in_progress__"
	cacheOpTimeout       = 2 * time.Second
)

type storedResponse struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Idempotency replays the stored response when a client retries an unsafe
// request with the same Idempotency-Key. Requests without the header, and
// every request when cache is nil, pass straight through. Keys are scoped by
// method and path so one key cannot replay another route's response.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if key == "" {
			return c.Next()
		}
		cacheKey := idempotencyPrefix + c.Method() + ":" + c.Path() + ":" + key

		ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
		defer cancel()

		cached, err := cache.Get(ctx, cacheKey).Result()
		if err == nil {
			return replay(c, cached, key, logger)
		}
		if err != redis.Nil {
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}

		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}
		if !reserved {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		if err := c.Next(); err != nil {
			release(cache, cacheKey)
			return err
		}

		// Server failures are not cached so the client may retry them.
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			release(cache, cacheKey)
			return nil
		}

		stored := storedResponse{
			Status:  c.Response().StatusCode(),
			Body:    string(c.Response().Body()),
			Headers: map[string]string{},
		}
		c.Response().Header.VisitAll(func(k, v []byte) {
			stored.Headers[string(k)] = string(v)
		})

		payload, err := json.Marshal(stored)
		if err != nil {
			logger.Error("failed to encode idempotent response", slog.String("key", key), slog.Any("error", err))
			release(cache, cacheKey)
			return nil
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), cacheOpTimeout)
		defer persistCancel()
		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			// The mutation already happened; keep its response and only drop the marker.
			logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
			cache.Del(persistCtx, cacheKey)
		}
		return nil
	}
}

func replay(c *fiber.Ctx, cached, key string, logger *slog.Logger) error {
	if cached == inProgressMarker {
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		logger.Warn("failed to decode stored idempotent response", slog.String("key", key), slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}

	for header, value := range stored.Headers {
		if strings.EqualFold(header, fiber.HeaderContentLength) || strings.EqualFold(header, requestIDHeader) {
			continue
		}
		c.Set(header, value)
	}
	c.Set("Idempotent-Replay", "true")
	return c.Status(stored.Status).SendString(stored.Body)
}

func release(cache *redis.Client, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	cache.Del(ctx, cacheKey) // best effort
}
