package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/coinvault/coinvault/internal/respond"
)

const (
	loginLimitPrefix  = "rl:login:"
	loginLimitMessage = "Too many login attempts. Try again later."
)

// LoginRateLimit caps login attempts per userId (falling back to the client
// IP) at maxPerMin. Redis holds the counters when cache is set so every
// instance shares them; otherwise each process keeps token buckets.
func LoginRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	local := newLocalLimiter(maxPerMin)

	return func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"userId"`
		}
		_ = c.BodyParser(&req)
		subject := req.UserID
		if strings.TrimSpace(subject) == "" {
			subject = c.IP()
		}

		allowed := true
		if cache != nil {
			key := loginLimitPrefix + subject
			cnt, err := cache.Incr(c.UserContext(), key).Result()
			if err != nil {
				// Fail open: a cache outage must not lock everyone out.
				logger.Warn("login limiter unavailable", slog.Any("error", err))
				return c.Next()
			}
			if cnt == 1 {
				cache.Expire(c.UserContext(), key, time.Minute)
			}
			allowed = cnt <= int64(maxPerMin)
		} else {
			allowed = local.allow(subject)
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(respond.Envelope{
				Success: false,
				Message: loginLimitMessage,
			})
		}
		return c.Next()
	}
}

// limiterIdle is how long a bucket refills completely; after that an entry
// is indistinguishable from a new one and can be dropped.
const limiterIdle = time.Minute

type localBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type localLimiter struct {
	mu        sync.Mutex
	perMin    int
	buckets   map[string]*localBucket
	lastSweep time.Time
	now       func() time.Time
}

func newLocalLimiter(perMin int) *localLimiter {
	return &localLimiter{
		perMin:    perMin,
		buckets:   make(map[string]*localBucket),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *localLimiter) allow(subject string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdle {
		l.sweep(now)
	}
	b, ok := l.buckets[subject]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)}
		l.buckets[subject] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// sweep drops buckets idle for at least limiterIdle. Caller holds mu.
func (l *localLimiter) sweep(now time.Time) {
	for subject, b := range l.buckets {
		if now.Sub(b.lastSeen) >= limiterIdle {
			delete(l.buckets, subject)
		}
	}
	l.lastSweep = now
}

func (l *localLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
