package infra

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NewNATSConn connects to NATS. The connection reconnects on its own and
// logs state changes through logger.
func NewNATSConn(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}
