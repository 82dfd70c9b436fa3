package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// KindAssetReceived is emitted to the receiver of a transfer.
	KindAssetReceived = "asset.received"
	// KindAdminAdjustment is emitted to a user whose balance an admin changed.
	KindAdminAdjustment = "admin.adjustment"
)

// Message describes a notification payload.
type Message struct {
	Kind          string          `json:"kind"`
	Destination   string          `json:"destination"`
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Body          string          `json:"body"`
	At            time.Time       `json:"at"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("asset", message.Asset),
		slog.String("amount", message.Amount.String()),
		slog.String("body", message.Body),
	)
	return nil
}

// Fanout delivers each message to every notifier and joins their errors.
type Fanout []Notifier

// Send implements Notifier.
func (f Fanout) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Deliver sends message and logs a failure instead of returning it. Delivery
// never fails the operation that triggered it.
func Deliver(ctx context.Context, n Notifier, logger *slog.Logger, message Message) {
	if n == nil {
		return
	}
	if message.At.IsZero() {
		message.At = time.Now().UTC()
	}
	if err := n.Send(ctx, message); err != nil && logger != nil {
		logger.Warn("notification delivery failed",
			slog.String("kind", message.Kind),
			slog.String("destination", message.Destination),
			slog.Any("error", err),
		)
	}
}
