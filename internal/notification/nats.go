package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// publisher is the subset of *nats.Conn the notifier needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes every message as JSON on <prefix>.<kind>.
type NATSNotifier struct {
	conn   publisher
	prefix string
}

// NewNATSNotifier binds a notifier to an open connection.
func NewNATSNotifier(nc *nats.Conn, prefix string) *NATSNotifier {
	return newNATSNotifier(nc, prefix)
}

func newNATSNotifier(conn publisher, prefix string) *NATSNotifier {
	if prefix == "" {
		prefix = "coinvault"
	}
	return &NATSNotifier{conn: conn, prefix: prefix}
}

// Subject returns the subject a message of kind is published on.
func (n *NATSNotifier) Subject(kind string) string {
	return n.prefix + "." + kind
}

// Send implements Notifier.
func (n *NATSNotifier) Send(_ context.Context, message Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.conn.Publish(n.Subject(message.Kind), data); err != nil {
		return fmt.Errorf("publish %s: %w", message.Kind, err)
	}
	return nil
}
