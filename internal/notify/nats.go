// Package notify delivers user notifications. The NATS notifier publishes
// JSON events for the notification module to fan out; the log notifier is
// the fallback when no broker is configured.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	connectTimeout = 10 * time.Second
	reconnectWait  = 5 * time.Second
)

// notification is the wire payload published per user.
type notification struct {
	UserID      string    `json:"user_id"`
	Message     string    `json:"message"`
	Type        string    `json:"type"`
	ReferenceID string    `json:"reference_id"`
	SentAt      time.Time `json:"sent_at"`
}

// NATSNotifier publishes notifications to <prefix>.user.<user_id>.
type NATSNotifier struct {
	conn          *nats.Conn
	subjectPrefix string
	log           zerolog.Logger
}

// NewNATSNotifier connects to NATS. The connection reconnects indefinitely.
func NewNATSNotifier(url, subjectPrefix string, log zerolog.Logger) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS %s: %w", url, err)
	}

	log = log.With().Str("component", "nats-notifier").Logger()
	log.Info().Str("url", url).Str("subject_prefix", subjectPrefix).Msg("NATS notifier connected")

	return &NATSNotifier{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		log:           log,
	}, nil
}

// NotifyUser publishes one notification event.
func (n *NATSNotifier) NotifyUser(ctx context.Context, userID, message, kind, referenceID string) error {
	payload := notification{
		UserID:      userID,
		Message:     message,
		Type:        kind,
		ReferenceID: referenceID,
		SentAt:      time.Now(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	subject := fmt.Sprintf("%s.user.%s", n.subjectPrefix, userID)
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection.
func (n *NATSNotifier) Close() {
	if err := n.conn.Drain(); err != nil {
		n.log.Warn().Err(err).Msg("Error draining NATS connection")
	}
}

// LogNotifier records notifications in the service log only.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates the fallback notifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "log-notifier").Logger()}
}

// NotifyUser logs the notification that would have been delivered.
func (n *LogNotifier) NotifyUser(ctx context.Context, userID, message, kind, referenceID string) error {
	n.log.Info().
		Str("user", userID).
		Str("type", kind).
		Str("reference", referenceID).
		Str("message", message).
		Msg("Notification (no broker configured)")
	return nil
}
