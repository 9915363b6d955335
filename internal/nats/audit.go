package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/pocketsage-ai/finance-copilot/internal/model"
)

const (
	// AuditStreamName is the name of the audit stream.
	AuditStreamName = "AUDIT"

	// auditSubjectPrefix is the prefix for all audit subjects.
	auditSubjectPrefix = "audit"
)

// AuditPublisher publishes control-plane events (routing decisions, turn
// completions, handler failures) to a durable JetStream stream, keeping
// them out of the user-visible message history.
type AuditPublisher struct {
	client *Client
}

// NewAuditPublisher creates an audit publisher.
func NewAuditPublisher(client *Client) *AuditPublisher {
	return &AuditPublisher{client: client}
}

// EnsureStream ensures the audit stream exists with proper configuration.
func (p *AuditPublisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	_, err := js.Stream(ctx, AuditStreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        AuditStreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", auditSubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Routing decisions and turn lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create audit stream: %w", err)
	}

	return nil
}

// AuditSubject returns the subject for an audit event.
func AuditSubject(userID, sessionID string, kind model.AuditEventKind) string {
	return fmt.Sprintf("%s.%s.%s.%s", auditSubjectPrefix, userID, sessionID, kind)
}

// Publish publishes an audit event.
func (p *AuditPublisher) Publish(ctx context.Context, event *model.AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	subject := AuditSubject(event.UserID, event.SessionID, event.Kind)
	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish audit event: %w", err)
	}

	return nil
}
