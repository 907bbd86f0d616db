// Package notify delivers best-effort notifications over the event bus.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quillchat/quill-api/internal/model"
	natsclient "github.com/quillchat/quill-api/internal/nats"
	"github.com/quillchat/quill-api/pkg/metrics"
)

// Notifier is the side channel for user-facing notifications. Every method is
// best effort: callers log a returned error and carry on, a failed
// notification never fails the operation that triggered it.
type Notifier interface {
	VerificationCode(ctx context.Context, email, name, code string) error
	Welcome(ctx context.Context, email, name string) error
	PasswordReset(ctx context.Context, email, name, code string) error
	Event(ctx context.Context, event *model.Event) error
}

// BusNotifier publishes notification jobs to JetStream for the external
// mailer to deliver.
type BusNotifier struct {
	bus *natsclient.EventBus
}

// NewBusNotifier creates a notifier backed by the event bus.
func NewBusNotifier(bus *natsclient.EventBus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

// VerificationCode queues a verification-code email.
func (n *BusNotifier) VerificationCode(ctx context.Context, email, name, code string) error {
	return n.email(ctx, "verification_code", email, name, map[string]any{"code": code})
}

// Welcome queues a welcome email.
func (n *BusNotifier) Welcome(ctx context.Context, email, name string) error {
	return n.email(ctx, "welcome", email, name, nil)
}

// PasswordReset queues a password-reset email.
func (n *BusNotifier) PasswordReset(ctx context.Context, email, name, code string) error {
	return n.email(ctx, "password_reset", email, name, map[string]any{"code": code})
}

// Event publishes a service event.
func (n *BusNotifier) Event(ctx context.Context, event *model.Event) error {
	_, err := n.bus.Publish(ctx, event)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.NotificationsTotal.WithLabelValues(string(event.Type), outcome).Inc()
	return err
}

func (n *BusNotifier) email(ctx context.Context, template, email, name string, extra map[string]any) error {
	payload := map[string]any{
		"template": template,
		"email":    email,
		"name":     name,
	}
	for k, v := range extra {
		payload[k] = v
	}

	return n.Event(ctx, &model.Event{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      model.EventTypeEmail,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	})
}

// Noop is a notifier that drops everything. Used when NATS is unavailable
// and in tests.
type Noop struct{}

func (Noop) VerificationCode(context.Context, string, string, string) error { return nil }
func (Noop) Welcome(context.Context, string, string) error                  { return nil }
func (Noop) PasswordReset(context.Context, string, string, string) error    { return nil }
func (Noop) Event(context.Context, *model.Event) error                      { return nil }
