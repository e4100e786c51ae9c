// Package notify tells the site operator about new registrations.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Field is one labelled value shown in a notice.
type Field struct {
	Name  string
	Value string
}

// Notice is a short operator-facing message.
type Notice struct {
	Title     string
	Body      string
	Fields    []Field
	Timestamp time.Time
}

// Notifier delivers notices to the operator.
type Notifier interface {
	// Notify returns the provider message id on success.
	Notify(ctx context.Context, n Notice) (string, error)
}

// NoopNotifier logs notices. It is used when no webhook is configured.
type NoopNotifier struct{}

// Notify logs the notice.
func (NoopNotifier) Notify(_ context.Context, n Notice) (string, error) {
	slog.Info("noop_notice", "title", n.Title)
	return fmt.Sprintf("noop-%d", time.Now().UnixNano()), nil
}
