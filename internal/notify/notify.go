// Package notify defines the interface for receipt notification backends.
package notify

import (
	"context"

	"github.com/shineum/sealed-relay/internal/mail"
)

// Notifier is implemented by backends that tell an operator about letters
// the relay accepted. Notifications are advisory: a failure never undoes a
// receipt.
type Notifier interface {
	// Notify reports a single accepted letter.
	Notify(ctx context.Context, receipt *mail.Receipt) error

	// Name returns the human-readable name of this notifier.
	Name() string
}

// Discard is a Notifier that drops every receipt.
type Discard struct{}

func (Discard) Notify(context.Context, *mail.Receipt) error { return nil }

func (Discard) Name() string { return "none" }
