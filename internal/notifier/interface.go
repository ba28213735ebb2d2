// Package notifier fans newly observed signals out to external channels.
package notifier

import (
	"context"

	"github.com/newthinker/signaldesk/internal/core"
)

// Notifier delivers signal notifications
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send sends a single signal notification
	Send(ctx context.Context, signal core.Signal) error

	// SendBatch sends multiple signal notifications in one message
	SendBatch(ctx context.Context, signals []core.Signal) error
}
