package notifier

import (
	"context"

	"github.com/youthcamp/registration-api/internal/registration"
)

// Notifier announces a committed registration to someone.
type Notifier interface {
	Name() string
	NotifyRegistration(ctx context.Context, receipt registration.Receipt) error
}

// Noop is used when no channel is configured.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) NotifyRegistration(context.Context, registration.Receipt) error { return nil }
