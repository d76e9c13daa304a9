package application

import (
	"context"
	"errors"

	"jarvis/internal/domain"
)

// Webhook sends a query to the remote assistant and classifies its answer.
type Webhook interface {
	Send(ctx context.Context, requestID, query string) (*domain.Reply, error)
}

// Notifier reports failures outside the screen, e.g. to a phone.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, string) error { return nil }

// Notifiers fans a message out to every notifier and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
