package payments

import (
	"context"
	"errors"
	"hbs/src/models"
)

type Event string

const (
	EVENT_BOOKING_CREATED  Event = "booking.created"
	EVENT_PAYMENT_VERIFIED Event = "payment.verified"
	EVENT_PAYMENT_FAILED   Event = "payment.failed"
)

type Notification struct {
	Event   Event
	Booking models.Booking
	Payment *models.Payment
}

// Notifier is told about state changes after they are committed.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// MultiNotifier fans out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) error { return nil }

// ReplayGuard remembers callbacks that were already applied. It only saves
// work; correctness comes from the conditional store updates.
type ReplayGuard interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}
