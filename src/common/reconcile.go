package common

import (
	"context"
	"hbs/src/config"
	"hbs/src/store"
	"hbs/src/types"
	"log"
	"time"
)

// ReconcileStalePayments logs fonepay payments that were initiated before
// olderThan and never heard back from the gateway, so they can be settled by
// hand. It only reads. The returned slice holds the flagged booking ids.
func ReconcileStalePayments(ctx context.Context, stores store.Stores, olderThan time.Time, limit int) ([]string, error) {
	stale, err := stores.Payments.ListStale(ctx, types.METHOD_FONEPAY, types.TRANSACTION_INITIATED, olderThan, limit)
	if err != nil {
		log.Printf("[Reconcile] Error listing stale payments: %s\n", err.Error())
		return nil, err
	}
	flagged := []string{}
	for _, p := range stale {
		booking, err := stores.Bookings.FindByID(ctx, p.BookingID)
		if err != nil {
			log.Printf("[Reconcile] Payment %s references missing booking %d: %s\n", p.ID, p.BookingID, err.Error())
			continue
		}
		if !booking.Payable() {
			continue
		}
		log.Printf("[Reconcile] booking=%s payment=%s method=%s stage=%s since=%s needs review\n",
			booking.BookingID, p.ID, p.PaymentMethod, p.Status, p.CreatedAt.Format(config.TIME_PARSE_FORMAT))
		flagged = append(flagged, booking.BookingID)
	}
	if len(flagged) > 0 {
		log.Printf("[Reconcile] %d stale payment(s) flagged\n", len(flagged))
	}
	return flagged, nil
}

// NewReconcileTask returns the function scheduled by the reconcile job.
func NewReconcileTask(stores store.Stores, cfg config.Reconcile) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		ReconcileStalePayments(ctx, stores, time.Now().Add(-cfg.StaleAfter), cfg.BatchSize)
	}
}
