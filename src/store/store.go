package store

import (
	"context"
	"errors"
	"hbs/src/models"
	"hbs/src/types"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvariant is returned when a write would leave a booking confirmed
	// but not paid.
	ErrInvariant = errors.New("booking cannot be confirmed before it is paid")
)

// BookingStore persists the booking lifecycle.
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByBookingID(ctx context.Context, bookingID string) (*models.Booking, error)
	// FindOwned only returns the booking when it belongs to userID.
	FindOwned(ctx context.Context, bookingID string, userID uint) (*models.Booking, error)
	ListAll(ctx context.Context) ([]models.Booking, error)
	// ListByUser returns newest first with the linked payment preloaded.
	ListByUser(ctx context.Context, userID uint) ([]models.Booking, error)
	LinkPayment(ctx context.Context, id uint, paymentID uuid.UUID) error
	// SetPaymentStatus moves the booking to `to` only while it is in one of `from`.
	SetPaymentStatus(ctx context.Context, id uint, from []types.PaymentStatus, to types.PaymentStatus) (bool, error)
	// MarkPaid sets payment_status=paid and, when confirm is set, moves a
	// pending booking to confirmed. Both writes are conditional so repeating
	// the call changes nothing.
	MarkPaid(ctx context.Context, id uint, confirm bool) (bool, error)
	UpdateStatus(ctx context.Context, id uint, status types.BookingStatus, message string) (*models.Booking, error)
}

// Verification carries the fields written when a payment is verified.
type Verification struct {
	TransactionID string
	Screenshot    *string
	VerifiedBy    *uint
	VerifiedAt    time.Time
}

// PaymentStore persists payment attempts.
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindForPayer(ctx context.Context, bookingRef uint, userID uint, method types.PaymentMethod) (*models.Payment, error)
	// FindForCallback finds the fonepay payment of a booking that a gateway
	// callback refers to: the row still holding the placeholder transaction
	// id, the row already updated with transactionID, or a failed row.
	FindForCallback(ctx context.Context, bookingRef uint, placeholder string, transactionID string) (*models.Payment, error)
	ListByBooking(ctx context.Context, bookingRef uint) ([]models.Payment, error)
	// MarkVerified is a no-op for a payment that is already verified.
	MarkVerified(ctx context.Context, id uuid.UUID, v Verification) (bool, error)
	// MarkFailed never touches a verified payment nor a payment that already
	// failed with the same transaction id.
	MarkFailed(ctx context.Context, id uuid.UUID, transactionID string, at time.Time) (bool, error)
	ListStale(ctx context.Context, method types.PaymentMethod, status types.TransactionStatus, olderThan time.Time, limit int) ([]models.Payment, error)
}

// TxManager runs fn inside one transaction. Stores called with the ctx
// passed to fn take part in it.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Stores bundles what the payment flow needs from persistence.
type Stores struct {
	Bookings BookingStore
	Payments PaymentStore
	Tx       TxManager
}
