package models

import (
	"hbs/src/types"
	"time"

	"github.com/google/uuid"
)

// Payment is one payment attempt for a Booking. The composite unique index
// keeps a single row per (booking, method).
type Payment struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	BookingID     uint                    `gorm:"not null;uniqueIndex:idx_payments_booking_method" json:"booking"`
	UserID        uint                    `gorm:"not null;index" json:"user"`
	Amount        float64                 `gorm:"not null" json:"amount"`
	Currency      string                  `gorm:"default:'NPR'" json:"currency"`
	PaymentMethod types.PaymentMethod     `gorm:"not null;uniqueIndex:idx_payments_booking_method" json:"paymentMethod"`
	TransactionID *string                 `gorm:"index" json:"transactionId,omitempty"`
	Status        types.TransactionStatus `gorm:"default:'pending';index" json:"status"`
	Screenshot    *string                 `json:"screenshot,omitempty"`
	VerifiedBy    *uint                   `json:"verifiedBy,omitempty"`
	VerifiedAt    *time.Time              `json:"verifiedAt,omitempty"`

	types.Timestamps
}

func (p *Payment) HasTransaction(id string) bool {
	return p.TransactionID != nil && *p.TransactionID == id
}
