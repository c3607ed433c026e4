package models

import (
	"hbs/src/types"

	"github.com/google/uuid"
)

type Booking struct {
	ID            uint                `gorm:"primarykey" json:"id"`
	BookingID     string              `gorm:"uniqueIndex;size:10;not null" json:"bookingId"`
	BookingType   string              `gorm:"not null" json:"bookingType"`
	NumPeople     uint                `json:"numPeople"`
	Name          string              `json:"name"`
	Email         string              `json:"email"`
	PhoneNumber   string              `json:"phoneNumber"`
	Date          string              `json:"date"`
	DateExtended  string              `json:"dateextended,omitempty"`
	Time          string              `json:"time"`
	BookingFor    string              `json:"bookingFor"`
	BookingStatus types.BookingStatus `gorm:"default:'pending';index" json:"bookingStatus"`
	PaymentStatus types.PaymentStatus `gorm:"default:'unpaid';index" json:"paymentStatus"`
	Amount        float64             `gorm:"not null" json:"amount"`
	Message       string              `json:"message,omitempty"`
	UserID        uint                `gorm:"index;not null" json:"user"`
	PaymentID     *uuid.UUID          `gorm:"type:uuid" json:"paymentId,omitempty"`

	User    *User    `gorm:"foreignKey:UserID" json:"-"`
	Payment *Payment `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`

	types.Timestamps
}

// Payable reports whether the booking can still take a payment.
func (b *Booking) Payable() bool {
	return b.PaymentStatus != types.PAYMENT_PAID && b.BookingStatus != types.BOOKING_CANCELLED
}
