package types

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_CANCELLED BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BOOKING_PENDING, BOOKING_CONFIRMED, BOOKING_CANCELLED:
		return true
	}
	return false
}

// PaymentStatus is the payment state as seen on the Booking.
type PaymentStatus string

const (
	PAYMENT_UNPAID  PaymentStatus = "unpaid"
	PAYMENT_PENDING PaymentStatus = "pending"
	PAYMENT_PAID    PaymentStatus = "paid"
	PAYMENT_FAILED  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	METHOD_PAY_LATER PaymentMethod = "payLater"
	METHOD_FONEPAY   PaymentMethod = "fonepay"
	METHOD_PHONEPE   PaymentMethod = "phonepe"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case METHOD_PAY_LATER, METHOD_FONEPAY, METHOD_PHONEPE:
		return true
	}
	return false
}

// TransactionStatus is the state of a single Payment attempt.
type TransactionStatus string

const (
	TRANSACTION_PENDING   TransactionStatus = "pending"
	TRANSACTION_INITIATED TransactionStatus = "initiated"
	TRANSACTION_VERIFIED  TransactionStatus = "verified"
	TRANSACTION_FAILED    TransactionStatus = "failed"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

type APIEnv string

const (
	Local      APIEnv = "local"
	Test       APIEnv = "test"
	Production APIEnv = "production"
)

type CreateBookingRequestBody struct {
	BookingType   string        `json:"bookingType" binding:"required"`
	NumPeople     uint          `json:"numPeople" binding:"required,min=1"`
	Name          string        `json:"name" binding:"required"`
	Email         string        `json:"email" binding:"required,email"`
	PhoneNumber   string        `json:"phoneNumber" binding:"required"`
	Date          string        `json:"date" binding:"required"`
	DateExtended  string        `json:"dateextended,omitempty"`
	Time          string        `json:"time" binding:"required"`
	BookingFor    string        `json:"bookingFor" binding:"required"`
	Amount        float64       `json:"amount" binding:"required,gt=0"`
	PaymentMethod PaymentMethod `json:"paymentMethod" binding:"required,paymentmethod"`
}

// VerifyPaymentRequestBody leaves transactionId and screenshot optional;
// which of them are needed depends on the payment method.
type VerifyPaymentRequestBody struct {
	BookingID     string        `json:"bookingId" binding:"required"`
	TransactionID string        `json:"transactionId,omitempty"`
	Screenshot    string        `json:"screenshot,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod" binding:"required,paymentmethod"`
}

type FonePayCallbackRequestBody struct {
	TransactionID string `json:"transactionId" binding:"required"`
	ReferenceID   string `json:"referenceId" binding:"required"`
	Status        string `json:"status" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

type UpdateBookingStatusRequestBody struct {
	BookingStatus BookingStatus `json:"bookingStatus" binding:"required,bookingstatus"`
	Message       string        `json:"message,omitempty"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type Claims struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}
