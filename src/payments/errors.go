package payments

import (
	"errors"
	"fmt"
	"hbs/src/types"
	"net/http"
)

type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindGatewayUnavailable Kind = "gateway_unavailable"
	KindGatewayRejected    Kind = "gateway_rejected"
	KindSignatureInvalid   Kind = "signature_invalid"
	KindIntegrity          Kind = "integrity"
	KindConflict           Kind = "conflict"
	KindStore              Kind = "store"
)

var (
	ErrPaymentRecordNotFound = errors.New("payment record not found")
	ErrBookingIDExhausted    = errors.New("could not generate a unique booking id")
)

// Error carries the failing stage and the booking it concerns so callers can
// tell a partial failure apart from a rejected request.
type Error struct {
	Kind      Kind
	Op        string
	BookingID string
	Method    types.PaymentMethod
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.BookingID != "" {
		msg += " (booking " + e.BookingID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, bookingID string, method types.PaymentMethod, err error) *Error {
	return &Error{Kind: kind, Op: op, BookingID: bookingID, Method: method, Err: err}
}

func validationError(op string, method types.PaymentMethod, msg string) *Error {
	return newError(KindValidation, op, "", method, errors.New(msg))
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error kind to the response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindSignatureInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindGatewayUnavailable:
		return http.StatusBadGateway
	case KindGatewayRejected:
		return http.StatusPaymentRequired
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Message is the client facing text for err.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Something went wrong"
	}
	switch e.Kind {
	case KindValidation:
		return e.Err.Error()
	case KindNotFound:
		return "Booking or payment not found"
	case KindGatewayUnavailable:
		return "Payment gateway is unavailable, please try again"
	case KindGatewayRejected:
		return "Payment verification failed"
	case KindSignatureInvalid:
		return "Invalid signature"
	case KindConflict:
		return e.Err.Error()
	}
	return "Something went wrong"
}
