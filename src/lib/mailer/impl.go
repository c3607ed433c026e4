package mailer

import (
	"context"
	"fmt"
	"hbs/src/lib"
	"hbs/src/payments"
	"os"
	"strconv"
)

type SendFunc func(input *lib.SendMailInput) error

// BookingNotifier emails the booking contact when a booking is created or
// its payment settles.
type BookingNotifier struct {
	from     string
	fromName string
	send     SendFunc
}

func NewBookingNotifier(send SendFunc) *BookingNotifier {
	if send == nil {
		send = lib.SendMail
	}
	fromName := os.Getenv("SMTP_FROM_NAME")
	if fromName == "" {
		fromName = "Hotel Bookings"
	}
	return &BookingNotifier{
		from:     os.Getenv("SMTP_FROM"),
		fromName: fromName,
		send:     send,
	}
}

func (m *BookingNotifier) Notify(ctx context.Context, n payments.Notification) error {
	if n.Booking.Email == "" {
		return nil
	}
	subject, body := compose(n)
	if subject == "" {
		return nil
	}
	if err := m.send(&lib.SendMailInput{
		From:     m.from,
		FromName: m.fromName,
		To:       []string{n.Booking.Email},
		Subject:  subject,
		Body:     body,
		Html:     true,
	}); err != nil {
		return fmt.Errorf("error sending %s email: %s", n.Event, err.Error())
	}
	return nil
}

func compose(n payments.Notification) (string, string) {
	b := n.Booking
	amount := strconv.FormatFloat(b.Amount, 'f', 2, 64)
	switch n.Event {
	case payments.EVENT_BOOKING_CREATED:
		return fmt.Sprintf("Booking %s received", b.BookingID),
			fmt.Sprintf("<p>Hi %s,</p><p>We received your %s booking for %s on %s at %s.</p><p>Booking ID: <b>%s</b><br/>Amount: NPR %s<br/>Payment: %s</p>",
				b.Name, b.BookingType, b.BookingFor, b.Date, b.Time, b.BookingID, amount, b.PaymentStatus)
	case payments.EVENT_PAYMENT_VERIFIED:
		return fmt.Sprintf("Payment received for booking %s", b.BookingID),
			fmt.Sprintf("<p>Hi %s,</p><p>Your payment of NPR %s for booking <b>%s</b> was received.</p><p>Booking status: %s</p>",
				b.Name, amount, b.BookingID, b.BookingStatus)
	case payments.EVENT_PAYMENT_FAILED:
		return fmt.Sprintf("Payment failed for booking %s", b.BookingID),
			fmt.Sprintf("<p>Hi %s,</p><p>Your payment for booking <b>%s</b> did not go through. You can try again from My Bookings.</p>",
				b.Name, b.BookingID)
	}
	return "", ""
}
