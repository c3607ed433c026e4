package payments

import (
	"context"
	"errors"
	"fmt"
	"hbs/src/config"
	"hbs/src/lib/fonepay"
	"hbs/src/models"
	"hbs/src/store"
	"hbs/src/types"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

const CALLBACK_STATUS_SUCCESS = "success"

// Gateway is the part of the FonePay client the orchestrator needs.
type Gateway interface {
	Initiate(ctx context.Context, req fonepay.InitiateRequest) (*fonepay.InitiateResult, error)
	Verify(ctx context.Context, providerTransactionID string, bookingReference string) (*fonepay.VerifyResult, error)
}

type SignatureVerifier interface {
	Verify(fields fonepay.Fields, signature string) bool
}

// Identity is the authenticated caller.
type Identity struct {
	UserID uint
	Role   string
}

type BookingFields struct {
	BookingType  string
	NumPeople    uint
	Name         string
	Email        string
	PhoneNumber  string
	Date         string
	DateExtended string
	Time         string
	BookingFor   string
	Amount       float64
}

type PaymentInfo struct {
	PaymentURL            string    `json:"paymentUrl"`
	PaymentID             uuid.UUID `json:"paymentId"`
	ProviderTransactionID string    `json:"transactionId,omitempty"`
}

type CreateResult struct {
	Booking         *models.Booking
	PaymentRequired bool
	PaymentInfo     *PaymentInfo
}

type VerifyRequest struct {
	BookingID     string
	TransactionID string
	Screenshot    string
	Method        types.PaymentMethod
}

type VerifyResult struct {
	Booking *models.Booking
	Payment *models.Payment
	// Changed is false when the payment was already verified.
	Changed bool
}

type Callback struct {
	TransactionID string
	ReferenceID   string
	Status        string
	Signature     string
}

type CallbackResult struct {
	Booking  *models.Booking
	Payment  *models.Payment
	Replayed bool
}

type Orchestrator struct {
	stores   store.Stores
	gateway  Gateway
	verifier SignatureVerifier
	policy   Policy
	notifier Notifier
	guard    ReplayGuard
	newID    IDGenerator
	now      func() time.Time
}

type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithReplayGuard(g ReplayGuard) Option {
	return func(o *Orchestrator) { o.guard = g }
}

func WithIDGenerator(g IDGenerator) Option {
	return func(o *Orchestrator) { o.newID = g }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(stores store.Stores, gateway Gateway, verifier SignatureVerifier, policy Policy, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stores:   stores,
		gateway:  gateway,
		verifier: verifier,
		policy:   policy,
		notifier: nopNotifier{},
		newID:    NewBookingID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) CreateBooking(ctx context.Context, payer Identity, fields BookingFields, method types.PaymentMethod) (*CreateResult, error) {
	const op = "createBooking"
	if payer.UserID == 0 {
		return nil, validationError(op, method, "User not authenticated")
	}
	if !method.Valid() {
		return nil, validationError(op, method, fmt.Sprintf("Unsupported payment method: %s", method))
	}
	if fields.Amount <= 0 {
		return nil, validationError(op, method, "Amount must be greater than zero")
	}

	paymentStatus := types.PAYMENT_UNPAID
	if method == types.METHOD_PAY_LATER {
		paymentStatus = types.PAYMENT_PENDING
	}
	booking := &models.Booking{
		BookingType:   fields.BookingType,
		NumPeople:     fields.NumPeople,
		Name:          fields.Name,
		Email:         fields.Email,
		PhoneNumber:   fields.PhoneNumber,
		Date:          fields.Date,
		DateExtended:  fields.DateExtended,
		Time:          fields.Time,
		BookingFor:    fields.BookingFor,
		Amount:        fields.Amount,
		UserID:        payer.UserID,
		BookingStatus: types.BOOKING_PENDING,
		PaymentStatus: paymentStatus,
	}

	if method == types.METHOD_FONEPAY {
		// the booking is committed before the gateway is called and survives
		// an initiate failure
		if err := o.insertBooking(ctx, booking, method); err != nil {
			return nil, err
		}
		return o.initiateFonePay(ctx, booking)
	}

	var payment *models.Payment
	err := o.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := o.insertBooking(ctx, booking, method); err != nil {
			return err
		}
		payment = &models.Payment{
			BookingID:     booking.ID,
			UserID:        payer.UserID,
			Amount:        booking.Amount,
			Currency:      config.DEFAULT_CURRENCY,
			PaymentMethod: method,
			Status:        types.TRANSACTION_PENDING,
		}
		if err := o.stores.Payments.Create(ctx, payment); err != nil {
			return newError(KindStore, op, booking.BookingID, method, err)
		}
		if err := o.stores.Bookings.LinkPayment(ctx, booking.ID, payment.ID); err != nil {
			return newError(KindStore, op, booking.BookingID, method, err)
		}
		booking.PaymentID = &payment.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.notify(ctx, EVENT_BOOKING_CREATED, booking, payment)
	return &CreateResult{
		Booking:         booking,
		PaymentRequired: method != types.METHOD_PAY_LATER,
	}, nil
}

// insertBooking assigns a fresh booking id and retries on collisions. Each
// attempt runs in its own (nested) transaction so a failed insert does not
// poison an enclosing one.
func (o *Orchestrator) insertBooking(ctx context.Context, booking *models.Booking, method types.PaymentMethod) error {
	const op = "createBooking"
	for attempt := 1; attempt <= MAX_BOOKING_ID_ATTEMPTS; attempt++ {
		id, err := o.newID()
		if err != nil {
			return newError(KindIntegrity, op, "", method, err)
		}
		booking.BookingID = id
		err = o.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
			return o.stores.Bookings.Create(ctx, booking)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			return newError(KindStore, op, id, method, err)
		}
		log.Printf("Booking id collision on attempt %d: %s\n", attempt, id)
	}
	return newError(KindIntegrity, op, "", method, ErrBookingIDExhausted)
}

func (o *Orchestrator) initiateFonePay(ctx context.Context, booking *models.Booking) (*CreateResult, error) {
	const op = "initiatePayment"
	method := types.METHOD_FONEPAY
	result := &CreateResult{Booking: booking, PaymentRequired: true}

	res, err := o.gateway.Initiate(ctx, fonepay.InitiateRequest{
		Amount:           booking.Amount,
		BookingReference: booking.BookingID,
		ProductName:      "Booking for " + booking.BookingType,
		ProductCode:      fonepay.DEFAULT_PRODUCT_CODE,
	})
	if err != nil {
		log.Printf("[FonePay] Payment initiation failed for booking %s: %s\n", booking.BookingID, err.Error())
		kind := KindGatewayUnavailable
		if errors.Is(err, fonepay.ErrGatewayRejected) {
			kind = KindGatewayRejected
		}
		return result, newError(kind, op, booking.BookingID, method, err)
	}

	placeholder := booking.BookingID
	payment := &models.Payment{
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		Amount:        booking.Amount,
		Currency:      config.DEFAULT_CURRENCY,
		PaymentMethod: method,
		TransactionID: &placeholder,
		Status:        types.TRANSACTION_INITIATED,
	}
	err = o.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := o.stores.Payments.Create(ctx, payment); err != nil {
			return err
		}
		if err := o.stores.Bookings.LinkPayment(ctx, booking.ID, payment.ID); err != nil {
			return err
		}
		_, err := o.stores.Bookings.SetPaymentStatus(ctx, booking.ID, []types.PaymentStatus{types.PAYMENT_UNPAID}, types.PAYMENT_PENDING)
		return err
	})
	if err != nil {
		log.Printf("[FonePay] Failed to record initiated payment for booking %s: %s\n", booking.BookingID, err.Error())
		return result, newError(KindStore, op, booking.BookingID, method, err)
	}

	if fresh, err := o.stores.Bookings.FindByID(ctx, booking.ID); err != nil {
		log.Printf("[FonePay] Failed to reload booking %s after initiation: %s\n", booking.BookingID, err.Error())
		booking.PaymentID = &payment.ID
		booking.PaymentStatus = types.PAYMENT_PENDING
	} else {
		result.Booking = fresh
	}
	result.PaymentInfo = &PaymentInfo{
		PaymentURL:            res.PaymentURL,
		PaymentID:             payment.ID,
		ProviderTransactionID: res.ProviderTransactionID,
	}
	o.notify(ctx, EVENT_BOOKING_CREATED, result.Booking, payment)
	return result, nil
}

func (o *Orchestrator) VerifyPayment(ctx context.Context, payer Identity, req VerifyRequest) (*VerifyResult, error) {
	const op = "verifyPayment"
	if payer.UserID == 0 {
		return nil, validationError(op, req.Method, "User not authenticated")
	}
	switch req.Method {
	case types.METHOD_FONEPAY:
		if req.TransactionID == "" {
			return nil, validationError(op, req.Method, "Transaction ID is required for FonePay payments")
		}
	case types.METHOD_PHONEPE:
		if req.TransactionID == "" || req.Screenshot == "" {
			return nil, validationError(op, req.Method, "Transaction ID and screenshot are required for PhonePe payments")
		}
	case types.METHOD_PAY_LATER:
		return nil, validationError(op, req.Method, "Pay later bookings are settled at the property")
	default:
		return nil, validationError(op, req.Method, fmt.Sprintf("Unsupported payment method: %s", req.Method))
	}

	booking, err := o.stores.Bookings.FindOwned(ctx, req.BookingID, payer.UserID)
	if err != nil {
		return nil, o.lookupError(op, req.BookingID, req.Method, err)
	}

	if req.Method == types.METHOD_FONEPAY {
		res, err := o.gateway.Verify(ctx, req.TransactionID, booking.BookingID)
		if err != nil {
			log.Printf("[FonePay] Verification request failed for booking %s: %s\n", booking.BookingID, err.Error())
			return nil, newError(KindGatewayUnavailable, op, booking.BookingID, req.Method, err)
		}
		if !res.Verified {
			log.Printf("[FonePay] Gateway did not verify transaction %s for booking %s\n", req.TransactionID, booking.BookingID)
			return nil, newError(KindGatewayRejected, op, booking.BookingID, req.Method, fonepay.ErrGatewayRejected)
		}
	}

	payment, err := o.stores.Payments.FindForPayer(ctx, booking.ID, payer.UserID, req.Method)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("Payment record missing for booking %s method %s\n", booking.BookingID, req.Method)
			return nil, newError(KindIntegrity, op, booking.BookingID, req.Method, ErrPaymentRecordNotFound)
		}
		return nil, newError(KindStore, op, booking.BookingID, req.Method, err)
	}

	verification := store.Verification{
		TransactionID: req.TransactionID,
		VerifiedBy:    &payer.UserID,
		VerifiedAt:    o.now(),
	}
	if req.Method == types.METHOD_PHONEPE {
		screenshot := req.Screenshot
		verification.Screenshot = &screenshot
	}

	changed, err := o.settle(ctx, booking, payment, verification)
	if err != nil {
		return nil, newError(KindStore, op, booking.BookingID, req.Method, err)
	}
	booking, payment, err = o.reload(ctx, booking.ID, payment.ID)
	if err != nil {
		return nil, newError(KindStore, op, req.BookingID, req.Method, err)
	}
	if changed {
		o.notify(ctx, EVENT_PAYMENT_VERIFIED, booking, payment)
	}
	return &VerifyResult{Booking: booking, Payment: payment, Changed: changed}, nil
}

// settle verifies the payment and marks the booking paid in one transaction.
func (o *Orchestrator) settle(ctx context.Context, booking *models.Booking, payment *models.Payment, v store.Verification) (bool, error) {
	var changed bool
	err := o.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		verified, err := o.stores.Payments.MarkVerified(ctx, payment.ID, v)
		if err != nil {
			return err
		}
		paid, err := o.stores.Bookings.MarkPaid(ctx, booking.ID, o.policy.ConfirmsOnPayment(payment.PaymentMethod))
		if err != nil {
			return err
		}
		changed = verified || paid
		return nil
	})
	return changed, err
}

func (o *Orchestrator) HandleGatewayCallback(ctx context.Context, cb Callback) (*CallbackResult, error) {
	const op = "handleGatewayCallback"
	method := types.METHOD_FONEPAY

	// order: transactionId, referenceId, status
	fields := fonepay.Fields{
		{Key: "transactionId", Value: cb.TransactionID},
		{Key: "referenceId", Value: cb.ReferenceID},
		{Key: "status", Value: cb.Status},
	}
	if !o.verifier.Verify(fields, cb.Signature) {
		log.Printf("[Callback] Invalid signature for booking %s transaction %s, possible tampering\n", cb.ReferenceID, cb.TransactionID)
		return nil, newError(KindSignatureInvalid, op, cb.ReferenceID, method, errors.New("signature mismatch"))
	}

	booking, err := o.stores.Bookings.FindByBookingID(ctx, cb.ReferenceID)
	if err != nil {
		return nil, o.lookupError(op, cb.ReferenceID, method, err)
	}
	payment, err := o.stores.Payments.FindForCallback(ctx, booking.ID, booking.BookingID, cb.TransactionID)
	if err != nil {
		return nil, o.lookupError(op, cb.ReferenceID, method, err)
	}

	success := strings.EqualFold(cb.Status, CALLBACK_STATUS_SUCCESS)
	replayed := payment.Status == types.TRANSACTION_VERIFIED ||
		(!success && payment.Status == types.TRANSACTION_FAILED && payment.HasTransaction(cb.TransactionID))
	key := callbackKey(cb)
	if !replayed && o.guard != nil {
		seen, err := o.guard.Seen(ctx, key)
		if err != nil {
			log.Printf("[Callback] Replay guard unavailable: %s\n", err.Error())
		}
		replayed = seen
	}
	if replayed {
		log.Printf("[Callback] Duplicate callback for booking %s transaction %s ignored\n", booking.BookingID, cb.TransactionID)
		return &CallbackResult{Booking: booking, Payment: payment, Replayed: true}, nil
	}

	event := EVENT_PAYMENT_VERIFIED
	var changed bool
	if success {
		changed, err = o.settle(ctx, booking, payment, store.Verification{
			TransactionID: cb.TransactionID,
			VerifiedAt:    o.now(),
		})
	} else {
		event = EVENT_PAYMENT_FAILED
		err = o.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
			var err error
			changed, err = o.stores.Payments.MarkFailed(ctx, payment.ID, cb.TransactionID, o.now())
			return err
		})
	}
	if err != nil {
		return nil, newError(KindStore, op, booking.BookingID, method, err)
	}

	booking, payment, err = o.reload(ctx, booking.ID, payment.ID)
	if err != nil {
		return nil, newError(KindStore, op, cb.ReferenceID, method, err)
	}
	if o.guard != nil {
		if err := o.guard.Remember(ctx, key); err != nil {
			log.Printf("[Callback] Failed to remember callback %s: %s\n", key, err.Error())
		}
	}
	if changed {
		o.notify(ctx, event, booking, payment)
	}
	return &CallbackResult{Booking: booking, Payment: payment, Replayed: !changed}, nil
}

func callbackKey(cb Callback) string {
	return fmt.Sprintf("fonepay:callback:%s:%s:%s", cb.ReferenceID, cb.TransactionID, strings.ToLower(cb.Status))
}

// ListMine returns the caller's bookings, newest first.
func (o *Orchestrator) ListMine(ctx context.Context, payer Identity) ([]models.Booking, error) {
	bookings, err := o.stores.Bookings.ListByUser(ctx, payer.UserID)
	if err != nil {
		return nil, newError(KindStore, "listMyBookings", "", "", err)
	}
	return bookings, nil
}

func (o *Orchestrator) ListAll(ctx context.Context) ([]models.Booking, error) {
	bookings, err := o.stores.Bookings.ListAll(ctx)
	if err != nil {
		return nil, newError(KindStore, "listBookings", "", "", err)
	}
	return bookings, nil
}

// UpdateStatus is the admin override of the booking status. It cannot
// confirm a booking that is not paid.
func (o *Orchestrator) UpdateStatus(ctx context.Context, id uint, status types.BookingStatus, message string) (*models.Booking, error) {
	const op = "updateBookingStatus"
	if !status.Valid() {
		return nil, validationError(op, "", fmt.Sprintf("Invalid booking status: %s", status))
	}
	booking, err := o.stores.Bookings.UpdateStatus(ctx, id, status, message)
	switch {
	case err == nil:
		return booking, nil
	case errors.Is(err, store.ErrInvariant):
		return nil, newError(KindConflict, op, "", "", err)
	case errors.Is(err, store.ErrNotFound):
		return nil, newError(KindNotFound, op, "", "", err)
	}
	return nil, newError(KindStore, op, "", "", err)
}

func (o *Orchestrator) lookupError(op string, bookingID string, method types.PaymentMethod, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, op, bookingID, method, err)
	}
	return newError(KindStore, op, bookingID, method, err)
}

func (o *Orchestrator) reload(ctx context.Context, bookingID uint, paymentID uuid.UUID) (*models.Booking, *models.Payment, error) {
	booking, err := o.stores.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	payment, err := o.stores.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	return booking, payment, nil
}

func (o *Orchestrator) notify(ctx context.Context, event Event, booking *models.Booking, payment *models.Payment) {
	if err := o.notifier.Notify(ctx, Notification{Event: event, Booking: *booking, Payment: payment}); err != nil {
		log.Printf("Failed to send %s notification for booking %s: %s\n", event, booking.BookingID, err.Error())
	}
}
