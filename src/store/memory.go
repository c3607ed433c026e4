package store

import (
	"context"
	"fmt"
	"hbs/src/models"
	"hbs/src/types"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryTxKey struct{}

// memoryTx is the undo log of one transaction: the value each row had before
// the transaction first wrote it, nil when the row did not exist.
type memoryTx struct {
	parent   *memoryTx
	bookings map[uint]*models.Booking
	payments map[uuid.UUID]*models.Payment
}

func newMemoryTx(parent *memoryTx) *memoryTx {
	return &memoryTx{
		parent:   parent,
		bookings: map[uint]*models.Booking{},
		payments: map[uuid.UUID]*models.Payment{},
	}
}

func txFrom(ctx context.Context) *memoryTx {
	tx, _ := ctx.Value(memoryTxKey{}).(*memoryTx)
	return tx
}

// Memory keeps bookings and payments in process. Top level transactions are
// serialized. A rollback restores only the rows its transaction wrote, so
// writes made outside it survive.
type Memory struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	seq      uint
	bookings map[uint]models.Booking
	payments map[uuid.UUID]models.Payment

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		bookings: map[uint]models.Booking{},
		payments: map[uuid.UUID]models.Payment{},
		now:      time.Now,
	}
}

// SetClock replaces the time source used for CreatedAt and UpdatedAt.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Stores() Stores {
	return Stores{
		Bookings: &memoryBookings{m},
		Payments: &memoryPayments{m},
		Tx:       m,
	}
}

func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	parent := txFrom(ctx)
	if parent == nil {
		m.txMu.Lock()
		defer m.txMu.Unlock()
	}
	tx := newMemoryTx(parent)

	if err := fn(context.WithValue(ctx, memoryTxKey{}, tx)); err != nil {
		m.mu.Lock()
		m.undo(tx)
		m.mu.Unlock()
		return err
	}
	if parent != nil {
		m.mu.Lock()
		parent.absorb(tx)
		m.mu.Unlock()
	}
	return nil
}

// undo must be called with mu held.
func (m *Memory) undo(tx *memoryTx) {
	for id, before := range tx.bookings {
		if before == nil {
			delete(m.bookings, id)
			continue
		}
		m.bookings[id] = *before
	}
	for id, before := range tx.payments {
		if before == nil {
			delete(m.payments, id)
			continue
		}
		m.payments[id] = *before
	}
}

// absorb hands a committed savepoint's log to its parent, keeping the
// parent's older entries.
func (tx *memoryTx) absorb(child *memoryTx) {
	for id, before := range child.bookings {
		if _, ok := tx.bookings[id]; !ok {
			tx.bookings[id] = before
		}
	}
	for id, before := range child.payments {
		if _, ok := tx.payments[id]; !ok {
			tx.payments[id] = before
		}
	}
}

// touchBooking and touchPayment record the row before its first write in
// the transaction carried by ctx. Both must be called with mu held.
func (m *Memory) touchBooking(ctx context.Context, id uint) {
	tx := txFrom(ctx)
	if tx == nil {
		return
	}
	if _, ok := tx.bookings[id]; ok {
		return
	}
	if b, ok := m.bookings[id]; ok {
		tx.bookings[id] = &b
		return
	}
	tx.bookings[id] = nil
}

func (m *Memory) touchPayment(ctx context.Context, id uuid.UUID) {
	tx := txFrom(ctx)
	if tx == nil {
		return
	}
	if _, ok := tx.payments[id]; ok {
		return
	}
	if p, ok := m.payments[id]; ok {
		tx.payments[id] = &p
		return
	}
	tx.payments[id] = nil
}

type memoryBookings struct {
	m *Memory
}

func (s *memoryBookings) Create(ctx context.Context, booking *models.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for _, b := range s.m.bookings {
		if b.BookingID == booking.BookingID {
			return fmt.Errorf("%w: booking_id %s", ErrDuplicateKey, booking.BookingID)
		}
	}
	s.m.seq++
	booking.ID = s.m.seq
	if booking.BookingStatus == "" {
		booking.BookingStatus = types.BOOKING_PENDING
	}
	if booking.PaymentStatus == "" {
		booking.PaymentStatus = types.PAYMENT_UNPAID
	}
	now := s.m.now()
	booking.CreatedAt, booking.UpdatedAt = now, now

	stored := *booking
	stored.User, stored.Payment = nil, nil
	s.m.touchBooking(ctx, stored.ID)
	s.m.bookings[stored.ID] = stored
	return nil
}

func (s *memoryBookings) find(match func(models.Booking) bool) (*models.Booking, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, b := range s.m.bookings {
		if match(b) {
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryBookings) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	return s.find(func(b models.Booking) bool { return b.ID == id })
}

func (s *memoryBookings) FindByBookingID(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.find(func(b models.Booking) bool { return b.BookingID == bookingID })
}

func (s *memoryBookings) FindOwned(ctx context.Context, bookingID string, userID uint) (*models.Booking, error) {
	return s.find(func(b models.Booking) bool { return b.BookingID == bookingID && b.UserID == userID })
}

func (s *memoryBookings) list(match func(models.Booking) bool, withPayment bool) []models.Booking {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	bookings := []models.Booking{}
	for _, b := range s.m.bookings {
		if !match(b) {
			continue
		}
		if withPayment && b.PaymentID != nil {
			if p, ok := s.m.payments[*b.PaymentID]; ok {
				b.Payment = &p
			}
		}
		bookings = append(bookings, b)
	}
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID > bookings[j].ID
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings
}

func (s *memoryBookings) ListAll(ctx context.Context) ([]models.Booking, error) {
	return s.list(func(models.Booking) bool { return true }, false), nil
}

func (s *memoryBookings) ListByUser(ctx context.Context, userID uint) ([]models.Booking, error) {
	return s.list(func(b models.Booking) bool { return b.UserID == userID }, true), nil
}

// update applies fn to the stored booking; fn reports whether it changed anything.
func (s *memoryBookings) update(ctx context.Context, id uint, fn func(b *models.Booking) bool) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	b, ok := s.m.bookings[id]
	if !ok {
		return false, ErrNotFound
	}
	if !fn(&b) {
		return false, nil
	}
	b.UpdatedAt = s.m.now()
	s.m.touchBooking(ctx, id)
	s.m.bookings[id] = b
	return true, nil
}

func (s *memoryBookings) LinkPayment(ctx context.Context, id uint, paymentID uuid.UUID) error {
	_, err := s.update(ctx, id, func(b *models.Booking) bool {
		b.PaymentID = &paymentID
		return true
	})
	return err
}

func (s *memoryBookings) SetPaymentStatus(ctx context.Context, id uint, from []types.PaymentStatus, to types.PaymentStatus) (bool, error) {
	changed, err := s.update(ctx, id, func(b *models.Booking) bool {
		if !slices.Contains(from, b.PaymentStatus) {
			return false
		}
		b.PaymentStatus = to
		return true
	})
	if err == ErrNotFound {
		return false, nil
	}
	return changed, err
}

func (s *memoryBookings) MarkPaid(ctx context.Context, id uint, confirm bool) (bool, error) {
	changed, err := s.update(ctx, id, func(b *models.Booking) bool {
		changed := false
		if b.PaymentStatus != types.PAYMENT_PAID {
			b.PaymentStatus = types.PAYMENT_PAID
			changed = true
		}
		if confirm && b.BookingStatus == types.BOOKING_PENDING {
			b.BookingStatus = types.BOOKING_CONFIRMED
			changed = true
		}
		return changed
	})
	if err == ErrNotFound {
		return false, nil
	}
	return changed, err
}

func (s *memoryBookings) UpdateStatus(ctx context.Context, id uint, status types.BookingStatus, message string) (*models.Booking, error) {
	var refused bool
	if _, err := s.update(ctx, id, func(b *models.Booking) bool {
		if status == types.BOOKING_CONFIRMED && b.PaymentStatus != types.PAYMENT_PAID {
			refused = true
			return false
		}
		b.BookingStatus = status
		if message != "" {
			b.Message = message
		}
		return true
	}); err != nil {
		return nil, err
	}
	if refused {
		return nil, ErrInvariant
	}
	return s.FindByID(ctx, id)
}

type memoryPayments struct {
	m *Memory
}

func (s *memoryPayments) Create(ctx context.Context, payment *models.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	for _, p := range s.m.payments {
		if p.BookingID == payment.BookingID && p.PaymentMethod == payment.PaymentMethod {
			return fmt.Errorf("%w: payment for booking %d via %s", ErrDuplicateKey, payment.BookingID, payment.PaymentMethod)
		}
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.Currency == "" {
		payment.Currency = "NPR"
	}
	if payment.Status == "" {
		payment.Status = types.TRANSACTION_PENDING
	}
	now := s.m.now()
	payment.CreatedAt, payment.UpdatedAt = now, now
	s.m.touchPayment(ctx, payment.ID)
	s.m.payments[payment.ID] = *payment
	return nil
}

func (s *memoryPayments) find(match func(models.Payment) bool) (*models.Payment, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, p := range s.m.payments {
		if match(p) {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memoryPayments) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.find(func(p models.Payment) bool { return p.ID == id })
}

func (s *memoryPayments) FindForPayer(ctx context.Context, bookingRef uint, userID uint, method types.PaymentMethod) (*models.Payment, error) {
	return s.find(func(p models.Payment) bool {
		return p.BookingID == bookingRef && p.UserID == userID && p.PaymentMethod == method
	})
}

func (s *memoryPayments) FindForCallback(ctx context.Context, bookingRef uint, placeholder string, transactionID string) (*models.Payment, error) {
	return s.find(func(p models.Payment) bool {
		if p.BookingID != bookingRef || p.PaymentMethod != types.METHOD_FONEPAY {
			return false
		}
		return p.HasTransaction(placeholder) || p.HasTransaction(transactionID) || p.Status == types.TRANSACTION_FAILED
	})
}

func (s *memoryPayments) ListByBooking(ctx context.Context, bookingRef uint) ([]models.Payment, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	payments := []models.Payment{}
	for _, p := range s.m.payments {
		if p.BookingID == bookingRef {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].CreatedAt.Before(payments[j].CreatedAt) })
	return payments, nil
}

func (s *memoryPayments) update(ctx context.Context, id uuid.UUID, fn func(p *models.Payment) bool) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.payments[id]
	if !ok {
		return false, nil
	}
	if !fn(&p) {
		return false, nil
	}
	p.UpdatedAt = s.m.now()
	s.m.touchPayment(ctx, id)
	s.m.payments[id] = p
	return true, nil
}

func (s *memoryPayments) MarkVerified(ctx context.Context, id uuid.UUID, v Verification) (bool, error) {
	return s.update(ctx, id, func(p *models.Payment) bool {
		if p.Status == types.TRANSACTION_VERIFIED {
			return false
		}
		txid, at := v.TransactionID, v.VerifiedAt
		p.Status = types.TRANSACTION_VERIFIED
		p.TransactionID = &txid
		p.VerifiedAt = &at
		if v.Screenshot != nil {
			p.Screenshot = v.Screenshot
		}
		if v.VerifiedBy != nil {
			p.VerifiedBy = v.VerifiedBy
		}
		return true
	})
}

func (s *memoryPayments) MarkFailed(ctx context.Context, id uuid.UUID, transactionID string, at time.Time) (bool, error) {
	return s.update(ctx, id, func(p *models.Payment) bool {
		if p.Status == types.TRANSACTION_VERIFIED {
			return false
		}
		if p.Status == types.TRANSACTION_FAILED && p.HasTransaction(transactionID) {
			return false
		}
		p.Status = types.TRANSACTION_FAILED
		p.TransactionID = &transactionID
		p.VerifiedAt = &at
		return true
	})
}

func (s *memoryPayments) ListStale(ctx context.Context, method types.PaymentMethod, status types.TransactionStatus, olderThan time.Time, limit int) ([]models.Payment, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	payments := []models.Payment{}
	for _, p := range s.m.payments {
		if p.PaymentMethod == method && p.Status == status && p.CreatedAt.Before(olderThan) {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].CreatedAt.Before(payments[j].CreatedAt) })
	if limit > 0 && len(payments) > limit {
		payments = payments[:limit]
	}
	return payments, nil
}
