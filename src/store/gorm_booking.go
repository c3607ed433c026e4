package store

import (
	"context"
	"hbs/src/models"
	"hbs/src/models/scopes"
	"hbs/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormBookingStore struct {
	db *gorm.DB
}

func (s *GormBookingStore) Create(ctx context.Context, booking *models.Booking) error {
	return translate(conn(ctx, s.db).Create(booking).Error)
}

func (s *GormBookingStore) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := conn(ctx, s.db).
		Model(&models.Booking{}).
		Scopes(scopes.WithID(id)).
		First(&booking).
		Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (s *GormBookingStore) FindByBookingID(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	if err := conn(ctx, s.db).
		Model(&models.Booking{}).
		Scopes(scopes.WithBookingID(bookingID)).
		First(&booking).
		Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (s *GormBookingStore) FindOwned(ctx context.Context, bookingID string, userID uint) (*models.Booking, error) {
	var booking models.Booking
	if err := conn(ctx, s.db).
		Model(&models.Booking{}).
		Scopes(scopes.WithBookingID(bookingID), scopes.OwnedBy(userID)).
		First(&booking).
		Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (s *GormBookingStore) ListAll(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := conn(ctx, s.db).
		Model(&models.Booking{}).
		Scopes(scopes.NewestFirst).
		Find(&bookings).
		Error; err != nil {
		return nil, translate(err)
	}
	return bookings, nil
}

func (s *GormBookingStore) ListByUser(ctx context.Context, userID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := conn(ctx, s.db).
		Model(&models.Booking{}).
		Scopes(scopes.OwnedBy(userID), scopes.NewestFirst).
		Preload("Payment").
		Find(&bookings).
		Error; err != nil {
		return nil, translate(err)
	}
	return bookings, nil
}

func (s *GormBookingStore) LinkPayment(ctx context.Context, id uint, paymentID uuid.UUID) error {
	res := conn(ctx, s.db).
		Model(&models.Booking{}).
		Scopes(scopes.WithID(id)).
		Update("payment_id", paymentID)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormBookingStore) SetPaymentStatus(ctx context.Context, id uint, from []types.PaymentStatus, to types.PaymentStatus) (bool, error) {
	res := conn(ctx, s.db).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Where("payment_status IN ?", from).
		Update("payment_status", to)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormBookingStore) MarkPaid(ctx context.Context, id uint, confirm bool) (bool, error) {
	db := conn(ctx, s.db)
	res := db.
		Model(&models.Booking{}).
		Where("id = ?", id).
		Where("payment_status <> ?", types.PAYMENT_PAID).
		Update("payment_status", types.PAYMENT_PAID)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	changed := res.RowsAffected > 0
	if !confirm {
		return changed, nil
	}
	res = db.
		Model(&models.Booking{}).
		Where("id = ?", id).
		Where("payment_status = ?", types.PAYMENT_PAID).
		Where("booking_status = ?", types.BOOKING_PENDING).
		Update("booking_status", types.BOOKING_CONFIRMED)
	if res.Error != nil {
		return changed, translate(res.Error)
	}
	return changed || res.RowsAffected > 0, nil
}

func (s *GormBookingStore) UpdateStatus(ctx context.Context, id uint, status types.BookingStatus, message string) (*models.Booking, error) {
	updates := map[string]any{"booking_status": status}
	if message != "" {
		updates["message"] = message
	}
	q := conn(ctx, s.db).
		Model(&models.Booking{}).
		Where("id = ?", id)
	if status == types.BOOKING_CONFIRMED {
		q = q.Where("payment_status = ?", types.PAYMENT_PAID)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	booking, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 && status == types.BOOKING_CONFIRMED && booking.PaymentStatus != types.PAYMENT_PAID {
		return nil, ErrInvariant
	}
	return booking, nil
}
