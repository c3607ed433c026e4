package store

import (
	"context"
	"hbs/src/models"
	"hbs/src/models/scopes"
	"hbs/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormPaymentStore struct {
	db *gorm.DB
}

func (s *GormPaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return translate(conn(ctx, s.db).Create(payment).Error)
}

func (s *GormPaymentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, s.db).
		Model(&models.Payment{}).
		Scopes(scopes.WithID(id)).
		First(&payment).
		Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *GormPaymentStore) FindForPayer(ctx context.Context, bookingRef uint, userID uint, method types.PaymentMethod) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, s.db).
		Model(&models.Payment{}).
		Where("booking_id = ? AND user_id = ? AND payment_method = ?", bookingRef, userID, method).
		First(&payment).
		Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *GormPaymentStore) FindForCallback(ctx context.Context, bookingRef uint, placeholder string, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, s.db).
		Model(&models.Payment{}).
		Where("booking_id = ? AND payment_method = ?", bookingRef, types.METHOD_FONEPAY).
		Where("(transaction_id IN ? OR status = ?)", []string{placeholder, transactionID}, types.TRANSACTION_FAILED).
		First(&payment).
		Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *GormPaymentStore) ListByBooking(ctx context.Context, bookingRef uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := conn(ctx, s.db).
		Model(&models.Payment{}).
		Where("booking_id = ?", bookingRef).
		Scopes(scopes.OldestFirst).
		Find(&payments).
		Error; err != nil {
		return nil, translate(err)
	}
	return payments, nil
}

func (s *GormPaymentStore) MarkVerified(ctx context.Context, id uuid.UUID, v Verification) (bool, error) {
	updates := map[string]any{
		"status":         types.TRANSACTION_VERIFIED,
		"transaction_id": v.TransactionID,
		"verified_at":    v.VerifiedAt,
	}
	if v.Screenshot != nil {
		updates["screenshot"] = *v.Screenshot
	}
	if v.VerifiedBy != nil {
		updates["verified_by"] = *v.VerifiedBy
	}
	res := conn(ctx, s.db).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Scopes(scopes.NotVerified).
		Updates(updates)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormPaymentStore) MarkFailed(ctx context.Context, id uuid.UUID, transactionID string, at time.Time) (bool, error) {
	res := conn(ctx, s.db).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Scopes(scopes.NotVerified).
		Where("NOT (status = ? AND transaction_id = ?)", types.TRANSACTION_FAILED, transactionID).
		Updates(map[string]any{
			"status":         types.TRANSACTION_FAILED,
			"transaction_id": transactionID,
			"verified_at":    at,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormPaymentStore) ListStale(ctx context.Context, method types.PaymentMethod, status types.TransactionStatus, olderThan time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	if err := conn(ctx, s.db).
		Model(&models.Payment{}).
		Where("payment_method = ? AND status = ?", method, status).
		Where("created_at < ?", olderThan).
		Scopes(scopes.OldestFirst).
		Limit(limit).
		Find(&payments).
		Error; err != nil {
		return nil, translate(err)
	}
	return payments, nil
}
