package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type txKey struct{}

// NewGorm wires the postgres-backed stores around one gorm handle.
func NewGorm(db *gorm.DB) Stores {
	return Stores{
		Bookings: &GormBookingStore{db: db},
		Payments: &GormPaymentStore{db: db},
		Tx:       &GormTxManager{db: db},
	}
}

type GormTxManager struct {
	db *gorm.DB
}

func (m *GormTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		// nested calls run under a savepoint
		return tx.Transaction(func(tx *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		})
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", ErrDuplicateKey, err.Error())
	}
	return err
}
