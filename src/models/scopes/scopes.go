package scopes

import (
	"hbs/src/types"

	"gorm.io/gorm"
)

func WithID(id any) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

func WithBookingID(bookingID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("booking_id = ?", bookingID)
	}
}

func OwnedBy(userID uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

func NewestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at desc")
}

func OldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at asc")
}

// NotVerified keeps settled payments out of an update.
func NotVerified(db *gorm.DB) *gorm.DB {
	return db.Where("status <> ?", types.TRANSACTION_VERIFIED)
}
