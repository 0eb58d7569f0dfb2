package repository

import (
	"time"

	"itp-scheduler/internal/domain/entity"
	domainRepo "itp-scheduler/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type bookingDayRepository struct{}

func NewBookingDayRepository() domainRepo.BookingDayRepository {
	return &bookingDayRepository{}
}

// Lock must run inside a transaction. Postgres holds the row lock until
// commit; SQLite serializes writers at the database level instead.
func (r *bookingDayRepository) Lock(db *gorm.DB, date time.Time) error {
	day := entity.BookingDay{Date: date}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&day).Error; err != nil {
		return err
	}

	var locked entity.BookingDay
	return db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("date = ?", date).
		First(&locked).Error
}
