package repository

import (
	"time"

	"itp-scheduler/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkingHoursRepository interface {
	FindAll(db *gorm.DB) ([]entity.WorkingHours, error)
	FindByDay(db *gorm.DB, dayOfWeek int) (*entity.WorkingHours, error)
	Upsert(db *gorm.DB, hours *entity.WorkingHours) error
	Count(db *gorm.DB) (int64, error)
}

type HolidayRepository interface {
	Create(db *gorm.DB, holiday *entity.Holiday) error
	FindAll(db *gorm.DB) ([]entity.Holiday, error)
	FindByYear(db *gorm.DB, year int) ([]entity.Holiday, error)
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Holiday, error)
	FindByDate(db *gorm.DB, date time.Time) (*entity.Holiday, error)
	Delete(db *gorm.DB, id uuid.UUID) (int64, error)
}

type BookingDayRepository interface {
	// Lock creates the row for date if missing and locks it until the
	// surrounding transaction ends.
	Lock(db *gorm.DB, date time.Time) error
}
