package repository

import (
	"errors"
	"time"

	"itp-scheduler/internal/domain/entity"
	domainRepo "itp-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type holidayRepository struct{}

func NewHolidayRepository() domainRepo.HolidayRepository {
	return &holidayRepository{}
}

func (r *holidayRepository) Create(db *gorm.DB, holiday *entity.Holiday) error {
	return db.Create(holiday).Error
}

func (r *holidayRepository) FindAll(db *gorm.DB) ([]entity.Holiday, error) {
	var holidays []entity.Holiday
	if err := db.Order("date ASC").Find(&holidays).Error; err != nil {
		return nil, err
	}
	return holidays, nil
}

// FindByYear returns the holidays dated within year plus every recurring one.
func (r *holidayRepository) FindByYear(db *gorm.DB, year int) ([]entity.Holiday, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	var holidays []entity.Holiday
	err := db.Where("(date >= ? AND date < ?) OR is_recurring = ?", from, to, true).
		Order("date ASC").
		Find(&holidays).Error
	if err != nil {
		return nil, err
	}
	return holidays, nil
}

func (r *holidayRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Holiday, error) {
	var holiday entity.Holiday
	err := db.Where("id = ?", id).First(&holiday).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &holiday, nil
}

func (r *holidayRepository) FindByDate(db *gorm.DB, date time.Time) (*entity.Holiday, error) {
	var holiday entity.Holiday
	err := db.Where("date = ?", date).First(&holiday).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &holiday, nil
}

func (r *holidayRepository) Delete(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Where("id = ?", id).Delete(&entity.Holiday{})
	return result.RowsAffected, result.Error
}
