package repository

import (
	"errors"

	"itp-scheduler/internal/domain/entity"
	domainRepo "itp-scheduler/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type workingHoursRepository struct{}

func NewWorkingHoursRepository() domainRepo.WorkingHoursRepository {
	return &workingHoursRepository{}
}

func (r *workingHoursRepository) FindAll(db *gorm.DB) ([]entity.WorkingHours, error) {
	var hours []entity.WorkingHours
	if err := db.Order("day_of_week ASC").Find(&hours).Error; err != nil {
		return nil, err
	}
	return hours, nil
}

func (r *workingHoursRepository) FindByDay(db *gorm.DB, dayOfWeek int) (*entity.WorkingHours, error) {
	var hours entity.WorkingHours
	err := db.Where("day_of_week = ?", dayOfWeek).First(&hours).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &hours, nil
}

// Upsert inserts or replaces the row keyed by day_of_week.
func (r *workingHoursRepository) Upsert(db *gorm.DB, hours *entity.WorkingHours) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day_of_week"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_open", "open_time", "close_time", "break_start", "break_end",
			"slot_duration", "max_appointments", "updated_at",
		}),
	}).Create(hours).Error
}

func (r *workingHoursRepository) Count(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&entity.WorkingHours{}).Count(&count).Error
	return count, err
}
