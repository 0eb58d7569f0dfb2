package repository

import (
	"time"

	"itp-scheduler/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByApprovalToken(db *gorm.DB, token string) (*entity.Appointment, error)
	FindByConfirmationCode(db *gorm.DB, code string) (*entity.Appointment, error)
	FindByPhone(db *gorm.DB, phone string) ([]entity.Appointment, error)
	FindByPlate(db *gorm.DB, plate string) ([]entity.Appointment, error)
	FindByDate(db *gorm.DB, date time.Time) ([]entity.Appointment, error)
	FindActiveByDate(db *gorm.DB, date time.Time) ([]entity.Appointment, error)
	FindLatestPassedByPlate(db *gorm.DB, plate string) (*entity.Appointment, error)
	Update(db *gorm.DB, appointment *entity.Appointment) error
	// UpdateIfState applies updates only while the row still has the given
	// version and one of the allowed statuses. The version is bumped.
	UpdateIfState(db *gorm.DB, id uuid.UUID, version int, allowed []entity.AppointmentStatus, updates map[string]any) (int64, error)
	Delete(db *gorm.DB, id uuid.UUID) (int64, error)
}
