package repository

import (
	"itp-scheduler/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLogRepository interface {
	Create(db *gorm.DB, log *entity.AuditLog) error
	FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) ([]entity.AuditLog, error)
}
