package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLog represents one appointment audit trail entry
type AuditLog struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	AppointmentID *uuid.UUID     `gorm:"type:uuid;index" json:"appointment_id,omitempty"`
	Actor         string         `gorm:"type:varchar(100);not null;default:'system'" json:"actor"`
	Action        string         `gorm:"type:varchar(100);not null;index" json:"action"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Common audit actions
const (
	AuditActionAppointmentCreate     = "appointment.create"
	AuditActionAppointmentUpdate     = "appointment.update"
	AuditActionAppointmentReschedule = "appointment.reschedule"
	AuditActionAppointmentDelete     = "appointment.delete"
	AuditActionAppointmentConfirm    = "appointment.confirm"
	AuditActionAppointmentCancel     = "appointment.cancel"
	AuditActionAppointmentStart      = "appointment.start_inspection"
	AuditActionAppointmentBlock      = "appointment.rar_blocked"
	AuditActionAppointmentResult     = "appointment.result"
	AuditActionAppointmentQuickPass  = "appointment.quick_pass"
	AuditActionAppointmentComplete   = "appointment.complete"
	AuditActionAppointmentNoShow     = "appointment.no_show"
	AuditActionCertificateIssue      = "certificate.issue"
	AuditActionWorkingHoursUpdate    = "working_hours.update"
	AuditActionHolidayCreate         = "holiday.create"
	AuditActionHolidayDelete         = "holiday.delete"
)
