package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending    AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed  AppointmentStatus = "CONFIRMED"
	AppointmentStatusInProgress AppointmentStatus = "IN_PROGRESS"
	AppointmentStatusRarBlocked AppointmentStatus = "RAR_BLOCKED"
	AppointmentStatusCompleted  AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled  AppointmentStatus = "CANCELLED"
	AppointmentStatusNoShow     AppointmentStatus = "NO_SHOW"
)

// NonTerminalStatuses are the states an appointment can still leave.
var NonTerminalStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusInProgress,
	AppointmentStatusRarBlocked,
}

// IsTerminal reports whether no transition leaves s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled || s == AppointmentStatusNoShow
}

// ITPResult is the outcome of a periodic technical inspection
type ITPResult string

const (
	ITPResultPass                 ITPResult = "PASS"
	ITPResultPassWithObservations ITPResult = "PASS_WITH_OBSERVATIONS"
	ITPResultFail                 ITPResult = "FAIL"
)

// IsPassing reports whether the result earns a certificate.
func (r ITPResult) IsPassing() bool {
	return r == ITPResultPass || r == ITPResultPassWithObservations
}

// ServiceType identifies what the appointment is booked for
type ServiceType string

const (
	ServiceTypeITP        ServiceType = "ITP"
	ServiceTypeDiagnostic ServiceType = "DIAGNOSTIC"
	ServiceTypeOther      ServiceType = "OTHER"
)

// Appointment is a time-boxed station booking.
// Client and vehicle data are denormalized at booking time; ClientID is a weak
// reference set once the client is recognized.
type Appointment struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConfirmationCode string    `gorm:"type:varchar(6);uniqueIndex;not null" json:"confirmation_code"`
	ApprovalToken    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`

	AppointmentDate time.Time `gorm:"type:date;not null;index:idx_appointments_date_status,priority:1" json:"appointment_date"`
	StartTime       string    `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime         string    `gorm:"type:varchar(5);not null" json:"end_time"`
	Duration        int       `gorm:"not null" json:"duration"`

	ClientID    *uuid.UUID `gorm:"type:uuid;index" json:"client_id,omitempty"`
	ClientName  string     `gorm:"type:varchar(255);not null" json:"client_name"`
	ClientPhone string     `gorm:"type:varchar(20);not null;index" json:"client_phone"`
	ClientEmail string     `gorm:"type:varchar(255)" json:"client_email,omitempty"`

	VehiclePlate      string `gorm:"type:varchar(20);not null;index" json:"vehicle_plate"`
	VehicleMake       string `gorm:"type:varchar(100)" json:"vehicle_make,omitempty"`
	VehicleModel      string `gorm:"type:varchar(100)" json:"vehicle_model,omitempty"`
	VehicleYear       int    `json:"vehicle_year,omitempty"`
	VehicleCategory   string `gorm:"type:varchar(32);not null" json:"vehicle_category"`
	VehicleSpecialUse bool   `gorm:"not null;default:false" json:"vehicle_special_use"`

	ServiceType ServiceType      `gorm:"type:varchar(32);not null" json:"service_type"`
	Price       *decimal.Decimal `gorm:"type:decimal(10,2)" json:"price,omitempty"`
	Notes       string           `gorm:"type:text" json:"notes,omitempty"`

	Status       AppointmentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_appointments_date_status,priority:2" json:"status"`
	ConfirmedAt  *time.Time        `json:"confirmed_at,omitempty"`
	CancelledAt  *time.Time        `json:"cancelled_at,omitempty"`
	RarBlockedAt *time.Time        `json:"rar_blocked_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	CancelReason string            `gorm:"type:text" json:"cancel_reason,omitempty"`
	ITPResult    *ITPResult        `gorm:"column:itp_result;type:varchar(32)" json:"itp_result,omitempty"`
	ITPNotes     string            `gorm:"column:itp_notes;type:text" json:"itp_notes,omitempty"`
	IsRarBlocked bool              `gorm:"not null;default:false" json:"is_rar_blocked"`
	Version      int               `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Client *Client `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL" json:"client,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsPending checks if the appointment still awaits approval
func (a *Appointment) IsPending() bool {
	return a.Status == AppointmentStatusPending
}

// IsCancelled checks if the appointment was cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// IsTerminal checks if the appointment reached a final state
func (a *Appointment) IsTerminal() bool {
	return a.Status.IsTerminal()
}
