package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateAppointmentRequest struct {
	AppointmentDate   string           `json:"appointment_date" validate:"required,isodate"` // Format: YYYY-MM-DD
	StartTime         string           `json:"start_time" validate:"required,clock"`         // Format: HH:MM
	EndTime           string           `json:"end_time" validate:"omitempty,clock"`          // Format: HH:MM
	Duration          int              `json:"duration" validate:"omitempty,gte=15,lte=480"`
	ClientName        string           `json:"client_name" validate:"required,max=255"`
	ClientPhone       string           `json:"client_phone" validate:"required,min=6,max=20"`
	ClientEmail       string           `json:"client_email" validate:"omitempty,email,max=255"`
	VehiclePlate      string           `json:"vehicle_plate" validate:"required,min=2,max=20"`
	VehicleMake       string           `json:"vehicle_make" validate:"omitempty,max=100"`
	VehicleModel      string           `json:"vehicle_model" validate:"omitempty,max=100"`
	VehicleYear       int              `json:"vehicle_year" validate:"omitempty,gte=1900,lte=2100"`
	VehicleCategory   string           `json:"vehicle_category" validate:"omitempty,oneof=PASSENGER_CAR LIGHT_COMMERCIAL HEAVY_COMMERCIAL BUS MOTORCYCLE ATV TRAILER OTHER"`
	VehicleSpecialUse bool             `json:"vehicle_special_use"`
	ServiceType       string           `json:"service_type" validate:"omitempty,oneof=ITP DIAGNOSTIC OTHER"`
	Price             *decimal.Decimal `json:"price"`
	Notes             string           `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateAppointmentRequest changes only the fields that are set.
// Any change to date, start time or duration is a reschedule.
type UpdateAppointmentRequest struct {
	AppointmentDate   *string          `json:"appointment_date" validate:"omitempty,isodate"`
	StartTime         *string          `json:"start_time" validate:"omitempty,clock"`
	Duration          *int             `json:"duration" validate:"omitempty,gte=15,lte=480"`
	ClientName        *string          `json:"client_name" validate:"omitempty,max=255"`
	ClientPhone       *string          `json:"client_phone" validate:"omitempty,min=6,max=20"`
	ClientEmail       *string          `json:"client_email" validate:"omitempty,email,max=255"`
	VehiclePlate      *string          `json:"vehicle_plate" validate:"omitempty,min=2,max=20"`
	VehicleMake       *string          `json:"vehicle_make" validate:"omitempty,max=100"`
	VehicleModel      *string          `json:"vehicle_model" validate:"omitempty,max=100"`
	VehicleYear       *int             `json:"vehicle_year" validate:"omitempty,gte=1900,lte=2100"`
	VehicleCategory   *string          `json:"vehicle_category" validate:"omitempty,oneof=PASSENGER_CAR LIGHT_COMMERCIAL HEAVY_COMMERCIAL BUS MOTORCYCLE ATV TRAILER OTHER"`
	VehicleSpecialUse *bool            `json:"vehicle_special_use"`
	ServiceType       *string          `json:"service_type" validate:"omitempty,oneof=ITP DIAGNOSTIC OTHER"`
	Price             *decimal.Decimal `json:"price"`
	Notes             *string          `json:"notes" validate:"omitempty,max=2000"`
}

// IsReschedule reports whether the request moves the appointment in time.
func (r *UpdateAppointmentRequest) IsReschedule() bool {
	return r.AppointmentDate != nil || r.StartTime != nil || r.Duration != nil
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type SetResultRequest struct {
	Result string `json:"result" validate:"required,oneof=PASS PASS_WITH_OBSERVATIONS FAIL"`
	Notes  string `json:"notes" validate:"omitempty,max=2000"`
}

type QuickPassRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=2000"`
}

// Response DTOs

type AppointmentResponse struct {
	ID                uuid.UUID        `json:"id"`
	ConfirmationCode  string           `json:"confirmation_code"`
	AppointmentDate   string           `json:"appointment_date"`
	StartTime         string           `json:"start_time"`
	EndTime           string           `json:"end_time"`
	Duration          int              `json:"duration"`
	ClientID          *uuid.UUID       `json:"client_id,omitempty"`
	ClientName        string           `json:"client_name"`
	ClientPhone       string           `json:"client_phone"`
	ClientEmail       string           `json:"client_email,omitempty"`
	VehiclePlate      string           `json:"vehicle_plate"`
	VehicleMake       string           `json:"vehicle_make,omitempty"`
	VehicleModel      string           `json:"vehicle_model,omitempty"`
	VehicleYear       int              `json:"vehicle_year,omitempty"`
	VehicleCategory   string           `json:"vehicle_category"`
	VehicleSpecialUse bool             `json:"vehicle_special_use"`
	ServiceType       string           `json:"service_type"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	Status            string           `json:"status"`
	ConfirmedAt       *time.Time       `json:"confirmed_at,omitempty"`
	CancelledAt       *time.Time       `json:"cancelled_at,omitempty"`
	RarBlockedAt      *time.Time       `json:"rar_blocked_at,omitempty"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
	CancelReason      string           `json:"cancel_reason,omitempty"`
	ITPResult         string           `json:"itp_result,omitempty"`
	ITPNotes          string           `json:"itp_notes,omitempty"`
	IsRarBlocked      bool             `json:"is_rar_blocked"`
	Version           int              `json:"version"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

// ApprovalResult is the outcome of redeeming an approval token.
type ApprovalResult struct {
	Outcome     string               `json:"outcome"` // approved, rejected, already_processed
	Status      string               `json:"status"`
	Appointment *AppointmentResponse `json:"appointment"`
}

const (
	ApprovalOutcomeApproved         = "approved"
	ApprovalOutcomeRejected         = "rejected"
	ApprovalOutcomeAlreadyProcessed = "already_processed"
)

type AuditLogResponse struct {
	ID            int64           `json:"id"`
	AppointmentID *uuid.UUID      `json:"appointment_id,omitempty"`
	Actor         string          `json:"actor"`
	Action        string          `json:"action"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int                `json:"total"`
}
