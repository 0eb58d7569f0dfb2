package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type WorkingHoursRequest struct {
	IsOpen          bool    `json:"is_open"`
	OpenTime        string  `json:"open_time" validate:"required,clock"`  // Format: HH:MM
	CloseTime       string  `json:"close_time" validate:"required,clock"` // Format: HH:MM
	BreakStart      *string `json:"break_start" validate:"omitempty,clock"`
	BreakEnd        *string `json:"break_end" validate:"omitempty,clock"`
	SlotDuration    int     `json:"slot_duration" validate:"required,gte=5,lte=240"`
	MaxAppointments int     `json:"max_appointments" validate:"required,gte=1"`
}

type CreateHolidayRequest struct {
	Date        string `json:"date" validate:"required,isodate"` // Format: YYYY-MM-DD
	Name        string `json:"name" validate:"required,max=255"`
	IsRecurring bool   `json:"is_recurring"`
	IsOrthodox  bool   `json:"is_orthodox"`
}

type SeedHolidaysRequest struct {
	Year int `json:"year" validate:"required,gte=2000,lte=2100"`
}

// Response DTOs

type WorkingHoursResponse struct {
	DayOfWeek       int       `json:"day_of_week"`
	DayName         string    `json:"day_name"`
	IsOpen          bool      `json:"is_open"`
	OpenTime        string    `json:"open_time"`
	CloseTime       string    `json:"close_time"`
	BreakStart      *string   `json:"break_start,omitempty"`
	BreakEnd        *string   `json:"break_end,omitempty"`
	SlotDuration    int       `json:"slot_duration"`
	MaxAppointments int       `json:"max_appointments"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type HolidayResponse struct {
	ID          uuid.UUID `json:"id"`
	Date        string    `json:"date"`
	Name        string    `json:"name"`
	IsRecurring bool      `json:"is_recurring"`
	IsOrthodox  bool      `json:"is_orthodox"`
}

type HolidayListResponse struct {
	Holidays []HolidayResponse `json:"holidays"`
	Total    int               `json:"total"`
}

type SlotResponse struct {
	Time      string `json:"time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

type SlotsResponse struct {
	Date        string         `json:"date"`
	IsOpen      bool           `json:"is_open"`
	IsHoliday   bool           `json:"is_holiday"`
	HolidayName string         `json:"holiday_name,omitempty"`
	Duration    int            `json:"duration"`
	Slots       []SlotResponse `json:"slots"`
}

type AvailabilityResponse struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}
