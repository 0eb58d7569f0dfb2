package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/scheduling"
	"itp-scheduler/internal/usecase"
	"itp-scheduler/pkg/response"
	"itp-scheduler/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type CalendarHandler struct {
	calendarUsecase usecase.CalendarUsecase
	validator       *validator.CustomValidator
}

func NewCalendarHandler(calendarUsecase usecase.CalendarUsecase, validator *validator.CustomValidator) *CalendarHandler {
	return &CalendarHandler{
		calendarUsecase: calendarUsecase,
		validator:       validator,
	}
}

// =============================================================================
// Working hours
// =============================================================================

func (h *CalendarHandler) GetWorkingHours(w http.ResponseWriter, r *http.Request) {
	hours, err := h.calendarUsecase.GetWorkingHours(r.Context())
	if err != nil {
		writeUsecaseError(w, err, "Failed to get working hours")
		return
	}

	response.Success(w, http.StatusOK, "Working hours retrieved successfully", hours)
}

func (h *CalendarHandler) UpdateWorkingHours(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.Atoi(mux.Vars(r)["day"])
	if err != nil || day < 0 || day > 6 {
		response.BadRequest(w, "Day must be 0 (Sunday) to 6 (Saturday)", nil)
		return
	}

	var req dto.WorkingHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	hours, err := h.calendarUsecase.UpdateWorkingHours(r.Context(), day, &req)
	if err != nil {
		writeUsecaseError(w, err, "Failed to update working hours")
		return
	}

	response.Success(w, http.StatusOK, "Working hours updated successfully", hours)
}

func (h *CalendarHandler) SeedWorkingHours(w http.ResponseWriter, r *http.Request) {
	created, err := h.calendarUsecase.SeedWorkingHours(r.Context())
	if err != nil {
		writeUsecaseError(w, err, "Failed to seed working hours")
		return
	}

	response.Success(w, http.StatusOK, "Working hours seeded", map[string]int{"created": created})
}

// =============================================================================
// Holidays
// =============================================================================

func (h *CalendarHandler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", 0)
	if err != nil {
		response.BadRequest(w, "Invalid year", nil)
		return
	}

	holidays, err := h.calendarUsecase.ListHolidays(r.Context(), year)
	if err != nil {
		writeUsecaseError(w, err, "Failed to get holidays")
		return
	}

	response.Success(w, http.StatusOK, "Holidays retrieved successfully", holidays)
}

func (h *CalendarHandler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	holiday, err := h.calendarUsecase.CreateHoliday(r.Context(), &req)
	if err != nil {
		writeUsecaseError(w, err, "Failed to create holiday")
		return
	}

	response.Success(w, http.StatusCreated, "Holiday created successfully", holiday)
}

func (h *CalendarHandler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid holiday ID", nil)
		return
	}

	if err := h.calendarUsecase.DeleteHoliday(r.Context(), id); err != nil {
		writeUsecaseError(w, err, "Failed to delete holiday")
		return
	}

	response.Success(w, http.StatusOK, "Holiday deleted successfully", nil)
}

func (h *CalendarHandler) SeedHolidays(w http.ResponseWriter, r *http.Request) {
	var req dto.SeedHolidaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	created, err := h.calendarUsecase.SeedHolidays(r.Context(), req.Year)
	if err != nil {
		writeUsecaseError(w, err, "Failed to seed holidays")
		return
	}

	response.Success(w, http.StatusOK, "Holidays seeded", created)
}

// =============================================================================
// Availability
// =============================================================================

func (h *CalendarHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		response.BadRequest(w, "date is required", nil)
		return
	}
	duration, err := queryInt(r, "duration", 0)
	if err != nil {
		response.BadRequest(w, "Invalid duration", nil)
		return
	}

	slots, err := h.calendarUsecase.GetAvailableSlots(r.Context(), date, duration)
	if err != nil {
		writeUsecaseError(w, err, "Failed to get available slots")
		return
	}

	response.Success(w, http.StatusOK, "Slots retrieved successfully", slots)
}

func (h *CalendarHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	date, err := scheduling.ParseDate(query.Get("date"))
	if err != nil {
		response.BadRequest(w, "date must be YYYY-MM-DD", nil)
		return
	}
	duration, err := queryInt(r, "duration", 30)
	if err != nil {
		response.BadRequest(w, "Invalid duration", nil)
		return
	}

	var excludeID *uuid.UUID
	if raw := query.Get("exclude"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid exclude ID", nil)
			return
		}
		excludeID = &id
	}

	availability, err := h.calendarUsecase.IsAvailable(r.Context(), date, query.Get("time"), duration, excludeID)
	if err != nil {
		writeUsecaseError(w, err, "Failed to check availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability checked", availability)
}
