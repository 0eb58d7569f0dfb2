package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/usecase"
	"itp-scheduler/pkg/response"
	"itp-scheduler/pkg/validator"

	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
	}
}

func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.Create(r.Context(), &req)
	if err != nil {
		writeUsecaseError(w, err, "Failed to create appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment created successfully", appointment)
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid appointment ID", nil)
		return
	}

	appointment, err := h.appointmentUsecase.GetByID(r.Context(), id)
	if err != nil {
		writeUsecaseError(w, err, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid appointment ID", nil)
		return
	}

	var req dto.UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.Update(r.Context(), id, &req)
	if err != nil {
		writeUsecaseError(w, err, "Failed to update appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment updated successfully", appointment)
}

func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid appointment ID", nil)
		return
	}

	if err := h.appointmentUsecase.Delete(r.Context(), id); err != nil {
		writeUsecaseError(w, err, "Failed to delete appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment deleted successfully", nil)
}

// ListAppointments lists one day, or searches when q, phone or plate is given.
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		result *dto.AppointmentListResponse
		err    error
	)
	switch {
	case query.Get("q") != "":
		result, err = h.appointmentUsecase.Search(r.Context(), query.Get("q"))
	case query.Get("phone") != "":
		result, err = h.appointmentUsecase.FindByPhone(r.Context(), query.Get("phone"))
	case query.Get("plate") != "":
		result, err = h.appointmentUsecase.FindByPlate(r.Context(), query.Get("plate"))
	case query.Get("date") != "":
		result, err = h.appointmentUsecase.ListByDate(r.Context(), query.Get("date"))
	default:
		response.BadRequest(w, "One of date, q, phone or plate is required", nil)
		return
	}
	if err != nil {
		writeUsecaseError(w, err, "Failed to list appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", result)
}

func (h *AppointmentHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(mux.Vars(r)["code"])
	if code == "" {
		response.BadRequest(w, "Confirmation code is required", nil)
		return
	}

	appointment, err := h.appointmentUsecase.FindByCode(r.Context(), code)
	if err != nil {
		writeUsecaseError(w, err, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *AppointmentHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid appointment ID", nil)
		return
	}

	history, err := h.appointmentUsecase.History(r.Context(), id)
	if err != nil {
		writeUsecaseError(w, err, "Failed to get appointment history")
		return
	}

	response.Success(w, http.StatusOK, "Audit logs retrieved successfully", history)
}
