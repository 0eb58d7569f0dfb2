package handler

import (
	"context"
	"net/http"

	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/usecase"
	"itp-scheduler/pkg/response"
	"itp-scheduler/pkg/validator"

	"github.com/google/uuid"
)

// LifecycleHandler exposes the appointment state machine to staff.
type LifecycleHandler struct {
	lifecycleUsecase usecase.LifecycleUsecase
	validator        *validator.CustomValidator
}

func NewLifecycleHandler(lifecycleUsecase usecase.LifecycleUsecase, validator *validator.CustomValidator) *LifecycleHandler {
	return &LifecycleHandler{
		lifecycleUsecase: lifecycleUsecase,
		validator:        validator,
	}
}

type transitionFunc func(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)

func (h *LifecycleHandler) handle(w http.ResponseWriter, r *http.Request, message string, fn transitionFunc) {
	id, ok := parseIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid appointment ID", nil)
		return
	}

	appointment, err := fn(r.Context(), id)
	if err != nil {
		writeUsecaseError(w, err, "Failed to update appointment status")
		return
	}

	response.Success(w, http.StatusOK, message, appointment)
}

func (h *LifecycleHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "Appointment confirmed", h.lifecycleUsecase.Confirm)
}

func (h *LifecycleHandler) StartInspection(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "Inspection started", h.lifecycleUsecase.StartInspection)
}

func (h *LifecycleHandler) MarkBlocked(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "Appointment marked as RAR blocked", h.lifecycleUsecase.MarkBlocked)
}

func (h *LifecycleHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "Appointment completed", h.lifecycleUsecase.Complete)
}

func (h *LifecycleHandler) NoShow(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "Appointment marked as no-show", h.lifecycleUsecase.NoShow)
}

func (h *LifecycleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.handle(w, r, "Appointment cancelled", func(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
		return h.lifecycleUsecase.Cancel(ctx, id, req.Reason)
	})
}

func (h *LifecycleHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.handle(w, r, "Appointment rejected", func(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
		return h.lifecycleUsecase.Reject(ctx, id, req.Reason)
	})
}

func (h *LifecycleHandler) SetResult(w http.ResponseWriter, r *http.Request) {
	var req dto.SetResultRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.handle(w, r, "Inspection result recorded", func(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
		return h.lifecycleUsecase.SetResult(ctx, id, &req)
	})
}

func (h *LifecycleHandler) QuickPass(w http.ResponseWriter, r *http.Request) {
	var req dto.QuickPassRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.handle(w, r, "Inspection passed", func(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
		return h.lifecycleUsecase.QuickPass(ctx, id, req.Notes)
	})
}

func (h *LifecycleHandler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := decodeOptionalBody(r, req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return false
	}
	if err := h.validator.Validate(req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return false
	}
	return true
}
