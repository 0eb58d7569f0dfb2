package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"itp-scheduler/internal/usecase"
	"itp-scheduler/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// writeUsecaseError maps usecase errors onto HTTP statuses. Anything it does
// not recognise is reported as fallback with a 500.
func writeUsecaseError(w http.ResponseWriter, err error, fallback string) {
	var slotErr *usecase.SlotUnavailableError
	var transitionErr *usecase.TransitionError

	switch {
	case errors.Is(err, usecase.ErrAppointmentNotFound):
		response.NotFound(w, "Appointment not found")
	case errors.Is(err, usecase.ErrHolidayNotFound):
		response.NotFound(w, "Holiday not found")
	case errors.Is(err, usecase.ErrCertificateNotFound):
		response.NotFound(w, "No certificate or passed inspection found for this vehicle")
	case errors.Is(err, usecase.ErrInvalidToken):
		response.NotFound(w, "Invalid or unknown approval token")
	case errors.Is(err, usecase.ErrValidation):
		response.BadRequest(w, err.Error(), nil)
	case errors.As(err, &slotErr):
		response.Conflict(w, "Slot unavailable", map[string]string{"reason": string(slotErr.Reason)})
	case errors.As(err, &transitionErr):
		response.Conflict(w, transitionErr.Error(), map[string]string{
			"transition": transitionErr.Transition,
			"status":     string(transitionErr.From),
		})
	case errors.Is(err, usecase.ErrHolidayExists):
		response.Conflict(w, "A holiday already exists on this date", nil)
	default:
		response.InternalServerError(w, fallback)
	}
}

func parseIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	return id, err == nil
}

// decodeOptionalBody decodes a JSON body into dst, accepting an empty body.
func decodeOptionalBody(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
