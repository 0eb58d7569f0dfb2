package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/scheduling"
	"itp-scheduler/internal/usecase"

	"github.com/stretchr/testify/require"
)

func TestWriteUsecaseError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"appointment missing", usecase.ErrAppointmentNotFound, http.StatusNotFound},
		{"holiday missing", usecase.ErrHolidayNotFound, http.StatusNotFound},
		{"no certificate", usecase.ErrCertificateNotFound, http.StatusNotFound},
		{"bad token", usecase.ErrInvalidToken, http.StatusNotFound},
		{"validation", fmt.Errorf("%w: duration too long", usecase.ErrValidation), http.StatusBadRequest},
		{"slot", &usecase.SlotUnavailableError{Reason: scheduling.ReasonBreak}, http.StatusConflict},
		{"transition", &usecase.TransitionError{Transition: "confirm", From: entity.AppointmentStatusCancelled}, http.StatusConflict},
		{"holiday exists", usecase.ErrHolidayExists, http.StatusConflict},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeUsecaseError(rec, tt.err, "fallback")
			require.Equal(t, tt.status, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, false, body["success"])
		})
	}
}

func TestWriteUsecaseError_Details(t *testing.T) {
	rec := httptest.NewRecorder()
	writeUsecaseError(rec, &usecase.SlotUnavailableError{Reason: scheduling.ReasonHoliday}, "")
	require.JSONEq(t, `{"success":false,"message":"Slot unavailable","error":{"reason":"holiday"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	writeUsecaseError(rec, fmt.Errorf("%w: start_time has already passed", usecase.ErrValidation), "")
	require.Contains(t, rec.Body.String(), "start_time has already passed")

	rec = httptest.NewRecorder()
	writeUsecaseError(rec, errors.New("secret dsn leaked"), "Failed to create appointment")
	require.NotContains(t, rec.Body.String(), "dsn")
}

func TestDecodeOptionalBody(t *testing.T) {
	var dst struct {
		Reason string `json:"reason"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, decodeOptionalBody(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"late"}`))
	require.NoError(t, decodeOptionalBody(req, &dst))
	require.Equal(t, "late", dst.Reason)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":`))
	require.Error(t, decodeOptionalBody(req, &dst))
}
