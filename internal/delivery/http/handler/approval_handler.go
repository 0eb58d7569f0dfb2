package handler

import (
	"errors"
	"html/template"
	"net/http"

	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/usecase"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

var approvalPage = template.Must(template.New("approval").Parse(`<!DOCTYPE html>
<html lang="ro">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body{font-family:sans-serif;max-width:32rem;margin:3rem auto;padding:0 1rem;color:#222}
h1{color:{{.Color}}}
dl{display:grid;grid-template-columns:auto 1fr;gap:.25rem 1rem}
dt{font-weight:bold}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{with .Appointment}}
<dl>
<dt>Code</dt><dd>{{.ConfirmationCode}}</dd>
<dt>Date</dt><dd>{{.AppointmentDate}} {{.StartTime}}-{{.EndTime}}</dd>
<dt>Client</dt><dd>{{.ClientName}} ({{.ClientPhone}})</dd>
<dt>Vehicle</dt><dd>{{.VehiclePlate}}</dd>
<dt>Status</dt><dd>{{.Status}}</dd>
</dl>
{{end}}
</body>
</html>
`))

type approvalView struct {
	Title       string
	Message     string
	Color       template.CSS
	Appointment *dto.AppointmentResponse
}

// ApprovalHandler serves the links sent to the station owner. Responses are
// HTML pages since they are opened from a phone or mail client.
type ApprovalHandler struct {
	approvalUsecase usecase.ApprovalUsecase
	log             *logrus.Logger
}

func NewApprovalHandler(approvalUsecase usecase.ApprovalUsecase, log *logrus.Logger) *ApprovalHandler {
	return &ApprovalHandler{
		approvalUsecase: approvalUsecase,
		log:             log,
	}
}

func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	result, err := h.approvalUsecase.Approve(r.Context(), mux.Vars(r)["token"])
	h.render(w, result, err)
}

// Reject accepts an optional reason from the query string or a posted form.
func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	reason := r.FormValue("reason")
	result, err := h.approvalUsecase.Reject(r.Context(), mux.Vars(r)["token"], reason)
	h.render(w, result, err)
}

func (h *ApprovalHandler) render(w http.ResponseWriter, result *dto.ApprovalResult, err error) {
	status := http.StatusOK
	var view approvalView

	switch {
	case err == nil:
		view = outcomeView(result)
	case errors.Is(err, usecase.ErrInvalidToken), errors.Is(err, usecase.ErrAppointmentNotFound):
		status = http.StatusNotFound
		view = approvalView{
			Title:   "Link invalid",
			Message: "This approval link is invalid or has expired.",
			Color:   "#b00020",
		}
	default:
		h.log.Warnf("Failed to process approval link: %+v", err)
		status = http.StatusInternalServerError
		view = approvalView{
			Title:   "Something went wrong",
			Message: "The request could not be processed. Please try again or use the staff dashboard.",
			Color:   "#b00020",
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := approvalPage.Execute(w, view); err != nil {
		h.log.Warnf("Failed to render approval page: %+v", err)
	}
}

func outcomeView(result *dto.ApprovalResult) approvalView {
	switch result.Outcome {
	case dto.ApprovalOutcomeApproved:
		return approvalView{
			Title:       "Appointment confirmed",
			Message:     "The client will be notified that the appointment is confirmed.",
			Color:       "#1b7f3b",
			Appointment: result.Appointment,
		}
	case dto.ApprovalOutcomeRejected:
		return approvalView{
			Title:       "Appointment rejected",
			Message:     "The appointment was cancelled and the client will be notified.",
			Color:       "#b35c00",
			Appointment: result.Appointment,
		}
	default:
		return approvalView{
			Title:       "Already processed",
			Message:     "This appointment was already handled. Current status: " + result.Status + ".",
			Color:       "#555555",
			Appointment: result.Appointment,
		}
	}
}
