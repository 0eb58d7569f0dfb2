package http

import (
	"net/http"

	"itp-scheduler/internal/delivery/http/handler"
	"itp-scheduler/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router             *mux.Router
	appointmentHandler *handler.AppointmentHandler
	lifecycleHandler   *handler.LifecycleHandler
	calendarHandler    *handler.CalendarHandler
	approvalHandler    *handler.ApprovalHandler
	certificateHandler *handler.CertificateHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
	metricsHandler     http.Handler
}

func NewRouter(
	appointmentHandler *handler.AppointmentHandler,
	lifecycleHandler *handler.LifecycleHandler,
	calendarHandler *handler.CalendarHandler,
	approvalHandler *handler.ApprovalHandler,
	certificateHandler *handler.CertificateHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	metricsHandler http.Handler,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		appointmentHandler: appointmentHandler,
		lifecycleHandler:   lifecycleHandler,
		calendarHandler:    calendarHandler,
		approvalHandler:    approvalHandler,
		certificateHandler: certificateHandler,
		authMiddleware:     authMiddleware,
		corsMiddleware:     corsMiddleware,
		metricsHandler:     metricsHandler,
	}
}

func (r *Router) Setup() http.Handler {
	if r.metricsHandler != nil {
		r.router.Handle("/metrics", r.metricsHandler).Methods(http.MethodGet)
	}

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Public routes
	api.HandleFunc("/appointments", r.appointmentHandler.CreateAppointment).Methods(http.MethodPost)
	api.HandleFunc("/appointments/code/{code}", r.appointmentHandler.GetByCode).Methods(http.MethodGet)
	api.HandleFunc("/slots", r.calendarHandler.GetSlots).Methods(http.MethodGet)
	api.HandleFunc("/certificates/expiry", r.certificateHandler.GetExpiry).Methods(http.MethodGet)

	approval := api.PathPrefix("/approval/{token}").Subrouter()
	approval.HandleFunc("/approve", r.approvalHandler.Approve).Methods(http.MethodGet)
	approval.HandleFunc("/reject", r.approvalHandler.Reject).Methods(http.MethodGet, http.MethodPost)

	// Staff routes (protected)
	staff := api.NewRoute().Subrouter()
	staff.Use(r.authMiddleware.Authenticate)

	// Appointments
	staff.HandleFunc("/appointments", r.appointmentHandler.ListAppointments).Methods(http.MethodGet)
	staff.HandleFunc("/appointments/{id}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	staff.HandleFunc("/appointments/{id}", r.appointmentHandler.UpdateAppointment).Methods(http.MethodPut, http.MethodPatch)
	staff.HandleFunc("/appointments/{id}", r.appointmentHandler.DeleteAppointment).Methods(http.MethodDelete)
	staff.HandleFunc("/appointments/{id}/history", r.appointmentHandler.GetHistory).Methods(http.MethodGet)

	// Lifecycle
	staff.HandleFunc("/appointments/{id}/confirm", r.lifecycleHandler.Confirm).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/{id}/cancel", r.lifecycleHandler.Cancel).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/{id}/reject", r.lifecycleHandler.Reject).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/{id}/start", r.lifecycleHandler.StartInspection).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/{id}/rar-blocked", r.lifecycleHandler.MarkBlocked).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/{id}/result", r.lifecycleHandler.SetResult).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/{id}/quick-pass", r.lifecycleHandler.QuickPass).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/{id}/complete", r.lifecycleHandler.Complete).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/{id}/no-show", r.lifecycleHandler.NoShow).Methods(http.MethodPost)

	// Calendar
	staff.HandleFunc("/availability", r.calendarHandler.CheckAvailability).Methods(http.MethodGet)
	staff.HandleFunc("/working-hours", r.calendarHandler.GetWorkingHours).Methods(http.MethodGet)
	staff.HandleFunc("/working-hours/seed", r.calendarHandler.SeedWorkingHours).Methods(http.MethodPost)
	staff.HandleFunc("/working-hours/{day:[0-6]}", r.calendarHandler.UpdateWorkingHours).Methods(http.MethodPut)
	staff.HandleFunc("/holidays", r.calendarHandler.ListHolidays).Methods(http.MethodGet)
	staff.HandleFunc("/holidays", r.calendarHandler.CreateHoliday).Methods(http.MethodPost)
	staff.HandleFunc("/holidays/seed", r.calendarHandler.SeedHolidays).Methods(http.MethodPost)
	staff.HandleFunc("/holidays/{id}", r.calendarHandler.DeleteHoliday).Methods(http.MethodDelete)

	// Certificates
	staff.HandleFunc("/certificates/refresh", r.certificateHandler.RefreshStatuses).Methods(http.MethodPost)

	// CORS wraps the router so preflight requests are answered before route matching
	return r.corsMiddleware.Handle(r.router)
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
