package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"itp-scheduler/config"
	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/delivery/http/handler"
	"itp-scheduler/internal/delivery/http/middleware"
	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/infrastructure/database"
	"itp-scheduler/internal/metrics"
	repoImpl "itp-scheduler/internal/repository"
	"itp-scheduler/internal/scheduling"
	"itp-scheduler/internal/service"
	"itp-scheduler/internal/usecase"
	"itp-scheduler/pkg/jwt"
	"itp-scheduler/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	srv        *httptest.Server
	db         *gorm.DB
	dispatcher *service.Dispatcher
	token      string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.NewSQLiteConnection(":memory:")
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	m := metrics.New()
	dispatcher := service.NewDispatcher(service.NewLogNotifier(log, config.NotificationConfig{}, "http://localhost"), log, m, time.Second)
	locker := service.NewBookingLocker(nil, log, time.Second)
	cache := service.NewCalendarCache(nil, log)

	appointmentRepo := repoImpl.NewAppointmentRepository()
	clientRepo := repoImpl.NewClientRepository()
	vehicleRepo := repoImpl.NewVehicleRepository()
	documentRepo := repoImpl.NewDocumentRepository()
	workingHoursRepo := repoImpl.NewWorkingHoursRepository()
	holidayRepo := repoImpl.NewHolidayRepository()
	auditService := service.NewAuditService(log, repoImpl.NewAuditLogRepository())
	resolver := usecase.NewClientResolver(log, clientRepo, vehicleRepo)
	cfg := config.SchedulingConfig{InspectionDuration: 30, ExpiringSoonDays: 30}

	appointments := usecase.NewAppointmentUsecase(db, log, appointmentRepo, repoImpl.NewBookingDayRepository(), clientRepo,
		workingHoursRepo, holidayRepo, cache, locker, auditService, dispatcher, m, cfg, time.UTC)
	lifecycle := usecase.NewLifecycleUsecase(db, log, appointmentRepo, documentRepo, resolver, auditService, dispatcher, m, cfg, time.UTC)
	approval := usecase.NewApprovalUsecase(db, log, appointmentRepo, lifecycle)
	calendar := usecase.NewCalendarUsecase(db, log, workingHoursRepo, holidayRepo, appointmentRepo, cache, auditService, time.UTC)
	certificates := usecase.NewCertificateUsecase(db, log, appointmentRepo, vehicleRepo, documentRepo, dispatcher, m, cfg, time.UTC)

	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", Issuer: "itp-scheduler", AccessExpiry: time.Hour})
	token, err := jwtService.GenerateStaffToken("staff-1", "Maria")
	require.NoError(t, err)

	v := validator.NewValidator()
	router := NewRouter(
		handler.NewAppointmentHandler(appointments, v),
		handler.NewLifecycleHandler(lifecycle, v),
		handler.NewCalendarHandler(calendar, v),
		handler.NewApprovalHandler(approval, log),
		handler.NewCertificateHandler(certificates),
		middleware.NewAuthMiddleware(jwtService, nil, log),
		middleware.NewCORSMiddleware(""),
		m.Handler(),
	)

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(func() {
		srv.Close()
		dispatcher.Stop()
		locker.Stop()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &testServer{srv: srv, db: db, dispatcher: dispatcher, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, staff bool) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if staff {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func decode(t *testing.T, resp *http.Response, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func nextMonday() string {
	d := scheduling.DateOnly(time.Now().UTC()).AddDate(0, 0, 7)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format(scheduling.DateLayout)
}

func createBody(date, start string) map[string]interface{} {
	return map[string]interface{}{
		"appointment_date": date,
		"start_time":       start,
		"client_name":      "Ion Popescu",
		"client_phone":     "0722123456",
		"vehicle_plate":    "B123ABC",
	}
}

func (s *testServer) create(t *testing.T, date, start string) dto.AppointmentResponse {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/v1/appointments", createBody(date, start), false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var a dto.AppointmentResponse
	decode(t, resp, &a)
	return a
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/api/v1/health", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s.create(t, nextMonday(), "09:00")

	resp = s.do(t, http.MethodGet, "/metrics", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), `itp_appointments_booked_total{result="success"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodOptions, "/api/v1/appointments", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestPublicBookingFlow(t *testing.T) {
	s := newTestServer(t)
	date := nextMonday()

	a := s.create(t, date, "09:00")
	require.Equal(t, string(entity.AppointmentStatusPending), a.Status)

	resp := s.do(t, http.MethodGet, "/api/v1/appointments/code/"+strings.ToLower(a.ConfirmationCode), nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var byCode dto.AppointmentResponse
	decode(t, resp, &byCode)
	require.Equal(t, a.ID, byCode.ID)

	// Same interval again: the single ramp is taken.
	resp = s.do(t, http.MethodPost, "/api/v1/appointments", createBody(date, "09:15"), false)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	env := decode(t, resp, nil)
	require.JSONEq(t, `{"reason":"capacity_exceeded"}`, string(env.Error))

	resp = s.do(t, http.MethodPost, "/api/v1/appointments", createBody(date, "9:00"), false)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/slots?date="+date, nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var slots dto.SlotsResponse
	decode(t, resp, &slots)
	require.NotEmpty(t, slots.Slots)
}

func TestStaffRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	a := s.create(t, nextMonday(), "09:00")

	resp := s.do(t, http.MethodGet, "/api/v1/appointments/"+a.ID.String(), nil, false)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/api/v1/appointments/"+a.ID.String(), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	bad, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer bad.Body.Close()
	require.Equal(t, http.StatusUnauthorized, bad.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/appointments/"+a.ID.String(), nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/appointments/"+uuid.New().String(), nil, true)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/appointments/not-a-uuid", nil, true)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/appointments", nil, true)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStaffLifecycleAndAudit(t *testing.T) {
	s := newTestServer(t)
	a := s.create(t, nextMonday(), "09:00")
	base := "/api/v1/appointments/" + a.ID.String()

	resp := s.do(t, http.MethodPost, base+"/confirm", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, base+"/confirm", nil, true)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	env := decode(t, resp, nil)
	require.JSONEq(t, `{"transition":"confirm","status":"CONFIRMED"}`, string(env.Error))

	resp = s.do(t, http.MethodPost, base+"/start", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, base+"/result", map[string]string{"result": "GREAT"}, true)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, base+"/result", map[string]string{"result": "PASS"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var done dto.AppointmentResponse
	decode(t, resp, &done)
	require.Equal(t, string(entity.AppointmentStatusCompleted), done.Status)

	resp = s.do(t, http.MethodGet, "/api/v1/certificates/expiry?plate=b-123-abc", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var expiry dto.CertificateExpiryResponse
	decode(t, resp, &expiry)
	require.Equal(t, dto.ExpirySourceCertificate, expiry.Source)

	resp = s.do(t, http.MethodGet, base+"/history", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history dto.AuditLogListResponse
	decode(t, resp, &history)
	require.NotEmpty(t, history.Logs)
	require.Equal(t, "staff:Maria", history.Logs[len(history.Logs)-1].Actor)
}

func TestApprovalLinks(t *testing.T) {
	s := newTestServer(t)
	a := s.create(t, nextMonday(), "09:00")

	stored, err := repoImpl.NewAppointmentRepository().FindByID(s.db, a.ID)
	require.NoError(t, err)
	link := "/api/v1/approval/" + stored.ApprovalToken

	resp := s.do(t, http.MethodGet, link+"/approve", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(page), "Appointment confirmed")
	require.Contains(t, string(page), a.ConfirmationCode)

	resp = s.do(t, http.MethodGet, link+"/reject?reason=late", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(page), "Already processed")

	resp = s.do(t, http.MethodGet, "/api/v1/approval/unknown/approve", nil, false)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	page, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(page), "Link invalid")
}

func TestCalendarAdministration(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/v1/working-hours/seed", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPut, "/api/v1/working-hours/6", map[string]interface{}{
		"is_open":          true,
		"open_time":        "09:00",
		"close_time":       "12:00",
		"slot_duration":    30,
		"max_appointments": 2,
	}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saturday dto.WorkingHoursResponse
	decode(t, resp, &saturday)
	require.Equal(t, 2, saturday.MaxAppointments)

	resp = s.do(t, http.MethodPut, "/api/v1/working-hours/8", map[string]interface{}{}, true)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/v1/holidays", map[string]interface{}{"date": "2030-03-08", "name": "Closed"}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var holiday dto.HolidayResponse
	decode(t, resp, &holiday)

	resp = s.do(t, http.MethodPost, "/api/v1/holidays", map[string]interface{}{"date": "2030-03-08", "name": "Again"}, true)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/api/v1/holidays/"+holiday.ID.String(), nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/availability?date=2030-03-09&time=09:00", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var availability dto.AvailabilityResponse
	decode(t, resp, &availability)
	require.True(t, availability.Available)
}
