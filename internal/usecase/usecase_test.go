package usecase

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"itp-scheduler/config"
	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/infrastructure/database"
	"itp-scheduler/internal/metrics"
	repoImpl "itp-scheduler/internal/repository"
	"itp-scheduler/internal/scheduling"
	"itp-scheduler/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type sentNotification struct {
	kind          service.NotificationKind
	appointmentID uuid.UUID
	extra         datatypes.JSONMap
}

// recordingNotifier keeps every notification it is handed.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, kind service.NotificationKind, a *entity.Appointment, extra datatypes.JSONMap) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{kind: kind, appointmentID: a.ID, extra: extra})
	return true, nil
}

func (n *recordingNotifier) ofKind(kind service.NotificationKind) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.kind == kind {
			out = append(out, s)
		}
	}
	return out
}

type testEnv struct {
	db           *gorm.DB
	notifier     *recordingNotifier
	dispatcher   *service.Dispatcher
	appointments AppointmentUsecase
	lifecycle    LifecycleUsecase
	approval     ApprovalUsecase
	calendar     CalendarUsecase
	certificates CertificateUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithRedis(t, nil)
}

// newTestEnvWithRedis backs the booking locker and calendar cache with
// redisClient; nil keeps both in-process only.
func newTestEnvWithRedis(t *testing.T, redisClient *redis.Client) *testEnv {
	t.Helper()

	db, err := database.NewSQLiteConnection(":memory:")
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	m := metrics.New()
	notifier := &recordingNotifier{}
	dispatcher := service.NewDispatcher(notifier, log, m, time.Second)
	locker := service.NewBookingLocker(redisClient, log, time.Second)
	cache := service.NewCalendarCache(redisClient, log)

	appointmentRepo := repoImpl.NewAppointmentRepository()
	bookingDayRepo := repoImpl.NewBookingDayRepository()
	clientRepo := repoImpl.NewClientRepository()
	vehicleRepo := repoImpl.NewVehicleRepository()
	documentRepo := repoImpl.NewDocumentRepository()
	workingHoursRepo := repoImpl.NewWorkingHoursRepository()
	holidayRepo := repoImpl.NewHolidayRepository()
	auditService := service.NewAuditService(log, repoImpl.NewAuditLogRepository())
	resolver := NewClientResolver(log, clientRepo, vehicleRepo)

	cfg := config.SchedulingConfig{InspectionDuration: 30, ExpiringSoonDays: 30}

	lifecycle := NewLifecycleUsecase(db, log, appointmentRepo, documentRepo, resolver, auditService, dispatcher, m, cfg, time.UTC)
	env := &testEnv{
		db:         db,
		notifier:   notifier,
		dispatcher: dispatcher,
		appointments: NewAppointmentUsecase(db, log, appointmentRepo, bookingDayRepo, clientRepo,
			workingHoursRepo, holidayRepo, cache, locker, auditService, dispatcher, m, cfg, time.UTC),
		lifecycle:    lifecycle,
		approval:     NewApprovalUsecase(db, log, appointmentRepo, lifecycle),
		calendar:     NewCalendarUsecase(db, log, workingHoursRepo, holidayRepo, appointmentRepo, cache, auditService, time.UTC),
		certificates: NewCertificateUsecase(db, log, appointmentRepo, vehicleRepo, documentRepo, dispatcher, m, cfg, time.UTC),
	}

	t.Cleanup(func() {
		dispatcher.Stop()
		locker.Stop()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return env
}

// futureMonday returns the first Monday at least weeksAhead weeks from today.
func futureMonday(weeksAhead int) string {
	d := scheduling.DateOnly(time.Now().UTC()).AddDate(0, 0, 7*weeksAhead)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format(scheduling.DateLayout)
}

func bookingRequest(date, start string) *dto.CreateAppointmentRequest {
	return &dto.CreateAppointmentRequest{
		AppointmentDate: date,
		StartTime:       start,
		ClientName:      "  Ion   Popescu ",
		ClientPhone:     "+40 722 123 456",
		VehiclePlate:    "b-123 abc",
		VehicleMake:     "Dacia",
		VehicleModel:    "Logan",
		VehicleYear:     2020,
	}
}

func (e *testEnv) book(t *testing.T, date, start string) *dto.AppointmentResponse {
	t.Helper()
	resp, err := e.appointments.Create(context.Background(), bookingRequest(date, start))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) approvalToken(t *testing.T, id uuid.UUID) string {
	t.Helper()
	a, err := repoImpl.NewAppointmentRepository().FindByID(e.db, id)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a.ApprovalToken
}

// inspecting books an appointment and walks it to IN_PROGRESS.
func (e *testEnv) inspecting(t *testing.T, date, start string) *dto.AppointmentResponse {
	t.Helper()
	ctx := context.Background()
	created := e.book(t, date, start)
	_, err := e.lifecycle.Confirm(ctx, created.ID)
	require.NoError(t, err)
	resp, err := e.lifecycle.StartInspection(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, string(entity.AppointmentStatusInProgress), resp.Status)
	return resp
}
