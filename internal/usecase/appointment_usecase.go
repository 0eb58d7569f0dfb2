package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"itp-scheduler/config"
	"itp-scheduler/internal/converter"
	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/domain/repository"
	"itp-scheduler/internal/metrics"
	"itp-scheduler/internal/scheduling"
	"itp-scheduler/internal/service"
	"itp-scheduler/pkg/normalize"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	minDuration = 15
	maxDuration = 480

	defaultVehicleCategory = string(scheduling.CategoryPassengerCar)
)

type AppointmentUsecase interface {
	Create(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Update(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDate(ctx context.Context, date string) (*dto.AppointmentListResponse, error)
	FindByCode(ctx context.Context, code string) (*dto.AppointmentResponse, error)
	FindByPhone(ctx context.Context, phone string) (*dto.AppointmentListResponse, error)
	FindByPlate(ctx context.Context, plate string) (*dto.AppointmentListResponse, error)
	Search(ctx context.Context, query string) (*dto.AppointmentListResponse, error)
	History(ctx context.Context, id uuid.UUID) (*dto.AuditLogListResponse, error)
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	bookingDayRepo  repository.BookingDayRepository
	clientRepo      repository.ClientRepository
	rules           *calendarRules
	locker          *service.BookingLocker
	auditService    service.AuditService
	dispatcher      *service.Dispatcher
	metrics         *metrics.Metrics
	cfg             config.SchedulingConfig
	clock           stationClock
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	bookingDayRepo repository.BookingDayRepository,
	clientRepo repository.ClientRepository,
	workingHoursRepo repository.WorkingHoursRepository,
	holidayRepo repository.HolidayRepository,
	calendarCache *service.CalendarCache,
	locker *service.BookingLocker,
	auditService service.AuditService,
	dispatcher *service.Dispatcher,
	m *metrics.Metrics,
	cfg config.SchedulingConfig,
	loc *time.Location,
) AppointmentUsecase {
	if cfg.InspectionDuration <= 0 {
		cfg.InspectionDuration = 30
	}
	return &appointmentUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		bookingDayRepo:  bookingDayRepo,
		clientRepo:      clientRepo,
		rules: &calendarRules{
			log:              log,
			workingHoursRepo: workingHoursRepo,
			holidayRepo:      holidayRepo,
			cache:            calendarCache,
		},
		locker:       locker,
		auditService: auditService,
		dispatcher:   dispatcher,
		metrics:      m,
		cfg:          cfg,
		clock:        newStationClock(loc),
	}
}

// Create books a new PENDING appointment.
//
// Flow:
//  1. Validate and normalize the request
//  2. Link an already known client by phone (weak reference)
//  3. Take the date lock, then in one transaction lock the booking_days row,
//     check availability, insert with unique codes and write the audit row
//  4. After commit, send the approval request (best effort)
func (u *appointmentUsecase) Create(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	appointment, err := u.newAppointment(req)
	if err != nil {
		u.metrics.ObserveBooking(metrics.ResultRejected)
		return nil, err
	}

	client, err := u.clientRepo.FindByPhone(u.db.WithContext(ctx), appointment.ClientPhone)
	if err != nil {
		u.log.Warnf("Failed to find client by phone: %+v", err)
		u.metrics.ObserveBooking(metrics.ResultFailure)
		return nil, err
	}
	if client != nil {
		appointment.ClientID = &client.ID
	}

	err = u.withBookingDay(ctx, appointment.AppointmentDate, func(tx *gorm.DB, cal *scheduling.Calendar, booked []scheduling.Booked) error {
		if appointment.Duration == 0 {
			if err := u.applyDefaultDuration(appointment, cal); err != nil {
				return err
			}
		}

		interval, err := appointmentInterval(appointment)
		if err != nil {
			return err
		}
		if reason := scheduling.Check(cal, appointment.AppointmentDate, interval, booked, ""); reason != scheduling.ReasonNone {
			return &SlotUnavailableError{Reason: reason}
		}

		if err := u.insertWithUniqueCodes(tx, appointment); err != nil {
			return err
		}
		return u.auditService.LogCreate(ctx, tx, &appointment.ID, entity.AuditActionAppointmentCreate, converter.AppointmentToResponse(appointment))
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) || errors.Is(err, ErrValidation) {
			u.metrics.ObserveBooking(metrics.ResultRejected)
		} else {
			u.log.Warnf("Failed to create appointment: %+v", err)
			u.metrics.ObserveBooking(metrics.ResultFailure)
		}
		return nil, err
	}
	u.metrics.ObserveBooking(metrics.ResultSuccess)

	u.dispatcher.Dispatch(service.NotificationApprovalRequest, appointment, nil)

	u.log.Infof("Appointment created: id=%s, date=%s, start=%s, code=%s",
		appointment.ID, appointment.AppointmentDate.Format(scheduling.DateLayout), appointment.StartTime, appointment.ConfirmationCode)
	return converter.AppointmentToResponse(appointment), nil
}

// newAppointment validates the request. Duration stays 0 when it has to be
// taken from the day's rules.
func (u *appointmentUsecase) newAppointment(req *dto.CreateAppointmentRequest) (*entity.Appointment, error) {
	date, err := scheduling.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, validationError("appointment_date must be YYYY-MM-DD")
	}
	start, err := scheduling.ParseClock(req.StartTime)
	if err != nil {
		return nil, validationError("start_time must be HH:MM")
	}

	serviceType := entity.ServiceType(req.ServiceType)
	if serviceType == "" {
		serviceType = entity.ServiceTypeITP
	}
	category := req.VehicleCategory
	if category == "" {
		category = defaultVehicleCategory
	}
	if !scheduling.ValidCategory(scheduling.VehicleCategory(category)) {
		return nil, validationError("unknown vehicle_category %q", category)
	}

	duration := req.Duration
	if duration == 0 && req.EndTime != "" {
		end, err := scheduling.ParseClock(req.EndTime)
		if err != nil {
			return nil, validationError("end_time must be HH:MM")
		}
		duration = end - start
	} else if duration == 0 && serviceType == entity.ServiceTypeITP {
		duration = u.cfg.InspectionDuration
	}
	if req.Duration != 0 && req.EndTime != "" {
		end, err := scheduling.ParseClock(req.EndTime)
		if err != nil || end != start+req.Duration {
			return nil, validationError("end_time does not match start_time + duration")
		}
	}

	phone := normalize.Phone(req.ClientPhone)
	plate := normalize.Plate(req.VehiclePlate)
	if phone == "" {
		return nil, validationError("client_phone has no digits")
	}
	if plate == "" {
		return nil, validationError("vehicle_plate has no letters or digits")
	}

	appointment := &entity.Appointment{
		AppointmentDate:   date,
		StartTime:         scheduling.FormatClock(start),
		Duration:          duration,
		ClientName:        normalize.Name(req.ClientName),
		ClientPhone:       phone,
		ClientEmail:       strings.TrimSpace(req.ClientEmail),
		VehiclePlate:      plate,
		VehicleMake:       strings.TrimSpace(req.VehicleMake),
		VehicleModel:      strings.TrimSpace(req.VehicleModel),
		VehicleYear:       req.VehicleYear,
		VehicleCategory:   category,
		VehicleSpecialUse: req.VehicleSpecialUse,
		ServiceType:       serviceType,
		Price:             req.Price,
		Notes:             req.Notes,
		Status:            entity.AppointmentStatusPending,
		Version:           1,
	}

	if err := u.validateSchedule(date, start, duration, duration == 0); err != nil {
		return nil, err
	}
	if duration != 0 {
		appointment.EndTime = scheduling.FormatClock(start + duration)
	}
	return appointment, nil
}

// applyDefaultDuration uses the day's slot duration for services other than
// the inspection, raised to the minimum bookable duration.
func (u *appointmentUsecase) applyDefaultDuration(a *entity.Appointment, cal *scheduling.Calendar) error {
	duration := cal.Day(a.AppointmentDate).SlotDuration
	if duration < minDuration {
		duration = minDuration
	}
	start, err := scheduling.ParseClock(a.StartTime)
	if err != nil {
		return validationError("start_time must be HH:MM")
	}
	if err := u.validateSchedule(a.AppointmentDate, start, duration, false); err != nil {
		return err
	}
	a.Duration = duration
	a.EndTime = scheduling.FormatClock(start + duration)
	return nil
}

// validateSchedule rejects bookings in the past and out-of-range durations.
func (u *appointmentUsecase) validateSchedule(date time.Time, start, duration int, durationPending bool) error {
	today := u.clock.today()
	if date.Before(today) {
		return validationError("appointment_date is in the past")
	}
	if date.Equal(today) && start <= u.clock.minuteOfDay() {
		return validationError("start_time has already passed")
	}
	if durationPending {
		return nil
	}
	if duration < minDuration || duration > maxDuration {
		return validationError("duration must be between %d and %d minutes", minDuration, maxDuration)
	}
	if start+duration > scheduling.MinutesPerDay {
		return validationError("appointment must end before midnight")
	}
	return nil
}

func appointmentInterval(a *entity.Appointment) (scheduling.Interval, error) {
	start, err := scheduling.ParseClock(a.StartTime)
	if err != nil {
		return scheduling.Interval{}, validationError("start_time must be HH:MM")
	}
	return scheduling.NewInterval(start, a.Duration), nil
}

// withBookingDay runs fn serialized against every other writer of date.
//
// Lock ordering:
// 1. In-process / Redis date lock (BookingLocker)
// 2. DB transaction with the booking_days row locked FOR UPDATE
// fn sees the calendar and the bookings already on the date, read inside
// the same transaction. The transaction commits iff fn returns nil.
func (u *appointmentUsecase) withBookingDay(ctx context.Context, date time.Time, fn func(tx *gorm.DB, cal *scheduling.Calendar, booked []scheduling.Booked) error) error {
	unlock, err := u.locker.Lock(ctx, date)
	if err != nil {
		return err
	}
	defer unlock()

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.bookingDayRepo.Lock(tx, date); err != nil {
		u.log.Warnf("Failed to lock booking day %s: %+v", date.Format(scheduling.DateLayout), err)
		return err
	}

	cal, err := u.rules.loadFresh(tx)
	if err != nil {
		return err
	}

	appointments, err := u.appointmentRepo.FindActiveByDate(tx, date)
	if err != nil {
		u.log.Warnf("Failed to find appointments on %s: %+v", date.Format(scheduling.DateLayout), err)
		return err
	}

	if err := fn(tx, cal, toBooked(appointments)); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}
	return nil
}

// insertWithUniqueCodes retries code generation on a unique violation, each
// attempt under its own savepoint.
func (u *appointmentUsecase) insertWithUniqueCodes(tx *gorm.DB, a *entity.Appointment) error {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := generateConfirmationCode()
		if err != nil {
			return err
		}
		token, err := generateApprovalToken()
		if err != nil {
			return err
		}
		a.ConfirmationCode = code
		a.ApprovalToken = token

		err = withSavepoint(tx, "appointment", func(db *gorm.DB) error {
			return u.appointmentRepo.Create(db, a)
		})
		if err == nil {
			return nil
		}
		if !isDuplicateKeyError(err) {
			return err
		}
		collided, lookupErr := u.codeTaken(tx, code, token)
		if lookupErr != nil {
			return lookupErr
		}
		if !collided {
			return err
		}
		u.log.Warnf("Confirmation code collision on attempt %d, retrying", attempt)
	}
	return ErrCodeExhausted
}

// codeTaken reports whether code or token already belongs to a stored appointment.
func (u *appointmentUsecase) codeTaken(tx *gorm.DB, code, token string) (bool, error) {
	byCode, err := u.appointmentRepo.FindByConfirmationCode(tx, code)
	if err != nil || byCode != nil {
		return byCode != nil, err
	}
	byToken, err := u.appointmentRepo.FindByApprovalToken(tx, token)
	return byToken != nil, err
}

func (u *appointmentUsecase) GetByID(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return converter.AppointmentToResponse(appointment), nil
}

// Update applies field changes. A change of date, start time or duration is
// a reschedule: availability is checked again with the appointment itself
// excluded, under the lock of the new date.
func (u *appointmentUsecase) Update(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	current, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if current == nil {
		return nil, ErrAppointmentNotFound
	}

	updates, err := u.fieldUpdates(ctx, current, req)
	if err != nil {
		return nil, err
	}

	rescheduled := false
	if req.IsReschedule() {
		date, start, duration, changed, err := rescheduleTarget(current, req)
		if err != nil {
			return nil, err
		}
		if changed {
			if current.IsTerminal() {
				return nil, &TransitionError{Transition: "reschedule", From: current.Status}
			}
			if err := u.validateSchedule(date, start, duration, false); err != nil {
				return nil, err
			}
			updates["appointment_date"] = date
			updates["start_time"] = scheduling.FormatClock(start)
			updates["end_time"] = scheduling.FormatClock(start + duration)
			updates["duration"] = duration
			rescheduled = true

			err = u.withBookingDay(ctx, date, func(tx *gorm.DB, cal *scheduling.Calendar, booked []scheduling.Booked) error {
				reason := scheduling.Check(cal, date, scheduling.NewInterval(start, duration), booked, id.String())
				if reason != scheduling.ReasonNone {
					return &SlotUnavailableError{Reason: reason}
				}
				return u.applyUpdate(ctx, tx, current, entity.NonTerminalStatuses, entity.AuditActionAppointmentReschedule, "reschedule", updates)
			})
			if err != nil {
				return nil, err
			}
		}
	}

	if !rescheduled {
		if len(updates) == 0 {
			return converter.AppointmentToResponse(current), nil
		}
		tx := u.db.WithContext(ctx).Begin()
		defer tx.Rollback()
		if err := u.applyUpdate(ctx, tx, current, allStatuses, entity.AuditActionAppointmentUpdate, "update", updates); err != nil {
			return nil, err
		}
		if err := tx.Commit().Error; err != nil {
			u.log.Warnf("Failed commit transaction: %+v", err)
			return nil, err
		}
	}

	return u.GetByID(ctx, id)
}

var allStatuses = []entity.AppointmentStatus{
	entity.AppointmentStatusPending,
	entity.AppointmentStatusConfirmed,
	entity.AppointmentStatusInProgress,
	entity.AppointmentStatusRarBlocked,
	entity.AppointmentStatusCompleted,
	entity.AppointmentStatusCancelled,
	entity.AppointmentStatusNoShow,
}

func (u *appointmentUsecase) applyUpdate(ctx context.Context, tx *gorm.DB, current *entity.Appointment, allowed []entity.AppointmentStatus, action, name string, updates map[string]interface{}) error {
	rows, err := u.appointmentRepo.UpdateIfState(tx, current.ID, current.Version, allowed, updates)
	if err != nil {
		u.log.Warnf("Failed to update appointment %s: %+v", current.ID, err)
		return err
	}
	if rows == 0 {
		return staleStateError(tx, u.appointmentRepo, current.ID, name)
	}
	return u.auditService.LogUpdate(ctx, tx, &current.ID, action, converter.AppointmentToResponse(current), updates)
}

// rescheduleTarget merges the request over the current schedule.
func rescheduleTarget(current *entity.Appointment, req *dto.UpdateAppointmentRequest) (time.Time, int, int, bool, error) {
	date := scheduling.DateOnly(current.AppointmentDate)
	start, err := scheduling.ParseClock(current.StartTime)
	if err != nil {
		return date, 0, 0, false, err
	}
	duration := current.Duration

	if req.AppointmentDate != nil {
		if date, err = scheduling.ParseDate(*req.AppointmentDate); err != nil {
			return date, 0, 0, false, validationError("appointment_date must be YYYY-MM-DD")
		}
	}
	if req.StartTime != nil {
		if start, err = scheduling.ParseClock(*req.StartTime); err != nil {
			return date, 0, 0, false, validationError("start_time must be HH:MM")
		}
	}
	if req.Duration != nil {
		duration = *req.Duration
	}

	changed := !date.Equal(scheduling.DateOnly(current.AppointmentDate)) ||
		scheduling.FormatClock(start) != current.StartTime ||
		duration != current.Duration
	return date, start, duration, changed, nil
}

// fieldUpdates collects the non-scheduling column changes of req.
func (u *appointmentUsecase) fieldUpdates(ctx context.Context, current *entity.Appointment, req *dto.UpdateAppointmentRequest) (map[string]interface{}, error) {
	updates := make(map[string]interface{})

	if req.ClientName != nil {
		updates["client_name"] = normalize.Name(*req.ClientName)
	}
	if req.ClientPhone != nil {
		phone := normalize.Phone(*req.ClientPhone)
		if phone == "" {
			return nil, validationError("client_phone has no digits")
		}
		if phone != current.ClientPhone {
			updates["client_phone"] = phone
			// Relink to whoever owns the new number, if anyone
			client, err := u.clientRepo.FindByPhone(u.db.WithContext(ctx), phone)
			if err != nil {
				u.log.Warnf("Failed to find client by phone: %+v", err)
				return nil, err
			}
			if client != nil {
				updates["client_id"] = client.ID
			} else {
				updates["client_id"] = nil
			}
		}
	}
	if req.ClientEmail != nil {
		updates["client_email"] = strings.TrimSpace(*req.ClientEmail)
	}
	if req.VehiclePlate != nil {
		plate := normalize.Plate(*req.VehiclePlate)
		if plate == "" {
			return nil, validationError("vehicle_plate has no letters or digits")
		}
		updates["vehicle_plate"] = plate
	}
	if req.VehicleMake != nil {
		updates["vehicle_make"] = strings.TrimSpace(*req.VehicleMake)
	}
	if req.VehicleModel != nil {
		updates["vehicle_model"] = strings.TrimSpace(*req.VehicleModel)
	}
	if req.VehicleYear != nil {
		updates["vehicle_year"] = *req.VehicleYear
	}
	if req.VehicleCategory != nil {
		if !scheduling.ValidCategory(scheduling.VehicleCategory(*req.VehicleCategory)) {
			return nil, validationError("unknown vehicle_category %q", *req.VehicleCategory)
		}
		updates["vehicle_category"] = *req.VehicleCategory
	}
	if req.VehicleSpecialUse != nil {
		updates["vehicle_special_use"] = *req.VehicleSpecialUse
	}
	if req.ServiceType != nil {
		updates["service_type"] = entity.ServiceType(*req.ServiceType)
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	return updates, nil
}

// Delete removes the appointment for good. Staff only.
func (u *appointmentUsecase) Delete(ctx context.Context, id uuid.UUID) error {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	appointment, err := u.appointmentRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}

	rows, err := u.appointmentRepo.Delete(tx, id)
	if err != nil {
		u.log.Warnf("Failed to delete appointment %s: %+v", id, err)
		return err
	}
	if rows == 0 {
		return ErrAppointmentNotFound
	}

	if err := u.auditService.LogDelete(ctx, tx, &id, entity.AuditActionAppointmentDelete, converter.AppointmentToResponse(appointment)); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	u.log.Infof("Appointment deleted: id=%s, code=%s", id, appointment.ConfirmationCode)
	return nil
}

// =============================================================================
// Lookups
// =============================================================================

func (u *appointmentUsecase) ListByDate(ctx context.Context, dateStr string) (*dto.AppointmentListResponse, error) {
	date, err := scheduling.ParseDate(dateStr)
	if err != nil {
		return nil, validationError("date must be YYYY-MM-DD")
	}

	appointments, err := u.appointmentRepo.FindByDate(u.db.WithContext(ctx), date)
	if err != nil {
		u.log.Warnf("Failed to find appointments on %s: %+v", dateStr, err)
		return nil, err
	}
	return toListResponse(appointments), nil
}

func (u *appointmentUsecase) FindByCode(ctx context.Context, code string) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByConfirmationCode(u.db.WithContext(ctx), normalize.Code(code))
	if err != nil {
		u.log.Warnf("Failed to find appointment by code: %+v", err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) FindByPhone(ctx context.Context, phone string) (*dto.AppointmentListResponse, error) {
	normalized := normalize.Phone(phone)
	if normalized == "" {
		return nil, validationError("phone has no digits")
	}
	appointments, err := u.appointmentRepo.FindByPhone(u.db.WithContext(ctx), normalized)
	if err != nil {
		u.log.Warnf("Failed to find appointments by phone: %+v", err)
		return nil, err
	}
	return toListResponse(appointments), nil
}

func (u *appointmentUsecase) FindByPlate(ctx context.Context, plate string) (*dto.AppointmentListResponse, error) {
	normalized := normalize.Plate(plate)
	if normalized == "" {
		return nil, validationError("plate has no letters or digits")
	}
	appointments, err := u.appointmentRepo.FindByPlate(u.db.WithContext(ctx), normalized)
	if err != nil {
		u.log.Warnf("Failed to find appointments by plate: %+v", err)
		return nil, err
	}
	return toListResponse(appointments), nil
}

// Search runs the code, phone and plate lookups concurrently and merges the
// hits, newest first.
func (u *appointmentUsecase) Search(ctx context.Context, query string) (*dto.AppointmentListResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationError("search query is empty")
	}

	var byCode, byPhone, byPlate []entity.Appointment
	g, gctx := errgroup.WithContext(ctx)

	if code := normalize.Code(query); len(code) == confirmationCodeLength {
		g.Go(func() error {
			a, err := u.appointmentRepo.FindByConfirmationCode(u.db.WithContext(gctx), code)
			if a != nil {
				byCode = []entity.Appointment{*a}
			}
			return err
		})
	}
	if phone := normalize.Phone(query); len(phone) >= 6 {
		g.Go(func() error {
			var err error
			byPhone, err = u.appointmentRepo.FindByPhone(u.db.WithContext(gctx), phone)
			return err
		})
	}
	if plate := normalize.Plate(query); plate != "" {
		g.Go(func() error {
			var err error
			byPlate, err = u.appointmentRepo.FindByPlate(u.db.WithContext(gctx), plate)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		u.log.Warnf("Failed to search appointments: %+v", err)
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{})
	merged := make([]entity.Appointment, 0, len(byCode)+len(byPhone)+len(byPlate))
	for _, list := range [][]entity.Appointment{byCode, byPhone, byPlate} {
		for _, a := range list {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			merged = append(merged, a)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].AppointmentDate.Equal(merged[j].AppointmentDate) {
			return merged[i].AppointmentDate.After(merged[j].AppointmentDate)
		}
		return merged[i].StartTime > merged[j].StartTime
	})

	return toListResponse(merged), nil
}

func (u *appointmentUsecase) History(ctx context.Context, id uuid.UUID) (*dto.AuditLogListResponse, error) {
	logs, err := u.auditService.History(ctx, u.db, id)
	if err != nil {
		return nil, err
	}
	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: len(logs),
	}, nil
}

func toListResponse(appointments []entity.Appointment) *dto.AppointmentListResponse {
	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}
}

// staleStateError explains a compare-and-set that matched no row: either the
// appointment is gone or it moved to a state the caller did not expect.
func staleStateError(db *gorm.DB, repo repository.AppointmentRepository, id uuid.UUID, transition string) error {
	latest, err := repo.FindByID(db, id)
	if err != nil {
		return err
	}
	if latest == nil {
		return ErrAppointmentNotFound
	}
	return &TransitionError{Transition: transition, From: latest.Status}
}
