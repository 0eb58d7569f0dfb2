package usecase

import (
	"context"
	"time"

	"itp-scheduler/internal/converter"
	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/domain/repository"
	"itp-scheduler/internal/scheduling"
	"itp-scheduler/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CalendarUsecase interface {
	GetWorkingHours(ctx context.Context) ([]dto.WorkingHoursResponse, error)
	UpdateWorkingHours(ctx context.Context, dayOfWeek int, req *dto.WorkingHoursRequest) (*dto.WorkingHoursResponse, error)
	SeedWorkingHours(ctx context.Context) (int, error)

	ListHolidays(ctx context.Context, year int) (*dto.HolidayListResponse, error)
	CreateHoliday(ctx context.Context, req *dto.CreateHolidayRequest) (*dto.HolidayResponse, error)
	DeleteHoliday(ctx context.Context, id uuid.UUID) error
	SeedHolidays(ctx context.Context, year int) (*dto.HolidayListResponse, error)

	GetAvailableSlots(ctx context.Context, date string, duration int) (*dto.SlotsResponse, error)
	IsAvailable(ctx context.Context, date time.Time, start string, duration int, excludeID *uuid.UUID) (*dto.AvailabilityResponse, error)
}

type calendarUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	rules           *calendarRules
	appointmentRepo repository.AppointmentRepository
	auditService    service.AuditService
	clock           stationClock
}

func NewCalendarUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	workingHoursRepo repository.WorkingHoursRepository,
	holidayRepo repository.HolidayRepository,
	appointmentRepo repository.AppointmentRepository,
	calendarCache *service.CalendarCache,
	auditService service.AuditService,
	loc *time.Location,
) CalendarUsecase {
	return &calendarUsecase{
		db:  db,
		log: log,
		rules: &calendarRules{
			log:              log,
			workingHoursRepo: workingHoursRepo,
			holidayRepo:      holidayRepo,
			cache:            calendarCache,
		},
		appointmentRepo: appointmentRepo,
		auditService:    auditService,
		clock:           newStationClock(loc),
	}
}

// =============================================================================
// Working hours
// =============================================================================

func (u *calendarUsecase) GetWorkingHours(ctx context.Context) ([]dto.WorkingHoursResponse, error) {
	hours, err := u.rules.workingHoursRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to find working hours: %+v", err)
		return nil, err
	}
	return converter.WorkingHoursToResponses(hours), nil
}

func (u *calendarUsecase) UpdateWorkingHours(ctx context.Context, dayOfWeek int, req *dto.WorkingHoursRequest) (*dto.WorkingHoursResponse, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, validationError("day_of_week must be between 0 (Sunday) and 6 (Saturday)")
	}
	if err := validateWorkingHours(req); err != nil {
		return nil, err
	}

	hours := &entity.WorkingHours{
		DayOfWeek:       dayOfWeek,
		IsOpen:          req.IsOpen,
		OpenTime:        req.OpenTime,
		CloseTime:       req.CloseTime,
		BreakStart:      req.BreakStart,
		BreakEnd:        req.BreakEnd,
		SlotDuration:    req.SlotDuration,
		MaxAppointments: req.MaxAppointments,
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	previous, err := u.rules.workingHoursRepo.FindByDay(tx, dayOfWeek)
	if err != nil {
		u.log.Warnf("Failed to find working hours for day %d: %+v", dayOfWeek, err)
		return nil, err
	}

	if err := u.rules.workingHoursRepo.Upsert(tx, hours); err != nil {
		u.log.Warnf("Failed to upsert working hours for day %d: %+v", dayOfWeek, err)
		return nil, err
	}

	if err := u.auditService.LogUpdate(ctx, tx, nil, entity.AuditActionWorkingHoursUpdate, previous, hours); err != nil {
		return nil, err
	}

	saved, err := u.rules.workingHoursRepo.FindByDay(tx, dayOfWeek)
	if err != nil {
		u.log.Warnf("Failed to reload working hours for day %d: %+v", dayOfWeek, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}
	u.rules.invalidate(ctx)

	u.log.Infof("Working hours updated: day=%d open=%v %s-%s", dayOfWeek, req.IsOpen, req.OpenTime, req.CloseTime)
	return converter.WorkingHoursToResponse(saved), nil
}

func validateWorkingHours(req *dto.WorkingHoursRequest) error {
	open, err := scheduling.ParseClock(req.OpenTime)
	if err != nil {
		return validationError("open_time: %v", err)
	}
	closeAt, err := scheduling.ParseClock(req.CloseTime)
	if err != nil {
		return validationError("close_time: %v", err)
	}
	if open >= closeAt {
		return validationError("open_time must be before close_time")
	}

	if (req.BreakStart == nil) != (req.BreakEnd == nil) {
		return validationError("break_start and break_end must be set together")
	}
	if req.BreakStart != nil {
		start, err := scheduling.ParseClock(*req.BreakStart)
		if err != nil {
			return validationError("break_start: %v", err)
		}
		end, err := scheduling.ParseClock(*req.BreakEnd)
		if err != nil {
			return validationError("break_end: %v", err)
		}
		if start >= end {
			return validationError("break_start must be before break_end")
		}
		if !(scheduling.Interval{Start: start, End: end}).Within(scheduling.Interval{Start: open, End: closeAt}) {
			return validationError("break must lie within working hours")
		}
	}

	if req.SlotDuration < 5 || req.SlotDuration > 240 {
		return validationError("slot_duration must be between 5 and 240 minutes")
	}
	if req.MaxAppointments < 1 {
		return validationError("max_appointments must be at least 1")
	}
	return nil
}

// SeedWorkingHours writes the default week when the table is empty.
// Returns the number of rows created.
func (u *calendarUsecase) SeedWorkingHours(ctx context.Context) (int, error) {
	db := u.db.WithContext(ctx)

	count, err := u.rules.workingHoursRepo.Count(db)
	if err != nil {
		u.log.Warnf("Failed to count working hours: %+v", err)
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	defaults := entity.DefaultWorkingHours()
	err = db.Transaction(func(tx *gorm.DB) error {
		for i := range defaults {
			if err := u.rules.workingHoursRepo.Upsert(tx, &defaults[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		u.log.Warnf("Failed to seed working hours: %+v", err)
		return 0, err
	}
	u.rules.invalidate(ctx)

	u.log.Infof("Seeded default working hours for %d days", len(defaults))
	return len(defaults), nil
}

// =============================================================================
// Holidays
// =============================================================================

// ListHolidays lists every holiday, or only those relevant to year when year > 0.
func (u *calendarUsecase) ListHolidays(ctx context.Context, year int) (*dto.HolidayListResponse, error) {
	db := u.db.WithContext(ctx)

	var (
		holidays []entity.Holiday
		err      error
	)
	if year > 0 {
		holidays, err = u.rules.holidayRepo.FindByYear(db, year)
	} else {
		holidays, err = u.rules.holidayRepo.FindAll(db)
	}
	if err != nil {
		u.log.Warnf("Failed to find holidays: %+v", err)
		return nil, err
	}

	return &dto.HolidayListResponse{
		Holidays: converter.HolidaysToResponses(holidays),
		Total:    len(holidays),
	}, nil
}

func (u *calendarUsecase) CreateHoliday(ctx context.Context, req *dto.CreateHolidayRequest) (*dto.HolidayResponse, error) {
	date, err := scheduling.ParseDate(req.Date)
	if err != nil {
		return nil, validationError("date must be YYYY-MM-DD")
	}

	holiday := &entity.Holiday{
		Date:        date,
		Name:        req.Name,
		IsRecurring: req.IsRecurring,
		IsOrthodox:  req.IsOrthodox,
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	err = withSavepoint(tx, "holiday", func(db *gorm.DB) error {
		return u.rules.holidayRepo.Create(db, holiday)
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			existing, findErr := u.rules.holidayRepo.FindByDate(tx, date)
			if findErr == nil && existing != nil {
				return nil, ErrHolidayExists
			}
		}
		u.log.Warnf("Failed to create holiday: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, nil, entity.AuditActionHolidayCreate, holiday); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}
	u.rules.invalidate(ctx)

	return converter.HolidayToResponse(holiday), nil
}

func (u *calendarUsecase) DeleteHoliday(ctx context.Context, id uuid.UUID) error {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	holiday, err := u.rules.holidayRepo.FindByID(tx, id)
	if err != nil {
		u.log.Warnf("Failed to find holiday %s: %+v", id, err)
		return err
	}
	if holiday == nil {
		return ErrHolidayNotFound
	}

	if _, err := u.rules.holidayRepo.Delete(tx, id); err != nil {
		u.log.Warnf("Failed to delete holiday %s: %+v", id, err)
		return err
	}

	if err := u.auditService.LogDelete(ctx, tx, nil, entity.AuditActionHolidayDelete, holiday); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}
	u.rules.invalidate(ctx)

	return nil
}

// SeedHolidays inserts the Romanian legal holidays of year that are not
// already covered, and returns the ones it created. Running it twice for the
// same year creates nothing the second time.
func (u *calendarUsecase) SeedHolidays(ctx context.Context, year int) (*dto.HolidayListResponse, error) {
	if year < 2000 || year > 2100 {
		return nil, validationError("year must be between 2000 and 2100")
	}

	created := make([]entity.Holiday, 0)
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := u.rules.holidayRepo.FindAll(tx)
		if err != nil {
			return err
		}
		covered := toHolidayRules(existing)

		for _, h := range RomanianHolidays(year) {
			// Movable feasts can fall on a fixed holiday, e.g. Whit Monday on 1 June
			if scheduling.NewCalendar(nil, covered).IsHoliday(h.Date) {
				continue
			}
			holiday := h
			if err := u.rules.holidayRepo.Create(tx, &holiday); err != nil {
				return err
			}
			if err := u.auditService.LogCreate(ctx, tx, nil, entity.AuditActionHolidayCreate, holiday); err != nil {
				return err
			}
			created = append(created, holiday)
			covered = append(covered, scheduling.HolidayRule{Date: holiday.Date, Name: holiday.Name, Recurring: holiday.IsRecurring})
		}
		return nil
	})
	if err != nil {
		u.log.Warnf("Failed to seed holidays for %d: %+v", year, err)
		return nil, err
	}
	u.rules.invalidate(ctx)

	u.log.Infof("Seeded %d holidays for %d", len(created), year)
	return &dto.HolidayListResponse{
		Holidays: converter.HolidaysToResponses(created),
		Total:    len(created),
	}, nil
}

func toHolidayRules(holidays []entity.Holiday) []scheduling.HolidayRule {
	rules := make([]scheduling.HolidayRule, len(holidays))
	for i, h := range holidays {
		rules[i] = scheduling.HolidayRule{Date: scheduling.DateOnly(h.Date), Name: h.Name, Recurring: h.IsRecurring}
	}
	return rules
}

// RomanianHolidays returns the legal non-working days of year: the fixed
// ones as recurring rules, the Easter-based ones as dated Orthodox holidays.
func RomanianHolidays(year int) []entity.Holiday {
	fixed := func(month time.Month, day int, name string) entity.Holiday {
		return entity.Holiday{
			Date:        time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
			Name:        name,
			IsRecurring: true,
		}
	}

	holidays := []entity.Holiday{
		fixed(time.January, 1, "Anul Nou"),
		fixed(time.January, 2, "Anul Nou (a doua zi)"),
		fixed(time.January, 6, "Boboteaza"),
		fixed(time.January, 7, "Sfântul Ioan Botezătorul"),
		fixed(time.January, 24, "Ziua Unirii Principatelor Române"),
		fixed(time.May, 1, "Ziua Muncii"),
		fixed(time.June, 1, "Ziua Copilului"),
		fixed(time.August, 15, "Adormirea Maicii Domnului"),
		fixed(time.November, 30, "Sfântul Andrei"),
		fixed(time.December, 1, "Ziua Națională a României"),
		fixed(time.December, 25, "Crăciunul"),
		fixed(time.December, 26, "Crăciunul (a doua zi)"),
	}

	easter := scheduling.OrthodoxEaster(year)
	movable := []struct {
		offset int
		name   string
	}{
		{-2, "Vinerea Mare"},
		{0, "Paștele Ortodox"},
		{1, "A doua zi de Paște"},
		{49, "Rusaliile"},
		{50, "A doua zi de Rusalii"},
	}
	for _, m := range movable {
		holidays = append(holidays, entity.Holiday{
			Date:       easter.AddDate(0, 0, m.offset),
			Name:       m.name,
			IsOrthodox: true,
		})
	}

	return holidays
}

// =============================================================================
// Availability
// =============================================================================

func (u *calendarUsecase) GetAvailableSlots(ctx context.Context, dateStr string, duration int) (*dto.SlotsResponse, error) {
	date, err := scheduling.ParseDate(dateStr)
	if err != nil {
		return nil, validationError("date must be YYYY-MM-DD")
	}
	if duration != 0 && (duration < minDuration || duration > maxDuration) {
		return nil, validationError("duration must be between %d and %d minutes", minDuration, maxDuration)
	}

	db := u.db.WithContext(ctx)
	cal, err := u.rules.load(ctx, db)
	if err != nil {
		return nil, err
	}

	day := cal.Day(date)
	if duration == 0 {
		duration = day.SlotDuration
	}

	response := &dto.SlotsResponse{
		Date:     date.Format(scheduling.DateLayout),
		IsOpen:   day.IsOpen,
		Duration: duration,
		Slots:    []dto.SlotResponse{},
	}
	if holiday, ok := cal.Holiday(date); ok {
		response.IsHoliday = true
		response.HolidayName = holiday.Name
		return response, nil
	}
	if !day.IsOpen || duration <= 0 {
		return response, nil
	}

	booked, err := u.bookedOn(db, date)
	if err != nil {
		return nil, err
	}

	today := u.clock.today()
	nowMinute := u.clock.minuteOfDay()
	for _, start := range scheduling.GenerateSlots(day) {
		candidate := scheduling.NewInterval(start, duration)
		available := scheduling.Check(cal, date, candidate, booked, "") == scheduling.ReasonNone
		if date.Before(today) || (date.Equal(today) && start <= nowMinute) {
			available = false
		}
		response.Slots = append(response.Slots, dto.SlotResponse{
			Time:      scheduling.FormatClock(start),
			EndTime:   scheduling.FormatClock(candidate.End),
			Available: available,
		})
	}

	return response, nil
}

func (u *calendarUsecase) IsAvailable(ctx context.Context, date time.Time, start string, duration int, excludeID *uuid.UUID) (*dto.AvailabilityResponse, error) {
	startMinute, err := scheduling.ParseClock(start)
	if err != nil {
		return nil, validationError("time must be HH:MM")
	}
	if duration < minDuration || duration > maxDuration {
		return nil, validationError("duration must be between %d and %d minutes", minDuration, maxDuration)
	}

	db := u.db.WithContext(ctx)
	cal, err := u.rules.load(ctx, db)
	if err != nil {
		return nil, err
	}
	booked, err := u.bookedOn(db, scheduling.DateOnly(date))
	if err != nil {
		return nil, err
	}

	exclude := ""
	if excludeID != nil {
		exclude = excludeID.String()
	}
	reason := scheduling.Check(cal, scheduling.DateOnly(date), scheduling.NewInterval(startMinute, duration), booked, exclude)
	return &dto.AvailabilityResponse{
		Available: reason == scheduling.ReasonNone,
		Reason:    string(reason),
	}, nil
}

func (u *calendarUsecase) bookedOn(db *gorm.DB, date time.Time) ([]scheduling.Booked, error) {
	appointments, err := u.appointmentRepo.FindActiveByDate(db, date)
	if err != nil {
		u.log.Warnf("Failed to find appointments on %s: %+v", date.Format(scheduling.DateLayout), err)
		return nil, err
	}
	return toBooked(appointments), nil
}

// toBooked maps stored appointments to intervals, skipping rows whose start
// time cannot be read.
func toBooked(appointments []entity.Appointment) []scheduling.Booked {
	booked := make([]scheduling.Booked, 0, len(appointments))
	for _, a := range appointments {
		start, err := scheduling.ParseClock(a.StartTime)
		if err != nil {
			continue
		}
		booked = append(booked, scheduling.Booked{
			ID:       a.ID.String(),
			Interval: scheduling.NewInterval(start, a.Duration),
		})
	}
	return booked
}
