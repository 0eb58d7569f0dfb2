package usecase

import (
	"context"
	"time"

	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/domain/repository"
	"itp-scheduler/internal/scheduling"
	"itp-scheduler/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// calendarRules loads working hours and holidays into a scheduling.Calendar.
// Reads for display go through the Redis cache when one is configured;
// booking decisions use loadFresh inside their transaction.
type calendarRules struct {
	log              *logrus.Logger
	workingHoursRepo repository.WorkingHoursRepository
	holidayRepo      repository.HolidayRepository
	cache            *service.CalendarCache
}

func (r *calendarRules) load(ctx context.Context, db *gorm.DB) (*scheduling.Calendar, error) {
	if rules, ok := r.cache.Get(ctx); ok {
		return r.build(rules), nil
	}

	// The generation is taken before the read so a concurrent change wins.
	generation, cacheable := r.cache.Generation(ctx)
	rules, err := r.fetch(db)
	if err != nil {
		return nil, err
	}
	if cacheable {
		r.cache.Set(ctx, rules, generation)
	}
	return r.build(rules), nil
}

// loadFresh reads the rules through db, bypassing the cache.
func (r *calendarRules) loadFresh(db *gorm.DB) (*scheduling.Calendar, error) {
	rules, err := r.fetch(db)
	if err != nil {
		return nil, err
	}
	return r.build(rules), nil
}

func (r *calendarRules) fetch(db *gorm.DB) (*service.CalendarRules, error) {
	hours, err := r.workingHoursRepo.FindAll(db)
	if err != nil {
		r.log.Warnf("Failed to load working hours: %+v", err)
		return nil, err
	}
	holidays, err := r.holidayRepo.FindAll(db)
	if err != nil {
		r.log.Warnf("Failed to load holidays: %+v", err)
		return nil, err
	}
	return &service.CalendarRules{WorkingHours: hours, Holidays: holidays}, nil
}

func (r *calendarRules) build(rules *service.CalendarRules) *scheduling.Calendar {
	hours := rules.WorkingHours
	if len(hours) == 0 {
		hours = entity.DefaultWorkingHours()
	}

	days := make([]scheduling.DayRules, 0, len(hours))
	for _, wh := range hours {
		day, err := toDayRules(wh)
		if err != nil {
			// A corrupt row closes its day rather than the whole calendar
			r.log.Warnf("Invalid working hours for day %d, treating as closed: %+v", wh.DayOfWeek, err)
			days = append(days, scheduling.DayRules{Weekday: time.Weekday(wh.DayOfWeek)})
			continue
		}
		days = append(days, day)
	}

	holidays := make([]scheduling.HolidayRule, len(rules.Holidays))
	for i, h := range rules.Holidays {
		holidays[i] = scheduling.HolidayRule{
			Date:      scheduling.DateOnly(h.Date),
			Name:      h.Name,
			Recurring: h.IsRecurring,
		}
	}

	return scheduling.NewCalendar(days, holidays)
}

func (r *calendarRules) invalidate(ctx context.Context) {
	r.cache.Invalidate(ctx)
}

func toDayRules(wh entity.WorkingHours) (scheduling.DayRules, error) {
	day := scheduling.DayRules{
		Weekday:         time.Weekday(wh.DayOfWeek),
		IsOpen:          wh.IsOpen,
		SlotDuration:    wh.SlotDuration,
		MaxAppointments: wh.MaxAppointments,
	}

	var err error
	if day.Open, err = scheduling.ParseClock(wh.OpenTime); err != nil {
		return day, err
	}
	if day.Close, err = scheduling.ParseClock(wh.CloseTime); err != nil {
		return day, err
	}

	if wh.BreakStart != nil && wh.BreakEnd != nil {
		start, err := scheduling.ParseClock(*wh.BreakStart)
		if err != nil {
			return day, err
		}
		end, err := scheduling.ParseClock(*wh.BreakEnd)
		if err != nil {
			return day, err
		}
		day.Break = &scheduling.Interval{Start: start, End: end}
	}

	return day, nil
}

// stationClock answers "today" and "now" in the station's time zone.
type stationClock struct {
	loc *time.Location
	now func() time.Time
}

func newStationClock(loc *time.Location) stationClock {
	if loc == nil {
		loc = time.UTC
	}
	return stationClock{loc: loc, now: time.Now}
}

func (c stationClock) today() time.Time {
	return scheduling.DateOnly(c.now().In(c.loc))
}

func (c stationClock) minuteOfDay() int {
	t := c.now().In(c.loc)
	return t.Hour()*60 + t.Minute()
}
