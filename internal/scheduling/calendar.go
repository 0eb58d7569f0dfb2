package scheduling

import (
	"time"
)

// DayRules are the working hours of one weekday expressed in minutes.
type DayRules struct {
	Weekday         time.Weekday
	IsOpen          bool
	Open            int
	Close           int
	Break           *Interval
	SlotDuration    int
	MaxAppointments int
}

// Hours returns the opening window.
func (r DayRules) Hours() Interval {
	return Interval{Start: r.Open, End: r.Close}
}

// HolidayRule matches either one exact date or, when recurring, the same
// month and day of every year.
type HolidayRule struct {
	Date      time.Time
	Name      string
	Recurring bool
}

// Matches reports whether the rule covers the given date.
func (h HolidayRule) Matches(date time.Time) bool {
	if h.Recurring {
		return h.Date.Month() == date.Month() && h.Date.Day() == date.Day()
	}
	y1, m1, d1 := h.Date.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Calendar answers whether a day or time is bookable at all.
type Calendar struct {
	days     map[time.Weekday]DayRules
	holidays []HolidayRule
}

func NewCalendar(days []DayRules, holidays []HolidayRule) *Calendar {
	c := &Calendar{
		days:     make(map[time.Weekday]DayRules, len(days)),
		holidays: holidays,
	}
	for _, d := range days {
		c.days[d.Weekday] = d
	}
	return c
}

// Day returns the rules for the weekday of date. A weekday without rules is closed.
func (c *Calendar) Day(date time.Time) DayRules {
	rules, ok := c.days[date.Weekday()]
	if !ok {
		return DayRules{Weekday: date.Weekday()}
	}
	return rules
}

// Holiday returns the first holiday matching date.
func (c *Calendar) Holiday(date time.Time) (HolidayRule, bool) {
	for _, h := range c.holidays {
		if h.Matches(date) {
			return h, true
		}
	}
	return HolidayRule{}, false
}

// IsHoliday reports whether any holiday rule matches date.
func (c *Calendar) IsHoliday(date time.Time) bool {
	_, ok := c.Holiday(date)
	return ok
}
