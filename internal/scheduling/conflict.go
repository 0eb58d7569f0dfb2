package scheduling

import "time"

// Reason explains why an interval cannot be booked.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonHoliday      Reason = "holiday"
	ReasonClosed       Reason = "closed"
	ReasonOutsideHours Reason = "outside_working_hours"
	ReasonBreak        Reason = "break"
	ReasonCapacity     Reason = "capacity_exceeded"
	ReasonInvalid      Reason = "invalid_interval"
)

// Booked is an existing, non-cancelled booking on the date being checked.
type Booked struct {
	ID       string
	Interval Interval
}

// Check decides whether candidate may be booked on date given the calendar
// and the bookings already on that date. excludeID drops one booking from
// the count so a reschedule does not collide with itself.
// It fails closed: holiday, closed day, outside hours and a break conflict
// all reject before capacity is counted. A break conflict is a start inside
// the break or an interval spanning all of it; an inspection that begins
// before the break may still run into it.
func Check(cal *Calendar, date time.Time, candidate Interval, existing []Booked, excludeID string) Reason {
	if candidate.Empty() {
		return ReasonInvalid
	}
	if cal.IsHoliday(date) {
		return ReasonHoliday
	}

	day := cal.Day(date)
	if !day.IsOpen {
		return ReasonClosed
	}
	if !candidate.Within(day.Hours()) {
		return ReasonOutsideHours
	}
	if day.Break != nil && (day.Break.Contains(candidate.Start) || day.Break.Within(candidate)) {
		return ReasonBreak
	}

	if CountOverlapping(candidate, existing, excludeID) >= maxAppointments(day) {
		return ReasonCapacity
	}
	return ReasonNone
}

// CountOverlapping counts bookings whose interval overlaps candidate.
func CountOverlapping(candidate Interval, existing []Booked, excludeID string) int {
	n := 0
	for _, b := range existing {
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if b.Interval.Overlaps(candidate) {
			n++
		}
	}
	return n
}

func maxAppointments(day DayRules) int {
	if day.MaxAppointments < 1 {
		return 1
	}
	return day.MaxAppointments
}
