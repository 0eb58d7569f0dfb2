package usecase

import (
	"context"
	"testing"
	"time"

	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/scheduling"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSeedWorkingHours_OnlyWhenEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.calendar.SeedWorkingHours(ctx)
	require.NoError(t, err)
	require.Equal(t, 7, created)

	created, err = env.calendar.SeedWorkingHours(ctx)
	require.NoError(t, err)
	require.Zero(t, created)

	hours, err := env.calendar.GetWorkingHours(ctx)
	require.NoError(t, err)
	require.Len(t, hours, 7)
	require.False(t, hours[0].IsOpen)
	require.Equal(t, "13:00", hours[6].CloseTime)
	require.NotNil(t, hours[1].BreakStart)
	require.Equal(t, "12:00", *hours[1].BreakStart)
}

func TestUpdateWorkingHours_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	breakStart := "12:00"

	tests := []struct {
		name string
		day  int
		req  dto.WorkingHoursRequest
	}{
		{"bad day", 7, dto.WorkingHoursRequest{OpenTime: "08:00", CloseTime: "17:00", SlotDuration: 30, MaxAppointments: 1}},
		{"close before open", 1, dto.WorkingHoursRequest{OpenTime: "17:00", CloseTime: "08:00", SlotDuration: 30, MaxAppointments: 1}},
		{"half a break", 1, dto.WorkingHoursRequest{OpenTime: "08:00", CloseTime: "17:00", BreakStart: &breakStart, SlotDuration: 30, MaxAppointments: 1}},
		{"no capacity", 1, dto.WorkingHoursRequest{OpenTime: "08:00", CloseTime: "17:00", SlotDuration: 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.calendar.UpdateWorkingHours(ctx, tt.day, &tt.req)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSeedHolidays_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Whit Monday 2026 falls on 1 June, already a fixed holiday.
	first, err := env.calendar.SeedHolidays(ctx, 2026)
	require.NoError(t, err)
	require.Equal(t, 16, first.Total)

	again, err := env.calendar.SeedHolidays(ctx, 2026)
	require.NoError(t, err)
	require.Zero(t, again.Total)

	// Fixed holidays recur, so the next year only adds the Easter-based ones.
	next, err := env.calendar.SeedHolidays(ctx, 2027)
	require.NoError(t, err)
	require.Equal(t, 5, next.Total)

	list, err := env.calendar.ListHolidays(ctx, 2026)
	require.NoError(t, err)
	require.Equal(t, 16, list.Total)

	_, err = env.calendar.SeedHolidays(ctx, 1999)
	require.ErrorIs(t, err, ErrValidation)
}

func TestHolidays_CreateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := &dto.CreateHolidayRequest{Date: "2030-03-08", Name: "Station closed"}

	h, err := env.calendar.CreateHoliday(ctx, req)
	require.NoError(t, err)

	_, err = env.calendar.CreateHoliday(ctx, req)
	require.ErrorIs(t, err, ErrHolidayExists)

	require.NoError(t, env.calendar.DeleteHoliday(ctx, h.ID))
	require.ErrorIs(t, env.calendar.DeleteHoliday(ctx, h.ID), ErrHolidayNotFound)
	require.ErrorIs(t, env.calendar.DeleteHoliday(ctx, uuid.New()), ErrHolidayNotFound)
}

func TestGetAvailableSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	date := futureMonday(1)

	env.book(t, date, "09:00")

	slots, err := env.calendar.GetAvailableSlots(ctx, date, 0)
	require.NoError(t, err)
	require.True(t, slots.IsOpen)
	require.Equal(t, 30, slots.Duration)
	// 08:00-17:00 every 30 minutes, less the two slots inside the break.
	require.Len(t, slots.Slots, 16)

	byTime := make(map[string]bool, len(slots.Slots))
	for _, s := range slots.Slots {
		byTime[s.Time] = s.Available
	}
	require.False(t, byTime["09:00"])
	require.True(t, byTime["09:30"])
	require.True(t, byTime["08:00"])
	_, listed := byTime["12:00"]
	require.False(t, listed)

	_, err = env.calendar.CreateHoliday(ctx, &dto.CreateHolidayRequest{Date: date, Name: "Closed"})
	require.NoError(t, err)
	slots, err = env.calendar.GetAvailableSlots(ctx, date, 0)
	require.NoError(t, err)
	require.True(t, slots.IsHoliday)
	require.Equal(t, "Closed", slots.HolidayName)
	require.Empty(t, slots.Slots)

	_, err = env.calendar.GetAvailableSlots(ctx, "tomorrow", 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestIsAvailable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dateStr := futureMonday(1)
	date, err := scheduling.ParseDate(dateStr)
	require.NoError(t, err)

	a := env.book(t, dateStr, "09:00")

	resp, err := env.calendar.IsAvailable(ctx, date, "09:15", 30, nil)
	require.NoError(t, err)
	require.False(t, resp.Available)
	require.Equal(t, string(scheduling.ReasonCapacity), resp.Reason)

	resp, err = env.calendar.IsAvailable(ctx, date, "09:15", 30, &a.ID)
	require.NoError(t, err)
	require.True(t, resp.Available)

	resp, err = env.calendar.IsAvailable(ctx, date, "12:15", 30, nil)
	require.NoError(t, err)
	require.Equal(t, string(scheduling.ReasonBreak), resp.Reason)

	resp, err = env.calendar.IsAvailable(ctx, date.Add(-24*time.Hour), "09:00", 30, nil)
	require.NoError(t, err)
	require.Equal(t, string(scheduling.ReasonClosed), resp.Reason)

	_, err = env.calendar.IsAvailable(ctx, date, "9", 30, nil)
	require.ErrorIs(t, err, ErrValidation)
}
