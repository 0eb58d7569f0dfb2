package converter

import (
	"time"

	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/scheduling"
)

// WorkingHoursToResponse converts a WorkingHours entity to WorkingHoursResponse DTO
func WorkingHoursToResponse(wh *entity.WorkingHours) *dto.WorkingHoursResponse {
	if wh == nil {
		return nil
	}

	return &dto.WorkingHoursResponse{
		DayOfWeek:       wh.DayOfWeek,
		DayName:         time.Weekday(wh.DayOfWeek).String(),
		IsOpen:          wh.IsOpen,
		OpenTime:        wh.OpenTime,
		CloseTime:       wh.CloseTime,
		BreakStart:      wh.BreakStart,
		BreakEnd:        wh.BreakEnd,
		SlotDuration:    wh.SlotDuration,
		MaxAppointments: wh.MaxAppointments,
		UpdatedAt:       wh.UpdatedAt,
	}
}

func WorkingHoursToResponses(hours []entity.WorkingHours) []dto.WorkingHoursResponse {
	responses := make([]dto.WorkingHoursResponse, len(hours))
	for i := range hours {
		responses[i] = *WorkingHoursToResponse(&hours[i])
	}
	return responses
}

// HolidayToResponse converts a Holiday entity to HolidayResponse DTO
func HolidayToResponse(h *entity.Holiday) *dto.HolidayResponse {
	if h == nil {
		return nil
	}

	return &dto.HolidayResponse{
		ID:          h.ID,
		Date:        h.Date.Format(scheduling.DateLayout),
		Name:        h.Name,
		IsRecurring: h.IsRecurring,
		IsOrthodox:  h.IsOrthodox,
	}
}

func HolidaysToResponses(holidays []entity.Holiday) []dto.HolidayResponse {
	responses := make([]dto.HolidayResponse, len(holidays))
	for i := range holidays {
		responses[i] = *HolidayToResponse(&holidays[i])
	}
	return responses
}
