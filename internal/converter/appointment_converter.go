package converter

import (
	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/scheduling"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(a *entity.Appointment) *dto.AppointmentResponse {
	if a == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:                a.ID,
		ConfirmationCode:  a.ConfirmationCode,
		AppointmentDate:   a.AppointmentDate.Format(scheduling.DateLayout),
		StartTime:         a.StartTime,
		EndTime:           a.EndTime,
		Duration:          a.Duration,
		ClientID:          a.ClientID,
		ClientName:        a.ClientName,
		ClientPhone:       a.ClientPhone,
		ClientEmail:       a.ClientEmail,
		VehiclePlate:      a.VehiclePlate,
		VehicleMake:       a.VehicleMake,
		VehicleModel:      a.VehicleModel,
		VehicleYear:       a.VehicleYear,
		VehicleCategory:   a.VehicleCategory,
		VehicleSpecialUse: a.VehicleSpecialUse,
		ServiceType:       string(a.ServiceType),
		Price:             a.Price,
		Notes:             a.Notes,
		Status:            string(a.Status),
		ConfirmedAt:       a.ConfirmedAt,
		CancelledAt:       a.CancelledAt,
		RarBlockedAt:      a.RarBlockedAt,
		CompletedAt:       a.CompletedAt,
		CancelReason:      a.CancelReason,
		ITPNotes:          a.ITPNotes,
		IsRarBlocked:      a.IsRarBlocked,
		Version:           a.Version,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}

	if a.ITPResult != nil {
		response.ITPResult = string(*a.ITPResult)
	}

	return response
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}
