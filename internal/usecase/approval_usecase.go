package usecase

import (
	"context"
	"errors"
	"strings"

	"itp-scheduler/internal/converter"
	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/domain/repository"
	"itp-scheduler/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ApprovalActor is the audit actor for transitions made through an emailed link.
const ApprovalActor = "approval-link"

// ApprovalUsecase redeems the one-time tokens sent to the station owner.
// Redeeming a token twice is harmless: the second call reports
// already_processed and sends nothing.
type ApprovalUsecase interface {
	Approve(ctx context.Context, token string) (*dto.ApprovalResult, error)
	Reject(ctx context.Context, token, reason string) (*dto.ApprovalResult, error)
}

type approvalUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	lifecycle       LifecycleUsecase
}

func NewApprovalUsecase(db *gorm.DB, log *logrus.Logger, appointmentRepo repository.AppointmentRepository, lifecycle LifecycleUsecase) ApprovalUsecase {
	return &approvalUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		lifecycle:       lifecycle,
	}
}

func (u *approvalUsecase) Approve(ctx context.Context, token string) (*dto.ApprovalResult, error) {
	return u.redeem(ctx, token, dto.ApprovalOutcomeApproved, func(ctx context.Context, a *entity.Appointment) (*dto.AppointmentResponse, error) {
		return u.lifecycle.Confirm(ctx, a.ID)
	})
}

func (u *approvalUsecase) Reject(ctx context.Context, token, reason string) (*dto.ApprovalResult, error) {
	return u.redeem(ctx, token, dto.ApprovalOutcomeRejected, func(ctx context.Context, a *entity.Appointment) (*dto.AppointmentResponse, error) {
		return u.lifecycle.Reject(ctx, a.ID, reason)
	})
}

func (u *approvalUsecase) redeem(ctx context.Context, token, outcome string, act func(context.Context, *entity.Appointment) (*dto.AppointmentResponse, error)) (*dto.ApprovalResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	appointment, err := u.appointmentRepo.FindByApprovalToken(u.db.WithContext(ctx), token)
	if err != nil {
		u.log.Warnf("Failed to find appointment by approval token: %+v", err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrInvalidToken
	}
	if !appointment.IsPending() {
		return alreadyProcessed(appointment), nil
	}

	ctx = service.WithActor(ctx, ApprovalActor)
	resp, err := act(ctx, appointment)
	if err != nil {
		if !errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		// Lost the race against another click or a staff action.
		latest, findErr := u.appointmentRepo.FindByApprovalToken(u.db.WithContext(ctx), token)
		if findErr != nil {
			return nil, findErr
		}
		if latest == nil {
			return nil, ErrInvalidToken
		}
		return alreadyProcessed(latest), nil
	}

	u.log.Infof("Appointment %s %s via approval link", appointment.ID, outcome)
	return &dto.ApprovalResult{
		Outcome:     outcome,
		Status:      resp.Status,
		Appointment: resp,
	}, nil
}

func alreadyProcessed(a *entity.Appointment) *dto.ApprovalResult {
	return &dto.ApprovalResult{
		Outcome:     dto.ApprovalOutcomeAlreadyProcessed,
		Status:      string(a.Status),
		Appointment: converter.AppointmentToResponse(a),
	}
}
