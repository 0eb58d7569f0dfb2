package usecase

import (
	"context"
	"errors"
	"time"

	"itp-scheduler/config"
	"itp-scheduler/internal/converter"
	"itp-scheduler/internal/delivery/dto"
	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/domain/repository"
	"itp-scheduler/internal/metrics"
	"itp-scheduler/internal/scheduling"
	"itp-scheduler/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RarBlockExtension is added to the duration of an inspection held up by
// the RAR registry check.
const RarBlockExtension = 45

const (
	defaultCancelReason = "Cancelled by station"
	defaultRejectReason = "Rejected via approval link"
)

type LifecycleUsecase interface {
	Confirm(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*dto.AppointmentResponse, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*dto.AppointmentResponse, error)
	StartInspection(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	MarkBlocked(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	SetResult(ctx context.Context, id uuid.UUID, req *dto.SetResultRequest) (*dto.AppointmentResponse, error)
	QuickPass(ctx context.Context, id uuid.UUID, notes string) (*dto.AppointmentResponse, error)
	Complete(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	NoShow(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
}

type lifecycleUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	resolver        ClientResolver
	issuer          *certificateIssuer
	auditService    service.AuditService
	dispatcher      *service.Dispatcher
	metrics         *metrics.Metrics
}

func NewLifecycleUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	documentRepo repository.DocumentRepository,
	resolver ClientResolver,
	auditService service.AuditService,
	dispatcher *service.Dispatcher,
	m *metrics.Metrics,
	cfg config.SchedulingConfig,
	loc *time.Location,
) LifecycleUsecase {
	return &lifecycleUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		resolver:        resolver,
		issuer: &certificateIssuer{
			log:            log,
			documentRepo:   documentRepo,
			resolver:       resolver,
			auditService:   auditService,
			expiringWindow: expiringWindowDays(cfg),
			clock:          newStationClock(loc),
		},
		auditService: auditService,
		dispatcher:   dispatcher,
		metrics:      m,
	}
}

// =============================================================================
// Transition machinery
// =============================================================================

// transition describes one edge of the state machine.
type transition struct {
	name    string
	action  string
	allowed []entity.AppointmentStatus
	to      entity.AppointmentStatus

	// prepare runs inside the transaction before the compare-and-set and
	// adds its column changes to updates.
	prepare func(ctx context.Context, tx *gorm.DB, a *entity.Appointment, updates map[string]interface{}) error

	// after runs once the change is committed, with the stored row.
	after func(a *entity.Appointment)
}

var (
	// Cancel applies to every state except the two that close the books.
	cancellableStatuses = []entity.AppointmentStatus{
		entity.AppointmentStatusPending,
		entity.AppointmentStatusConfirmed,
		entity.AppointmentStatusInProgress,
		entity.AppointmentStatusRarBlocked,
		entity.AppointmentStatusNoShow,
	}
	resultStatuses = []entity.AppointmentStatus{
		entity.AppointmentStatusInProgress,
		entity.AppointmentStatusRarBlocked,
	}
)

// run applies t to appointment id.
//
// Flow:
//  1. Read the current row; check the precondition on it
//  2. In one transaction: side effects (prepare), then
//     UPDATE ... WHERE id AND version AND status IN allowed, then the audit row
//  3. Zero rows updated means someone else moved first: roll back and
//     report NotFound or InvalidTransition from a fresh read
//  4. After commit: notifications (after)
func (u *lifecycleUsecase) run(ctx context.Context, id uuid.UUID, t transition) (*entity.Appointment, error) {
	current, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		u.metrics.ObserveTransition(t.name, metrics.ResultFailure)
		return nil, err
	}
	if current == nil {
		u.metrics.ObserveTransition(t.name, metrics.ResultRejected)
		return nil, ErrAppointmentNotFound
	}
	if !statusIn(current.Status, t.allowed) {
		u.metrics.ObserveTransition(t.name, metrics.ResultRejected)
		return nil, &TransitionError{Transition: t.name, From: current.Status}
	}

	if err := u.apply(ctx, current, t); err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrAppointmentNotFound) || errors.Is(err, ErrValidation) {
			u.metrics.ObserveTransition(t.name, metrics.ResultRejected)
		} else {
			u.log.Warnf("Failed to %s appointment %s: %+v", t.name, id, err)
			u.metrics.ObserveTransition(t.name, metrics.ResultFailure)
		}
		return nil, err
	}
	u.metrics.ObserveTransition(t.name, metrics.ResultSuccess)

	updated, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil || updated == nil {
		u.log.Warnf("Failed to reload appointment %s after %s: %+v", id, t.name, err)
		updated = current
		updated.Status = t.to
	}

	if t.after != nil {
		t.after(updated)
	}

	u.log.Infof("Appointment %s: %s -> %s (%s)", id, current.Status, t.to, t.name)
	return updated, nil
}

func (u *lifecycleUsecase) apply(ctx context.Context, current *entity.Appointment, t transition) error {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	updates := map[string]interface{}{"status": t.to}
	if t.prepare != nil {
		if err := t.prepare(ctx, tx, current, updates); err != nil {
			return err
		}
	}

	rows, err := u.appointmentRepo.UpdateIfState(tx, current.ID, current.Version, t.allowed, updates)
	if err != nil {
		return err
	}
	if rows == 0 {
		return staleStateError(tx, u.appointmentRepo, current.ID, t.name)
	}

	extra := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		if k != "status" {
			extra[k] = v
		}
	}
	if err := u.auditService.LogTransition(ctx, tx, current.ID, t.action, current.Status, t.to, extra); err != nil {
		return err
	}

	return tx.Commit().Error
}

func statusIn(status entity.AppointmentStatus, allowed []entity.AppointmentStatus) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

func (u *lifecycleUsecase) respond(a *entity.Appointment, err error) (*dto.AppointmentResponse, error) {
	if err != nil {
		return nil, err
	}
	return converter.AppointmentToResponse(a), nil
}

// linkClient resolves the client and vehicle of a and links the client.
func (u *lifecycleUsecase) linkClient(ctx context.Context, tx *gorm.DB, a *entity.Appointment, updates map[string]interface{}) (*entity.Client, error) {
	client, err := u.resolver.FindOrCreateClient(ctx, tx, a.ClientPhone, a.ClientName, a.ClientEmail)
	if err != nil {
		return nil, err
	}
	if _, err := u.resolver.FindOrCreateVehicle(ctx, tx, vehicleDetailsOf(a), &client.ID); err != nil {
		return nil, err
	}
	updates["client_id"] = client.ID
	return client, nil
}

// =============================================================================
// Transitions
// =============================================================================

func (u *lifecycleUsecase) Confirm(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.respond(u.run(ctx, id, transition{
		name:    "confirm",
		action:  entity.AuditActionAppointmentConfirm,
		allowed: []entity.AppointmentStatus{entity.AppointmentStatusPending},
		to:      entity.AppointmentStatusConfirmed,
		prepare: func(ctx context.Context, tx *gorm.DB, a *entity.Appointment, updates map[string]interface{}) error {
			if _, err := u.linkClient(ctx, tx, a, updates); err != nil {
				return err
			}
			updates["confirmed_at"] = time.Now()
			return nil
		},
		after: func(a *entity.Appointment) {
			u.dispatcher.Dispatch(service.NotificationConfirmed, a, nil)
		},
	}))
}

func (u *lifecycleUsecase) Cancel(ctx context.Context, id uuid.UUID, reason string) (*dto.AppointmentResponse, error) {
	if reason == "" {
		reason = defaultCancelReason
	}
	return u.respond(u.run(ctx, id, u.cancelTransition("cancel", cancellableStatuses, reason, nil)))
}

// Reject cancels a PENDING appointment and tells the client.
func (u *lifecycleUsecase) Reject(ctx context.Context, id uuid.UUID, reason string) (*dto.AppointmentResponse, error) {
	if reason == "" {
		reason = defaultRejectReason
	}
	return u.respond(u.run(ctx, id, u.cancelTransition("reject", []entity.AppointmentStatus{entity.AppointmentStatusPending}, reason, func(a *entity.Appointment) {
		u.dispatcher.Dispatch(service.NotificationRejected, a, datatypes.JSONMap{"reason": reason})
	})))
}

func (u *lifecycleUsecase) cancelTransition(name string, allowed []entity.AppointmentStatus, reason string, after func(a *entity.Appointment)) transition {
	return transition{
		name:    name,
		action:  entity.AuditActionAppointmentCancel,
		allowed: allowed,
		to:      entity.AppointmentStatusCancelled,
		prepare: func(ctx context.Context, tx *gorm.DB, a *entity.Appointment, updates map[string]interface{}) error {
			updates["cancelled_at"] = time.Now()
			updates["cancel_reason"] = reason
			return nil
		},
		after: after,
	}
}

func (u *lifecycleUsecase) StartInspection(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.respond(u.run(ctx, id, transition{
		name:    "start_inspection",
		action:  entity.AuditActionAppointmentStart,
		allowed: []entity.AppointmentStatus{entity.AppointmentStatusConfirmed},
		to:      entity.AppointmentStatusInProgress,
	}))
}

// MarkBlocked pauses an inspection on the RAR check and extends it by
// RarBlockExtension minutes. Capacity is not re-checked: the car is
// already on the ramp.
func (u *lifecycleUsecase) MarkBlocked(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.respond(u.run(ctx, id, transition{
		name:    "mark_blocked",
		action:  entity.AuditActionAppointmentBlock,
		allowed: []entity.AppointmentStatus{entity.AppointmentStatusInProgress},
		to:      entity.AppointmentStatusRarBlocked,
		prepare: func(ctx context.Context, tx *gorm.DB, a *entity.Appointment, updates map[string]interface{}) error {
			start, err := scheduling.ParseClock(a.StartTime)
			if err != nil {
				return validationError("stored start_time %q is invalid", a.StartTime)
			}
			duration := a.Duration + RarBlockExtension
			if start+duration > scheduling.MinutesPerDay {
				return validationError("extension would run past midnight")
			}
			updates["duration"] = duration
			updates["end_time"] = scheduling.FormatClock(start + duration)
			updates["is_rar_blocked"] = true
			updates["rar_blocked_at"] = time.Now()
			return nil
		},
	}))
}

func (u *lifecycleUsecase) SetResult(ctx context.Context, id uuid.UUID, req *dto.SetResultRequest) (*dto.AppointmentResponse, error) {
	result := entity.ITPResult(req.Result)
	switch result {
	case entity.ITPResultPass, entity.ITPResultPassWithObservations, entity.ITPResultFail:
	default:
		return nil, validationError("unknown result %q", req.Result)
	}

	var certificate *entity.Document
	return u.respond(u.run(ctx, id, transition{
		name:    "set_result",
		action:  entity.AuditActionAppointmentResult,
		allowed: resultStatuses,
		to:      entity.AppointmentStatusCompleted,
		prepare: func(ctx context.Context, tx *gorm.DB, a *entity.Appointment, updates map[string]interface{}) error {
			if result.IsPassing() {
				doc, err := u.issuer.issue(ctx, tx, a, a.ClientID, req.Notes)
				if err != nil {
					return err
				}
				certificate = doc
			}
			updates["itp_result"] = result
			updates["itp_notes"] = req.Notes
			updates["completed_at"] = time.Now()
			return nil
		},
		after: func(a *entity.Appointment) {
			if certificate == nil {
				u.dispatcher.Dispatch(service.NotificationResultFail, a, datatypes.JSONMap{"notes": req.Notes})
				return
			}
			u.dispatcher.Dispatch(service.NotificationResultPass, a, certificateExtra(certificate))
		},
	}))
}

// QuickPass records a pass in one step from any open state, resolving the
// client and vehicle the way Confirm does.
func (u *lifecycleUsecase) QuickPass(ctx context.Context, id uuid.UUID, notes string) (*dto.AppointmentResponse, error) {
	var certificate *entity.Document
	return u.respond(u.run(ctx, id, transition{
		name:    "quick_pass",
		action:  entity.AuditActionAppointmentQuickPass,
		allowed: cancellableStatuses,
		to:      entity.AppointmentStatusCompleted,
		prepare: func(ctx context.Context, tx *gorm.DB, a *entity.Appointment, updates map[string]interface{}) error {
			client, err := u.linkClient(ctx, tx, a, updates)
			if err != nil {
				return err
			}
			doc, err := u.issuer.issue(ctx, tx, a, &client.ID, notes)
			if err != nil {
				return err
			}
			certificate = doc

			now := time.Now()
			if a.ConfirmedAt == nil {
				updates["confirmed_at"] = now
			}
			updates["itp_result"] = entity.ITPResultPass
			updates["itp_notes"] = notes
			updates["completed_at"] = now
			return nil
		},
		after: func(a *entity.Appointment) {
			u.dispatcher.Dispatch(service.NotificationResultPass, a, certificateExtra(certificate))
		},
	}))
}

func (u *lifecycleUsecase) Complete(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.respond(u.run(ctx, id, transition{
		name:    "complete",
		action:  entity.AuditActionAppointmentComplete,
		allowed: entity.NonTerminalStatuses,
		to:      entity.AppointmentStatusCompleted,
		prepare: func(ctx context.Context, tx *gorm.DB, a *entity.Appointment, updates map[string]interface{}) error {
			updates["completed_at"] = time.Now()
			return nil
		},
	}))
}

func (u *lifecycleUsecase) NoShow(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.respond(u.run(ctx, id, transition{
		name:    "no_show",
		action:  entity.AuditActionAppointmentNoShow,
		allowed: entity.NonTerminalStatuses,
		to:      entity.AppointmentStatusNoShow,
	}))
}

func certificateExtra(doc *entity.Document) datatypes.JSONMap {
	if doc == nil {
		return nil
	}
	return datatypes.JSONMap{
		"certificate_id": doc.ID.String(),
		"issue_date":     doc.IssueDate.Format(scheduling.DateLayout),
		"expiry_date":    doc.ExpiryDate.Format(scheduling.DateLayout),
	}
}
