package service

import (
	"context"
	"encoding/json"

	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type actorKey struct{}

// DefaultActor is recorded when no staff member or token holder is known.
const DefaultActor = "system"

// WithActor tags ctx with the name written to the audit trail.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return DefaultActor
}

// AuditService writes audit rows inside the caller's transaction, so an
// audit entry exists iff the change it describes was committed.
type AuditService interface {
	LogCreate(ctx context.Context, tx *gorm.DB, appointmentID *uuid.UUID, action string, newValue interface{}) error
	LogTransition(ctx context.Context, tx *gorm.DB, appointmentID uuid.UUID, action string, from, to entity.AppointmentStatus, extra map[string]interface{}) error
	LogUpdate(ctx context.Context, tx *gorm.DB, appointmentID *uuid.UUID, action string, oldValue, newValue interface{}) error
	LogDelete(ctx context.Context, tx *gorm.DB, appointmentID *uuid.UUID, action string, oldValue interface{}) error
	History(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID) ([]entity.AuditLog, error)
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

// LogCreate logs a create action
func (s *auditService) LogCreate(ctx context.Context, tx *gorm.DB, appointmentID *uuid.UUID, action string, newValue interface{}) error {
	return s.write(ctx, tx, appointmentID, action, map[string]interface{}{
		"old_value": nil,
		"new_value": newValue,
	})
}

// LogTransition logs a lifecycle status change
func (s *auditService) LogTransition(ctx context.Context, tx *gorm.DB, appointmentID uuid.UUID, action string, from, to entity.AppointmentStatus, extra map[string]interface{}) error {
	metadata := map[string]interface{}{
		"old_status": from,
		"new_status": to,
	}
	for k, v := range extra {
		metadata[k] = v
	}
	return s.write(ctx, tx, &appointmentID, action, metadata)
}

// LogUpdate logs an update action with old and new values
func (s *auditService) LogUpdate(ctx context.Context, tx *gorm.DB, appointmentID *uuid.UUID, action string, oldValue, newValue interface{}) error {
	return s.write(ctx, tx, appointmentID, action, map[string]interface{}{
		"old_value": oldValue,
		"new_value": newValue,
	})
}

// LogDelete logs a delete action with old value
func (s *auditService) LogDelete(ctx context.Context, tx *gorm.DB, appointmentID *uuid.UUID, action string, oldValue interface{}) error {
	return s.write(ctx, tx, appointmentID, action, map[string]interface{}{
		"old_value": oldValue,
		"new_value": nil,
	})
}

func (s *auditService) History(ctx context.Context, db *gorm.DB, appointmentID uuid.UUID) ([]entity.AuditLog, error) {
	logs, err := s.auditRepo.FindByAppointmentID(db.WithContext(ctx), appointmentID)
	if err != nil {
		s.log.Warnf("Failed to load audit history: %+v", err)
		return nil, err
	}
	return logs, nil
}

func (s *auditService) write(ctx context.Context, tx *gorm.DB, appointmentID *uuid.UUID, action string, metadata map[string]interface{}) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		s.log.Warnf("Failed to encode audit metadata: %+v", err)
		return err
	}

	auditLog := &entity.AuditLog{
		AppointmentID: appointmentID,
		Actor:         ActorFromContext(ctx),
		Action:        action,
		Metadata:      datatypes.JSON(raw),
	}

	if err := s.auditRepo.Create(tx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}

	return nil
}
