package usecase

import (
	"errors"
	"fmt"

	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/scheduling"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidToken        = errors.New("invalid or unknown approval token")
	ErrSlotUnavailable     = errors.New("slot unavailable")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrValidation          = errors.New("validation failed")
	ErrCertificateNotFound = errors.New("no certificate found for vehicle")
	ErrHolidayNotFound     = errors.New("holiday not found")
	ErrHolidayExists       = errors.New("a holiday already exists on this date")
	ErrCodeExhausted       = errors.New("could not generate a unique confirmation code")
)

// SlotUnavailableError tells the caller why the interval was refused.
type SlotUnavailableError struct {
	Reason scheduling.Reason
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("slot unavailable: %s", e.Reason)
}

func (e *SlotUnavailableError) Is(target error) bool {
	return target == ErrSlotUnavailable
}

// TransitionError reports a lifecycle precondition that did not hold.
type TransitionError struct {
	Transition string
	From       entity.AppointmentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s an appointment in status %s", e.Transition, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// validationError wraps ErrValidation with a field-level message.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// isDuplicateKeyError checks for a unique constraint violation, either
// translated by gorm or raw from PostgreSQL (23505). Translation drops the
// constraint name, so callers confirm which key collided with a lookup.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
