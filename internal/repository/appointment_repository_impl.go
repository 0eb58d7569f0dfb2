package repository

import (
	"errors"
	"time"

	"itp-scheduler/internal/domain/entity"
	domainRepo "itp-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(db *gorm.DB, appointment *entity.Appointment) error {
	return db.Omit("Client").Create(appointment).Error
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return r.findOne(db.Where("id = ?", id))
}

func (r *appointmentRepository) FindByApprovalToken(db *gorm.DB, token string) (*entity.Appointment, error) {
	return r.findOne(db.Where("approval_token = ?", token))
}

func (r *appointmentRepository) FindByConfirmationCode(db *gorm.DB, code string) (*entity.Appointment, error) {
	return r.findOne(db.Where("confirmation_code = ?", code))
}

func (r *appointmentRepository) findOne(query *gorm.DB) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := query.First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByPhone(db *gorm.DB, phone string) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("client_phone = ?", phone).
		Order("appointment_date DESC, start_time DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindByPlate(db *gorm.DB, plate string) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("vehicle_plate = ?", plate).
		Order("appointment_date DESC, start_time DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindByDate(db *gorm.DB, date time.Time) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("appointment_date = ?", date).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// FindActiveByDate returns the bookings that occupy capacity on date.
func (r *appointmentRepository) FindActiveByDate(db *gorm.DB, date time.Time) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("appointment_date = ? AND status != ?", date, entity.AppointmentStatusCancelled).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindLatestPassedByPlate(db *gorm.DB, plate string) (*entity.Appointment, error) {
	return r.findOne(db.
		Where("vehicle_plate = ? AND status = ? AND itp_result IN ?", plate, entity.AppointmentStatusCompleted,
			[]entity.ITPResult{entity.ITPResultPass, entity.ITPResultPassWithObservations}).
		Order("appointment_date DESC, start_time DESC"))
}

func (r *appointmentRepository) Update(db *gorm.DB, appointment *entity.Appointment) error {
	return db.Omit("Client").Save(appointment).Error
}

// UpdateIfState is a compare-and-set on (version, status). Returns affected
// rows: 1 = applied, 0 = the row moved on or does not exist.
func (r *appointmentRepository) UpdateIfState(db *gorm.DB, id uuid.UUID, version int, allowed []entity.AppointmentStatus, updates map[string]any) (int64, error) {
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = gorm.Expr("version + 1")

	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND version = ? AND status IN ?", id, version, allowed).
		Updates(values)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) Delete(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Where("id = ?", id).Delete(&entity.Appointment{})
	return result.RowsAffected, result.Error
}
