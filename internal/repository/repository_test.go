package repository

import (
	"testing"
	"time"

	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/infrastructure/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteConnection(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newAppointment(code string, date time.Time, status entity.AppointmentStatus) *entity.Appointment {
	return &entity.Appointment{
		ConfirmationCode: code,
		ApprovalToken:    "token-" + code,
		AppointmentDate:  date,
		StartTime:        "09:00",
		EndTime:          "09:30",
		Duration:         30,
		ClientName:       "Ion",
		ClientPhone:      "0722123456",
		VehiclePlate:     "B123ABC",
		VehicleCategory:  "PASSENGER_CAR",
		ServiceType:      entity.ServiceTypeITP,
		Status:           status,
		Version:          1,
	}
}

func TestAppointmentRepository_UpdateIfState(t *testing.T) {
	db := newTestDB(t)
	repo := NewAppointmentRepository()
	a := newAppointment("AAAAAA", time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC), entity.AppointmentStatusPending)
	require.NoError(t, repo.Create(db, a))

	pending := []entity.AppointmentStatus{entity.AppointmentStatusPending}
	confirmed := map[string]any{"status": entity.AppointmentStatusConfirmed}

	rows, err := repo.UpdateIfState(db, a.ID, 1, pending, confirmed)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	// Stale version and stale status both miss.
	rows, err = repo.UpdateIfState(db, a.ID, 1, []entity.AppointmentStatus{entity.AppointmentStatusConfirmed}, confirmed)
	require.NoError(t, err)
	require.Zero(t, rows)
	rows, err = repo.UpdateIfState(db, a.ID, 2, pending, confirmed)
	require.NoError(t, err)
	require.Zero(t, rows)

	stored, err := repo.FindByID(db, a.ID)
	require.NoError(t, err)
	require.Equal(t, entity.AppointmentStatusConfirmed, stored.Status)
	require.Equal(t, 2, stored.Version)
}

func TestAppointmentRepository_FindActiveByDate(t *testing.T) {
	db := newTestDB(t)
	repo := NewAppointmentRepository()
	day := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(db, newAppointment("AAAAAA", day, entity.AppointmentStatusPending)))
	require.NoError(t, repo.Create(db, newAppointment("BBBBBB", day, entity.AppointmentStatusCancelled)))
	require.NoError(t, repo.Create(db, newAppointment("CCCCCC", day, entity.AppointmentStatusNoShow)))
	require.NoError(t, repo.Create(db, newAppointment("DDDDDD", day.AddDate(0, 0, 1), entity.AppointmentStatusPending)))

	active, err := repo.FindActiveByDate(db, day)
	require.NoError(t, err)
	require.Len(t, active, 2)

	all, err := repo.FindByDate(db, day)
	require.NoError(t, err)
	require.Len(t, all, 3)

	missing, err := repo.FindByConfirmationCode(db, "ZZZZZZ")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestAppointmentRepository_UniqueCode(t *testing.T) {
	db := newTestDB(t)
	repo := NewAppointmentRepository()
	day := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(db, newAppointment("AAAAAA", day, entity.AppointmentStatusPending)))
	dup := newAppointment("AAAAAA", day, entity.AppointmentStatusPending)
	dup.ApprovalToken = "another"
	require.ErrorIs(t, repo.Create(db, dup), gorm.ErrDuplicatedKey)
}

func TestHolidayRepository_FindByYear(t *testing.T) {
	db := newTestDB(t)
	repo := NewHolidayRepository()

	require.NoError(t, repo.Create(db, &entity.Holiday{Date: time.Date(2020, 12, 25, 0, 0, 0, 0, time.UTC), Name: "Craciun", IsRecurring: true}))
	require.NoError(t, repo.Create(db, &entity.Holiday{Date: time.Date(2030, 4, 26, 0, 0, 0, 0, time.UTC), Name: "Paste", IsOrthodox: true}))
	require.NoError(t, repo.Create(db, &entity.Holiday{Date: time.Date(2031, 4, 13, 0, 0, 0, 0, time.UTC), Name: "Paste", IsOrthodox: true}))

	holidays, err := repo.FindByYear(db, 2030)
	require.NoError(t, err)
	require.Len(t, holidays, 2)
}

func TestBookingDayRepository_LockIsRepeatable(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookingDayRepository()
	day := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return repo.Lock(tx, day)
		})
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, db.Model(&entity.BookingDay{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestDocumentRepository_SupersedeAndCurrent(t *testing.T) {
	db := newTestDB(t)
	vehicles := NewVehicleRepository()
	docs := NewDocumentRepository()

	v := &entity.Vehicle{Plate: "B123ABC", Category: "PASSENGER_CAR"}
	require.NoError(t, vehicles.Create(db, v))

	old := &entity.Document{VehicleID: v.ID, Type: entity.DocumentTypeITP, IssueDate: time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), Status: entity.DocumentStatusActive}
	require.NoError(t, docs.Create(db, old))

	superseded, err := docs.SupersedePrior(db, v.ID, entity.DocumentTypeITP)
	require.NoError(t, err)
	require.EqualValues(t, 1, superseded)

	current, err := docs.FindCurrent(db, v.ID, entity.DocumentTypeITP)
	require.NoError(t, err)
	require.Nil(t, current)

	fresh := &entity.Document{VehicleID: v.ID, Type: entity.DocumentTypeITP, IssueDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate: time.Date(2032, 1, 1, 0, 0, 0, 0, time.UTC), Status: entity.DocumentStatusActive}
	require.NoError(t, docs.Create(db, fresh))

	current, err = docs.FindCurrent(db, v.ID, entity.DocumentTypeITP)
	require.NoError(t, err)
	require.Equal(t, fresh.ID, current.ID)

	notRenewed, err := docs.FindNotRenewed(db, entity.DocumentTypeITP)
	require.NoError(t, err)
	require.Len(t, notRenewed, 1)
	require.NotNil(t, notRenewed[0].Vehicle)
	require.Equal(t, "B123ABC", notRenewed[0].Vehicle.Plate)
}
