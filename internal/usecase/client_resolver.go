package usecase

import (
	"context"
	"fmt"

	"itp-scheduler/internal/domain/entity"
	"itp-scheduler/internal/domain/repository"
	"itp-scheduler/pkg/normalize"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ClientResolver finds client and vehicle records by their unique keys,
// creating them on first sight. Both calls are idempotent and run inside
// the caller's transaction.
type ClientResolver interface {
	FindOrCreateClient(ctx context.Context, tx *gorm.DB, phone, name, email string) (*entity.Client, error)
	FindOrCreateVehicle(ctx context.Context, tx *gorm.DB, v VehicleDetails, clientID *uuid.UUID) (*entity.Vehicle, error)
}

// VehicleDetails are the vehicle attributes known from an appointment.
type VehicleDetails struct {
	Plate        string
	Make         string
	Model        string
	Year         int
	Category     string
	IsSpecialUse bool
}

func vehicleDetailsOf(a *entity.Appointment) VehicleDetails {
	return VehicleDetails{
		Plate:        a.VehiclePlate,
		Make:         a.VehicleMake,
		Model:        a.VehicleModel,
		Year:         a.VehicleYear,
		Category:     a.VehicleCategory,
		IsSpecialUse: a.VehicleSpecialUse,
	}
}

type clientResolver struct {
	log         *logrus.Logger
	clientRepo  repository.ClientRepository
	vehicleRepo repository.VehicleRepository
}

func NewClientResolver(log *logrus.Logger, clientRepo repository.ClientRepository, vehicleRepo repository.VehicleRepository) ClientResolver {
	return &clientResolver{
		log:         log,
		clientRepo:  clientRepo,
		vehicleRepo: vehicleRepo,
	}
}

func (r *clientResolver) FindOrCreateClient(ctx context.Context, tx *gorm.DB, phone, name, email string) (*entity.Client, error) {
	phone = normalize.Phone(phone)
	if phone == "" {
		return nil, validationError("client phone is required")
	}

	client, err := r.clientRepo.FindByPhone(tx, phone)
	if err != nil {
		r.log.Warnf("Failed to find client by phone: %+v", err)
		return nil, err
	}
	if client != nil {
		// Fill in details the client did not give before
		if client.Email == "" && email != "" {
			client.Email = email
			if err := r.clientRepo.Update(tx, client); err != nil {
				r.log.Warnf("Failed to update client %s: %+v", client.ID, err)
				return nil, err
			}
		}
		return client, nil
	}

	client = &entity.Client{
		Name:  normalize.Name(name),
		Phone: phone,
		Email: email,
	}
	err = withSavepoint(tx, "client", func(db *gorm.DB) error {
		return r.clientRepo.Create(db, client)
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			// Lost a race with a concurrent creator
			existing, findErr := r.clientRepo.FindByPhone(tx, phone)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				return existing, nil
			}
		}
		r.log.Warnf("Failed to create client: %+v", err)
		return nil, err
	}
	return client, nil
}

func (r *clientResolver) FindOrCreateVehicle(ctx context.Context, tx *gorm.DB, v VehicleDetails, clientID *uuid.UUID) (*entity.Vehicle, error) {
	plate := normalize.Plate(v.Plate)
	if plate == "" {
		return nil, validationError("vehicle plate is required")
	}
	category := v.Category
	if category == "" {
		category = defaultVehicleCategory
	}

	vehicle, err := r.vehicleRepo.FindByPlate(tx, plate)
	if err != nil {
		r.log.Warnf("Failed to find vehicle by plate: %+v", err)
		return nil, err
	}
	if vehicle != nil {
		changed := false
		if vehicle.ClientID == nil && clientID != nil {
			vehicle.ClientID = clientID
			changed = true
		}
		if vehicle.Year == 0 && v.Year != 0 {
			vehicle.Year = v.Year
			changed = true
		}
		if changed {
			if err := r.vehicleRepo.Update(tx, vehicle); err != nil {
				r.log.Warnf("Failed to update vehicle %s: %+v", vehicle.ID, err)
				return nil, err
			}
		}
		return vehicle, nil
	}

	vehicle = &entity.Vehicle{
		ClientID:     clientID,
		Plate:        plate,
		Make:         v.Make,
		Model:        v.Model,
		Year:         v.Year,
		Category:     category,
		IsSpecialUse: v.IsSpecialUse,
	}
	err = withSavepoint(tx, "vehicle", func(db *gorm.DB) error {
		return r.vehicleRepo.Create(db, vehicle)
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			existing, findErr := r.vehicleRepo.FindByPlate(tx, plate)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				return existing, nil
			}
		}
		r.log.Warnf("Failed to create vehicle: %+v", err)
		return nil, err
	}
	return vehicle, nil
}

// withSavepoint runs create under a savepoint so a unique violation does
// not abort the surrounding PostgreSQL transaction.
func withSavepoint(tx *gorm.DB, name string, create func(db *gorm.DB) error) error {
	savepoint := fmt.Sprintf("sp_create_%s", name)
	if err := tx.SavePoint(savepoint).Error; err != nil {
		return err
	}
	if err := create(tx); err != nil {
		if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
			return rbErr
		}
		return err
	}
	return nil
}
