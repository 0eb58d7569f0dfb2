package repository

import (
	"errors"

	"itp-scheduler/internal/domain/entity"
	domainRepo "itp-scheduler/internal/domain/repository"

	"gorm.io/gorm"
)

type clientRepository struct{}

func NewClientRepository() domainRepo.ClientRepository {
	return &clientRepository{}
}

func (r *clientRepository) Create(db *gorm.DB, client *entity.Client) error {
	return db.Omit("Vehicles").Create(client).Error
}

func (r *clientRepository) FindByPhone(db *gorm.DB, phone string) (*entity.Client, error) {
	var client entity.Client
	err := db.Where("phone = ?", phone).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) Update(db *gorm.DB, client *entity.Client) error {
	return db.Omit("Vehicles").Save(client).Error
}

type vehicleRepository struct{}

func NewVehicleRepository() domainRepo.VehicleRepository {
	return &vehicleRepository{}
}

func (r *vehicleRepository) Create(db *gorm.DB, vehicle *entity.Vehicle) error {
	return db.Create(vehicle).Error
}

func (r *vehicleRepository) FindByPlate(db *gorm.DB, plate string) (*entity.Vehicle, error) {
	var vehicle entity.Vehicle
	err := db.Where("plate = ?", plate).First(&vehicle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepository) Update(db *gorm.DB, vehicle *entity.Vehicle) error {
	return db.Save(vehicle).Error
}
