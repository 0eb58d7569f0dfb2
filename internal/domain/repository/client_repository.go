package repository

import (
	"itp-scheduler/internal/domain/entity"

	"gorm.io/gorm"
)

type ClientRepository interface {
	Create(db *gorm.DB, client *entity.Client) error
	FindByPhone(db *gorm.DB, phone string) (*entity.Client, error)
	Update(db *gorm.DB, client *entity.Client) error
}

type VehicleRepository interface {
	Create(db *gorm.DB, vehicle *entity.Vehicle) error
	FindByPlate(db *gorm.DB, plate string) (*entity.Vehicle, error)
	Update(db *gorm.DB, vehicle *entity.Vehicle) error
}
