package repository

import (
	"itp-scheduler/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(db *gorm.DB, document *entity.Document) error
	// SupersedePrior marks every non-RENEWED document of the vehicle and type RENEWED.
	SupersedePrior(db *gorm.DB, vehicleID uuid.UUID, docType entity.DocumentType) (int64, error)
	FindCurrent(db *gorm.DB, vehicleID uuid.UUID, docType entity.DocumentType) (*entity.Document, error)
	FindNotRenewed(db *gorm.DB, docType entity.DocumentType) ([]entity.Document, error)
	UpdateStatus(db *gorm.DB, id uuid.UUID, status entity.DocumentStatus) error
}
