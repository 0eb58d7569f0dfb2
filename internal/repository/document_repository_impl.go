package repository

import (
	"errors"

	"itp-scheduler/internal/domain/entity"
	domainRepo "itp-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type documentRepository struct{}

func NewDocumentRepository() domainRepo.DocumentRepository {
	return &documentRepository{}
}

func (r *documentRepository) Create(db *gorm.DB, document *entity.Document) error {
	return db.Omit("Vehicle").Create(document).Error
}

func (r *documentRepository) SupersedePrior(db *gorm.DB, vehicleID uuid.UUID, docType entity.DocumentType) (int64, error) {
	result := db.Model(&entity.Document{}).
		Where("vehicle_id = ? AND type = ? AND status != ?", vehicleID, docType, entity.DocumentStatusRenewed).
		Update("status", entity.DocumentStatusRenewed)
	return result.RowsAffected, result.Error
}

// FindCurrent returns the latest-expiring document that was not renewed.
func (r *documentRepository) FindCurrent(db *gorm.DB, vehicleID uuid.UUID, docType entity.DocumentType) (*entity.Document, error) {
	var document entity.Document
	err := db.Where("vehicle_id = ? AND type = ? AND status != ?", vehicleID, docType, entity.DocumentStatusRenewed).
		Order("expiry_date DESC").
		First(&document).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &document, nil
}

func (r *documentRepository) FindNotRenewed(db *gorm.DB, docType entity.DocumentType) ([]entity.Document, error) {
	var documents []entity.Document
	err := db.Preload("Vehicle").
		Where("type = ? AND status != ?", docType, entity.DocumentStatusRenewed).
		Order("expiry_date ASC").
		Find(&documents).Error
	if err != nil {
		return nil, err
	}
	return documents, nil
}

func (r *documentRepository) UpdateStatus(db *gorm.DB, id uuid.UUID, status entity.DocumentStatus) error {
	return db.Model(&entity.Document{}).Where("id = ?", id).Update("status", status).Error
}
