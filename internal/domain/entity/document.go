package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentType string

const (
	DocumentTypeITP DocumentType = "ITP"
)

type DocumentStatus string

const (
	DocumentStatusActive       DocumentStatus = "ACTIVE"
	DocumentStatusExpiringSoon DocumentStatus = "EXPIRING_SOON"
	DocumentStatusExpired      DocumentStatus = "EXPIRED"
	DocumentStatusRenewed      DocumentStatus = "RENEWED"
)

// Document is a vehicle certificate. An ITP document is issued when an
// inspection passes and marks its predecessors RENEWED.
type Document struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	VehicleID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_documents_vehicle_type,priority:1" json:"vehicle_id"`
	AppointmentID *uuid.UUID     `gorm:"type:uuid;index" json:"appointment_id,omitempty"`
	Type          DocumentType   `gorm:"type:varchar(20);not null;index:idx_documents_vehicle_type,priority:2" json:"type"`
	IssueDate     time.Time      `gorm:"type:date;not null" json:"issue_date"`
	ExpiryDate    time.Time      `gorm:"type:date;not null;index" json:"expiry_date"`
	Status        DocumentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Notes         string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Vehicle *Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
}

func (Document) TableName() string {
	return "documents"
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
