package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Holiday closes the station for a date; recurring ones repeat every year on
// the same month and day.
type Holiday struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Date        time.Time `gorm:"type:date;not null;uniqueIndex" json:"date"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	IsRecurring bool      `gorm:"not null;default:false" json:"is_recurring"`
	IsOrthodox  bool      `gorm:"not null;default:false" json:"is_orthodox"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Holiday) TableName() string {
	return "holidays"
}

func (h *Holiday) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
