package entity

import "time"

// BookingDay is the lock row of one calendar date. Writers booking into a
// date lock its row first, so count-then-insert runs serialized per date.
type BookingDay struct {
	Date      time.Time `gorm:"type:date;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (BookingDay) TableName() string {
	return "booking_days"
}
