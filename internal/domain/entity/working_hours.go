package entity

import "time"

// WorkingHours holds the opening rules of one weekday (0 = Sunday).
// Times are zero-padded "HH:MM".
type WorkingHours struct {
	ID              int       `gorm:"primaryKey;autoIncrement" json:"id"`
	DayOfWeek       int       `gorm:"uniqueIndex;not null" json:"day_of_week"`
	IsOpen          bool      `gorm:"not null;default:false" json:"is_open"`
	OpenTime        string    `gorm:"type:varchar(5);not null" json:"open_time"`
	CloseTime       string    `gorm:"type:varchar(5);not null" json:"close_time"`
	BreakStart      *string   `gorm:"type:varchar(5)" json:"break_start,omitempty"`
	BreakEnd        *string   `gorm:"type:varchar(5)" json:"break_end,omitempty"`
	SlotDuration    int       `gorm:"not null;default:30" json:"slot_duration"`
	MaxAppointments int       `gorm:"not null;default:1" json:"max_appointments"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WorkingHours) TableName() string {
	return "working_hours"
}

func strPtr(s string) *string { return &s }

// DefaultWorkingHours are seeded when the table is empty:
// Mon-Fri 08:00-17:00 with a 12:00-13:00 break, Sat 08:00-13:00, Sun closed.
func DefaultWorkingHours() []WorkingHours {
	hours := make([]WorkingHours, 0, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		wh := WorkingHours{
			DayOfWeek:       int(day),
			IsOpen:          true,
			OpenTime:        "08:00",
			CloseTime:       "17:00",
			SlotDuration:    30,
			MaxAppointments: 1,
		}
		switch day {
		case time.Sunday:
			wh.IsOpen = false
		case time.Saturday:
			wh.CloseTime = "13:00"
		default:
			wh.BreakStart = strPtr("12:00")
			wh.BreakEnd = strPtr("13:00")
		}
		hours = append(hours, wh)
	}
	return hours
}
