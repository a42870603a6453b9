package settings

import (
	"time"

	"github.com/google/uuid"

	"reservely/internal/availability"
)

// EventSettings is the single active event configuration the reservation
// flow runs against. Exactly one row has is_active = true at a time.
type EventSettings struct {
	ID                   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"-"`
	ReservationOpenDate  time.Time `gorm:"not null" json:"reservationOpenDate"`
	ReservationCloseDate time.Time `gorm:"not null" json:"reservationCloseDate"`
	WorkingDays          []int     `gorm:"serializer:json" json:"workingDays"`
	BlockedDates         []string  `gorm:"serializer:json" json:"blockedDates"` // YYYY-MM-DD
	MaxSeatsPerUser      int       `gorm:"not null;default:2" json:"maxSeatsPerUser"`
	DefaultTotalSeats    int       `gorm:"not null;default:40" json:"defaultTotalSeats"`
	EventTimes           []string  `gorm:"serializer:json" json:"eventTimes"`
	IsActive             bool      `gorm:"index;default:true" json:"-"`
	CreatedAt            time.Time `json:"-"`
	UpdatedAt            time.Time `json:"-"`
}

// TableName sets the table name for EventSettings
func (EventSettings) TableName() string {
	return "event_settings"
}

// Policy converts the stored configuration into the availability input.
// Blocked dates that fail to parse are dropped rather than blocking nothing
// or everything.
func (s *EventSettings) Policy() availability.Policy {
	p := availability.Policy{
		OpenDate:  s.ReservationOpenDate,
		CloseDate: s.ReservationCloseDate,
		MaxSeats:  s.MaxSeatsPerUser,
	}

	for _, d := range s.WorkingDays {
		if d >= 0 && d <= 6 {
			p.WorkingDays = append(p.WorkingDays, time.Weekday(d))
		}
	}

	for _, raw := range s.BlockedDates {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			p.BlockedDates = append(p.BlockedDates, parsed)
		}
	}

	return p
}
