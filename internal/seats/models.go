package seats

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Seat is one numbered seat for one event date.
type Seat struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventDate time.Time `gorm:"type:date;not null;index:idx_seats_date_number,unique" json:"event_date"`
	Number    int       `gorm:"not null;index:idx_seats_date_number,unique" json:"number"`
	Label     string    `gorm:"type:varchar(10);not null" json:"label"`
	Booked    bool      `gorm:"not null;default:false" json:"booked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for Seat
func (Seat) TableName() string {
	return "seats"
}

// SeatView is the wire shape of one seat in the inventory payload.
type SeatView struct {
	Number      int    `json:"number"`
	Label       string `json:"label"`
	IsAvailable bool   `json:"isAvailable"`
}

// Inventory is the per-date seat snapshot served to clients. The counts
// always satisfy availableSeats + bookedSeats == totalSeats.
type Inventory struct {
	AllSeats       []SeatView `json:"allSeats"`
	TotalSeats     int        `json:"totalSeats"`
	AvailableSeats int        `json:"availableSeats"`
	BookedSeats    int        `json:"bookedSeats"`
}

// DefaultLabel renders the canonical label for a seat number: rows of ten,
// lettered from A (1 -> A1, 11 -> B1).
func DefaultLabel(number int) string {
	row := rune('A' + (number-1)/10)
	pos := (number-1)%10 + 1
	return fmt.Sprintf("%c%d", row, pos)
}
