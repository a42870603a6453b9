package bookings

import (
	"time"

	"github.com/google/uuid"

	"reservely/internal/registrants"
)

// BookingStatus represents the lifecycle state of a confirmed reservation.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking is a confirmed reservation. The ticket id doubles as the public
// reference printed on the QR code.
type Booking struct {
	TicketID     uuid.UUID              `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"ticketId"`
	RegistrantID uuid.UUID              `gorm:"type:uuid;not null;index" json:"-"`
	Registrant   registrants.Registrant `gorm:"foreignKey:RegistrantID" json:"-"`
	EventDate    time.Time              `gorm:"type:date;not null;index" json:"eventDate"`
	SeatNumbers  []int                  `gorm:"serializer:json;not null" json:"seatNumbers"`
	SeatLabels   []string               `gorm:"serializer:json;not null" json:"seatLabels"`
	Status       BookingStatus          `gorm:"type:varchar(20);not null;default:'CONFIRMED';index" json:"status"`
	CancelledAt  *time.Time             `json:"cancelledAt,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// IsCancelled reports whether the reservation has already been cancelled.
func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}
