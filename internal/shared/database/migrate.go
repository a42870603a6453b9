package database

import (
	"reservely/internal/bookings"
	"reservely/internal/registrants"
	"reservely/internal/seats"
	"reservely/internal/settings"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&settings.EventSettings{},
		&seats.Seat{},
		&registrants.Registrant{},
		&bookings.Booking{},
	)
}
