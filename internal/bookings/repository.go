package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reservely/internal/registrants"
)

// ErrBookingNotFound is returned when no booking exists for a ticket id.
var ErrBookingNotFound = errors.New("booking not found")

type Repository interface {
	// CreateWithRegistrant persists the registrant and the booking in one
	// transaction so a confirmed reservation is never half-written.
	CreateWithRegistrant(ctx context.Context, registrant *registrants.Registrant, booking *Booking) error
	GetByTicketID(ctx context.Context, ticketID uuid.UUID) (*Booking, error)
	MarkCancelled(ctx context.Context, ticketID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateWithRegistrant(ctx context.Context, registrant *registrants.Registrant, booking *Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(registrant).Error; err != nil {
			return err
		}
		booking.RegistrantID = registrant.ID
		return tx.Create(booking).Error
	})
}

func (r *repository) GetByTicketID(ctx context.Context, ticketID uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).
		Preload("Registrant").
		Where("ticket_id = ?", ticketID).
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) MarkCancelled(ctx context.Context, ticketID uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("ticket_id = ? AND status = ?", ticketID, BookingStatusConfirmed).
		Updates(map[string]interface{}{
			"status":       BookingStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookingNotFound
	}
	return nil
}
