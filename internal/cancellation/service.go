package cancellation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reservely/internal/bookings"
	"reservely/internal/shared/faults"
	"reservely/pkg/logger"
)

// BookingStore is the slice of booking storage cancellation needs. Defined
// on the consumer side so this package does not drag the whole reservation
// flow in.
type BookingStore interface {
	GetByTicketID(ctx context.Context, ticketID uuid.UUID) (*bookings.Booking, error)
	MarkCancelled(ctx context.Context, ticketID uuid.UUID) error
}

// SeatReleaser frees seats after a cancellation.
type SeatReleaser interface {
	ReleaseSeats(ctx context.Context, date string, numbers []int) error
}

// Mailer sends the cancellation notice.
type Mailer interface {
	SendCancellation(ctx context.Context, email, name string, ticketID uuid.UUID, eventDate string, seatLabels []string) error
}

// CancelRequest is the payload for cancelling a confirmed reservation.
type CancelRequest struct {
	TicketID         string `json:"ticketId" binding:"required"`
	ReservationToken string `json:"reservationToken" binding:"required"`
}

// CancelResponse reports a successful cancellation.
type CancelResponse struct {
	TicketID    string    `json:"ticketId"`
	Status      string    `json:"status"`
	CancelledAt time.Time `json:"cancelledAt"`
	SeatNumbers []int     `json:"seatNumbers"`
}

// Service interface defines the contract for reservation cancellation
type Service interface {
	Cancel(ctx context.Context, req *CancelRequest) (*CancelResponse, error)
}

// service implements the Service interface
type service struct {
	store  BookingStore
	seats  SeatReleaser
	mailer Mailer
	tokens *bookings.TokenManager
	logger *logger.Logger
}

// NewService creates a new cancellation service instance
func NewService(store BookingStore, seats SeatReleaser, mailer Mailer, tokens *bookings.TokenManager, appLogger *logger.Logger) Service {
	if appLogger == nil {
		appLogger = logger.GetDefault()
	}
	return &service{
		store:  store,
		seats:  seats,
		mailer: mailer,
		tokens: tokens,
		logger: appLogger,
	}
}

// Cancel releases a confirmed reservation. Possession of the ticket token is
// the only credential; cancelling twice is rejected as a conflict so a retry
// of an already-applied cancel is distinguishable from success.
func (s *service) Cancel(ctx context.Context, req *CancelRequest) (*CancelResponse, error) {
	id, err := uuid.Parse(req.TicketID)
	if err != nil {
		return nil, faults.NotFound(fmt.Sprintf("unknown ticket %q", req.TicketID))
	}

	if _, err := s.tokens.Verify(req.ReservationToken, req.TicketID, bookings.TokenPurposeTicket); err != nil {
		return nil, err
	}

	booking, err := s.store.GetByTicketID(ctx, id)
	if err == bookings.ErrBookingNotFound {
		return nil, faults.NotFound("ticket not found")
	}
	if err != nil {
		return nil, faults.Wrap(faults.KindTransient, "failed to load reservation", err)
	}

	if booking.IsCancelled() {
		return nil, faults.Conflict("reservation is already cancelled")
	}

	if err := s.store.MarkCancelled(ctx, id); err != nil {
		if err == bookings.ErrBookingNotFound {
			// Lost a race with another cancel of the same ticket
			return nil, faults.Conflict("reservation is already cancelled")
		}
		return nil, faults.Wrap(faults.KindTransient, "failed to cancel reservation", err)
	}

	date := booking.EventDate.Format("2006-01-02")
	if err := s.seats.ReleaseSeats(ctx, date, booking.SeatNumbers); err != nil {
		// The cancellation stands; the seat rows catch up on the next sweep.
		s.logger.WithError(err).Error("failed to release seats after cancellation", "ticket_id", req.TicketID)
	}

	if err := s.mailer.SendCancellation(ctx, booking.Registrant.Email, booking.Registrant.Name, id, date, booking.SeatLabels); err != nil {
		s.logger.WithError(err).Warn("failed to send cancellation mail", "ticket_id", req.TicketID)
	}

	s.logger.LogReservationCancelled(ctx, req.TicketID)

	return &CancelResponse{
		TicketID:    req.TicketID,
		Status:      string(bookings.BookingStatusCancelled),
		CancelledAt: time.Now(),
		SeatNumbers: booking.SeatNumbers,
	}, nil
}
