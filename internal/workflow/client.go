package workflow

import (
	"context"

	"reservely/internal/bookings"
	"reservely/internal/cancellation"
	"reservely/internal/seats"
	"reservely/internal/settings"
)

// Client is everything the session needs from the reservation backend. The
// HTTP implementation lives in pkg/apiclient; tests swap in a fake.
type Client interface {
	FetchSettings(ctx context.Context) (*settings.EventSettings, error)
	FetchSeats(ctx context.Context, date string) (*seats.Inventory, error)
	InitiateReservation(ctx context.Context, req *bookings.InitiateRequest) (*bookings.InitiationOutcome, error)
	VerifyReservation(ctx context.Context, req *bookings.VerifyRequest) (*bookings.TicketResponse, error)
	ResendCode(ctx context.Context, req *bookings.ResendRequest) (*bookings.ResendResponse, error)
	CancelReservation(ctx context.Context, req *cancellation.CancelRequest) (*cancellation.CancelResponse, error)
}
