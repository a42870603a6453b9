package bookings

import "time"

// RegistrantSummary is the user snapshot echoed back on a ticket.
type RegistrantSummary struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender"`
	AgeRange string `json:"ageRange"`
}

// TicketResponse is the full confirmed reservation as the client renders it.
type TicketResponse struct {
	TicketID         string            `json:"ticketId"`
	Status           string            `json:"status"`
	EventDate        string            `json:"eventDate"`
	EventTimes       []string          `json:"eventTimes,omitempty"`
	SeatNumbers      []int             `json:"seatNumbers"`
	SeatLabels       []string          `json:"seatLabels"`
	QRCode           string            `json:"qrCode,omitempty"`
	CalendarLink     string            `json:"calendarLink,omitempty"`
	ReservationToken string            `json:"reservationToken,omitempty"`
	User             RegistrantSummary `json:"user"`
	CancelledAt      *time.Time        `json:"cancelledAt,omitempty"`
}

// InitiationOutcome is the tagged result of starting a reservation. Exactly
// one branch is populated: either the reservation awaits a passcode, or it
// confirmed directly and Ticket carries the result.
type InitiationOutcome struct {
	RequiresVerification bool            `json:"requiresVerification"`
	TempID               string          `json:"tempId,omitempty"`
	ReservationToken     string          `json:"reservationToken,omitempty"`
	ExpiresAt            *time.Time      `json:"expiresAt,omitempty"`
	Ticket               *TicketResponse `json:"ticket,omitempty"`
}

// ResendResponse reports a successful passcode reissue.
type ResendResponse struct {
	TempID    string    `json:"tempId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
