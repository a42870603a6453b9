package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reservely/internal/availability"
	"reservely/internal/registrants"
	"reservely/internal/seats"
	"reservely/internal/settings"
	"reservely/internal/shared/config"
	"reservely/internal/shared/faults"
	"reservely/internal/verification"
	"reservely/pkg/logger"
)

// SeatService is the slice of the seat inventory the reservation flow needs.
type SeatService interface {
	CheckAvailable(ctx context.Context, date string, numbers []int) error
	LockSeats(ctx context.Context, date string, numbers []int, tempID string, ttl time.Duration) error
	UnlockSeats(ctx context.Context, tempID string) error
	BookSeats(ctx context.Context, date string, numbers []int) error
	ReleaseSeats(ctx context.Context, date string, numbers []int) error
}

// SettingsSource provides the active event configuration.
type SettingsSource interface {
	GetSettings(ctx context.Context) (*settings.EventSettings, error)
}

// Mailer is the slice of the mail pipeline the reservation flow needs.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, name, tempID, code string, ttl time.Duration) error
	SendConfirmation(ctx context.Context, email, name string, ticketID uuid.UUID, eventDate string, seatLabels []string, calendarLink string) error
}

// Service interface defines the contract for the reservation flow
type Service interface {
	Initiate(ctx context.Context, req *InitiateRequest) (*InitiationOutcome, error)
	Verify(ctx context.Context, req *VerifyRequest) (*TicketResponse, error)
	ResendCode(ctx context.Context, req *ResendRequest) (*ResendResponse, error)
	GetTicket(ctx context.Context, ticketID string) (*TicketResponse, error)
}

// service implements the Service interface
type service struct {
	repo           Repository
	pending        PendingStore
	seatService    SeatService
	settingsSource SettingsSource
	verifier       verification.Service
	mailer         Mailer
	tokens         *TokenManager
	policy         config.ReservationConfig
	logger         *logger.Logger
}

// NewService creates a new reservation flow service instance
func NewService(
	repo Repository,
	pending PendingStore,
	seatService SeatService,
	settingsSource SettingsSource,
	verifier verification.Service,
	mailer Mailer,
	tokens *TokenManager,
	policy config.ReservationConfig,
	appLogger *logger.Logger,
) Service {
	if appLogger == nil {
		appLogger = logger.GetDefault()
	}
	return &service{
		repo:           repo,
		pending:        pending,
		seatService:    seatService,
		settingsSource: settingsSource,
		verifier:       verifier,
		mailer:         mailer,
		tokens:         tokens,
		policy:         policy,
		logger:         appLogger,
	}
}

// Initiate starts a reservation. The outcome is tagged: when verification is
// required the caller gets a tempId and a pending token; otherwise the
// reservation confirms directly and the full ticket comes back.
func (s *service) Initiate(ctx context.Context, req *InitiateRequest) (*InitiationOutcome, error) {
	cfg, err := s.settingsSource.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, faults.Validation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.Date))
	}

	if !availability.IsDateSelectable(day, cfg.Policy(), time.Now()) {
		return nil, faults.Validation("selected date is not open for reservations")
	}

	if err := validateSeatSelection(req.Seats, cfg.MaxSeatsPerUser); err != nil {
		return nil, err
	}

	if err := s.seatService.CheckAvailable(ctx, req.Date, req.Seats); err != nil {
		return nil, err
	}

	labels := seatLabels(req.Seats)

	if !s.policy.RequireOTP {
		ticket, err := s.confirm(ctx, pendingFromRequest(req, "", labels, s.policy.PendingTTL), cfg)
		if err != nil {
			return nil, err
		}
		return &InitiationOutcome{RequiresVerification: false, Ticket: ticket}, nil
	}

	tempID := uuid.New().String()
	if err := s.seatService.LockSeats(ctx, req.Date, req.Seats, tempID, s.policy.PendingTTL); err != nil {
		return nil, err
	}

	pending := pendingFromRequest(req, tempID, labels, s.policy.PendingTTL)
	if err := s.pending.Save(ctx, pending, s.policy.PendingTTL); err != nil {
		s.rollbackPending(ctx, pending)
		return nil, faults.Wrap(faults.KindTransient, "failed to store pending reservation", err)
	}

	code, err := s.verifier.Issue(ctx, tempID)
	if err != nil {
		s.rollbackPending(ctx, pending)
		return nil, err
	}

	if err := s.mailer.SendVerificationCode(ctx, req.Email, req.Name, tempID, code, s.policy.OTPTTL); err != nil {
		// The reservation stays pending; resend covers a lost first mail.
		s.logger.WithError(err).Warn("failed to send verification code", "temp_id", tempID)
	}

	token, err := s.tokens.MintPending(tempID, req.Email, s.policy.PendingTTL)
	if err != nil {
		s.rollbackPending(ctx, pending)
		return nil, faults.Wrap(faults.KindTransient, "failed to mint reservation token", err)
	}

	s.logger.LogReservationInitiated(ctx, tempID, req.Date, len(req.Seats))

	expiresAt := pending.ExpiresAt
	return &InitiationOutcome{
		RequiresVerification: true,
		TempID:               tempID,
		ReservationToken:     token,
		ExpiresAt:            &expiresAt,
	}, nil
}

// Verify confirms a pending reservation with the mailed passcode.
func (s *service) Verify(ctx context.Context, req *VerifyRequest) (*TicketResponse, error) {
	claims, err := s.tokens.Verify(req.ReservationToken, req.TempID, TokenPurposePending)
	if err != nil {
		return nil, err
	}
	if claims.Email != req.Email {
		return nil, faults.Auth("reservation token does not match this email")
	}

	pending, err := s.pending.Get(ctx, req.TempID)
	if err == ErrPendingNotFound {
		return nil, faults.NotFound("reservation has expired or was not found")
	}
	if err != nil {
		return nil, faults.Wrap(faults.KindTransient, "failed to load pending reservation", err)
	}
	if pending.Email != req.Email {
		return nil, faults.Auth("email does not match this reservation")
	}

	if err := s.verifier.Validate(ctx, req.TempID, req.OTP); err != nil {
		s.logger.LogVerificationFailure(ctx, req.TempID, faults.MessageOf(err))
		return nil, err
	}

	cfg, err := s.settingsSource.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	ticket, err := s.confirm(ctx, pending, cfg)
	if err != nil {
		return nil, err
	}

	// The seats are booked; the locks and the pending record are now noise.
	if err := s.seatService.UnlockSeats(ctx, pending.TempID); err != nil {
		s.logger.WithError(err).Warn("failed to release seat locks after confirmation", "temp_id", pending.TempID)
	}
	if err := s.pending.Delete(ctx, pending); err != nil {
		s.logger.WithError(err).Warn("failed to delete pending reservation", "temp_id", pending.TempID)
	}

	return ticket, nil
}

// ResendCode reissues the passcode for a pending reservation. The lookup
// goes through the tempId when the client still has it, otherwise through
// the email index.
func (s *service) ResendCode(ctx context.Context, req *ResendRequest) (*ResendResponse, error) {
	var pending *PendingReservation
	var err error
	if req.TempID != "" {
		pending, err = s.pending.Get(ctx, req.TempID)
	} else {
		pending, err = s.pending.GetByEmail(ctx, req.Email)
	}
	if err == ErrPendingNotFound {
		return nil, faults.NotFound("reservation has expired or was not found")
	}
	if err != nil {
		return nil, faults.Wrap(faults.KindTransient, "failed to load pending reservation", err)
	}
	if pending.Email != req.Email {
		return nil, faults.Auth("email does not match this reservation")
	}

	code, err := s.verifier.Reissue(ctx, pending.TempID)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerificationCode(ctx, pending.Email, pending.Name, pending.TempID, code, s.policy.OTPTTL); err != nil {
		return nil, faults.Wrap(faults.KindTransient, "failed to send verification code", err)
	}

	return &ResendResponse{TempID: pending.TempID, ExpiresAt: pending.ExpiresAt}, nil
}

// GetTicket returns a confirmed reservation by its public ticket id.
func (s *service) GetTicket(ctx context.Context, ticketID string) (*TicketResponse, error) {
	id, err := uuid.Parse(ticketID)
	if err != nil {
		return nil, faults.NotFound(fmt.Sprintf("unknown ticket %q", ticketID))
	}

	booking, err := s.repo.GetByTicketID(ctx, id)
	if err == ErrBookingNotFound {
		return nil, faults.NotFound("ticket not found")
	}
	if err != nil {
		return nil, faults.Wrap(faults.KindTransient, "failed to load ticket", err)
	}

	cfg, err := s.settingsSource.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	return buildTicketResponse(booking, cfg.EventTimes, ""), nil
}

// confirm books the seats and persists the reservation as one unit of work
// from the caller's point of view.
func (s *service) confirm(ctx context.Context, pending *PendingReservation, cfg *settings.EventSettings) (*TicketResponse, error) {
	registrant := &registrants.Registrant{
		Name:     pending.Name,
		Email:    pending.Email,
		Phone:    pending.Phone,
		Gender:   pending.Gender,
		AgeRange: pending.AgeRange,
		Bio:      pending.AboutYourself,
	}

	day, err := time.Parse("2006-01-02", pending.Date)
	if err != nil {
		return nil, faults.Validation(fmt.Sprintf("invalid date %q", pending.Date))
	}

	booking := &Booking{
		EventDate:   day,
		SeatNumbers: pending.Seats,
		SeatLabels:  pending.SeatLabels,
		Status:      BookingStatusConfirmed,
	}

	if err := s.seatService.BookSeats(ctx, pending.Date, pending.Seats); err != nil {
		return nil, err
	}

	if err := s.repo.CreateWithRegistrant(ctx, registrant, booking); err != nil {
		// Put the seats back so a storage failure does not strand them.
		if releaseErr := s.seatService.ReleaseSeats(ctx, pending.Date, pending.Seats); releaseErr != nil {
			s.logger.WithError(releaseErr).Error("failed to release seats after storage failure", "date", pending.Date)
		}
		return nil, faults.Wrap(faults.KindTransient, "failed to store reservation", err)
	}
	booking.Registrant = *registrant

	token, err := s.tokens.MintTicket(booking.TicketID.String(), registrant.Email)
	if err != nil {
		return nil, faults.Wrap(faults.KindTransient, "failed to mint ticket token", err)
	}

	response := buildTicketResponse(booking, cfg.EventTimes, token)

	if err := s.mailer.SendConfirmation(ctx, registrant.Email, registrant.Name, booking.TicketID, pending.Date, booking.SeatLabels, response.CalendarLink); err != nil {
		s.logger.WithError(err).Warn("failed to send confirmation mail", "ticket_id", booking.TicketID)
	}

	s.logger.LogReservationConfirmed(ctx, booking.TicketID.String(), pending.Date)
	return response, nil
}

func (s *service) rollbackPending(ctx context.Context, pending *PendingReservation) {
	if err := s.seatService.UnlockSeats(ctx, pending.TempID); err != nil {
		s.logger.WithError(err).Error("failed to release seat locks during rollback", "temp_id", pending.TempID)
	}
	if err := s.pending.Delete(ctx, pending); err != nil {
		s.logger.WithError(err).Warn("failed to delete pending reservation during rollback", "temp_id", pending.TempID)
	}
}

func pendingFromRequest(req *InitiateRequest, tempID string, labels []string, ttl time.Duration) *PendingReservation {
	now := time.Now()
	return &PendingReservation{
		TempID:        tempID,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Gender:        req.Gender,
		AgeRange:      req.AgeRange,
		AboutYourself: req.AboutYourself,
		Date:          req.Date,
		Seats:         req.Seats,
		SeatLabels:    labels,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
}

func validateSeatSelection(numbers []int, maxSeats int) error {
	if len(numbers) == 0 {
		return faults.Validation("select at least one seat")
	}
	if maxSeats > 0 && len(numbers) > maxSeats {
		return faults.Validation(fmt.Sprintf("you can reserve at most %d seats", maxSeats))
	}
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if seen[n] {
			return faults.Validation(fmt.Sprintf("seat %d selected twice", n))
		}
		seen[n] = true
	}
	return nil
}

func seatLabels(numbers []int) []string {
	labels := make([]string, len(numbers))
	for i, n := range numbers {
		labels[i] = seats.DefaultLabel(n)
	}
	return labels
}

func buildTicketResponse(booking *Booking, eventTimes []string, token string) *TicketResponse {
	date := booking.EventDate.Format("2006-01-02")

	response := &TicketResponse{
		TicketID:         booking.TicketID.String(),
		Status:           string(booking.Status),
		EventDate:        date,
		EventTimes:       eventTimes,
		SeatNumbers:      booking.SeatNumbers,
		SeatLabels:       booking.SeatLabels,
		ReservationToken: token,
		CancelledAt:      booking.CancelledAt,
		User: RegistrantSummary{
			Name:     booking.Registrant.Name,
			Email:    booking.Registrant.Email,
			Phone:    booking.Registrant.Phone,
			Gender:   booking.Registrant.Gender,
			AgeRange: booking.Registrant.AgeRange,
		},
	}

	if booking.Status == BookingStatusConfirmed {
		response.QRCode = buildQRCode(booking.TicketID.String())
		response.CalendarLink = buildCalendarLink(booking.EventDate, eventTimes, booking.SeatLabels)
	}

	return response
}
