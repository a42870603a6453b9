package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"reservely/internal/availability"
	"reservely/internal/bookings"
	"reservely/internal/cancellation"
	"reservely/internal/seats"
	"reservely/internal/settings"
	"reservely/internal/shared/faults"
)

// resendCooldown is the advisory client-side wait between passcode requests.
// The server enforces its own cooldown; this one just avoids a round trip
// that is known to be rejected.
const resendCooldown = 60 * time.Second

var validate = validator.New()

// RegistrantDetails is the booking form. Validation happens locally before
// anything is sent.
type RegistrantDetails struct {
	Name          string `validate:"required,min=2,max=120"`
	Email         string `validate:"required,email"`
	Phone         string `validate:"required,min=10,max=30"`
	Gender        string `validate:"required,oneof=male female other"`
	AgeRange      string `validate:"required,oneof=18-25 26-35 36-45 46-55 55+"`
	AboutYourself string `validate:"max=500"`
	TermsAccepted bool   `validate:"eq=true"`
}

// Session drives one reservation from date selection to a confirmed (or
// cancelled) ticket. It is safe for concurrent use; network calls run
// outside the lock so a slow fetch never blocks reads.
//
// The session itself carries the credentials the flow accumulates (tempId,
// reservation token, email) rather than leaving them in ambient storage, so
// two sessions never bleed into each other.
type Session struct {
	mu     sync.Mutex
	client Client
	now    func() time.Time

	state      State
	failedFrom State
	fault      error

	settings  *settings.EventSettings
	policy    availability.Policy
	selection Selection
	inventory *seats.Inventory
	details   RegistrantDetails

	tempID           string
	reservationToken string
	email            string
	expiresAt        *time.Time
	resendAfter      time.Time

	ticket *bookings.TicketResponse

	pending Pending
}

// NewSession creates a session at the start of the flow.
func NewSession(client Client) *Session {
	return &Session{
		client: client,
		now:    time.Now,
		state:  StateSelectingDate,
	}
}

// LoadSettings fetches the event configuration and preselects the first
// selectable date. Must run before anything else.
func (s *Session) LoadSettings(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateSelectingDate {
		s.mu.Unlock()
		return faults.Validation(fmt.Sprintf("cannot load settings in state %s", s.state))
	}
	if s.pending.SettingsLoading {
		s.mu.Unlock()
		return nil
	}
	s.pending.SettingsLoading = true
	s.mu.Unlock()

	cfg, err := s.client.FetchSettings(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.SettingsLoading = false

	if err != nil {
		return s.handleFault(err)
	}

	s.settings = cfg
	s.policy = cfg.Policy()
	s.selection.MaxSeats = cfg.MaxSeatsPerUser

	first := availability.FirstSelectableDate(s.policy, s.now())
	s.selection.SetDate(first.Format("2006-01-02"))
	return nil
}

// SelectDate picks an event date and loads its seat map. A date change while
// an earlier fetch is still in flight wins: the stale response is discarded
// when it lands.
func (s *Session) SelectDate(ctx context.Context, date string) error {
	s.mu.Lock()
	if s.state != StateSelectingDate && s.state != StateSelectingSeats {
		s.mu.Unlock()
		return faults.Validation(fmt.Sprintf("cannot select a date in state %s", s.state))
	}
	if s.settings == nil {
		s.mu.Unlock()
		return faults.Validation("event settings are not loaded yet")
	}

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		s.mu.Unlock()
		return faults.Validation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date))
	}
	if !availability.IsDateSelectable(day, s.policy, s.now()) {
		s.mu.Unlock()
		return faults.Validation("selected date is not open for reservations")
	}
	// Re-selecting the date already being fetched is ignored; a different
	// date supersedes the in-flight fetch, whose response will be discarded.
	if s.pending.SeatsLoading && s.selection.Date == date {
		s.mu.Unlock()
		return nil
	}

	s.selection.SetDate(date)
	s.state = StateSelectingSeats
	s.pending.SeatsLoading = true
	s.mu.Unlock()

	inventory, err := s.client.FetchSeats(ctx, date)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.SeatsLoading = false

	// The user moved on to a different date while this fetch was running.
	if s.selection.Date != date {
		return nil
	}

	if err != nil {
		return s.handleFault(err)
	}

	s.inventory = inventory
	return nil
}

// ToggleSeat flips a seat in the selection. Unavailable seats and additions
// past the per-user cap are silent no-ops; deselecting always works.
func (s *Session) ToggleSeat(number int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelectingSeats || s.inventory == nil || s.pending.SeatsLoading {
		return
	}

	if !s.selection.Has(number) {
		seat, ok := s.seatByNumber(number)
		if !ok || !seat.IsAvailable {
			return
		}
	}

	s.selection.Toggle(number)
}

// ProceedToDetails moves to the booking form once at least one seat is held.
func (s *Session) ProceedToDetails() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelectingSeats {
		return faults.Validation(fmt.Sprintf("cannot proceed to details in state %s", s.state))
	}
	if s.inventory == nil {
		return faults.Validation("seat map is not loaded yet")
	}

	// Seats that went unavailable since they were picked are dropped here,
	// before the form, so the submission never carries a known-stale seat.
	kept := s.selection.Seats[:0]
	for _, number := range s.selection.Seats {
		if seat, ok := s.seatByNumber(number); ok && seat.IsAvailable {
			kept = append(kept, number)
		}
	}
	s.selection.Seats = kept

	if s.selection.Count() == 0 {
		return faults.Validation("select at least one seat")
	}

	s.state = StateEnteringDetails
	return nil
}

// Back returns from the booking form to the seat map, keeping the selection.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateEnteringDetails {
		return faults.Validation(fmt.Sprintf("cannot go back in state %s", s.state))
	}
	s.state = StateSelectingSeats
	return nil
}

// SubmitDetails validates the form and initiates the reservation. Depending
// on the server's policy the session lands in AwaitingVerification or goes
// straight to Confirmed.
func (s *Session) SubmitDetails(ctx context.Context, details RegistrantDetails) error {
	s.mu.Lock()
	if s.state != StateEnteringDetails {
		s.mu.Unlock()
		return faults.Validation(fmt.Sprintf("cannot submit in state %s", s.state))
	}
	// A submit is already in flight; this one is ignored, not queued.
	if s.pending.Submitting {
		s.mu.Unlock()
		return nil
	}

	if err := validate.Struct(details); err != nil {
		s.mu.Unlock()
		return faults.Validation(fmt.Sprintf("invalid details: %v", err))
	}

	s.details = details
	s.email = details.Email

	req := &bookings.InitiateRequest{
		Name:          details.Name,
		Email:         details.Email,
		Phone:         details.Phone,
		Gender:        details.Gender,
		AgeRange:      details.AgeRange,
		AboutYourself: details.AboutYourself,
		Date:          s.selection.Date,
		Seats:         append([]int(nil), s.selection.Seats...),
		TermsAccepted: details.TermsAccepted,
	}

	s.pending.Submitting = true
	s.mu.Unlock()

	outcome, err := s.client.InitiateReservation(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Submitting = false

	if err != nil {
		// A seat was grabbed by someone else between selection and submit.
		// The user has to re-pick, so the form is not resubmittable as-is;
		// the inventory is stale and must be fetched again.
		if faults.KindOf(err) == faults.KindConflict {
			s.state = StateSelectingSeats
			s.inventory = nil
		}
		return s.handleFault(err)
	}

	if outcome.RequiresVerification {
		s.tempID = outcome.TempID
		s.reservationToken = outcome.ReservationToken
		s.expiresAt = outcome.ExpiresAt
		s.resendAfter = s.now().Add(resendCooldown)
		s.state = StateAwaitingVerification
		return nil
	}

	s.ticket = outcome.Ticket
	if outcome.Ticket != nil {
		s.reservationToken = outcome.Ticket.ReservationToken
	}
	s.state = StateConfirmed
	return nil
}

// VerifyCode submits the mailed passcode. A rejected code leaves the session
// in AwaitingVerification so the user can retype it.
func (s *Session) VerifyCode(ctx context.Context, otp string) error {
	s.mu.Lock()
	if s.state != StateAwaitingVerification {
		s.mu.Unlock()
		return faults.Validation(fmt.Sprintf("cannot verify in state %s", s.state))
	}
	if s.pending.Verifying {
		s.mu.Unlock()
		return nil
	}
	if !isFourDigits(otp) {
		s.mu.Unlock()
		return faults.Validation("verification code must be 4 digits")
	}

	req := &bookings.VerifyRequest{
		Email:            s.email,
		OTP:              otp,
		TempID:           s.tempID,
		ReservationToken: s.reservationToken,
	}
	s.pending.Verifying = true
	s.mu.Unlock()

	ticket, err := s.client.VerifyReservation(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Verifying = false

	if err != nil {
		return s.handleFault(err)
	}

	s.ticket = ticket
	s.reservationToken = ticket.ReservationToken
	s.tempID = ""
	s.expiresAt = nil
	s.state = StateConfirmed
	return nil
}

// ResendCode requests a fresh passcode, honoring the advisory cooldown
// locally before touching the network.
func (s *Session) ResendCode(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateAwaitingVerification {
		s.mu.Unlock()
		return faults.Validation(fmt.Sprintf("cannot resend in state %s", s.state))
	}
	if s.now().Before(s.resendAfter) {
		s.mu.Unlock()
		return faults.Conflict("please wait before requesting another code")
	}

	req := &bookings.ResendRequest{TempID: s.tempID, Email: s.email}
	s.mu.Unlock()

	result, err := s.client.ResendCode(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		return s.handleFault(err)
	}

	s.resendAfter = s.now().Add(resendCooldown)
	expiresAt := result.ExpiresAt
	s.expiresAt = &expiresAt
	return nil
}

// Cancel releases a confirmed reservation. Local state is cleared only after
// the server accepted the cancellation, never partially.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateConfirmed {
		s.mu.Unlock()
		return faults.Validation(fmt.Sprintf("cannot cancel in state %s", s.state))
	}
	if s.ticket == nil || s.reservationToken == "" {
		// Without both credentials the server call is pointless; the session
		// parks in Failed so the caller sees the broken state explicitly.
		err := faults.Validation("missing credential for cancellation")
		s.failedFrom = s.state
		s.fault = err
		s.state = StateFailed
		s.mu.Unlock()
		return err
	}

	req := &cancellation.CancelRequest{
		TicketID:         s.ticket.TicketID,
		ReservationToken: s.reservationToken,
	}
	s.mu.Unlock()

	_, err := s.client.CancelReservation(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		return s.handleFault(err)
	}

	s.state = StateCancelled
	s.reservationToken = ""
	s.tempID = ""
	s.selection.Seats = nil
	return nil
}

// Recover leaves the Failed state and returns to the step the failure
// interrupted. Everything the user entered is still in place.
func (s *Session) Recover() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateFailed {
		return faults.Validation("session has not failed")
	}

	s.state = s.failedFrom
	s.fault = nil
	return nil
}

// handleFault decides whether an error parks the session in Failed.
// Transient faults do; everything else leaves the state unchanged so the
// user can correct and retry in place. Callers hold the lock.
func (s *Session) handleFault(err error) error {
	if faults.KindOf(err) == faults.KindTransient {
		s.failedFrom = s.state
		s.fault = err
		s.state = StateFailed
	}
	return err
}

func (s *Session) seatByNumber(number int) (seats.SeatView, bool) {
	for _, seat := range s.inventory.AllSeats {
		if seat.Number == number {
			return seat, true
		}
	}
	return seats.SeatView{}, false
}

func isFourDigits(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// State returns the current flow state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the in-flight operation flags.
func (s *Session) Pending() Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// SelectedDate returns the chosen event date, if any.
func (s *Session) SelectedDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Date
}

// SelectedSeats returns a copy of the chosen seat numbers in pick order.
func (s *Session) SelectedSeats() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.selection.Seats...)
}

// Inventory returns the last loaded seat map.
func (s *Session) Inventory() *seats.Inventory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory
}

// Settings returns the loaded event configuration.
func (s *Session) Settings() *settings.EventSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Details returns the booking form as last submitted.
func (s *Session) Details() RegistrantDetails {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details
}

// Ticket returns the confirmed reservation, if the session reached it.
func (s *Session) Ticket() *bookings.TicketResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticket
}

// Fault returns the error that parked the session in Failed.
func (s *Session) Fault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

// VerificationExpiresAt returns when the pending reservation lapses.
func (s *Session) VerificationExpiresAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}
