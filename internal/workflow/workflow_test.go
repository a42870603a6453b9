package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservely/internal/bookings"
	"reservely/internal/cancellation"
	"reservely/internal/seats"
	"reservely/internal/settings"
	"reservely/internal/shared/faults"
)

type fakeClient struct {
	mu sync.Mutex

	settings            *settings.EventSettings
	inventories         map[string]*seats.Inventory
	seatGates           map[string]chan struct{}
	initiateGate        chan struct{}
	requireVerification bool
	correctOTP          string
	initiateErr         error
	cancelErr           error

	lastInitiate  *bookings.InitiateRequest
	initiateCalls int
	resendCalls   int
}

func newFakeClient(requireVerification bool) *fakeClient {
	return &fakeClient{
		settings: &settings.EventSettings{
			WorkingDays:       []int{0, 1, 2, 3, 4, 5, 6},
			MaxSeatsPerUser:   2,
			DefaultTotalSeats: 5,
			EventTimes:        []string{"18:00", "21:00"},
		},
		inventories:         make(map[string]*seats.Inventory),
		seatGates:           make(map[string]chan struct{}),
		requireVerification: requireVerification,
		correctOTP:          "1234",
	}
}

func (c *fakeClient) FetchSettings(_ context.Context) (*settings.EventSettings, error) {
	return c.settings, nil
}

func (c *fakeClient) FetchSeats(_ context.Context, date string) (*seats.Inventory, error) {
	c.mu.Lock()
	gate := c.seatGates[date]
	inventory := c.inventories[date]
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if inventory == nil {
		inventory = fullInventory(5)
	}
	return inventory, nil
}

func (c *fakeClient) InitiateReservation(_ context.Context, req *bookings.InitiateRequest) (*bookings.InitiationOutcome, error) {
	c.mu.Lock()
	gate := c.initiateGate
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.initiateCalls++
	if c.initiateErr != nil {
		return nil, c.initiateErr
	}
	c.lastInitiate = req

	if c.requireVerification {
		expires := time.Now().Add(15 * time.Minute)
		return &bookings.InitiationOutcome{
			RequiresVerification: true,
			TempID:               "temp-1",
			ReservationToken:     "pending-token",
			ExpiresAt:            &expires,
		}, nil
	}

	return &bookings.InitiationOutcome{Ticket: c.ticketFor(req)}, nil
}

func (c *fakeClient) VerifyReservation(_ context.Context, req *bookings.VerifyRequest) (*bookings.TicketResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.OTP != c.correctOTP {
		return nil, faults.Auth("incorrect verification code")
	}
	if c.lastInitiate == nil {
		return nil, faults.NotFound("reservation has expired or was not found")
	}
	return c.ticketFor(c.lastInitiate), nil
}

func (c *fakeClient) ResendCode(_ context.Context, req *bookings.ResendRequest) (*bookings.ResendResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resendCalls++
	return &bookings.ResendResponse{
		TempID:    req.TempID,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (c *fakeClient) CancelReservation(_ context.Context, req *cancellation.CancelRequest) (*cancellation.CancelResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelErr != nil {
		return nil, c.cancelErr
	}
	return &cancellation.CancelResponse{
		TicketID:    req.TicketID,
		Status:      "CANCELLED",
		CancelledAt: time.Now(),
	}, nil
}

func (c *fakeClient) ticketFor(req *bookings.InitiateRequest) *bookings.TicketResponse {
	return &bookings.TicketResponse{
		TicketID:         uuid.New().String(),
		Status:           "CONFIRMED",
		EventDate:        req.Date,
		SeatNumbers:      append([]int(nil), req.Seats...),
		ReservationToken: "ticket-token",
		User: bookings.RegistrantSummary{
			Name:  req.Name,
			Email: req.Email,
		},
	}
}

func fullInventory(total int) *seats.Inventory {
	inventory := &seats.Inventory{TotalSeats: total, AvailableSeats: total}
	for n := 1; n <= total; n++ {
		inventory.AllSeats = append(inventory.AllSeats, seats.SeatView{
			Number:      n,
			Label:       seats.DefaultLabel(n),
			IsAvailable: true,
		})
	}
	return inventory
}

func testDate() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func validDetails() RegistrantDetails {
	return RegistrantDetails{
		Name:          "Ada Lovelace",
		Email:         "ada@example.com",
		Phone:         "+4412345678",
		Gender:        "female",
		AgeRange:      "26-35",
		TermsAccepted: true,
	}
}

// advanceToSeats drives a fresh session through settings and date selection.
func advanceToSeats(t *testing.T, client *fakeClient) *Session {
	t.Helper()

	session := NewSession(client)
	require.NoError(t, session.LoadSettings(context.Background()))
	require.NoError(t, session.SelectDate(context.Background(), testDate()))
	require.Equal(t, StateSelectingSeats, session.State())
	return session
}

func TestLoadSettingsPreselectsFirstDate(t *testing.T) {
	session := NewSession(newFakeClient(true))

	require.NoError(t, session.LoadSettings(context.Background()))

	// No booking window and every day a working day: today is selectable.
	assert.Equal(t, time.Now().Format("2006-01-02"), session.SelectedDate())
	assert.Equal(t, StateSelectingDate, session.State())
	assert.False(t, session.Pending().SettingsLoading)
}

func TestFullFlowWithVerification(t *testing.T) {
	client := newFakeClient(true)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	session.ToggleSeat(2)
	require.NoError(t, session.ProceedToDetails())

	require.NoError(t, session.SubmitDetails(context.Background(), validDetails()))
	assert.Equal(t, StateAwaitingVerification, session.State())
	assert.NotNil(t, session.VerificationExpiresAt())

	require.NoError(t, session.VerifyCode(context.Background(), "1234"))
	assert.Equal(t, StateConfirmed, session.State())

	ticket := session.Ticket()
	require.NotNil(t, ticket)
	assert.Equal(t, []int{1, 2}, ticket.SeatNumbers)
	assert.Equal(t, "ada@example.com", ticket.User.Email)
}

func TestDirectConfirmationSkipsVerification(t *testing.T) {
	client := newFakeClient(false)
	session := advanceToSeats(t, client)

	session.ToggleSeat(3)
	require.NoError(t, session.ProceedToDetails())
	require.NoError(t, session.SubmitDetails(context.Background(), validDetails()))

	assert.Equal(t, StateConfirmed, session.State())
	ticket := session.Ticket()
	require.NotNil(t, ticket)
	assert.Equal(t, []int{3}, ticket.SeatNumbers)
}

func TestToggleSeatEnforcesCap(t *testing.T) {
	session := advanceToSeats(t, newFakeClient(true))

	session.ToggleSeat(1)
	session.ToggleSeat(2)
	session.ToggleSeat(3) // cap is 2, ignored

	assert.Equal(t, []int{1, 2}, session.SelectedSeats())
}

func TestToggleSeatIgnoresUnavailable(t *testing.T) {
	client := newFakeClient(true)
	inventory := fullInventory(5)
	inventory.AllSeats[1].IsAvailable = false // seat 2 taken
	client.inventories[testDate()] = inventory

	session := advanceToSeats(t, client)

	session.ToggleSeat(2)
	session.ToggleSeat(99) // no such seat
	assert.Empty(t, session.SelectedSeats())

	session.ToggleSeat(1)
	assert.Equal(t, []int{1}, session.SelectedSeats())
}

func TestWrongCodeStaysAwaitingVerification(t *testing.T) {
	client := newFakeClient(true)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	require.NoError(t, session.ProceedToDetails())
	require.NoError(t, session.SubmitDetails(context.Background(), validDetails()))

	err := session.VerifyCode(context.Background(), "9999")
	require.Error(t, err)
	assert.Equal(t, faults.KindAuth, faults.KindOf(err))
	assert.Equal(t, StateAwaitingVerification, session.State())
	assert.False(t, session.Pending().Verifying)

	// The right code still gets through afterwards.
	require.NoError(t, session.VerifyCode(context.Background(), "1234"))
	assert.Equal(t, StateConfirmed, session.State())
}

func TestVerifyRejectsMalformedCodeLocally(t *testing.T) {
	client := newFakeClient(true)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	require.NoError(t, session.ProceedToDetails())
	require.NoError(t, session.SubmitDetails(context.Background(), validDetails()))

	for _, code := range []string{"", "12", "12345", "12a4"} {
		err := session.VerifyCode(context.Background(), code)
		require.Error(t, err, "code %q", code)
		assert.Equal(t, faults.KindValidation, faults.KindOf(err), "code %q", code)
	}
}

func TestResendCooldownIsLocal(t *testing.T) {
	client := newFakeClient(true)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	require.NoError(t, session.ProceedToDetails())
	require.NoError(t, session.SubmitDetails(context.Background(), validDetails()))

	// Within the cooldown the request never reaches the client.
	err := session.ResendCode(context.Background())
	require.Error(t, err)
	assert.Equal(t, faults.KindConflict, faults.KindOf(err))
	assert.Equal(t, 0, client.resendCalls)

	// Once the cooldown has lapsed the resend goes out.
	session.now = func() time.Time { return time.Now().Add(61 * time.Second) }
	require.NoError(t, session.ResendCode(context.Background()))
	assert.Equal(t, 1, client.resendCalls)
}

func TestStaleSeatFetchIsDiscarded(t *testing.T) {
	client := newFakeClient(true)

	slowDate := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	fastDate := time.Now().AddDate(0, 0, 8).Format("2006-01-02")

	gate := make(chan struct{})
	client.seatGates[slowDate] = gate
	client.inventories[slowDate] = fullInventory(3)
	client.inventories[fastDate] = fullInventory(5)

	session := NewSession(client)
	require.NoError(t, session.LoadSettings(context.Background()))

	done := make(chan error, 1)
	go func() {
		done <- session.SelectDate(context.Background(), slowDate)
	}()

	// Switch dates while the first fetch is stuck, then let it land.
	require.Eventually(t, func() bool {
		return session.Pending().SeatsLoading
	}, time.Second, time.Millisecond)
	require.NoError(t, session.SelectDate(context.Background(), fastDate))
	close(gate)
	require.NoError(t, <-done)

	// The late response for the old date must not clobber the new one.
	assert.Equal(t, fastDate, session.SelectedDate())
	assert.Equal(t, 5, session.Inventory().TotalSeats)
}

func TestTransientFailureIsRecoverable(t *testing.T) {
	client := newFakeClient(true)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	require.NoError(t, session.ProceedToDetails())

	client.initiateErr = faults.Transient("backend unreachable")
	err := session.SubmitDetails(context.Background(), validDetails())
	require.Error(t, err)
	assert.Equal(t, StateFailed, session.State())
	assert.Error(t, session.Fault())

	require.NoError(t, session.Recover())
	assert.Equal(t, StateEnteringDetails, session.State())
	assert.Nil(t, session.Fault())
	// The form survives the failure.
	assert.Equal(t, "ada@example.com", session.Details().Email)

	client.initiateErr = nil
	require.NoError(t, session.SubmitDetails(context.Background(), validDetails()))
	assert.Equal(t, StateAwaitingVerification, session.State())
}

func TestSecondSubmitWhileInFlightIsIgnored(t *testing.T) {
	client := newFakeClient(true)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	require.NoError(t, session.ProceedToDetails())

	gate := make(chan struct{})
	client.mu.Lock()
	client.initiateGate = gate
	client.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- session.SubmitDetails(context.Background(), validDetails())
	}()
	require.Eventually(t, func() bool {
		return session.Pending().Submitting
	}, time.Second, time.Millisecond)

	// The second submit returns immediately without reaching the backend.
	require.NoError(t, session.SubmitDetails(context.Background(), validDetails()))

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, StateAwaitingVerification, session.State())

	client.mu.Lock()
	calls := client.initiateCalls
	client.mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestConflictOnSubmitReturnsToSeatSelection(t *testing.T) {
	client := newFakeClient(true)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	require.NoError(t, session.ProceedToDetails())

	client.initiateErr = faults.Conflict("seat is no longer available")
	err := session.SubmitDetails(context.Background(), validDetails())
	require.Error(t, err)
	assert.Equal(t, faults.KindConflict, faults.KindOf(err))

	// The user is back at the seat map with a forced refetch; the same
	// payload cannot be resubmitted from here.
	assert.Equal(t, StateSelectingSeats, session.State())
	assert.Nil(t, session.Inventory())
	err = session.SubmitDetails(context.Background(), validDetails())
	require.Error(t, err)
	assert.Equal(t, faults.KindValidation, faults.KindOf(err))

	// Re-picking after a fresh fetch gets the flow moving again.
	client.initiateErr = nil
	require.NoError(t, session.SelectDate(context.Background(), testDate()))
	require.NoError(t, session.ProceedToDetails())
	require.NoError(t, session.SubmitDetails(context.Background(), validDetails()))
	assert.Equal(t, StateAwaitingVerification, session.State())
}

func TestSubmitRejectsShortPhone(t *testing.T) {
	client := newFakeClient(true)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	require.NoError(t, session.ProceedToDetails())

	details := validDetails()
	details.Phone = "123456789"
	err := session.SubmitDetails(context.Background(), details)
	require.Error(t, err)
	assert.Equal(t, faults.KindValidation, faults.KindOf(err))
	assert.Equal(t, StateEnteringDetails, session.State())
}

func TestValidationFaultDoesNotFailSession(t *testing.T) {
	client := newFakeClient(true)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	require.NoError(t, session.ProceedToDetails())

	details := validDetails()
	details.Email = "not-an-email"
	err := session.SubmitDetails(context.Background(), details)
	require.Error(t, err)
	assert.Equal(t, faults.KindValidation, faults.KindOf(err))
	assert.Equal(t, StateEnteringDetails, session.State())
}

func TestProceedRequiresASeat(t *testing.T) {
	session := advanceToSeats(t, newFakeClient(true))

	err := session.ProceedToDetails()
	require.Error(t, err)
	assert.Equal(t, faults.KindValidation, faults.KindOf(err))
	assert.Equal(t, StateSelectingSeats, session.State())
}

func TestCancelClearsCredentials(t *testing.T) {
	client := newFakeClient(false)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	require.NoError(t, session.ProceedToDetails())
	require.NoError(t, session.SubmitDetails(context.Background(), validDetails()))
	require.Equal(t, StateConfirmed, session.State())

	require.NoError(t, session.Cancel(context.Background()))
	assert.Equal(t, StateCancelled, session.State())
	assert.Empty(t, session.SelectedSeats())
}

func TestCancelKeepsStateOnRejection(t *testing.T) {
	client := newFakeClient(false)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	require.NoError(t, session.ProceedToDetails())
	require.NoError(t, session.SubmitDetails(context.Background(), validDetails()))

	client.cancelErr = faults.Conflict("reservation is already cancelled")
	err := session.Cancel(context.Background())
	require.Error(t, err)
	assert.Equal(t, faults.KindConflict, faults.KindOf(err))
	// Nothing was torn down locally.
	assert.Equal(t, StateConfirmed, session.State())
	assert.NotNil(t, session.Ticket())
}

func TestProceedDropsSeatsGoneUnavailable(t *testing.T) {
	client := newFakeClient(true)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	session.ToggleSeat(2)

	// Seat 2 gets taken by someone else; a refetch of the same date keeps
	// the selection but the stale seat is dropped at the details boundary.
	refreshed := fullInventory(5)
	refreshed.AllSeats[1].IsAvailable = false
	client.mu.Lock()
	client.inventories[testDate()] = refreshed
	client.mu.Unlock()
	require.NoError(t, session.SelectDate(context.Background(), testDate()))

	require.NoError(t, session.ProceedToDetails())
	assert.Equal(t, []int{1}, session.SelectedSeats())
}

func TestCancelWithoutCredentialsFailsSession(t *testing.T) {
	client := newFakeClient(false)
	session := advanceToSeats(t, client)

	session.ToggleSeat(1)
	require.NoError(t, session.ProceedToDetails())
	require.NoError(t, session.SubmitDetails(context.Background(), validDetails()))
	require.Equal(t, StateConfirmed, session.State())

	session.mu.Lock()
	session.reservationToken = ""
	session.mu.Unlock()

	err := session.Cancel(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, session.State())
	assert.Error(t, session.Fault())

	// Recovery lands back on the confirmed ticket.
	require.NoError(t, session.Recover())
	assert.Equal(t, StateConfirmed, session.State())
}

func TestSelectDateRejectsBlockedDate(t *testing.T) {
	client := newFakeClient(true)
	blocked := testDate()
	client.settings.BlockedDates = []string{blocked}

	session := NewSession(client)
	require.NoError(t, session.LoadSettings(context.Background()))

	err := session.SelectDate(context.Background(), blocked)
	require.Error(t, err)
	assert.Equal(t, faults.KindValidation, faults.KindOf(err))
	assert.Equal(t, StateSelectingDate, session.State())
}
