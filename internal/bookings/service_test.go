package bookings

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservely/internal/registrants"
	"reservely/internal/settings"
	"reservely/internal/shared/config"
	"reservely/internal/shared/faults"
)

type fakeRepo struct {
	bookings map[uuid.UUID]*Booking
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{bookings: make(map[uuid.UUID]*Booking)}
}

func (f *fakeRepo) CreateWithRegistrant(_ context.Context, registrant *registrants.Registrant, booking *Booking) error {
	registrant.ID = uuid.New()
	booking.TicketID = uuid.New()
	booking.RegistrantID = registrant.ID
	booking.Registrant = *registrant
	f.bookings[booking.TicketID] = booking
	return nil
}

func (f *fakeRepo) GetByTicketID(_ context.Context, ticketID uuid.UUID) (*Booking, error) {
	booking, ok := f.bookings[ticketID]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

func (f *fakeRepo) MarkCancelled(_ context.Context, ticketID uuid.UUID) error {
	booking, ok := f.bookings[ticketID]
	if !ok || booking.Status != BookingStatusConfirmed {
		return ErrBookingNotFound
	}
	now := time.Now()
	booking.Status = BookingStatusCancelled
	booking.CancelledAt = &now
	return nil
}

type fakePendingStore struct {
	records map[string]*PendingReservation
}

func newFakePendingStore() *fakePendingStore {
	return &fakePendingStore{records: make(map[string]*PendingReservation)}
}

func (f *fakePendingStore) Save(_ context.Context, pending *PendingReservation, _ time.Duration) error {
	f.records[pending.TempID] = pending
	return nil
}

func (f *fakePendingStore) Get(_ context.Context, tempID string) (*PendingReservation, error) {
	pending, ok := f.records[tempID]
	if !ok {
		return nil, ErrPendingNotFound
	}
	return pending, nil
}

func (f *fakePendingStore) GetByEmail(_ context.Context, email string) (*PendingReservation, error) {
	for _, pending := range f.records {
		if pending.Email == email {
			return pending, nil
		}
	}
	return nil, ErrPendingNotFound
}

func (f *fakePendingStore) Delete(_ context.Context, pending *PendingReservation) error {
	delete(f.records, pending.TempID)
	return nil
}

type fakeSeatService struct {
	locks  map[string][]int // tempID -> seats
	booked map[string][]int // date -> seats
	taken  map[int]bool     // seats that read as unavailable
}

func newFakeSeatService() *fakeSeatService {
	return &fakeSeatService{
		locks:  make(map[string][]int),
		booked: make(map[string][]int),
		taken:  make(map[int]bool),
	}
}

func (f *fakeSeatService) CheckAvailable(_ context.Context, _ string, numbers []int) error {
	for _, n := range numbers {
		if f.taken[n] {
			return faults.Conflict("seat is no longer available")
		}
	}
	return nil
}

func (f *fakeSeatService) LockSeats(_ context.Context, _ string, numbers []int, tempID string, _ time.Duration) error {
	f.locks[tempID] = numbers
	return nil
}

func (f *fakeSeatService) UnlockSeats(_ context.Context, tempID string) error {
	delete(f.locks, tempID)
	return nil
}

func (f *fakeSeatService) BookSeats(_ context.Context, date string, numbers []int) error {
	f.booked[date] = append(f.booked[date], numbers...)
	return nil
}

func (f *fakeSeatService) ReleaseSeats(_ context.Context, date string, numbers []int) error {
	remaining := f.booked[date][:0]
	drop := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		drop[n] = true
	}
	for _, n := range f.booked[date] {
		if !drop[n] {
			remaining = append(remaining, n)
		}
	}
	f.booked[date] = remaining
	return nil
}

type fakeSettingsSource struct {
	settings *settings.EventSettings
}

func (f *fakeSettingsSource) GetSettings(_ context.Context) (*settings.EventSettings, error) {
	return f.settings, nil
}

// fakeVerifier always issues "1234" and validates against it.
type fakeVerifier struct {
	issued   map[string]string
	cooldown map[string]bool
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{
		issued:   make(map[string]string),
		cooldown: make(map[string]bool),
	}
}

func (f *fakeVerifier) Issue(_ context.Context, tempID string) (string, error) {
	f.issued[tempID] = "1234"
	f.cooldown[tempID] = true
	return "1234", nil
}

func (f *fakeVerifier) Reissue(_ context.Context, tempID string) (string, error) {
	if f.cooldown[tempID] {
		return "", faults.Conflict("please wait before requesting another code")
	}
	return f.Issue(context.Background(), tempID)
}

func (f *fakeVerifier) Validate(_ context.Context, tempID, code string) error {
	issued, ok := f.issued[tempID]
	if !ok {
		return faults.Auth("verification code has expired, please request a new one")
	}
	if issued != code {
		return faults.Auth("incorrect verification code")
	}
	delete(f.issued, tempID)
	return nil
}

type sentMail struct {
	kind  string
	email string
}

type fakeMailer struct {
	sent []sentMail
}

func (f *fakeMailer) SendVerificationCode(_ context.Context, email, _, _, _ string, _ time.Duration) error {
	f.sent = append(f.sent, sentMail{kind: "verification", email: email})
	return nil
}

func (f *fakeMailer) SendConfirmation(_ context.Context, email, _ string, _ uuid.UUID, _ string, _ []string, _ string) error {
	f.sent = append(f.sent, sentMail{kind: "confirmation", email: email})
	return nil
}

type testHarness struct {
	service  Service
	repo     *fakeRepo
	pending  *fakePendingStore
	seats    *fakeSeatService
	verifier *fakeVerifier
	mailer   *fakeMailer
	tokens   *TokenManager
}

func newHarness(t *testing.T, requireOTP bool) *testHarness {
	t.Helper()

	h := &testHarness{
		repo:     newFakeRepo(),
		pending:  newFakePendingStore(),
		seats:    newFakeSeatService(),
		verifier: newFakeVerifier(),
		mailer:   &fakeMailer{},
		tokens:   NewTokenManager("test-secret"),
	}

	// Every weekday is a working day and there is no booking window, so any
	// future date is selectable.
	source := &fakeSettingsSource{settings: &settings.EventSettings{
		WorkingDays:       []int{0, 1, 2, 3, 4, 5, 6},
		MaxSeatsPerUser:   2,
		DefaultTotalSeats: 40,
		EventTimes:        []string{"18:00", "21:00"},
	}}

	policy := config.ReservationConfig{
		RequireOTP:     requireOTP,
		OTPTTL:         10 * time.Minute,
		ResendCooldown: time.Minute,
		PendingTTL:     15 * time.Minute,
		TokenSecret:    "test-secret",
	}

	h.service = NewService(h.repo, h.pending, h.seats, source, h.verifier, h.mailer, h.tokens, policy, nil)
	return h
}

func futureDate() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func validRequest() *InitiateRequest {
	return &InitiateRequest{
		Name:          "Ada Lovelace",
		Email:         "ada@example.com",
		Phone:         "+4412345678",
		Gender:        "female",
		AgeRange:      "26-35",
		Date:          futureDate(),
		Seats:         []int{1, 2},
		TermsAccepted: true,
	}
}

func TestInitiateRequiresVerification(t *testing.T) {
	h := newHarness(t, true)

	outcome, err := h.service.Initiate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.True(t, outcome.RequiresVerification)
	assert.NotEmpty(t, outcome.TempID)
	assert.NotEmpty(t, outcome.ReservationToken)
	assert.Nil(t, outcome.Ticket)
	require.NotNil(t, outcome.ExpiresAt)
	assert.True(t, outcome.ExpiresAt.After(time.Now()))

	// Seats held, pending stored, code mailed
	assert.Equal(t, []int{1, 2}, h.seats.locks[outcome.TempID])
	assert.Contains(t, h.pending.records, outcome.TempID)
	require.Len(t, h.mailer.sent, 1)
	assert.Equal(t, "verification", h.mailer.sent[0].kind)
}

func TestInitiateConfirmsDirectlyWithoutOTP(t *testing.T) {
	h := newHarness(t, false)

	outcome, err := h.service.Initiate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.False(t, outcome.RequiresVerification)
	assert.Empty(t, outcome.TempID)
	require.NotNil(t, outcome.Ticket)
	assert.Equal(t, []int{1, 2}, outcome.Ticket.SeatNumbers)
	assert.Equal(t, string(BookingStatusConfirmed), outcome.Ticket.Status)
	assert.NotEmpty(t, outcome.Ticket.ReservationToken)
	assert.True(t, strings.HasPrefix(outcome.Ticket.QRCode, "data:image/png;base64,"))

	assert.Equal(t, []int{1, 2}, h.seats.booked[futureDate()])
	require.Len(t, h.mailer.sent, 1)
	assert.Equal(t, "confirmation", h.mailer.sent[0].kind)
}

func TestInitiateRejectsTooManySeats(t *testing.T) {
	h := newHarness(t, true)

	req := validRequest()
	req.Seats = []int{1, 2, 3}

	_, err := h.service.Initiate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, faults.KindValidation, faults.KindOf(err))
}

func TestInitiateRejectsPastDate(t *testing.T) {
	h := newHarness(t, true)

	req := validRequest()
	req.Date = time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	_, err := h.service.Initiate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, faults.KindValidation, faults.KindOf(err))
}

func TestInitiateReportsSeatConflict(t *testing.T) {
	h := newHarness(t, true)
	h.seats.taken[2] = true

	_, err := h.service.Initiate(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, faults.KindConflict, faults.KindOf(err))
}

func TestVerifyConfirmsReservation(t *testing.T) {
	h := newHarness(t, true)

	outcome, err := h.service.Initiate(context.Background(), validRequest())
	require.NoError(t, err)

	ticket, err := h.service.Verify(context.Background(), &VerifyRequest{
		Email:            "ada@example.com",
		OTP:              "1234",
		TempID:           outcome.TempID,
		ReservationToken: outcome.ReservationToken,
	})
	require.NoError(t, err)

	assert.Equal(t, string(BookingStatusConfirmed), ticket.Status)
	assert.Equal(t, []int{1, 2}, ticket.SeatNumbers)
	assert.Equal(t, "ada@example.com", ticket.User.Email)
	assert.NotEmpty(t, ticket.ReservationToken)

	// Pending state fully cleaned up, seats booked
	assert.NotContains(t, h.pending.records, outcome.TempID)
	assert.NotContains(t, h.seats.locks, outcome.TempID)
	assert.Equal(t, []int{1, 2}, h.seats.booked[futureDate()])
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	h := newHarness(t, true)

	outcome, err := h.service.Initiate(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = h.service.Verify(context.Background(), &VerifyRequest{
		Email:            "ada@example.com",
		OTP:              "9999",
		TempID:           outcome.TempID,
		ReservationToken: outcome.ReservationToken,
	})
	require.Error(t, err)
	assert.Equal(t, faults.KindAuth, faults.KindOf(err))

	// The reservation is still pending and the seats are still held.
	assert.Contains(t, h.pending.records, outcome.TempID)
	assert.Contains(t, h.seats.locks, outcome.TempID)
	assert.Empty(t, h.seats.booked[futureDate()])
}

func TestVerifyRejectsMismatchedToken(t *testing.T) {
	h := newHarness(t, true)

	outcome, err := h.service.Initiate(context.Background(), validRequest())
	require.NoError(t, err)

	// A token minted for a different reservation must not pass.
	otherToken, err := h.tokens.MintPending("other-temp", "ada@example.com", time.Minute)
	require.NoError(t, err)

	_, err = h.service.Verify(context.Background(), &VerifyRequest{
		Email:            "ada@example.com",
		OTP:              "1234",
		TempID:           outcome.TempID,
		ReservationToken: otherToken,
	})
	require.Error(t, err)
	assert.Equal(t, faults.KindAuth, faults.KindOf(err))
}

func TestVerifyRejectsExpiredPending(t *testing.T) {
	h := newHarness(t, true)

	outcome, err := h.service.Initiate(context.Background(), validRequest())
	require.NoError(t, err)

	// Simulate TTL expiry
	delete(h.pending.records, outcome.TempID)

	_, err = h.service.Verify(context.Background(), &VerifyRequest{
		Email:            "ada@example.com",
		OTP:              "1234",
		TempID:           outcome.TempID,
		ReservationToken: outcome.ReservationToken,
	})
	require.Error(t, err)
	assert.Equal(t, faults.KindNotFound, faults.KindOf(err))
}

func TestResendHonorsCooldown(t *testing.T) {
	h := newHarness(t, true)

	outcome, err := h.service.Initiate(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = h.service.ResendCode(context.Background(), &ResendRequest{
		TempID: outcome.TempID,
		Email:  "ada@example.com",
	})
	require.Error(t, err)
	assert.Equal(t, faults.KindConflict, faults.KindOf(err))

	// After the cooldown a new code goes out.
	h.verifier.cooldown[outcome.TempID] = false
	result, err := h.service.ResendCode(context.Background(), &ResendRequest{
		TempID: outcome.TempID,
		Email:  "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, outcome.TempID, result.TempID)
	assert.Len(t, h.mailer.sent, 2)
}

func TestResendWorksWithEmailAlone(t *testing.T) {
	h := newHarness(t, true)

	outcome, err := h.service.Initiate(context.Background(), validRequest())
	require.NoError(t, err)
	h.verifier.cooldown[outcome.TempID] = false

	result, err := h.service.ResendCode(context.Background(), &ResendRequest{
		Email: "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, outcome.TempID, result.TempID)
}

func TestResendRejectsUnknownReservation(t *testing.T) {
	h := newHarness(t, true)

	_, err := h.service.ResendCode(context.Background(), &ResendRequest{
		TempID: "missing",
		Email:  "ada@example.com",
	})
	require.Error(t, err)
	assert.Equal(t, faults.KindNotFound, faults.KindOf(err))
}

func TestGetTicketReturnsConfirmedReservation(t *testing.T) {
	h := newHarness(t, false)

	outcome, err := h.service.Initiate(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotNil(t, outcome.Ticket)

	ticket, err := h.service.GetTicket(context.Background(), outcome.Ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, outcome.Ticket.TicketID, ticket.TicketID)
	assert.Equal(t, "Ada Lovelace", ticket.User.Name)
	// Lookup never hands out a fresh possession token
	assert.Empty(t, ticket.ReservationToken)
}

func TestGetTicketRejectsUnknownID(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.service.GetTicket(context.Background(), uuid.New().String())
	require.Error(t, err)
	assert.Equal(t, faults.KindNotFound, faults.KindOf(err))

	_, err = h.service.GetTicket(context.Background(), "not-a-uuid")
	require.Error(t, err)
	assert.Equal(t, faults.KindNotFound, faults.KindOf(err))
}
