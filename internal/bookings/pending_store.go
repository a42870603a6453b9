package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"reservely/internal/shared/constants"
)

// ErrPendingNotFound is returned when a pending reservation does not exist
// (expired, consumed, or never created).
var ErrPendingNotFound = errors.New("pending reservation not found")

// PendingReservation is the short-lived record held between initiation and
// verification. It lives in Redis with a TTL matching the seat locks, so a
// walked-away reservation evaporates together with its holds.
type PendingReservation struct {
	TempID        string    `json:"tempId"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Gender        string    `json:"gender"`
	AgeRange      string    `json:"ageRange"`
	AboutYourself string    `json:"aboutYourself,omitempty"`
	Date          string    `json:"date"`
	Seats         []int     `json:"seats"`
	SeatLabels    []string  `json:"seatLabels"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// PendingStore persists pending reservations.
type PendingStore interface {
	Save(ctx context.Context, pending *PendingReservation, ttl time.Duration) error
	Get(ctx context.Context, tempID string) (*PendingReservation, error)
	GetByEmail(ctx context.Context, email string) (*PendingReservation, error)
	Delete(ctx context.Context, pending *PendingReservation) error
}

type redisPendingStore struct {
	client *redis.Client
}

// NewRedisPendingStore creates a Redis-backed pending reservation store.
func NewRedisPendingStore(client *redis.Client) PendingStore {
	return &redisPendingStore{client: client}
}

func (s *redisPendingStore) Save(ctx context.Context, pending *PendingReservation, ttl time.Duration) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, constants.KeyPendingReservation+pending.TempID, data, ttl)
	// Secondary index so a resend request can be matched to its reservation
	pipe.Set(ctx, constants.KeyEmailPending+pending.Email, pending.TempID, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisPendingStore) Get(ctx context.Context, tempID string) (*PendingReservation, error) {
	data, err := s.client.Get(ctx, constants.KeyPendingReservation+tempID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, err
	}

	var pending PendingReservation
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, err
	}
	return &pending, nil
}

// GetByEmail resolves a pending reservation through the email index, for
// resend requests that carry only the address.
func (s *redisPendingStore) GetByEmail(ctx context.Context, email string) (*PendingReservation, error) {
	tempID, err := s.client.Get(ctx, constants.KeyEmailPending+email).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tempID)
}

func (s *redisPendingStore) Delete(ctx context.Context, pending *PendingReservation) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, constants.KeyPendingReservation+pending.TempID)
	pipe.Del(ctx, constants.KeyEmailPending+pending.Email)
	_, err := pipe.Exec(ctx)
	return err
}
