package verification

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"reservely/internal/shared/constants"
)

// ErrCodeNotFound is returned when no passcode exists for a pending
// reservation (never issued, expired, or already consumed).
var ErrCodeNotFound = errors.New("verification code not found")

// Store persists issued passcodes with a bounded lifetime.
type Store interface {
	SaveCode(ctx context.Context, tempID, code string, ttl time.Duration) error
	GetCode(ctx context.Context, tempID string) (string, error)
	DeleteCode(ctx context.Context, tempID string) error

	// MarkIssued sets a cooldown marker and reports whether it was newly
	// set. A false return means a code was issued within the cooldown.
	MarkIssued(ctx context.Context, tempID string, cooldown time.Duration) (bool, error)
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed passcode store.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) SaveCode(ctx context.Context, tempID, code string, ttl time.Duration) error {
	return s.client.Set(ctx, constants.KeyOTP+tempID, code, ttl).Err()
}

func (s *redisStore) GetCode(ctx context.Context, tempID string) (string, error) {
	code, err := s.client.Get(ctx, constants.KeyOTP+tempID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCodeNotFound
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

func (s *redisStore) DeleteCode(ctx context.Context, tempID string) error {
	return s.client.Del(ctx, constants.KeyOTP+tempID).Err()
}

func (s *redisStore) MarkIssued(ctx context.Context, tempID string, cooldown time.Duration) (bool, error) {
	return s.client.SetNX(ctx, constants.KeyOTPCooldown+tempID, "1", cooldown).Result()
}
