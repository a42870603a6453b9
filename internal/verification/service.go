package verification

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"reservely/internal/shared/faults"
)

// Service interface defines the contract for passcode verification
type Service interface {
	// Issue generates and stores a fresh passcode for a pending reservation.
	Issue(ctx context.Context, tempID string) (string, error)

	// Reissue is Issue behind the resend cooldown.
	Reissue(ctx context.Context, tempID string) (string, error)

	// Validate checks a submitted passcode and consumes it on success.
	Validate(ctx context.Context, tempID, code string) error
}

// service implements the Service interface
type service struct {
	store    Store
	ttl      time.Duration
	cooldown time.Duration
}

// NewService creates a new verification service instance
func NewService(store Store, ttl, cooldown time.Duration) Service {
	return &service{
		store:    store,
		ttl:      ttl,
		cooldown: cooldown,
	}
}

// codeDigits is the passcode length. Codes are zero-padded, so "0042" is a
// valid issue.
const codeDigits = 4

func (s *service) Issue(ctx context.Context, tempID string) (string, error) {
	if tempID == "" {
		return "", faults.Validation("reservation reference is required")
	}

	code, err := generateCode()
	if err != nil {
		return "", faults.Wrap(faults.KindTransient, "failed to generate verification code", err)
	}

	if err := s.store.SaveCode(ctx, tempID, code, s.ttl); err != nil {
		return "", faults.Wrap(faults.KindTransient, "failed to store verification code", err)
	}

	// Best effort: the cooldown marker only gates reissues.
	_, _ = s.store.MarkIssued(ctx, tempID, s.cooldown)

	return code, nil
}

func (s *service) Reissue(ctx context.Context, tempID string) (string, error) {
	if tempID == "" {
		return "", faults.Validation("reservation reference is required")
	}

	allowed, err := s.store.MarkIssued(ctx, tempID, s.cooldown)
	if err != nil {
		return "", faults.Wrap(faults.KindTransient, "failed to check resend cooldown", err)
	}
	if !allowed {
		return "", faults.Conflict("please wait before requesting another code")
	}

	code, err := generateCode()
	if err != nil {
		return "", faults.Wrap(faults.KindTransient, "failed to generate verification code", err)
	}

	if err := s.store.SaveCode(ctx, tempID, code, s.ttl); err != nil {
		return "", faults.Wrap(faults.KindTransient, "failed to store verification code", err)
	}

	return code, nil
}

func (s *service) Validate(ctx context.Context, tempID, code string) error {
	if tempID == "" {
		return faults.Validation("reservation reference is required")
	}
	if !isValidCode(code) {
		return faults.Validation(fmt.Sprintf("verification code must be %d digits", codeDigits))
	}

	stored, err := s.store.GetCode(ctx, tempID)
	if err == ErrCodeNotFound {
		return faults.Auth("verification code has expired, please request a new one")
	}
	if err != nil {
		return faults.Wrap(faults.KindTransient, "failed to load verification code", err)
	}

	if stored != code {
		return faults.Auth("incorrect verification code")
	}

	// Consume on success so the code cannot be replayed.
	if err := s.store.DeleteCode(ctx, tempID); err != nil {
		return faults.Wrap(faults.KindTransient, "failed to consume verification code", err)
	}
	return nil
}

func isValidCode(code string) bool {
	if len(code) != codeDigits {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
