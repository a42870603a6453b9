package seats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservely/internal/settings"
	"reservely/internal/shared/constants"
	"reservely/internal/shared/faults"
	"reservely/pkg/cache"
)

// SettingsSource provides the active event configuration (to avoid wiring
// the whole settings service in).
type SettingsSource interface {
	GetSettings(ctx context.Context) (*settings.EventSettings, error)
}

// Service interface defines the contract for seat inventory logic
type Service interface {
	GetInventory(ctx context.Context, date string) (*Inventory, error)

	// Reservation-flow operations used by bookings
	CheckAvailable(ctx context.Context, date string, numbers []int) error
	LockSeats(ctx context.Context, date string, numbers []int, tempID string, ttl time.Duration) error
	UnlockSeats(ctx context.Context, tempID string) error
	BookSeats(ctx context.Context, date string, numbers []int) error
	ReleaseSeats(ctx context.Context, date string, numbers []int) error
}

// service implements the Service interface
type service struct {
	repo           Repository
	locker         *SeatLocker
	settingsSource SettingsSource
	cache          cache.Service
	cacheTTL       time.Duration
}

// NewService creates a new seat inventory service instance
func NewService(repo Repository, locker *SeatLocker, settingsSource SettingsSource, cacheService cache.Service, cacheTTL time.Duration) Service {
	return &service{
		repo:           repo,
		locker:         locker,
		settingsSource: settingsSource,
		cache:          cacheService,
		cacheTTL:       cacheTTL,
	}
}

// ParseDate parses the wire date format shared by every seat endpoint.
func ParseDate(date string) (time.Time, error) {
	if date == "" {
		return time.Time{}, faults.NotFound("date is required")
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, faults.NotFound(fmt.Sprintf("unknown date %q", date))
	}
	return parsed, nil
}

// GetInventory returns the seat snapshot for a date: stable ascending order,
// availability folded from confirmed bookings and live pending locks.
func (s *service) GetInventory(ctx context.Context, date string) (*Inventory, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	cacheKey := constants.CacheKeySeatsByDay + date
	if s.cache != nil {
		var cached Inventory
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	inventory, err := s.buildInventory(ctx, day, date)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, inventory, s.cacheTTL)
	}
	return inventory, nil
}

func (s *service) buildInventory(ctx context.Context, day time.Time, date string) (*Inventory, error) {
	cfg, err := s.settingsSource.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.repo.EnsureForDate(ctx, day, cfg.DefaultTotalSeats); err != nil {
		return nil, faults.Wrap(faults.KindTransient, "failed to prepare seat inventory", err)
	}

	rows, err := s.repo.GetByDate(ctx, day)
	if err != nil {
		return nil, faults.Wrap(faults.KindTransient, "failed to load seat inventory", err)
	}

	numbers := make([]int, len(rows))
	for i, row := range rows {
		numbers[i] = row.Number
	}

	locked, err := s.locker.LockedNumbers(ctx, date, numbers)
	if err != nil {
		return nil, faults.Wrap(faults.KindTransient, "failed to read seat locks", err)
	}

	inventory := &Inventory{TotalSeats: len(rows)}
	for _, row := range rows {
		available := !row.Booked && !locked[row.Number]
		inventory.AllSeats = append(inventory.AllSeats, SeatView{
			Number:      row.Number,
			Label:       row.Label,
			IsAvailable: available,
		})
		if available {
			inventory.AvailableSeats++
		} else {
			inventory.BookedSeats++
		}
	}

	return inventory, nil
}

// CheckAvailable verifies that every requested seat is still free, reporting
// a conflict naming the first seat that is not.
func (s *service) CheckAvailable(ctx context.Context, date string, numbers []int) error {
	inventory, err := s.GetInventory(ctx, date)
	if err != nil {
		return err
	}

	byNumber := make(map[int]SeatView, len(inventory.AllSeats))
	for _, seat := range inventory.AllSeats {
		byNumber[seat.Number] = seat
	}

	for _, n := range numbers {
		seat, ok := byNumber[n]
		if !ok {
			return faults.NotFound(fmt.Sprintf("seat %d does not exist for %s", n, date))
		}
		if !seat.IsAvailable {
			return faults.Conflict(fmt.Sprintf("seat %s is no longer available", seat.Label))
		}
	}
	return nil
}

// LockSeats holds the seats for a pending reservation.
func (s *service) LockSeats(ctx context.Context, date string, numbers []int, tempID string, ttl time.Duration) error {
	err := s.locker.Lock(ctx, date, numbers, tempID, ttl)
	if err != nil {
		var conflict *LockConflictError
		if errors.As(err, &conflict) {
			return faults.Conflict("one or more selected seats were just taken")
		}
		return faults.Wrap(faults.KindTransient, "failed to hold seats", err)
	}

	s.invalidate(ctx, date)
	return nil
}

// UnlockSeats releases a pending reservation's locks.
func (s *service) UnlockSeats(ctx context.Context, tempID string) error {
	if _, err := s.locker.Unlock(ctx, tempID); err != nil {
		return faults.Wrap(faults.KindTransient, "failed to release seat locks", err)
	}
	return nil
}

// BookSeats marks the seats as booked after a confirmed reservation.
func (s *service) BookSeats(ctx context.Context, date string, numbers []int) error {
	day, err := ParseDate(date)
	if err != nil {
		return err
	}
	if err := s.repo.SetBooked(ctx, day, numbers, true); err != nil {
		return faults.Wrap(faults.KindTransient, "failed to book seats", err)
	}
	s.invalidate(ctx, date)
	return nil
}

// ReleaseSeats frees the seats after a cancellation.
func (s *service) ReleaseSeats(ctx context.Context, date string, numbers []int) error {
	day, err := ParseDate(date)
	if err != nil {
		return err
	}
	if err := s.repo.SetBooked(ctx, day, numbers, false); err != nil {
		return faults.Wrap(faults.KindTransient, "failed to release seats", err)
	}
	s.invalidate(ctx, date)
	return nil
}

func (s *service) invalidate(ctx context.Context, date string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, constants.CacheKeySeatsByDay+date)
	}
}
