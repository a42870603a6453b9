package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservely/internal/availability"
	"reservely/internal/shared/constants"
	"reservely/internal/shared/faults"
	"reservely/pkg/cache"
)

// Service interface defines the contract for settings business logic
type Service interface {
	GetSettings(ctx context.Context) (*EventSettings, error)
	GetAvailability(ctx context.Context, today time.Time) (*AvailabilitySummary, error)
	UpdateSettings(ctx context.Context, s *EventSettings) error
}

// AvailabilitySummary is the precomputed date-picker view of the policy.
type AvailabilitySummary struct {
	FirstSelectableDate string   `json:"firstSelectableDate"`
	SelectableDates     []string `json:"selectableDates"`
	HasAvailability     bool     `json:"hasAvailability"`
}

// service implements the Service interface
type service struct {
	repo     Repository
	cache    cache.Service
	cacheTTL time.Duration
}

// NewService creates a new settings service instance
func NewService(repo Repository, cacheService cache.Service, cacheTTL time.Duration) Service {
	return &service{
		repo:     repo,
		cache:    cacheService,
		cacheTTL: cacheTTL,
	}
}

// GetSettings returns the active configuration, cache-aside through Redis.
func (s *service) GetSettings(ctx context.Context) (*EventSettings, error) {
	var cached EventSettings
	if s.cache != nil {
		if err := s.cache.Get(ctx, constants.CacheKeySettings, &cached); err == nil {
			return &cached, nil
		}
	}

	settings, err := s.repo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return nil, faults.NotFound("event settings not configured")
		}
		return nil, faults.Wrap(faults.KindTransient, "failed to load event settings", err)
	}

	if s.cache != nil {
		// Best effort: a cache write failure must not fail the read
		_ = s.cache.Set(ctx, constants.CacheKeySettings, settings, s.cacheTTL)
	}

	return settings, nil
}

// GetAvailability computes the selectable-date view for the current policy.
func (s *service) GetAvailability(ctx context.Context, today time.Time) (*AvailabilitySummary, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	policy := settings.Policy()
	first := availability.FirstSelectableDate(policy, today)

	summary := &AvailabilitySummary{
		FirstSelectableDate: first.Format("2006-01-02"),
		HasAvailability:     availability.HasAvailability(policy, today),
	}
	for _, d := range availability.SelectableDates(policy, today) {
		summary.SelectableDates = append(summary.SelectableDates, d.Format("2006-01-02"))
	}

	return summary, nil
}

// UpdateSettings stores a new configuration and invalidates the cache.
func (s *service) UpdateSettings(ctx context.Context, settings *EventSettings) error {
	if settings.ReservationCloseDate.Before(settings.ReservationOpenDate) {
		return faults.Validation("reservation close date precedes open date")
	}
	if settings.MaxSeatsPerUser < 1 {
		return faults.Validation("max seats per user must be at least 1")
	}

	if err := s.repo.Upsert(ctx, settings); err != nil {
		return fmt.Errorf("failed to store event settings: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, constants.CacheKeySettings)
	}

	return nil
}
