package settings

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotConfigured is returned when no active event configuration exists.
var ErrNotConfigured = errors.New("no active event settings configured")

type Repository interface {
	GetActive(ctx context.Context) (*EventSettings, error)
	Upsert(ctx context.Context, s *EventSettings) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetActive(ctx context.Context) (*EventSettings, error) {
	var s EventSettings
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at DESC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotConfigured
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) Upsert(ctx context.Context, s *EventSettings) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A new active configuration supersedes any previous one
		if s.IsActive {
			if err := tx.Model(&EventSettings{}).
				Where("is_active = ?", true).
				Update("is_active", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(s).Error
	})
}
