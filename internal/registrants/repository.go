package registrants

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, registrant *Registrant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Registrant, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, registrant *Registrant) error {
	return r.db.WithContext(ctx).Create(registrant).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Registrant, error) {
	var registrant Registrant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&registrant).Error
	if err != nil {
		return nil, err
	}
	return &registrant, nil
}
