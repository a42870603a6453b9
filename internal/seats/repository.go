package seats

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	GetByDate(ctx context.Context, date time.Time) ([]Seat, error)
	EnsureForDate(ctx context.Context, date time.Time, total int) error
	SetBooked(ctx context.Context, date time.Time, numbers []int, booked bool) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByDate(ctx context.Context, date time.Time) ([]Seat, error) {
	var rows []Seat
	err := r.db.WithContext(ctx).
		Where("event_date = ?", date).
		Order("number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// EnsureForDate lazily materializes the seat rows for a date the first time
// it is requested. Existing rows are left untouched.
func (r *repository) EnsureForDate(ctx context.Context, date time.Time, total int) error {
	if total <= 0 {
		return nil
	}

	rows := make([]Seat, 0, total)
	for n := 1; n <= total; n++ {
		rows = append(rows, Seat{
			EventDate: date,
			Number:    n,
			Label:     DefaultLabel(n),
		})
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_date"}, {Name: "number"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}

func (r *repository) SetBooked(ctx context.Context, date time.Time, numbers []int, booked bool) error {
	return r.db.WithContext(ctx).
		Model(&Seat{}).
		Where("event_date = ? AND number IN ?", date, numbers).
		Updates(map[string]interface{}{
			"booked":     booked,
			"updated_at": time.Now(),
		}).Error
}
