package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"reservely/internal/availability"
	"reservely/internal/seats"
	"reservely/internal/settings"
	"reservely/internal/shared/config"
	"reservely/internal/shared/database"

	"github.com/google/uuid"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Reservely Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	// Order matters due to foreign key constraints
	// Delete in reverse dependency order
	tables := []string{
		"bookings",
		"registrants",
		"seats",
		"event_settings",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	eventSettings, err := s.SeedEventSettings()
	if err != nil {
		return fmt.Errorf("failed to seed event settings: %w", err)
	}

	// Pre-materialize seat rows for the first few selectable dates so the
	// seat map is browsable immediately. Later dates fill in lazily on
	// first request.
	if err := s.SeedSeats(eventSettings); err != nil {
		return fmt.Errorf("failed to seed seats: %w", err)
	}

	// Clear Redis cache to ensure fresh state
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}

	return nil
}

// SeedEventSettings creates the single active event configuration:
// a six-week reservation window starting tomorrow, weekdays only,
// with one blocked date in the middle.
func (s *Seeder) SeedEventSettings() (*settings.EventSettings, error) {
	fmt.Println("  ⚙️ Seeding event settings...")

	open := time.Now().AddDate(0, 0, 1).Truncate(24 * time.Hour)
	closeDate := open.AddDate(0, 0, 42)
	blocked := open.AddDate(0, 0, 14).Format("2006-01-02")

	eventSettings := settings.EventSettings{
		ID:                   uuid.New(),
		ReservationOpenDate:  open,
		ReservationCloseDate: closeDate,
		WorkingDays:          []int{1, 2, 3, 4, 5}, // Monday through Friday
		BlockedDates:         []string{blocked},
		MaxSeatsPerUser:      2,
		DefaultTotalSeats:    40,
		EventTimes:           []string{"18:00", "21:00"},
		IsActive:             true,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}

	if err := s.db.PostgreSQL.Create(&eventSettings).Error; err != nil {
		return nil, fmt.Errorf("failed to create event settings: %w", err)
	}

	fmt.Printf("    ✅ Created event settings: %s to %s (%d seats/day, max %d per user)\n",
		open.Format("2006-01-02"), closeDate.Format("2006-01-02"),
		eventSettings.DefaultTotalSeats, eventSettings.MaxSeatsPerUser)

	return &eventSettings, nil
}

// SeedSeats creates the seat rows for the first five selectable dates
func (s *Seeder) SeedSeats(eventSettings *settings.EventSettings) error {
	fmt.Println("  💺 Seeding seats...")

	policy := eventSettings.Policy()
	dates := availability.SelectableDates(policy, time.Now())
	if len(dates) > 5 {
		dates = dates[:5]
	}

	for _, date := range dates {
		if err := s.createSeatsForDate(date, eventSettings.DefaultTotalSeats); err != nil {
			return fmt.Errorf("failed to create seats for %s: %w", date.Format("2006-01-02"), err)
		}
		fmt.Printf("    ✅ Created %d seats for %s\n", eventSettings.DefaultTotalSeats, date.Format("2006-01-02"))
	}

	return nil
}

// createSeatsForDate creates the individual seat rows for one event date
func (s *Seeder) createSeatsForDate(date time.Time, total int) error {
	for number := 1; number <= total; number++ {
		seat := seats.Seat{
			ID:        uuid.New(),
			EventDate: date,
			Number:    number,
			Label:     seats.DefaultLabel(number),
			Booked:    false,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&seat).Error; err != nil {
			return fmt.Errorf("failed to create seat %s: %w", seat.Label, err)
		}
	}

	return nil
}
