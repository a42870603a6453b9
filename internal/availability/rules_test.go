package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekdayPolicy() Policy {
	return Policy{
		OpenDate:  date(2026, time.January, 1),
		CloseDate: date(2026, time.January, 31),
		WorkingDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		BlockedDates: []time.Time{date(2026, time.January, 22)},
		MaxSeats:     2,
	}
}

func TestIsDateSelectable(t *testing.T) {
	p := weekdayPolicy()
	today := date(2026, time.January, 10)

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"thursday inside window", date(2026, time.January, 15), true},
		{"saturday rejected", date(2026, time.January, 17), false},
		{"blocked thursday rejected", date(2026, time.January, 22), false},
		{"before open date", date(2025, time.December, 31), false},
		{"after close date", date(2026, time.February, 2), false},
		{"past date", date(2026, time.January, 5), false},
		{"close date itself (friday)", date(2026, time.January, 30), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDateSelectable(tt.date, p, today))
		})
	}
}

func TestPastDatesNeverSelectable(t *testing.T) {
	// Past rejection wins regardless of window, weekday, or block settings
	p := Policy{
		OpenDate:     date(2025, time.January, 1),
		CloseDate:    date(2027, time.January, 1),
		WorkingDays:  []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
		BlockedDates: nil,
	}
	today := date(2026, time.June, 15)

	for i := 1; i <= 30; i++ {
		d := today.AddDate(0, 0, -i)
		assert.False(t, IsDateSelectable(d, p, today), "expected %s to be rejected", d)
	}
}

func TestBlockedDateRejectedEvenWhenOtherwiseValid(t *testing.T) {
	p := weekdayPolicy()
	today := date(2026, time.January, 10)

	blocked := date(2026, time.January, 22) // Thursday, inside window
	require.True(t, p.isWorkingDay(blocked.Weekday()))
	assert.False(t, IsDateSelectable(blocked, p, today))

	// Block matching normalizes both sides to midnight
	p.BlockedDates = []time.Time{time.Date(2026, time.January, 22, 18, 30, 0, 0, time.UTC)}
	assert.False(t, IsDateSelectable(blocked, p, today))
}

func TestFirstSelectableDate(t *testing.T) {
	p := weekdayPolicy()

	t.Run("scans forward from today inside window", func(t *testing.T) {
		// Jan 10 2026 is a Saturday; first working day after is Monday Jan 12
		got := FirstSelectableDate(p, date(2026, time.January, 10))
		assert.Equal(t, date(2026, time.January, 12), got)
	})

	t.Run("starts at open date when today precedes window", func(t *testing.T) {
		// Jan 1 2026 is a Thursday
		got := FirstSelectableDate(p, date(2025, time.December, 1))
		assert.Equal(t, date(2026, time.January, 1), got)
	})

	t.Run("falls back to open date when nothing selectable", func(t *testing.T) {
		empty := p
		empty.WorkingDays = nil
		got := FirstSelectableDate(empty, date(2026, time.January, 10))
		assert.Equal(t, empty.OpenDate, got)
		assert.False(t, IsDateSelectable(got, empty, date(2026, time.January, 10)))
		assert.False(t, HasAvailability(empty, date(2026, time.January, 10)))
	})

	t.Run("falls back to today without a window", func(t *testing.T) {
		p := Policy{WorkingDays: nil}
		today := date(2026, time.March, 3)
		assert.Equal(t, today, FirstSelectableDate(p, today))
	})

	t.Run("scan terminates on an unbounded dead policy", func(t *testing.T) {
		// No window, no working days: must return within the 366-day bound
		p := Policy{}
		done := make(chan time.Time, 1)
		go func() { done <- FirstSelectableDate(p, date(2026, time.January, 1)) }()
		select {
		case got := <-done:
			assert.Equal(t, date(2026, time.January, 1), got)
		case <-time.After(5 * time.Second):
			t.Fatal("first selectable date scan did not terminate")
		}
	})
}

func TestSelectableDates(t *testing.T) {
	p := weekdayPolicy()
	today := date(2026, time.January, 26)

	got := SelectableDates(p, today)

	// Mon 26 .. Fri 30, all working days, none blocked
	want := []time.Time{
		date(2026, time.January, 26),
		date(2026, time.January, 27),
		date(2026, time.January, 28),
		date(2026, time.January, 29),
		date(2026, time.January, 30),
	}
	assert.Equal(t, want, got)
}
