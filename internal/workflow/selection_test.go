package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggleStopsAtCap(t *testing.T) {
	sel := Selection{MaxSeats: 2}

	sel.Toggle(1)
	sel.Toggle(2)
	sel.Toggle(3) // over the cap, ignored

	assert.Equal(t, []int{1, 2}, sel.Seats)
}

func TestToggleDeselectsAndReopensCapacity(t *testing.T) {
	sel := Selection{MaxSeats: 2}

	sel.Toggle(1)
	sel.Toggle(2)
	sel.Toggle(1) // deselect
	assert.Equal(t, []int{2}, sel.Seats)

	sel.Toggle(3) // now fits again
	assert.Equal(t, []int{2, 3}, sel.Seats)
}

func TestToggleWithoutCap(t *testing.T) {
	sel := Selection{}

	for n := 1; n <= 5; n++ {
		sel.Toggle(n)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, sel.Seats)
}

func TestSetDateResetsSeats(t *testing.T) {
	sel := Selection{MaxSeats: 2}
	sel.SetDate("2026-09-07")
	sel.Toggle(1)

	sel.SetDate("2026-09-08")
	assert.Empty(t, sel.Seats)
	assert.Equal(t, "2026-09-08", sel.Date)
}

func TestSetSameDateKeepsSeats(t *testing.T) {
	sel := Selection{MaxSeats: 2}
	sel.SetDate("2026-09-07")
	sel.Toggle(1)

	sel.SetDate("2026-09-07")
	assert.Equal(t, []int{1}, sel.Seats)
}
