package workflow

// Selection tracks the chosen date and seats. Seat order is the order the
// user picked them in.
type Selection struct {
	Date     string
	Seats    []int
	MaxSeats int
}

// Has reports whether a seat is currently selected.
func (s *Selection) Has(number int) bool {
	for _, n := range s.Seats {
		if n == number {
			return true
		}
	}
	return false
}

// Toggle flips a seat in or out of the selection. Adding past the cap is a
// silent no-op, matching how the seat map behaves: the click does nothing
// rather than erroring.
func (s *Selection) Toggle(number int) {
	for i, n := range s.Seats {
		if n == number {
			s.Seats = append(s.Seats[:i], s.Seats[i+1:]...)
			return
		}
	}
	if s.MaxSeats > 0 && len(s.Seats) >= s.MaxSeats {
		return
	}
	s.Seats = append(s.Seats, number)
}

// SetDate switches the selection to a new date, dropping any chosen seats.
// Setting the same date again keeps them.
func (s *Selection) SetDate(date string) {
	if s.Date == date {
		return
	}
	s.Date = date
	s.Seats = nil
}

// Count returns the number of selected seats.
func (s *Selection) Count() int {
	return len(s.Seats)
}
