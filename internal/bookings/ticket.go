package bookings

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// buildQRCode renders the ticket reference as a PNG data URI suitable for an
// <img> tag. A render failure is not worth failing the reservation over, so
// callers treat an empty string as "no QR code".
func buildQRCode(ticketID string) string {
	png, err := qrcode.Encode(ticketID, qrcode.Medium, 256)
	if err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// buildCalendarLink builds a Google Calendar event link for the reservation.
// eventTimes is the configured "HH:MM" start and end; missing or malformed
// times fall back to an all-day event.
func buildCalendarLink(eventDate time.Time, eventTimes []string, seatLabels []string) string {
	start, end, allDay := calendarWindow(eventDate, eventTimes)

	var dates string
	if allDay {
		dates = start.Format("20060102") + "/" + end.Format("20060102")
	} else {
		dates = start.Format("20060102T150405") + "/" + end.Format("20060102T150405")
	}

	params := url.Values{}
	params.Set("action", "TEMPLATE")
	params.Set("text", "Seat Reservation")
	params.Set("dates", dates)
	params.Set("details", fmt.Sprintf("Seats: %s", strings.Join(seatLabels, ", ")))

	return "https://calendar.google.com/calendar/render?" + params.Encode()
}

func calendarWindow(eventDate time.Time, eventTimes []string) (time.Time, time.Time, bool) {
	if len(eventTimes) >= 2 {
		start, errStart := parseClock(eventDate, eventTimes[0])
		end, errEnd := parseClock(eventDate, eventTimes[1])
		if errStart == nil && errEnd == nil && end.After(start) {
			return start, end, false
		}
	}
	return eventDate, eventDate.AddDate(0, 0, 1), true
}

func parseClock(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
