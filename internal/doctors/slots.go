package doctors

import (
	"fmt"
	"time"
)

const (
	// CalendarDays is how many days of slots a new doctor receives.
	CalendarDays = 30

	dateLayout = "2006-01-02"
)

// slotHours are the whole hours offered each day: 09-12 and 14-18.
var slotHours = []int{9, 10, 11, 14, 15, 16, 17}

// GenerateSlotCalendar returns the fixed calendar for a new doctor: every
// slot hour of the CalendarDays days starting tomorrow (UTC), unbooked and in
// chronological order.
func GenerateSlotCalendar(now time.Time) []Slot {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	slots := make([]Slot, 0, CalendarDays*len(slotHours))
	for day := 1; day <= CalendarDays; day++ {
		date := today.AddDate(0, 0, day).Format(dateLayout)
		for _, hour := range slotHours {
			slots = append(slots, Slot{Date: date, Time: fmt.Sprintf("%02d:00", hour)})
		}
	}
	return slots
}

// AvailableSlots returns the unbooked subsequence of slots in stored order.
func AvailableSlots(slots []Slot) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		if !slot.IsBooked {
			out = append(out, slot)
		}
	}
	return out
}
