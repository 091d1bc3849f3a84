// Package slots generates bookable callback windows. Generation is a pure
// function of the anchor time, so callers that stored a slot index can
// reconstruct the same list later in the same calendar day.
package slots

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adviceline/concierge/internal/model"
)

const (
	startHour       = 9
	endHour         = 17
	intervalMinutes = 30
	slotIDLayout    = "20060102_1504"
)

// Options tune a generation window. Zero values fall back to business-hour
// defaults.
type Options struct {
	StartHour int
	EndHour   int
}

// Availability filters generated slots against prior bookings.
type Availability interface {
	// SlotTaken reports whether a booking already exists for slotID.
	SlotTaken(ctx context.Context, slotID string) (bool, error)
}

// Generate produces weekday half-hour slots anchored at now+1d through
// now+windowDays. Saturday and Sunday are skipped. Deterministic given a
// fixed now: same anchor, same list, same order.
func Generate(now time.Time, windowDays int, opts Options) []model.Slot {
	start := opts.StartHour
	if start == 0 {
		start = startHour
	}
	end := opts.EndHour
	if end == 0 {
		end = endHour
	}

	var out []model.Slot
	for offset := 1; offset <= windowDays; offset++ {
		day := now.AddDate(0, 0, offset)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for hour := start; hour < end; hour++ {
			for _, minute := range []int{0, intervalMinutes} {
				at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
				out = append(out, model.Slot{
					SlotID:   at.Format(slotIDLayout),
					DateTime: at,
					Display:  at.Format("Monday 02 January at 15:04"),
					Date:     at.Format("2006-01-02"),
					Time:     at.Format("15:04"),
				})
			}
		}
	}
	return out
}

// WindowForUrgency maps a tier to its booking window. CRISIS and URGENT
// cases see the short urgent window; everything else gets the canonical
// default.
func WindowForUrgency(level model.UrgencyLevel, urgentDays, defaultDays int) int {
	if level == model.UrgencyCrisis || level == model.UrgencyUrgent {
		return urgentDays
	}
	return defaultDays
}

// Available filters out slots whose slotId is already booked. Availability
// lookups are best-effort: a failing store keeps the slot rather than
// blocking the booking flow.
func Available(ctx context.Context, gen []model.Slot, av Availability) []model.Slot {
	if av == nil {
		return gen
	}
	out := make([]model.Slot, 0, len(gen))
	for _, s := range gen {
		taken, err := av.SlotTaken(ctx, s.SlotID)
		if err != nil {
			log.Warn().Err(err).Str("slotId", s.SlotID).Msg("slot availability check failed; keeping slot")
			out = append(out, s)
			continue
		}
		if !taken {
			out = append(out, s)
		}
	}
	return out
}

// Cap bounds a slot list to a display page.
func Cap(list []model.Slot, n int) []model.Slot {
	if len(list) <= n {
		return list
	}
	return list[:n]
}
