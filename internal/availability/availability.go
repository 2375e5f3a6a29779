// Package availability computes bookable appointment slots from a working-hours
// window and a set of busy calendar intervals. It is pure slot arithmetic with
// no external dependencies, so the booking layer can be tested without a
// calendar backend.
package availability

import "time"

// Interval is a half-open time range [Start, End). It represents either a
// working-hours window or a busy period pulled from a provider's calendar.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect:
// [a.Start, a.End) overlaps [b.Start, b.End) iff a.Start < b.End && b.Start < a.End.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Slot is a fixed-duration candidate booking unit inside a working-hours window.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Interval converts the slot to an Interval for overlap checks.
func (s Slot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// FreeSlots tiles [windowStart, windowEnd) into consecutive slots of
// slotDuration and returns, in chronological order, every slot that does not
// overlap any busy interval. A trailing remainder shorter than slotDuration is
// never offered. All instants are normalized to windowStart's location before
// comparison, so busy data arriving in a different zone compares correctly.
//
// An inverted or empty window, or a window entirely covered by busy intervals,
// yields an empty result rather than an error.
func FreeSlots(windowStart, windowEnd time.Time, busy []Interval, slotDuration time.Duration) []Slot {
	if slotDuration <= 0 || !windowEnd.After(windowStart) {
		return nil
	}

	loc := windowStart.Location()
	normalized := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if !b.End.After(b.Start) {
			continue
		}
		normalized = append(normalized, Interval{Start: b.Start.In(loc), End: b.End.In(loc)})
	}

	var slots []Slot
	for start := windowStart; !start.Add(slotDuration).After(windowEnd); start = start.Add(slotDuration) {
		candidate := Interval{Start: start, End: start.Add(slotDuration)}
		if overlapsAny(candidate, normalized) {
			continue
		}
		slots = append(slots, Slot{Start: candidate.Start, End: candidate.End})
	}
	return slots
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
