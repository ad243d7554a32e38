// Package availability finds free meeting slots inside preferred windows.
package availability

import (
	"sort"
	"time"
)

// Granularity is the boundary every slot start is aligned to, and the step
// between consecutive candidates.
const Granularity = 15 * time.Minute

// Window is a caller supplied period in which a meeting is acceptable.
type Window struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether Start < End.
func (w Window) Valid() bool {
	return !w.Start.IsZero() && w.End.After(w.Start)
}

// Interval is a half-open busy period [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is a candidate meeting time. Conflicts is never nil.
type Slot struct {
	Start     time.Time
	End       time.Time
	Score     float64
	Conflicts []string
}

// AlignUp returns the first Granularity boundary at or after t. Every real UTC
// offset is a multiple of 15 minutes, so the boundary is the same in any zone.
func AlignUp(t time.Time) time.Time {
	aligned := t.Truncate(Granularity)
	if aligned.Before(t) {
		aligned = aligned.Add(Granularity)
	}
	return aligned
}

// FindFreeSlots returns every Granularity-aligned slot of length duration
// within [windowStart, windowEnd) that overlaps none of busy. Candidates step by
// Granularity, so consecutive slots may overlap each other. busy may be unsorted
// and overlapping; it is not modified. Slots carry a zero score.
func FindFreeSlots(windowStart, windowEnd time.Time, busy []Interval, duration time.Duration) []Slot {
	if duration <= 0 || !windowEnd.After(windowStart) {
		return nil
	}

	sorted := make([]Interval, len(busy))
	copy(sorted, busy)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var slots []Slot
	cursor := AlignUp(windowStart)
	for !cursor.Add(duration).After(windowEnd) {
		end := cursor.Add(duration)
		if b, ok := firstOverlap(cursor, end, sorted); ok {
			// The rescan restarts from the first interval; a later one may
			// still cover the new cursor.
			cursor = AlignUp(b.End)
			continue
		}
		slots = append(slots, Slot{Start: cursor, End: end, Conflicts: []string{}})
		cursor = cursor.Add(Granularity)
	}
	return slots
}

// Overlaps reports whether [start, end) intersects the half-open interval b.
// Touching endpoints do not overlap.
func Overlaps(start, end time.Time, b Interval) bool {
	return start.Before(b.End) && end.After(b.Start)
}

func firstOverlap(start, end time.Time, busy []Interval) (Interval, bool) {
	for _, b := range busy {
		if Overlaps(start, end, b) {
			return b, true
		}
	}
	return Interval{}, false
}
