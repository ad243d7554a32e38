package availability

import (
	"sort"
	"time"
)

// Hour statuses reported by DayBreakdown.
const (
	StatusAvailable = "available"
	StatusPartial   = "partial"
	StatusBusy      = "busy"
)

// HourSummary describes one local wall-clock hour of a day.
type HourSummary struct {
	Hour        int
	Start       time.Time
	End         time.Time
	BusyMinutes int
	FreeMinutes int
	FreePeriods []Interval
	Status      string
}

// DayBreakdown summarises busy time per hour for the hours [fromHour, toHour)
// of day in loc. Busy intervals are merged before they are clipped to each hour.
func DayBreakdown(day time.Time, loc *time.Location, fromHour, toHour int, busy []Interval) []HourSummary {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.In(loc).Date()
	merged := Merge(busy)

	out := make([]HourSummary, 0, max(toHour-fromHour, 0))
	for h := fromHour; h < toHour; h++ {
		start := time.Date(y, m, d, h, 0, 0, 0, loc)
		end := time.Date(y, m, d, h+1, 0, 0, 0, loc)
		out = append(out, summarise(h, start, end, merged))
	}
	return out
}

func summarise(hour int, start, end time.Time, merged []Interval) HourSummary {
	s := HourSummary{Hour: hour, Start: start, End: end, FreePeriods: []Interval{}}

	var busy time.Duration
	cursor := start
	for _, b := range merged {
		if !Overlaps(start, end, b) {
			continue
		}
		bs, be := b.Start, b.End
		if bs.Before(start) {
			bs = start
		}
		if be.After(end) {
			be = end
		}
		if cursor.Before(bs) {
			s.FreePeriods = append(s.FreePeriods, Interval{Start: cursor, End: bs})
		}
		busy += be.Sub(bs)
		cursor = be
	}
	if cursor.Before(end) {
		s.FreePeriods = append(s.FreePeriods, Interval{Start: cursor, End: end})
	}

	total := end.Sub(start)
	s.BusyMinutes = int(busy / time.Minute)
	s.FreeMinutes = int((total - busy) / time.Minute)
	switch {
	case busy == 0:
		s.Status = StatusAvailable
	case busy >= total:
		s.Status = StatusBusy
	default:
		s.Status = StatusPartial
	}
	return s
}

// Merge returns busy sorted by start with overlapping or touching intervals
// joined. Empty intervals are dropped. The input is not modified.
func Merge(busy []Interval) []Interval {
	sorted := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if b.End.After(b.Start) {
			sorted = append(sorted, b)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var out []Interval
	for _, b := range sorted {
		if n := len(out); n > 0 && !b.Start.After(out[n-1].End) {
			if b.End.After(out[n-1].End) {
				out[n-1].End = b.End
			}
			continue
		}
		out = append(out, b)
	}
	return out
}
