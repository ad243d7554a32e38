// Package scoring ranks candidate slots by how convenient they are.
package scoring

import (
	"time"

	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/availability"
)

// Score returns a value in [0, 1] for slot relative to reference, the start of
// the first preferred window. Hour and weekday are read in the slot's location.
func Score(slot availability.Slot, reference time.Time) float64 {
	score := 1.0
	hour := slot.Start.Hour()

	switch {
	case hour >= 9 && hour < 17:
	case hour == 8 || hour == 17:
		score *= 0.9
	default:
		score *= 0.7
	}

	hoursOut := slot.Start.Sub(reference).Hours()
	switch {
	case hoursOut < 2:
		score *= 0.8
	case hoursOut < 24:
	case hoursOut < 48:
		score *= 0.95
	default:
		score *= 0.9
	}

	switch wd := slot.Start.Weekday(); {
	case wd == time.Monday && hour < 10:
		score *= 0.85
	case wd == time.Friday && hour >= 15:
		score *= 0.85
	}

	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
