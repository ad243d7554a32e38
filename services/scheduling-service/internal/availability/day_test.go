package availability

import (
	"testing"
	"time"
)

func TestMerge(t *testing.T) {
	in := []Interval{
		{Start: at(11, 0), End: at(11, 30)},
		{Start: at(9, 0), End: at(10, 0)},
		{Start: at(9, 30), End: at(10, 15)},
		{Start: at(10, 15), End: at(10, 45)},
		{Start: at(12, 0), End: at(12, 0)},
	}
	got := Merge(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 merged intervals, got %+v", got)
	}
	if !got[0].Start.Equal(at(9, 0)) || !got[0].End.Equal(at(10, 45)) {
		t.Fatalf("unexpected first interval %+v", got[0])
	}
	if !got[1].Start.Equal(at(11, 0)) || !got[1].End.Equal(at(11, 30)) {
		t.Fatalf("unexpected second interval %+v", got[1])
	}
	if !in[0].Start.Equal(at(11, 0)) {
		t.Fatal("input must not be reordered")
	}
}

func TestDayBreakdown(t *testing.T) {
	busy := []Interval{
		{Start: at(8, 30), End: at(9, 20)},
		{Start: at(9, 40), End: at(9, 50)},
		{Start: at(11, 0), End: at(13, 0)},
	}
	hours := DayBreakdown(day, time.UTC, 9, 18, busy)
	if len(hours) != 9 {
		t.Fatalf("expected 9 hours, got %d", len(hours))
	}

	first := hours[0]
	if first.Hour != 9 || first.Status != StatusPartial || first.BusyMinutes != 30 || first.FreeMinutes != 30 {
		t.Fatalf("unexpected 09:00 summary %+v", first)
	}
	if len(first.FreePeriods) != 2 {
		t.Fatalf("expected 2 free periods at 09:00, got %+v", first.FreePeriods)
	}
	if !first.FreePeriods[0].Start.Equal(at(9, 20)) || !first.FreePeriods[0].End.Equal(at(9, 40)) {
		t.Fatalf("unexpected free period %+v", first.FreePeriods[0])
	}
	if !first.FreePeriods[1].Start.Equal(at(9, 50)) || !first.FreePeriods[1].End.Equal(at(10, 0)) {
		t.Fatalf("unexpected free period %+v", first.FreePeriods[1])
	}

	if hours[1].Status != StatusAvailable || hours[1].FreeMinutes != 60 || len(hours[1].FreePeriods) != 1 {
		t.Fatalf("expected 10:00 free, got %+v", hours[1])
	}
	for _, h := range hours[2:4] {
		if h.Status != StatusBusy || h.BusyMinutes != 60 || len(h.FreePeriods) != 0 {
			t.Fatalf("expected %02d:00 busy, got %+v", h.Hour, h)
		}
	}
}

func TestDayBreakdown_LocalHours(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+30*60)
	// 09:00 IST is 03:30 UTC.
	busy := []Interval{{Start: at(3, 30), End: at(4, 30)}}
	hours := DayBreakdown(day, kolkata, 9, 11, busy)
	if hours[0].Status != StatusBusy || hours[1].Status != StatusAvailable {
		t.Fatalf("unexpected statuses %s %s", hours[0].Status, hours[1].Status)
	}
	if hours[0].Start.Location() != kolkata || hours[0].Start.Hour() != 9 {
		t.Fatalf("expected local start, got %s", hours[0].Start)
	}
}
