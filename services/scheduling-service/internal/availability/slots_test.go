package availability

import (
	"testing"
	"time"
)

var day = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func TestAlignUp(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{at(9, 0), at(9, 0)},
		{at(9, 7), at(9, 15)},
		{at(9, 20), at(9, 30)},
		{at(9, 45), at(9, 45)},
		{at(9, 50), at(10, 0)},
		{at(9, 15).Add(30 * time.Second), at(9, 30)},
	}
	for _, tc := range cases {
		if got := AlignUp(tc.in); !got.Equal(tc.want) {
			t.Fatalf("AlignUp(%s) = %s, want %s", tc.in.Format(time.RFC3339), got.Format(time.RFC3339), tc.want.Format(time.RFC3339))
		}
	}
}

func TestAlignUpKeepsLocation(t *testing.T) {
	kathmandu := time.FixedZone("NPT", 5*3600+45*60)
	in := time.Date(2024, 1, 15, 9, 7, 0, 0, kathmandu)
	got := AlignUp(in)
	if got.Location() != kathmandu || got.Hour() != 9 || got.Minute() != 15 {
		t.Fatalf("expected 09:15 NPT, got %s", got.Format(time.RFC3339))
	}
}

func TestFindFreeSlots_FirstSlotAfterBusyBlock(t *testing.T) {
	busy := []Interval{{Start: at(9, 0), End: at(10, 0)}}
	slots := FindFreeSlots(at(9, 0), at(18, 0), busy, 30*time.Minute)
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	if !slots[0].Start.Equal(at(10, 0)) {
		t.Fatalf("expected first slot 10:00, got %s", slots[0].Start.Format(time.RFC3339))
	}
	for _, s := range slots {
		if s.Start.Before(at(10, 0)) {
			t.Fatalf("slot %s overlaps the morning block", s.Start.Format(time.RFC3339))
		}
	}
	// 10:00 .. 17:30 inclusive, every 15 minutes.
	if len(slots) != 31 {
		t.Fatalf("expected 31 slots, got %d", len(slots))
	}
}

func TestFindFreeSlots_NoBusyEveryQuarterHour(t *testing.T) {
	slots := FindFreeSlots(at(9, 0), at(10, 0), nil, 15*time.Minute)
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	for i, s := range slots {
		want := at(9, 15*i)
		if !s.Start.Equal(want) || !s.End.Equal(want.Add(15*time.Minute)) {
			t.Fatalf("slot %d = %s-%s", i, s.Start.Format(time.Kitchen), s.End.Format(time.Kitchen))
		}
		if s.Score != 0 || s.Conflicts == nil || len(s.Conflicts) != 0 {
			t.Fatalf("slot %d should be unscored with empty conflicts: %+v", i, s)
		}
	}
}

func TestFindFreeSlots_OverlappingCandidates(t *testing.T) {
	slots := FindFreeSlots(at(14, 0), at(15, 0), nil, 30*time.Minute)
	if len(slots) != 3 {
		t.Fatalf("expected 14:00, 14:15 and 14:30, got %d slots", len(slots))
	}
	if !slots[1].Start.Equal(at(14, 15)) || !slots[1].End.Equal(at(14, 45)) {
		t.Fatalf("expected overlapping 14:15-14:45 candidate, got %+v", slots[1])
	}
}

func TestFindFreeSlots_WindowShorterThanDuration(t *testing.T) {
	if slots := FindFreeSlots(at(9, 0), at(9, 20), nil, 30*time.Minute); len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestFindFreeSlots_ExactFit(t *testing.T) {
	slots := FindFreeSlots(at(11, 0), at(11, 30), nil, 30*time.Minute)
	if len(slots) != 1 || !slots[0].Start.Equal(at(11, 0)) {
		t.Fatalf("expected exactly one 11:00 slot, got %+v", slots)
	}
}

func TestFindFreeSlots_UnalignedWindowStart(t *testing.T) {
	slots := FindFreeSlots(at(9, 7), at(10, 0), nil, 30*time.Minute)
	if len(slots) != 2 || !slots[0].Start.Equal(at(9, 15)) || !slots[1].Start.Equal(at(9, 30)) {
		t.Fatalf("expected 09:15 and 09:30, got %+v", slots)
	}
}

func TestFindFreeSlots_TouchingBusyIsFree(t *testing.T) {
	busy := []Interval{
		{Start: at(9, 0), End: at(9, 30)},
		{Start: at(10, 0), End: at(10, 30)},
	}
	slots := FindFreeSlots(at(9, 0), at(10, 30), busy, 30*time.Minute)
	if len(slots) != 1 || !slots[0].Start.Equal(at(9, 30)) || !slots[0].End.Equal(at(10, 0)) {
		t.Fatalf("expected the 09:30-10:00 gap only, got %+v", slots)
	}
}

func TestFindFreeSlots_UnsortedOverlappingBusy(t *testing.T) {
	busy := []Interval{
		{Start: at(10, 0), End: at(11, 10)},
		{Start: at(9, 0), End: at(10, 20)},
		{Start: at(11, 30), End: at(11, 45)},
	}
	original := append([]Interval(nil), busy...)

	slots := FindFreeSlots(at(9, 0), at(12, 30), busy, 30*time.Minute)
	want := []time.Time{at(12, 0)}
	// 11:15 is blocked by 11:30-11:45; 11:45 fits until 12:15 and is allowed.
	want = append([]time.Time{at(11, 45)}, want...)
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %+v", len(want), slots)
	}
	for i := range want {
		if !slots[i].Start.Equal(want[i]) {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i].Format(time.Kitchen), slots[i].Start.Format(time.Kitchen))
		}
	}
	for i := range busy {
		if busy[i] != original[i] {
			t.Fatal("input busy intervals must not be reordered")
		}
	}
}

func TestFindFreeSlots_Properties(t *testing.T) {
	busy := []Interval{
		{Start: at(9, 40), End: at(10, 5)},
		{Start: at(13, 0), End: at(14, 0)},
		{Start: at(13, 30), End: at(13, 50)},
		{Start: at(16, 59), End: at(17, 1)},
	}
	duration := 45 * time.Minute
	slots := FindFreeSlots(at(8, 53), at(18, 0), busy, duration)
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	for _, s := range slots {
		if s.End.Sub(s.Start) != duration {
			t.Fatalf("slot %s has wrong duration", s.Start.Format(time.Kitchen))
		}
		if s.Start.Minute()%15 != 0 || s.Start.Second() != 0 {
			t.Fatalf("slot %s not aligned", s.Start.Format(time.RFC3339))
		}
		if s.Start.Before(at(8, 53)) || s.End.After(at(18, 0)) {
			t.Fatalf("slot %s outside window", s.Start.Format(time.Kitchen))
		}
		for _, b := range busy {
			if Overlaps(s.Start, s.End, b) {
				t.Fatalf("slot %s overlaps busy %s-%s", s.Start.Format(time.Kitchen), b.Start.Format(time.Kitchen), b.End.Format(time.Kitchen))
			}
		}
	}
}

func TestFindFreeSlots_InvalidInput(t *testing.T) {
	if FindFreeSlots(at(10, 0), at(9, 0), nil, 30*time.Minute) != nil {
		t.Fatal("inverted window should yield nothing")
	}
	if FindFreeSlots(at(9, 0), at(10, 0), nil, 0) != nil {
		t.Fatal("zero duration should yield nothing")
	}
}
