package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/availability"
)

func TestStatic_BusyIntervalsFiltersAndSorts(t *testing.T) {
	base := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	s := NewStatic()
	s.SetBusy("u1",
		availability.Interval{Start: base.Add(14 * time.Hour), End: base.Add(15 * time.Hour)},
		availability.Interval{Start: base.Add(9 * time.Hour), End: base.Add(10 * time.Hour)},
		availability.Interval{Start: base.Add(30 * time.Hour), End: base.Add(31 * time.Hour)},
	)
	s.SetBusy(AnyIdentity, availability.Interval{Start: base.Add(12 * time.Hour), End: base.Add(13 * time.Hour)})

	got, err := s.BusyIntervals(context.Background(), "u1", base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || !got[0].Start.Equal(base.Add(9*time.Hour)) || !got[1].Start.Equal(base.Add(12*time.Hour)) {
		t.Fatalf("unexpected intervals %+v", got)
	}
	if s.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", s.Calls())
	}
}

func TestStatic_FailAndDelay(t *testing.T) {
	s := NewStatic()
	boom := errors.New("boom")
	s.Fail("u1", boom)
	if _, err := s.BusyIntervals(context.Background(), "u1", time.Now(), time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected scripted failure, got %v", err)
	}
	s.Fail("u1", nil)

	s.SetDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.BusyIntervals(ctx, "u1", time.Now(), time.Now()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestStatic_CreateAndDeleteEvent(t *testing.T) {
	start := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	s := NewStatic()
	ev, err := s.CreateEvent(context.Background(), "u1", EventRequest{Title: "x", Start: start, End: start.Add(time.Hour), Conference: true})
	if err != nil {
		t.Fatalf("CreateEvent error: %v", err)
	}
	if ev.ID == "" || ev.MeetingLink == "" {
		t.Fatalf("unexpected event %+v", ev)
	}
	busy, _ := s.BusyIntervals(context.Background(), "u1", start, start.Add(time.Hour))
	if len(busy) != 1 {
		t.Fatalf("booked event should be busy, got %+v", busy)
	}

	if err := s.DeleteEvent(context.Background(), "u1", ev.ID); err != nil {
		t.Fatalf("DeleteEvent error: %v", err)
	}
	if _, ok := s.Event(ev.ID); ok {
		t.Fatal("event should be gone")
	}
	busy, _ = s.BusyIntervals(context.Background(), "u1", start, start.Add(time.Hour))
	if len(busy) != 0 {
		t.Fatalf("deleted event should free time, got %+v", busy)
	}
	if err := s.DeleteEvent(context.Background(), "u1", "missing"); err != nil {
		t.Fatalf("unknown id should succeed, got %v", err)
	}
}

func TestStatic_DeleteEventOnlyFreesItsOwnInterval(t *testing.T) {
	start := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	slot := availability.Interval{Start: start, End: start.Add(time.Hour)}
	s := NewStatic()
	s.SetBusy("u1", slot)
	ev, err := s.CreateEvent(context.Background(), "u1", EventRequest{Title: "x", Start: slot.Start, End: slot.End})
	if err != nil {
		t.Fatalf("CreateEvent error: %v", err)
	}

	if err := s.DeleteEvent(context.Background(), "u2", ev.ID); !errors.Is(err, ErrForeignEvent) {
		t.Fatalf("expected ErrForeignEvent for another identity, got %v", err)
	}
	if _, ok := s.Event(ev.ID); !ok {
		t.Fatal("event should survive a foreign delete")
	}

	if err := s.DeleteEvent(context.Background(), "u1", ev.ID); err != nil {
		t.Fatalf("DeleteEvent error: %v", err)
	}
	busy, _ := s.BusyIntervals(context.Background(), "u1", slot.Start, slot.End)
	if len(busy) != 1 || !busy[0].Start.Equal(slot.Start) {
		t.Fatalf("scripted busy interval with equal times should remain, got %+v", busy)
	}
}
