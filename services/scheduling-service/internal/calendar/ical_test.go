package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/emersion/go-ical"
)

func decode(t *testing.T, data string) *ical.Calendar {
	t.Helper()
	cal, err := ical.NewDecoder(strings.NewReader(strings.ReplaceAll(data, "\n", "\r\n"))).Decode()
	if err != nil {
		t.Fatalf("failed to decode ICS: %v", err)
	}
	return cal
}

func TestParseBusy_SkipsTransparentAndCancelled(t *testing.T) {
	cal := decode(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:busy
DTSTAMP:20260101T000000Z
DTSTART:20260128T090000Z
DTEND:20260128T100000Z
END:VEVENT
BEGIN:VEVENT
UID:free
DTSTAMP:20260101T000000Z
DTSTART:20260128T110000Z
DTEND:20260128T120000Z
TRANSP:TRANSPARENT
END:VEVENT
BEGIN:VEVENT
UID:cancelled
DTSTAMP:20260101T000000Z
DTSTART:20260128T130000Z
DTEND:20260128T140000Z
STATUS:CANCELLED
END:VEVENT
END:VCALENDAR
`)
	from := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	busy, err := ParseBusy(cal, from, from.Add(24*time.Hour), time.UTC)
	if err != nil {
		t.Fatalf("ParseBusy error: %v", err)
	}
	if len(busy) != 1 {
		t.Fatalf("expected 1 busy interval, got %+v", busy)
	}
	if !busy[0].Start.Equal(from.Add(9*time.Hour)) || !busy[0].End.Equal(from.Add(10*time.Hour)) {
		t.Fatalf("unexpected interval %+v", busy[0])
	}
}

func TestParseBusy_ExpandsRecurrence(t *testing.T) {
	cal := decode(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:standup
DTSTAMP:20260101T000000Z
DTSTART:20260126T093000Z
DURATION:PT15M
RRULE:FREQ=DAILY;COUNT=5
END:VEVENT
END:VCALENDAR
`)
	from := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)
	busy, err := ParseBusy(cal, from, from.Add(48*time.Hour), time.UTC)
	if err != nil {
		t.Fatalf("ParseBusy error: %v", err)
	}
	if len(busy) != 2 {
		t.Fatalf("expected 2 occurrences, got %+v", busy)
	}
	for i, b := range busy {
		want := from.Add(time.Duration(i)*24*time.Hour + 9*time.Hour + 30*time.Minute)
		if !b.Start.Equal(want) || b.End.Sub(b.Start) != 15*time.Minute {
			t.Fatalf("occurrence %d: unexpected %+v", i, b)
		}
	}
}

func TestParseBusy_AllDayInLocation(t *testing.T) {
	cal := decode(t, `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:holiday
DTSTAMP:20260101T000000Z
DTSTART;VALUE=DATE:20260128
DTEND;VALUE=DATE:20260129
END:VEVENT
END:VCALENDAR
`)
	kolkata := time.FixedZone("IST", 5*3600+30*60)
	from := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)
	busy, err := ParseBusy(cal, from, from.Add(72*time.Hour), kolkata)
	if err != nil {
		t.Fatalf("ParseBusy error: %v", err)
	}
	if len(busy) != 1 {
		t.Fatalf("expected 1 interval, got %+v", busy)
	}
	want := time.Date(2026, 1, 28, 0, 0, 0, 0, kolkata)
	if !busy[0].Start.Equal(want) || busy[0].End.Sub(busy[0].Start) != 24*time.Hour {
		t.Fatalf("unexpected all-day interval %+v", busy[0])
	}
}

func TestNewEventCalendar_Encodes(t *testing.T) {
	start := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	req := EventRequest{
		Title:     "Roadmap sync",
		Start:     start,
		End:       start.Add(30 * time.Minute),
		Attendees: []Attendee{{Email: "ana@example.com", Name: "Ana"}, {Name: "no email"}},
	}
	cal := NewEventCalendar("uid-1", req, start.Add(-time.Hour))

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"UID:uid-1", "SUMMARY:Roadmap sync", "DTSTART:20260128T100000Z", "mailto:ana@example.com"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in\n%s", want, out)
		}
	}

	busy, err := ParseBusy(cal, start.Add(-time.Hour), start.Add(time.Hour), time.UTC)
	if err != nil || len(busy) != 1 || !busy[0].Start.Equal(start) {
		t.Fatalf("round trip busy = %+v, err = %v", busy, err)
	}
}
