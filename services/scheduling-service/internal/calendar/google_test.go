package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

type fixedToken string

func (f fixedToken) AccessToken(ctx context.Context, identity string) (string, error) {
	return string(f), nil
}

func TestGoogle_BusyIntervals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/freeBusy" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		var body gcal.FreeBusyRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(body.Items) != 1 || body.Items[0].Id != "primary" {
			t.Errorf("unexpected items %+v", body.Items)
		}
		_, _ = w.Write([]byte(`{"calendars":{"primary":{"busy":[
			{"start":"2026-01-28T11:00:00Z","end":"2026-01-28T12:00:00Z"},
			{"start":"2026-01-28T09:00:00Z","end":"2026-01-28T10:00:00Z"}]}}}`))
	}))
	defer srv.Close()

	g := NewGoogle(fixedToken("tok"), WithGoogleBaseURL(srv.URL), WithGoogleHTTPClient(srv.Client()))
	from := time.Date(2026, 1, 28, 9, 0, 0, 0, time.UTC)
	busy, err := g.BusyIntervals(context.Background(), "u1", from, from.Add(9*time.Hour))
	if err != nil {
		t.Fatalf("BusyIntervals error: %v", err)
	}
	if len(busy) != 2 || !busy[0].Start.Equal(from) {
		t.Fatalf("expected sorted busy intervals, got %+v", busy)
	}
}

func TestGoogle_BusyIntervalsCalendarError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"calendars":{"primary":{"errors":[{"domain":"global","reason":"notFound"}]}}}`))
	}))
	defer srv.Close()

	g := NewGoogle(fixedToken("tok"), WithGoogleBaseURL(srv.URL), WithGoogleHTTPClient(srv.Client()))
	if _, err := g.BusyIntervals(context.Background(), "u1", time.Now(), time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected error for calendar errors")
	}
}

func TestGoogle_CreateEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calendars/primary/events" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("conferenceDataVersion") != "1" || r.URL.Query().Get("sendUpdates") != "all" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		var body gcal.Event
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.ConferenceData == nil || body.ConferenceData.CreateRequest == nil ||
			body.ConferenceData.CreateRequest.ConferenceSolutionKey.Type != "hangoutsMeet" {
			t.Errorf("expected meet conference request")
		}
		if len(body.Attendees) != 1 || body.Attendees[0].Email != "ana@example.com" {
			t.Errorf("unexpected attendees %+v", body.Attendees)
		}
		if body.Start == nil || body.Start.TimeZone != "Asia/Kolkata" || body.Start.DateTime != "2026-01-28T15:30:00+05:30" {
			t.Errorf("unexpected start %+v", body.Start)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt1","hangoutLink":"https://meet.google.com/abc"}`))
	}))
	defer srv.Close()

	g := NewGoogle(fixedToken("tok"), WithGoogleBaseURL(srv.URL), WithGoogleHTTPClient(srv.Client()))
	start := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	ev, err := g.CreateEvent(context.Background(), "u1", EventRequest{
		Title:      "Sync",
		Start:      start,
		End:        start.Add(30 * time.Minute),
		Timezone:   "Asia/Kolkata",
		Attendees:  []Attendee{{Email: "ana@example.com"}, {Name: "nobody"}},
		Conference: true,
	})
	if err != nil {
		t.Fatalf("CreateEvent error: %v", err)
	}
	if ev.ID != "evt1" || ev.MeetingLink != "https://meet.google.com/abc" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.CalendarLink != "https://calendar.google.com/calendar/u/0/r/eventedit/evt1" {
		t.Fatalf("expected fallback calendar link, got %q", ev.CalendarLink)
	}
}

func TestGoogle_DeleteEventGoneIsSuccess(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusNotFound, http.StatusGone} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete || r.URL.Path != "/calendars/primary/events/evt1" || r.URL.Query().Get("sendUpdates") != "all" {
				t.Errorf("unexpected request %s %s?%s", r.Method, r.URL.Path, r.URL.RawQuery)
			}
			w.WriteHeader(status)
		}))
		g := NewGoogle(fixedToken("tok"), WithGoogleBaseURL(srv.URL), WithGoogleHTTPClient(srv.Client()))
		if err := g.DeleteEvent(context.Background(), "u1", "evt1"); err != nil {
			t.Fatalf("status %d: expected success, got %v", status, err)
		}
		srv.Close()
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	g := NewGoogle(fixedToken("tok"), WithGoogleBaseURL(srv.URL), WithGoogleHTTPClient(srv.Client()))
	err := g.DeleteEvent(context.Background(), "u1", "evt1")
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected googleapi error 500, got %v", err)
	}
}

func TestGoogle_NoTokenSource(t *testing.T) {
	g := NewGoogle(nil)
	_, err := g.BusyIntervals(context.Background(), "u1", time.Now(), time.Now().Add(time.Hour))
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
