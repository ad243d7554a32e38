package calendar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/emersion/go-webdav/caldav"
)

func TestCalDAV_DeleteEventRefusesPathsOutsideCalendars(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewCalDAV(CalDAVConfig{URL: srv.URL + "/dav/", Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("NewCalDAV error: %v", err)
	}
	c.calendars = []caldav.Calendar{{Path: "/dav/calendars/alice/work/", Name: "Work"}}

	refused := []string{
		"/dav/calendars/alice/work/",
		"/dav/calendars/alice/work",
		"/dav/calendars/bob/home/evt.ics",
		"/dav/calendars/alice/work/../../bob/home/evt.ics",
		"/dav/calendars/alice/work/nested/evt.ics",
		"",
	}
	for _, id := range refused {
		if err := c.DeleteEvent(context.Background(), "mallory", id); !errors.Is(err, ErrForeignEvent) {
			t.Fatalf("DeleteEvent(%q): expected ErrForeignEvent, got %v", id, err)
		}
	}
	mu.Lock()
	sent := len(requests)
	mu.Unlock()
	if sent != 0 {
		t.Fatalf("refused deletes must not reach the server, got %v", requests)
	}

	if err := c.DeleteEvent(context.Background(), "alice", "/dav/calendars/alice/work/evt-1.ics"); err != nil {
		t.Fatalf("DeleteEvent error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(requests) != 1 || requests[0] != "DELETE /dav/calendars/alice/work/evt-1.ics" {
		t.Fatalf("unexpected requests %v", requests)
	}
}
