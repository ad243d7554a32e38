package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/availability"
)

// AnyIdentity scripts busy data or failures for every identity.
const AnyIdentity = "*"

// Static is an in-memory calendar with scripted busy intervals and failures.
// It backs local development and tests.
type Static struct {
	mu       sync.Mutex
	busy     map[string][]availability.Interval
	failures map[string]error
	delay    time.Duration
	events   map[string]staticEvent
	calls    int
}

type staticEvent struct {
	owner string
	req   EventRequest
}

func NewStatic() *Static {
	return &Static{
		busy:     map[string][]availability.Interval{},
		failures: map[string]error{},
		events:   map[string]staticEvent{},
	}
}

// SetBusy appends intervals to the busy list of identity.
func (s *Static) SetBusy(identity string, intervals ...availability.Interval) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy[identity] = append(s.busy[identity], intervals...)
}

// Fail makes every busy query for identity return err. A nil err clears it.
func (s *Static) Fail(identity string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, identity)
		return
	}
	s.failures[identity] = err
}

// SetDelay makes busy queries block for d or until the context ends.
func (s *Static) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Calls returns how many busy queries were served.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Static) BusyIntervals(ctx context.Context, identity string, timeMin, timeMax time.Time) ([]availability.Interval, error) {
	s.mu.Lock()
	s.calls++
	delay := s.delay
	err := s.failures[identity]
	if err == nil {
		err = s.failures[AnyIdentity]
	}
	scripted := append(append([]availability.Interval(nil), s.busy[identity]...), s.busy[AnyIdentity]...)
	for _, ev := range s.events {
		if ev.owner == identity {
			scripted = append(scripted, availability.Interval{Start: ev.req.Start, End: ev.req.End})
		}
	}
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return nil, err
	}

	var out []availability.Interval
	for _, b := range scripted {
		if b.Start.Before(timeMax) && b.End.After(timeMin) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// CreateEvent records the event and marks its time busy for identity.
func (s *Static) CreateEvent(ctx context.Context, identity string, req EventRequest) (CreatedEvent, error) {
	if !req.End.After(req.Start) {
		return CreatedEvent{}, fmt.Errorf("event must end after it starts")
	}
	id := uuid.NewString()

	s.mu.Lock()
	s.events[id] = staticEvent{owner: identity, req: req}
	s.mu.Unlock()

	link := "static://events/" + id
	out := CreatedEvent{ID: id, CalendarLink: link}
	if req.Conference {
		out.MeetingLink = "static://meet/" + id
	}
	return out, nil
}

// DeleteEvent removes an event booked by identity and frees its time.
// Scripted busy intervals are left alone. Unknown ids succeed.
func (s *Static) DeleteEvent(ctx context.Context, identity, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return nil
	}
	if ev.owner != identity {
		return ErrForeignEvent
	}
	delete(s.events, eventID)
	return nil
}

// Event returns a booked event by id.
func (s *Static) Event(id string) (EventRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	return ev.req, ok
}

var _ Calendar = (*Static)(nil)
