// Package calendar talks to the calendar backends that supply busy data and
// receive confirmed meetings.
package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/availability"
)

// ErrNotConnected is returned when no usable credentials exist for an identity.
var ErrNotConnected = errors.New("calendar not connected")

// ErrForeignEvent is returned when an event id does not name an event owned
// by the identity asking to change it.
var ErrForeignEvent = errors.New("event not owned by identity")

// Provider reports the busy intervals of identity between timeMin and timeMax.
type Provider interface {
	BusyIntervals(ctx context.Context, identity string, timeMin, timeMax time.Time) ([]availability.Interval, error)
}

// Booker writes confirmed meetings to a calendar.
type Booker interface {
	CreateEvent(ctx context.Context, identity string, req EventRequest) (CreatedEvent, error)
	DeleteEvent(ctx context.Context, identity, eventID string) error
}

// Calendar is a backend that can both answer busy queries and book events.
type Calendar interface {
	Provider
	Booker
}

type Attendee struct {
	Email string
	Name  string
}

type EventRequest struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	// Timezone is the IANA zone the event is displayed in. Empty means UTC.
	Timezone  string
	Attendees []Attendee
	// Conference asks the backend to attach a video meeting link.
	Conference bool
}

type CreatedEvent struct {
	ID           string
	MeetingLink  string
	CalendarLink string
}

// TokenSource supplies OAuth access tokens for an identity.
type TokenSource interface {
	AccessToken(ctx context.Context, identity string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, identity string, timeMin, timeMax time.Time) ([]availability.Interval, error)

func (f ProviderFunc) BusyIntervals(ctx context.Context, identity string, timeMin, timeMax time.Time) ([]availability.Interval, error) {
	return f(ctx, identity, timeMin, timeMax)
}
