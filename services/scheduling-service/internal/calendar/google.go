package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/availability"
)

// GoogleAPIBase is the Calendar v3 REST root.
const GoogleAPIBase = "https://www.googleapis.com/calendar/v3/"

// Google reads free/busy data from and books events on Google Calendar.
type Google struct {
	base       string
	calendarID string
	tokens     TokenSource
	transport  http.RoundTripper
	timeout    time.Duration
}

type GoogleOption func(*Google)

// WithGoogleBaseURL points the client at another API root.
func WithGoogleBaseURL(base string) GoogleOption {
	return func(g *Google) { g.base = strings.TrimRight(base, "/") + "/" }
}

// WithGoogleHTTPClient sends requests through c's transport instead of the
// default traced one. The bearer token is still added per identity.
func WithGoogleHTTPClient(c *http.Client) GoogleOption {
	return func(g *Google) {
		if c.Transport != nil {
			g.transport = c.Transport
		} else {
			g.transport = http.DefaultTransport
		}
		if c.Timeout > 0 {
			g.timeout = c.Timeout
		}
	}
}

// WithGoogleCalendarID selects a calendar other than "primary".
func WithGoogleCalendarID(id string) GoogleOption {
	return func(g *Google) { g.calendarID = id }
}

func NewGoogle(tokens TokenSource, opts ...GoogleOption) *Google {
	g := &Google{
		base:       GoogleAPIBase,
		calendarID: "primary",
		tokens:     tokens,
		transport:  otelhttp.NewTransport(http.DefaultTransport),
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// service builds a Calendar client authorised as identity.
func (g *Google) service(ctx context.Context, identity string) (*gcal.Service, error) {
	if g.tokens == nil {
		return nil, ErrNotConnected
	}
	token, err := g.tokens.AccessToken(ctx, identity)
	if err != nil {
		return nil, err
	}
	client := &http.Client{
		Timeout: g.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   g.transport,
		},
	}
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(g.base))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

func (g *Google) BusyIntervals(ctx context.Context, identity string, timeMin, timeMax time.Time) ([]availability.Interval, error) {
	svc, err := g.service(ctx, identity)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin:  timeMin.UTC().Format(time.RFC3339),
		TimeMax:  timeMax.UTC().Format(time.RFC3339),
		TimeZone: "UTC",
		Items:    []*gcal.FreeBusyRequestItem{{Id: g.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy: %w", err)
	}

	var out []availability.Interval
	for id, cal := range resp.Calendars {
		if len(cal.Errors) > 0 {
			return nil, fmt.Errorf("freebusy %s: %s", id, cal.Errors[0].Reason)
		}
		for _, b := range cal.Busy {
			start, err := time.Parse(time.RFC3339, b.Start)
			if err != nil {
				return nil, fmt.Errorf("freebusy %s: parse start: %w", id, err)
			}
			end, err := time.Parse(time.RFC3339, b.End)
			if err != nil {
				return nil, fmt.Errorf("freebusy %s: parse end: %w", id, err)
			}
			out = append(out, availability.Interval{Start: start, End: end})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (g *Google) CreateEvent(ctx context.Context, identity string, req EventRequest) (CreatedEvent, error) {
	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return CreatedEvent{}, fmt.Errorf("create event: timezone %q: %w", tz, err)
	}
	svc, err := g.service(ctx, identity)
	if err != nil {
		return CreatedEvent{}, err
	}

	event := &gcal.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start:       &gcal.EventDateTime{DateTime: req.Start.In(loc).Format(time.RFC3339), TimeZone: tz},
		End:         &gcal.EventDateTime{DateTime: req.End.In(loc).Format(time.RFC3339), TimeZone: tz},
	}
	for _, a := range req.Attendees {
		if a.Email == "" {
			continue
		}
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: a.Email, DisplayName: a.Name})
	}
	if req.Conference {
		event.ConferenceData = &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
	}

	created, err := svc.Events.Insert(g.calendarID, event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return CreatedEvent{}, fmt.Errorf("create event: %w", err)
	}

	out := CreatedEvent{ID: created.Id, MeetingLink: created.HangoutLink, CalendarLink: created.HtmlLink}
	if out.CalendarLink == "" {
		out.CalendarLink = "https://calendar.google.com/calendar/u/0/r/eventedit/" + created.Id
	}
	return out, nil
}

// DeleteEvent cancels an event and notifies attendees. An event that is
// already gone counts as deleted.
func (g *Google) DeleteEvent(ctx context.Context, identity, eventID string) error {
	svc, err := g.service(ctx, identity)
	if err != nil {
		return err
	}
	err = svc.Events.Delete(g.calendarID, eventID).SendUpdates("all").Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

var _ Calendar = (*Google)(nil)
