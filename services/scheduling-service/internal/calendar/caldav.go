package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/availability"
)

// CalDAVConfig describes one CalDAV account shared by all identities.
type CalDAVConfig struct {
	URL      string
	Username string
	Password string
	// Calendars limits busy queries to these display names. Empty means all.
	Calendars []string
	// Location resolves floating and all-day values.
	Location *time.Location
}

// CalDAV reads busy time from and books events on a CalDAV server.
type CalDAV struct {
	cfg    CalDAVConfig
	client *caldav.Client

	mu        sync.Mutex
	calendars []caldav.Calendar
}

func NewCalDAV(cfg CalDAVConfig) (*CalDAV, error) {
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &basicAuthTransport{
			username: cfg.Username,
			password: cfg.Password,
			base:     otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	client, err := caldav.NewClient(httpClient, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("create caldav client: %w", err)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &CalDAV{cfg: cfg, client: client}, nil
}

// discover resolves and caches the calendars to use.
func (c *CalDAV) discover(ctx context.Context) ([]caldav.Calendar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calendars != nil {
		return c.calendars, nil
	}

	principal, err := c.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := c.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find calendar home: %w", err)
	}
	all, err := c.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var selected []caldav.Calendar
	for _, cal := range all {
		if c.wanted(cal.Name) {
			selected = append(selected, cal)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no matching calendars at %s", c.cfg.URL)
	}
	c.calendars = selected
	return selected, nil
}

func (c *CalDAV) wanted(name string) bool {
	if len(c.cfg.Calendars) == 0 {
		return true
	}
	for _, n := range c.cfg.Calendars {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func (c *CalDAV) BusyIntervals(ctx context.Context, identity string, timeMin, timeMax time.Time) ([]availability.Interval, error) {
	cals, err := c.discover(ctx)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{{
				Name:  "VEVENT",
				Props: []string{"UID", "DTSTART", "DTEND", "DURATION", "RRULE", "RDATE", "EXDATE", "STATUS", "TRANSP"},
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: timeMin,
				End:   timeMax,
			}},
		},
	}

	var busy []availability.Interval
	for _, cal := range cals {
		objects, err := c.client.QueryCalendar(ctx, cal.Path, query)
		if err != nil {
			return nil, fmt.Errorf("query calendar %s: %w", cal.Name, err)
		}
		for _, obj := range objects {
			if obj.Data == nil {
				continue
			}
			intervals, err := ParseBusy(obj.Data, timeMin, timeMax, c.cfg.Location)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", obj.Path, err)
			}
			busy = append(busy, intervals...)
		}
	}
	return availability.Merge(busy), nil
}

// CreateEvent stores a new VEVENT in the first selected calendar. The event id
// is the object path.
func (c *CalDAV) CreateEvent(ctx context.Context, identity string, req EventRequest) (CreatedEvent, error) {
	cals, err := c.discover(ctx)
	if err != nil {
		return CreatedEvent{}, err
	}
	uid := uuid.NewString()
	objectPath := path.Join(cals[0].Path, uid+".ics")

	obj, err := c.client.PutCalendarObject(ctx, objectPath, NewEventCalendar(uid, req, time.Now()))
	if err != nil {
		return CreatedEvent{}, fmt.Errorf("put event: %w", err)
	}
	if obj != nil && obj.Path != "" {
		objectPath = obj.Path
	}
	link := objectPath
	if base, err := url.Parse(c.cfg.URL); err == nil {
		link = base.ResolveReference(&url.URL{Path: objectPath}).String()
	}
	return CreatedEvent{ID: objectPath, CalendarLink: link}, nil
}

// DeleteEvent removes an event object. eventID must name a .ics object
// directly inside one of the discovered calendars.
func (c *CalDAV) DeleteEvent(ctx context.Context, identity, eventID string) error {
	cals, err := c.discover(ctx)
	if err != nil {
		return err
	}
	if !ownsObject(cals, eventID) {
		return fmt.Errorf("delete event %q: %w", eventID, ErrForeignEvent)
	}
	if err := c.client.RemoveAll(ctx, path.Clean(eventID)); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func ownsObject(cals []caldav.Calendar, eventID string) bool {
	if eventID == "" || strings.Contains(eventID, "..") || !strings.HasSuffix(eventID, ".ics") {
		return false
	}
	clean := path.Clean(eventID)
	dir := path.Dir(clean)
	for _, cal := range cals {
		if cal.Path != "" && path.Clean(cal.Path) == dir {
			return true
		}
	}
	return false
}

type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

var _ Calendar = (*CalDAV)(nil)
