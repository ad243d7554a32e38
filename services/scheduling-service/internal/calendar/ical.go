package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/availability"
)

const productID = "-//meetsched//scheduling-service//EN"

// ParseBusy extracts the busy intervals of cal that intersect [timeMin, timeMax].
// Recurring events are expanded. Transparent and cancelled events are skipped.
// Floating and date-only values are read in loc.
func ParseBusy(cal *ical.Calendar, timeMin, timeMax time.Time, loc *time.Location) ([]availability.Interval, error) {
	if loc == nil {
		loc = time.UTC
	}
	var out []availability.Interval
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent || !blocksTime(comp) {
			continue
		}
		intervals, err := eventIntervals(comp, timeMin, timeMax, loc)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", propText(comp, ical.PropUID), err)
		}
		out = append(out, intervals...)
	}
	return availability.Merge(out), nil
}

func blocksTime(comp *ical.Component) bool {
	if strings.EqualFold(propText(comp, ical.PropTransparency), "TRANSPARENT") {
		return false
	}
	return !strings.EqualFold(propText(comp, ical.PropStatus), "CANCELLED")
}

func eventIntervals(comp *ical.Component, timeMin, timeMax time.Time, loc *time.Location) ([]availability.Interval, error) {
	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return nil, fmt.Errorf("missing DTSTART")
	}
	start, dateOnly, err := propTime(startProp, loc)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}

	var length time.Duration
	switch {
	case comp.Props.Get(ical.PropDateTimeEnd) != nil:
		end, _, err := propTime(comp.Props.Get(ical.PropDateTimeEnd), loc)
		if err != nil {
			return nil, fmt.Errorf("parse end: %w", err)
		}
		length = end.Sub(start)
	case comp.Props.Get(ical.PropDuration) != nil:
		length, err = comp.Props.Get(ical.PropDuration).Duration()
		if err != nil {
			return nil, fmt.Errorf("parse duration: %w", err)
		}
	case dateOnly:
		length = 24 * time.Hour
	}
	if length <= 0 {
		return nil, nil
	}

	rset, err := comp.RecurrenceSet(loc)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence: %w", err)
	}
	starts := []time.Time{start}
	if rset != nil {
		// Look back by the event length to catch occurrences already running at timeMin.
		starts = rset.Between(timeMin.Add(-length), timeMax, true)
	}

	var out []availability.Interval
	for _, s := range starts {
		e := s.Add(length)
		if s.Before(timeMax) && e.After(timeMin) {
			out = append(out, availability.Interval{Start: s, End: e})
		}
	}
	return out, nil
}

func propTime(prop *ical.Prop, loc *time.Location) (time.Time, bool, error) {
	if prop.ValueType() == ical.ValueDate {
		t, err := time.ParseInLocation("20060102", prop.Value, loc)
		return t, true, err
	}
	t, err := prop.DateTime(loc)
	if err == nil {
		return t, false, nil
	}
	if t, ferr := time.ParseInLocation("20060102T150405", prop.Value, loc); ferr == nil {
		return t, false, nil
	}
	if t, derr := time.ParseInLocation("20060102", prop.Value, loc); derr == nil {
		return t, true, nil
	}
	return time.Time{}, false, err
}

func propText(comp *ical.Component, name string) string {
	if p := comp.Props.Get(name); p != nil {
		return p.Value
	}
	return ""
}

// NewEventCalendar builds a single-event VCALENDAR for req with the given UID.
func NewEventCalendar(uid string, req EventRequest, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, req.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, req.End.UTC())
	event.Props.SetText(ical.PropSummary, req.Title)
	if req.Description != "" {
		event.Props.SetText(ical.PropDescription, req.Description)
	}
	for _, a := range req.Attendees {
		if a.Email == "" {
			continue
		}
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = "mailto:" + a.Email
		if a.Name != "" {
			prop.Params.Set(ical.ParamCommonName, a.Name)
		}
		prop.Params.Set(ical.ParamRole, "REQ-PARTICIPANT")
		event.Props.Add(prop)
	}
	cal.Children = append(cal.Children, event.Component)
	return cal
}
