package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"gopkg.in/yaml.v3"

	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/calendar"
)

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseTime accepts RFC3339 or a naive local time interpreted in loc.
func parseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", raw)
}

// parseWindow reads "START/END".
func parseWindow(raw string, loc *time.Location) (availability.Window, error) {
	start, end, ok := strings.Cut(raw, "/")
	if !ok {
		return availability.Window{}, fmt.Errorf("window %q must be START/END", raw)
	}
	s, err := parseTime(start, loc)
	if err != nil {
		return availability.Window{}, err
	}
	e, err := parseTime(end, loc)
	if err != nil {
		return availability.Window{}, err
	}
	return availability.Window{Start: s, End: e}, nil
}

type busyFile struct {
	Busy []struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"busy"`
}

// loadBusy reads busy intervals from a YAML list or an iCalendar file.
// Calendar events are expanded within [timeMin, timeMax).
func loadBusy(path string, timeMin, timeMax time.Time, loc *time.Location) ([]availability.Interval, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open busy file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ics", ".ical", ".ifb":
		cal, err := ical.NewDecoder(f).Decode()
		if err != nil {
			return nil, fmt.Errorf("decode calendar: %w", err)
		}
		return calendar.ParseBusy(cal, timeMin, timeMax, loc)
	}

	var doc busyFile
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode busy file: %w", err)
	}
	out := make([]availability.Interval, 0, len(doc.Busy))
	for i, b := range doc.Busy {
		start, err := parseTime(b.Start, loc)
		if err != nil {
			return nil, fmt.Errorf("busy[%d].start: %w", i, err)
		}
		end, err := parseTime(b.End, loc)
		if err != nil {
			return nil, fmt.Errorf("busy[%d].end: %w", i, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("busy[%d]: end before start", i)
		}
		out = append(out, availability.Interval{Start: start, End: end})
	}
	return out, nil
}
