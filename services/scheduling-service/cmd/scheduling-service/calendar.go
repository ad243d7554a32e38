package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/meetsched/libs/config"
	"github.com/md-rashed-zaman/meetsched/libs/db"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/credentials"
)

// newCalendar selects the calendar backend from CALENDAR_PROVIDER. The token
// store is returned for backends that use per-user OAuth tokens.
func newCalendar(kind string, pool *db.Pool, logger *slog.Logger) (calendar.Calendar, *credentials.Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "google":
		key, err := config.RequiredString("CREDENTIALS_KEY")
		if err != nil {
			return nil, nil, err
		}
		sealer, err := credentials.NewSealer(key)
		if err != nil {
			return nil, nil, err
		}
		store := credentials.NewStore(pool, sealer, "google")
		var opts []calendar.GoogleOption
		if base := config.String("GOOGLE_CALENDAR_API", ""); base != "" {
			opts = append(opts, calendar.WithGoogleBaseURL(base))
		}
		if id := config.String("GOOGLE_CALENDAR_ID", ""); id != "" {
			opts = append(opts, calendar.WithGoogleCalendarID(id))
		}
		logger.Info("calendar provider", "kind", "google")
		return calendar.NewGoogle(store, opts...), store, nil

	case "caldav":
		url, err := config.RequiredString("CALDAV_URL")
		if err != nil {
			return nil, nil, err
		}
		loc, err := time.LoadLocation(config.String("CALDAV_TIMEZONE", "UTC"))
		if err != nil {
			return nil, nil, fmt.Errorf("CALDAV_TIMEZONE: %w", err)
		}
		cal, err := calendar.NewCalDAV(calendar.CalDAVConfig{
			URL:       url,
			Username:  config.String("CALDAV_USERNAME", ""),
			Password:  config.String("CALDAV_PASSWORD", ""),
			Calendars: config.List("CALDAV_CALENDARS", ""),
			Location:  loc,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("calendar provider", "kind", "caldav", "url", url)
		return cal, nil, nil

	case "static", "":
		logger.Warn("calendar provider is static; busy data is empty and events stay in memory")
		return calendar.NewStatic(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown CALENDAR_PROVIDER %q", kind)
	}
}
