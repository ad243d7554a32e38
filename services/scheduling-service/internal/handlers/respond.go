package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/outbox"
)

// MeetingStore is the persistence the handlers need for meeting records.
type MeetingStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, tx pgx.Tx, m *model.Meeting) (string, error)
	Confirm(ctx context.Context, tx pgx.Tx, userID, meetingID, eventID string, start, end time.Time) (model.Meeting, error)
	Get(ctx context.Context, userID, meetingID string) (model.Meeting, error)
	ListByUser(ctx context.Context, userID, status string, limit int) ([]model.Meeting, error)
	CancelByEventID(ctx context.Context, tx pgx.Tx, userID, eventID string) (model.Meeting, error)
}

// EventOutbox records domain events inside a meeting transaction.
type EventOutbox interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type participantItem struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type windowItem struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// loadLocation resolves an IANA zone name. Empty means UTC.
func loadLocation(name string) (*time.Location, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, true
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, false
	}
	return loc, true
}

// parseTime accepts RFC 3339 or a wall-clock time without offset, which is
// read in loc.
func parseTime(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toParticipants(in []participantItem) []model.Participant {
	out := make([]model.Participant, 0, len(in))
	for _, p := range in {
		name := strings.TrimSpace(p.Name)
		email := strings.TrimSpace(p.Email)
		if name == "" && email == "" {
			continue
		}
		out = append(out, model.Participant{Name: name, Email: email})
	}
	return out
}

func fromParticipants(in []model.Participant) []participantItem {
	out := make([]participantItem, 0, len(in))
	for _, p := range in {
		out = append(out, participantItem{Name: p.Name, Email: p.Email})
	}
	return out
}
