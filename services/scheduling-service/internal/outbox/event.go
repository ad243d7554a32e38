package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/model"
)

const (
	AggregateMeeting = "meeting"

	EventMeetingProposed  = "scheduling.meeting.proposed.v1"
	EventMeetingConfirmed = "scheduling.meeting.confirmed.v1"
	EventMeetingCancelled = "scheduling.meeting.cancelled.v1"
)

// Event is the envelope written to outbox_events. The Kafka topic equals
// EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// MeetingPayload is the JSON body of every meeting event.
type MeetingPayload struct {
	MeetingID       string              `json:"meeting_id"`
	UserID          string              `json:"user_id"`
	Title           string              `json:"title"`
	Participants    []model.Participant `json:"participants"`
	DurationMinutes int                 `json:"duration_minutes"`
	Timezone        string              `json:"timezone"`
	Status          string              `json:"status"`
	EventID         string              `json:"event_id,omitempty"`
	StartTime       *time.Time          `json:"start_time,omitempty"`
	EndTime         *time.Time          `json:"end_time,omitempty"`
	OccurredAt      time.Time           `json:"occurred_at"`
}

// MeetingEvent builds the outbox event of eventType for m.
func MeetingEvent(eventType string, m model.Meeting, at time.Time) (Event, error) {
	participants := m.Participants
	if participants == nil {
		participants = []model.Participant{}
	}
	payload, err := json.Marshal(MeetingPayload{
		MeetingID:       m.ID,
		UserID:          m.UserID,
		Title:           m.Title,
		Participants:    participants,
		DurationMinutes: m.DurationMinutes,
		Timezone:        m.Timezone,
		Status:          m.Status,
		EventID:         m.EventID,
		StartTime:       m.StartTime,
		EndTime:         m.EndTime,
		OccurredAt:      at.UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateMeeting,
		AggregateID:   m.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
