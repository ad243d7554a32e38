package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/meetsched/libs/auth"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/proposer"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/storage"
)

const (
	dayFromHour = 9
	dayToHour   = 18
)

type SchedulingHandler struct {
	proposer   *proposer.Proposer
	calendar   calendar.Calendar
	meetings   MeetingStore
	outboxRepo EventOutbox
	logger     *slog.Logger
	now        func() time.Time
}

func NewSchedulingHandler(p *proposer.Proposer, cal calendar.Calendar, meetings MeetingStore, outboxRepo EventOutbox, logger *slog.Logger) *SchedulingHandler {
	return &SchedulingHandler{
		proposer:   p,
		calendar:   cal,
		meetings:   meetings,
		outboxRepo: outboxRepo,
		logger:     logger,
		now:        time.Now,
	}
}

type proposeRequest struct {
	Participants     []participantItem `json:"participants"`
	DurationMinutes  int               `json:"duration_minutes"`
	PreferredWindows []windowItem      `json:"preferred_windows"`
	Timezone         string            `json:"timezone"`
}

type slotItem struct {
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Score     float64  `json:"score"`
	Conflicts []string `json:"conflicts"`
}

type proposeResponse struct {
	Slots []slotItem `json:"slots"`
}

func (h *SchedulingHandler) Propose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := auth.SubjectFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	loc, ok := loadLocation(req.Timezone)
	if !ok {
		http.Error(w, "invalid timezone", http.StatusBadRequest)
		return
	}
	windows := make([]availability.Window, 0, len(req.PreferredWindows))
	for _, pw := range req.PreferredWindows {
		start, ok1 := parseTime(pw.Start, loc)
		end, ok2 := parseTime(pw.End, loc)
		if !ok1 || !ok2 {
			http.Error(w, "invalid preferred window time", http.StatusBadRequest)
			return
		}
		windows = append(windows, availability.Window{Start: start, End: end})
	}

	p := h.proposer
	if strings.TrimSpace(req.Timezone) != "" {
		p = p.WithLocation(loc)
	}
	slots, err := p.Propose(r.Context(), userID, req.DurationMinutes, windows)
	if err != nil {
		if errors.Is(err, proposer.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to propose slots", http.StatusInternalServerError)
		return
	}

	resp := proposeResponse{Slots: make([]slotItem, 0, len(slots))}
	for _, s := range slots {
		resp.Slots = append(resp.Slots, slotItem{
			Start:     s.Start.Format(time.RFC3339),
			End:       s.End.Format(time.RFC3339),
			Score:     s.Score,
			Conflicts: s.Conflicts,
		})
	}
	h.logger.InfoContext(r.Context(), "slots proposed", "user_id", userID, "count", len(resp.Slots))
	writeJSON(w, http.StatusOK, resp)
}

type freePeriodItem struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
}

type hourItem struct {
	Hour        int              `json:"hour"`
	Start       string           `json:"start"`
	End         string           `json:"end"`
	IsBusy      bool             `json:"is_busy"`
	Status      string           `json:"status"`
	BusyMinutes int              `json:"busy_minutes"`
	FreeMinutes int              `json:"free_minutes"`
	FreePeriods []freePeriodItem `json:"free_periods"`
}

type dayResponse struct {
	Date     string     `json:"date"`
	Timezone string     `json:"timezone"`
	Slots    []hourItem `json:"slots"`
}

// Day reports the caller's hourly busy/free breakdown for one local day.
func (h *SchedulingHandler) Day(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := auth.SubjectFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	tz := strings.TrimSpace(r.URL.Query().Get("timezone"))
	if tz == "" {
		tz = "UTC"
	}
	loc, ok := loadLocation(tz)
	if !ok {
		http.Error(w, "invalid timezone", http.StatusBadRequest)
		return
	}
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if i := strings.IndexByte(dateStr, 'T'); i >= 0 {
		dateStr = dateStr[:i]
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	from := time.Date(day.Year(), day.Month(), day.Day(), dayFromHour, 0, 0, 0, loc)
	to := time.Date(day.Year(), day.Month(), day.Day(), dayToHour, 0, 0, 0, loc)
	busy, err := h.calendar.BusyIntervals(r.Context(), userID, from.UTC(), to.UTC())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "day availability failed", "user_id", userID, "err", err)
		if errors.Is(err, calendar.ErrNotConnected) {
			http.Error(w, "calendar not connected", http.StatusFailedDependency)
			return
		}
		http.Error(w, "calendar unavailable", http.StatusBadGateway)
		return
	}

	hours := availability.DayBreakdown(day, loc, dayFromHour, dayToHour, busy)
	resp := dayResponse{Date: day.Format("2006-01-02"), Timezone: tz, Slots: make([]hourItem, 0, len(hours))}
	for _, hs := range hours {
		item := hourItem{
			Hour:        hs.Hour,
			Start:       hs.Start.Format(time.RFC3339),
			End:         hs.End.Format(time.RFC3339),
			IsBusy:      hs.BusyMinutes > 0,
			Status:      hs.Status,
			BusyMinutes: hs.BusyMinutes,
			FreeMinutes: hs.FreeMinutes,
			FreePeriods: make([]freePeriodItem, 0, len(hs.FreePeriods)),
		}
		for _, fp := range hs.FreePeriods {
			item.FreePeriods = append(item.FreePeriods, freePeriodItem{
				Start:           fp.Start.In(loc).Format(time.RFC3339),
				End:             fp.End.In(loc).Format(time.RFC3339),
				DurationMinutes: int(fp.End.Sub(fp.Start) / time.Minute),
			})
		}
		resp.Slots = append(resp.Slots, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

type createEventRequest struct {
	Slot         windowItem        `json:"slot"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Participants []participantItem `json:"participants"`
	MeetingID    string            `json:"meeting_id"`
	Timezone     string            `json:"timezone"`
}

type createEventResponse struct {
	EventID      string `json:"event_id"`
	CalendarLink string `json:"calendar_link"`
	MeetingLink  string `json:"meeting_link,omitempty"`
	MeetingID    string `json:"meeting_id"`
}

// CreateEvent books the chosen slot on the calendar and confirms the meeting.
func (h *SchedulingHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	userID := auth.SubjectFromContext(ctx)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.MeetingID = strings.TrimSpace(req.MeetingID)
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, ok := loadLocation(tz)
	if !ok {
		http.Error(w, "invalid timezone", http.StatusBadRequest)
		return
	}
	start, ok1 := parseTime(req.Slot.Start, loc)
	end, ok2 := parseTime(req.Slot.End, loc)
	if !ok1 || !ok2 || !end.After(start) {
		http.Error(w, "invalid slot", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "title required", http.StatusBadRequest)
		return
	}
	participants := toParticipants(req.Participants)

	// Resolve the meeting before touching the calendar so a bad id books nothing.
	if req.MeetingID != "" {
		if _, err := h.meetings.Get(ctx, userID, req.MeetingID); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "meeting not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load meeting", http.StatusInternalServerError)
			return
		}
	}

	attendees := make([]calendar.Attendee, 0, len(participants))
	for _, p := range participants {
		attendees = append(attendees, calendar.Attendee{Email: p.Email, Name: p.Name})
	}
	ev, err := h.calendar.CreateEvent(ctx, userID, calendar.EventRequest{
		Title:       req.Title,
		Description: req.Description,
		Start:       start,
		End:         end,
		Timezone:    tz,
		Attendees:   attendees,
		Conference:  true,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "calendar event create failed", "user_id", userID, "err", err)
		if errors.Is(err, calendar.ErrNotConnected) {
			http.Error(w, "calendar not connected", http.StatusFailedDependency)
			return
		}
		http.Error(w, "failed to create calendar event", http.StatusBadGateway)
		return
	}

	tx, err := h.meetings.Begin(ctx)
	if err != nil {
		h.discardEvent(ctx, userID, ev.ID)
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var meeting model.Meeting
	if req.MeetingID != "" {
		meeting, err = h.meetings.Confirm(ctx, tx, userID, req.MeetingID, ev.ID, start, end)
		if err != nil {
			if storage.IsNotFound(err) {
				h.discardEvent(ctx, userID, ev.ID)
				http.Error(w, "meeting cannot be confirmed", http.StatusConflict)
				return
			}
			h.discardEvent(ctx, userID, ev.ID)
			http.Error(w, "failed to confirm meeting", http.StatusInternalServerError)
			return
		}
	} else {
		meeting = model.Meeting{
			UserID:          userID,
			Title:           req.Title,
			Description:     req.Description,
			Participants:    participants,
			DurationMinutes: int(end.Sub(start) / time.Minute),
			Timezone:        tz,
			StartTime:       &start,
			EndTime:         &end,
			EventID:         ev.ID,
			Status:          model.StatusConfirmed,
		}
		if _, err := h.meetings.Create(ctx, tx, &meeting); err != nil {
			h.discardEvent(ctx, userID, ev.ID)
			http.Error(w, "failed to create meeting", http.StatusInternalServerError)
			return
		}
	}

	evt, err := outbox.MeetingEvent(outbox.EventMeetingConfirmed, meeting, h.now())
	if err != nil {
		h.discardEvent(ctx, userID, ev.ID)
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		h.discardEvent(ctx, userID, ev.ID)
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.discardEvent(ctx, userID, ev.ID)
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "meeting confirmed", "user_id", userID, "meeting_id", meeting.ID, "event_id", ev.ID)
	writeJSON(w, http.StatusCreated, createEventResponse{
		EventID:      ev.ID,
		CalendarLink: ev.CalendarLink,
		MeetingLink:  ev.MeetingLink,
		MeetingID:    meeting.ID,
	})
}

// discardEvent removes an event whose meeting was never recorded.
func (h *SchedulingHandler) discardEvent(ctx context.Context, userID, eventID string) {
	ctx = context.WithoutCancel(ctx)
	if err := h.calendar.DeleteEvent(ctx, userID, eventID); err != nil {
		h.logger.ErrorContext(ctx, "orphaned calendar event", "user_id", userID, "event_id", eventID, "err", err)
		return
	}
	h.logger.WarnContext(ctx, "calendar event discarded after failed booking", "user_id", userID, "event_id", eventID)
}

type deleteEventRequest struct {
	EventID string `json:"event_id"`
}

type deleteEventResponse struct {
	EventID   string `json:"event_id"`
	MeetingID string `json:"meeting_id,omitempty"`
	Status    string `json:"status"`
}

// DeleteEvent cancels the organizer's meeting for an event and removes the
// event from the calendar.
func (h *SchedulingHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	userID := auth.SubjectFromContext(ctx)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req deleteEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.EventID = strings.TrimSpace(req.EventID)
	if req.EventID == "" {
		http.Error(w, "event_id required", http.StatusBadRequest)
		return
	}

	tx, err := h.meetings.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Only events recorded for this organizer reach the calendar.
	meeting, err := h.meetings.CancelByEventID(ctx, tx, userID, req.EventID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to cancel meeting", http.StatusInternalServerError)
		return
	}

	if err := h.calendar.DeleteEvent(ctx, userID, req.EventID); err != nil {
		h.logger.ErrorContext(ctx, "calendar event delete failed", "user_id", userID, "event_id", req.EventID, "err", err)
		http.Error(w, "failed to delete calendar event", http.StatusBadGateway)
		return
	}

	evt, err := outbox.MeetingEvent(outbox.EventMeetingCancelled, meeting, h.now())
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.logger.ErrorContext(ctx, "cancel commit failed after calendar delete", "user_id", userID, "event_id", req.EventID, "err", err)
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	resp := deleteEventResponse{EventID: req.EventID, MeetingID: meeting.ID, Status: "deleted"}
	writeJSON(w, http.StatusOK, resp)
}
