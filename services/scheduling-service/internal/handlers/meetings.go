package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/meetsched/libs/auth"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/storage"
)

type MeetingHandler struct {
	meetings   MeetingStore
	outboxRepo EventOutbox
	logger     *slog.Logger
	now        func() time.Time
}

func NewMeetingHandler(meetings MeetingStore, outboxRepo EventOutbox, logger *slog.Logger) *MeetingHandler {
	return &MeetingHandler{meetings: meetings, outboxRepo: outboxRepo, logger: logger, now: time.Now}
}

// createMeetingRequest is a structured scheduling intent.
type createMeetingRequest struct {
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Participants     []participantItem `json:"participants"`
	DurationMinutes  int               `json:"duration_minutes"`
	PreferredWindows []windowItem      `json:"preferred_windows"`
	Timezone         string            `json:"timezone"`
}

type meetingItem struct {
	MeetingID       string            `json:"meeting_id"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Participants    []participantItem `json:"participants"`
	DurationMinutes int               `json:"duration_minutes"`
	Timezone        string            `json:"timezone"`
	StartTime       string            `json:"start_time,omitempty"`
	EndTime         string            `json:"end_time,omitempty"`
	EventID         string            `json:"event_id,omitempty"`
	Status          string            `json:"status"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

func toMeetingItem(m model.Meeting) meetingItem {
	item := meetingItem{
		MeetingID:       m.ID,
		Title:           m.Title,
		Description:     m.Description,
		Participants:    fromParticipants(m.Participants),
		DurationMinutes: m.DurationMinutes,
		Timezone:        m.Timezone,
		EventID:         m.EventID,
		Status:          m.Status,
		CreatedAt:       m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       m.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if m.StartTime != nil {
		item.StartTime = m.StartTime.UTC().Format(time.RFC3339)
	}
	if m.EndTime != nil {
		item.EndTime = m.EndTime.UTC().Format(time.RFC3339)
	}
	return item
}

// Create stores a proposed meeting from an already structured intent.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req createMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		http.Error(w, "title required", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 {
		http.Error(w, "duration_minutes must be positive", http.StatusBadRequest)
		return
	}
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, ok := loadLocation(tz)
	if !ok {
		http.Error(w, "invalid timezone", http.StatusBadRequest)
		return
	}
	for _, pw := range req.PreferredWindows {
		start, ok1 := parseTime(pw.Start, loc)
		end, ok2 := parseTime(pw.End, loc)
		if !ok1 || !ok2 || !end.After(start) {
			http.Error(w, "invalid preferred window", http.StatusBadRequest)
			return
		}
	}

	meeting := model.Meeting{
		UserID:          userID,
		Title:           req.Title,
		Description:     strings.TrimSpace(req.Description),
		Participants:    toParticipants(req.Participants),
		DurationMinutes: req.DurationMinutes,
		Timezone:        tz,
		Status:          model.StatusProposed,
	}

	tx, err := h.meetings.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := h.meetings.Create(ctx, tx, &meeting); err != nil {
		http.Error(w, "failed to create meeting", http.StatusInternalServerError)
		return
	}
	evt, err := outbox.MeetingEvent(outbox.EventMeetingProposed, meeting, h.now())
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "meeting proposed", "user_id", userID, "meeting_id", meeting.ID)
	writeJSON(w, http.StatusCreated, toMeetingItem(meeting))
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := auth.SubjectFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !model.ValidStatus(status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	meetings, err := h.meetings.ListByUser(r.Context(), userID, status, limit)
	if err != nil {
		http.Error(w, "failed to list meetings", http.StatusInternalServerError)
		return
	}
	items := make([]meetingItem, 0, len(meetings))
	for _, m := range meetings {
		items = append(items, toMeetingItem(m))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := auth.SubjectFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	m, err := h.meetings.Get(r.Context(), userID, id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "meeting not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load meeting", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toMeetingItem(m))
}
