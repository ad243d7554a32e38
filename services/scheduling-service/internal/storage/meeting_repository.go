package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/meetsched/libs/db"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/model"
)

type MeetingRepository struct {
	pool *db.Pool
}

func NewMeetingRepository(pool *db.Pool) *MeetingRepository {
	return &MeetingRepository{pool: pool}
}

func (r *MeetingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const meetingColumns = `id, user_id, title, COALESCE(description, ''), participants, duration_minutes, timezone,
	start_time, end_time, COALESCE(event_id, ''), status, created_at, updated_at`

// Create inserts m with a fresh id and returns it.
func (r *MeetingRepository) Create(ctx context.Context, tx pgx.Tx, m *model.Meeting) (string, error) {
	participants, err := json.Marshal(nonNil(m.Participants))
	if err != nil {
		return "", err
	}
	if m.Status == "" {
		m.Status = model.StatusProposed
	}
	id := uuid.NewString()
	err = tx.QueryRow(ctx, `
		INSERT INTO meetings
			(id, user_id, title, description, participants, duration_minutes, timezone, start_time, end_time, event_id, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
		RETURNING created_at, updated_at
	`, id, m.UserID, m.Title, m.Description, participants, m.DurationMinutes, m.Timezone,
		m.StartTime, m.EndTime, m.EventID, m.Status).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return "", err
	}
	m.ID = id
	return id, nil
}

// Confirm attaches the booked event to a meeting owned by userID.
func (r *MeetingRepository) Confirm(ctx context.Context, tx pgx.Tx, userID, meetingID, eventID string, start, end time.Time) (model.Meeting, error) {
	row := tx.QueryRow(ctx, `
		UPDATE meetings
		SET status = 'confirmed',
			event_id = $3,
			start_time = $4,
			end_time = $5,
			updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status <> 'cancelled'
		RETURNING `+meetingColumns, meetingID, userID, eventID, start, end)
	return scanMeeting(row)
}

func (r *MeetingRepository) Get(ctx context.Context, userID, meetingID string) (model.Meeting, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings
		WHERE id = $1 AND user_id = $2
	`, meetingID, userID)
	return scanMeeting(row)
}

// ListByUser returns the newest meetings first. An empty status lists all.
func (r *MeetingRepository) ListByUser(ctx context.Context, userID, status string, limit int) ([]model.Meeting, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meetings := []model.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return meetings, nil
}

// CancelByEventID cancels the meeting booked as eventID.
func (r *MeetingRepository) CancelByEventID(ctx context.Context, tx pgx.Tx, userID, eventID string) (model.Meeting, error) {
	row := tx.QueryRow(ctx, `
		UPDATE meetings
		SET status = 'cancelled',
			updated_at = now()
		WHERE event_id = $1 AND user_id = $2
		RETURNING `+meetingColumns, eventID, userID)
	return scanMeeting(row)
}

func scanMeeting(row pgx.Row) (model.Meeting, error) {
	var m model.Meeting
	var participants []byte
	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Title,
		&m.Description,
		&participants,
		&m.DurationMinutes,
		&m.Timezone,
		&m.StartTime,
		&m.EndTime,
		&m.EventID,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return model.Meeting{}, err
	}
	if len(participants) > 0 {
		if err := json.Unmarshal(participants, &m.Participants); err != nil {
			return model.Meeting{}, err
		}
	}
	return m, nil
}

func nonNil(p []model.Participant) []model.Participant {
	if p == nil {
		return []model.Participant{}
	}
	return p
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
