package model

import "time"

const (
	StatusProposed  = "proposed"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Meeting struct {
	ID              string
	UserID          string
	Title           string
	Description     string
	Participants    []Participant
	DurationMinutes int
	Timezone        string
	StartTime       *time.Time
	EndTime         *time.Time
	EventID         string
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidStatus reports whether s is a known meeting status.
func ValidStatus(s string) bool {
	switch s {
	case StatusProposed, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}
