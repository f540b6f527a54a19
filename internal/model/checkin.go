package model

import "time"

// CheckInStatus is the outcome recorded by a daily check-in.
type CheckInStatus string

const (
	StatusSuccess CheckInStatus = "SUCCESS"
	StatusRelapse CheckInStatus = "RELAPSE"
)

// Valid reports whether s is a member of the closed status set.
func (s CheckInStatus) Valid() bool {
	return s == StatusSuccess || s == StatusRelapse
}

// Moods a check-in may carry. The set is fixed; anything else is
// rejected at the handler.
var Moods = []string{"Strong", "Focused", "Struggling", "Relapsed", "Neutral"}

// ValidMood reports whether mood is empty or one of the fixed labels.
func ValidMood(mood string) bool {
	if mood == "" {
		return true
	}
	for _, m := range Moods {
		if m == mood {
			return true
		}
	}
	return false
}

// CheckInLog is one check-in event. Logs are immutable once created:
// no update or delete path exists. A relapse is recorded as a new log,
// not a mutation of history.
type CheckInLog struct {
	ID        string        `json:"id"`
	UserID    int64         `json:"user_id"`
	Date      time.Time     `json:"date"`
	Status    CheckInStatus `json:"status"`
	Note      string        `json:"note,omitempty"`
	Mood      string        `json:"mood,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
