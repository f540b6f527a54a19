package stats

import (
	"math"
	"time"

	"github.com/ashverma/pledge/internal/model"
	"github.com/ashverma/pledge/internal/streak"
)

// DayState classifies one calendar day of the pledge timeline.
type DayState string

const (
	DayWon     DayState = "won"
	DayLost    DayState = "lost"
	DayPending DayState = "pending"
)

// Summary holds the log counters shown on the dashboard.
type Summary struct {
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
	SuccessRate  int `json:"success_rate"`
}

// Day is one cell of the calendar grid. Future marks days strictly
// after today; a day logged ahead of time still classifies won/lost.
type Day struct {
	Date   time.Time `json:"date"`
	State  DayState  `json:"state"`
	Future bool      `json:"future"`
}

// WeekDay is one point of the 7-day consistency series.
type WeekDay struct {
	Date    time.Time `json:"date"`
	Success bool      `json:"success"`
}

// Summarize counts logs by status and computes the success rate as a
// whole percentage, rounded. Zero logs yield a zero rate, not an error.
func Summarize(logs []model.CheckInLog) Summary {
	var s Summary
	for _, l := range logs {
		switch l.Status {
		case model.StatusSuccess:
			s.SuccessCount++
		case model.StatusRelapse:
			s.FailureCount++
		}
	}
	total := s.SuccessCount + s.FailureCount
	if total > 0 {
		s.SuccessRate = int(math.Round(float64(s.SuccessCount) / float64(total) * 100))
	}
	return s
}

// DaysRemaining returns how many pledge days are left, never negative.
// Both endpoints are truncated to local midnight before subtracting, so
// a partial day never rounds in the user's favor. A nil start means the
// journey has not begun and the full goal remains.
func DaysRemaining(start *time.Time, goal int, today time.Time) int {
	if start == nil {
		return goal
	}
	elapsed := int(startOfDay(today).Sub(startOfDay(*start)).Hours() / 24)
	if remaining := goal - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// Calendar buckets logs into the pledge timeline: one entry per day
// from the journey start through the goal. A day is won if any success
// was logged on that date; success takes precedence over a same-day
// relapse for rendering.
func Calendar(logs []model.CheckInLog, start time.Time, goal int, today time.Time) []Day {
	endOfToday := startOfDay(today).Add(24 * time.Hour)

	days := make([]Day, 0, goal)
	for i := 0; i < goal; i++ {
		date := startOfDay(start).AddDate(0, 0, i)
		d := Day{
			Date:   date,
			State:  DayPending,
			Future: !date.Before(endOfToday),
		}
		for _, l := range logs {
			if !streak.SameDay(l.Date, date) {
				continue
			}
			if l.Status == model.StatusSuccess {
				d.State = DayWon
				break
			}
			d.State = DayLost
		}
		days = append(days, d)
	}
	return days
}

// Weekly returns the last 7 calendar days inclusive of today, oldest
// first, flagging each day that has at least one success log.
func Weekly(logs []model.CheckInLog, today time.Time) []WeekDay {
	series := make([]WeekDay, 0, 7)
	for i := 6; i >= 0; i-- {
		date := startOfDay(today).AddDate(0, 0, -i)
		wd := WeekDay{Date: date}
		for _, l := range logs {
			if l.Status == model.StatusSuccess && streak.SameDay(l.Date, date) {
				wd.Success = true
				break
			}
		}
		series = append(series, wd)
	}
	return series
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
