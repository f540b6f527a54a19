package streak

import (
	"time"

	"github.com/ashverma/pledge/internal/model"
)

// SameDay reports whether a and b fall on the same calendar day in
// local time. Hours, minutes and seconds are ignored.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// Apply computes the profile state that results from recording one
// check-in with the given status at time `at`. `now` is the processing
// time, used only to self-heal a missing journey start date.
//
// The update is incremental: it depends only on the prior cached state
// plus the new event, so it must be reproducible from any valid prior
// state without consulting full history.
//
// Rules, in order:
//   - A relapse zeroes the current streak and always overwrites the
//     last check-in date, even when a success was already logged the
//     same day. Best streak is untouched.
//   - A success on a fresh calendar day increments the streak; a
//     repeat success on the same day is a no-op (the streak never
//     inflates past once per day). Best streak then catches up if the
//     current streak exceeds it.
//   - A missing journey start date is set on the first-ever check-in,
//     regardless of status.
func Apply(u model.User, status model.CheckInStatus, at, now time.Time) model.User {
	sameDay := u.LastCheckInDate != nil && SameDay(*u.LastCheckInDate, at)

	if status == model.StatusRelapse {
		u.CurrentStreak = 0
		u.LastCheckInDate = &at
	} else {
		if !sameDay {
			u.CurrentStreak++
			u.LastCheckInDate = &at
		}
		if u.CurrentStreak > u.BestStreak {
			u.BestStreak = u.CurrentStreak
		}
	}

	if u.JourneyStart == nil {
		u.JourneyStart = &now
	}

	return u
}
