package model

import "time"

// DefaultPledgeGoal is the pledge length in days used when a profile
// has no explicit goal set.
const DefaultPledgeGoal = 160

// User is an account profile. CurrentStreak and BestStreak are cached
// fields maintained incrementally by the streak engine on every
// check-in; they are never recomputed from full history on read.
type User struct {
	ID              int64      `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	PasswordHash    string     `json:"-"`
	CurrentStreak   int        `json:"current_streak"`
	BestStreak      int        `json:"best_streak"`
	LastCheckInDate *time.Time `json:"last_check_in_date"`
	JourneyStart    *time.Time `json:"journey_start_date"`
	PledgeGoal      int        `json:"pledge_goal"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Goal returns the pledge goal, falling back to the default when the
// stored value is absent or invalid.
func (u User) Goal() int {
	if u.PledgeGoal <= 0 {
		return DefaultPledgeGoal
	}
	return u.PledgeGoal
}
