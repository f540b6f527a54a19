package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ashverma/pledge/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var lastCheckIn, journeyStart sql.NullTime

	err := scanner.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash,
		&u.CurrentStreak, &u.BestStreak, &lastCheckIn, &journeyStart,
		&u.PledgeGoal, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastCheckIn.Valid {
		u.LastCheckInDate = &lastCheckIn.Time
	}
	if journeyStart.Valid {
		u.JourneyStart = &journeyStart.Time
	}
	return &u, nil
}

const userCols = `id, email, name, password_hash, current_streak, best_streak, last_check_in_date, journey_start_date, pledge_goal, created_at, updated_at`

// Create registers a new profile with a bcrypt-hashed password.
func (s *UserStore) Create(email, name, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)`,
		strings.ToLower(strings.TrimSpace(email)), name, string(hash),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// Authenticate checks the password for the given email and returns the
// user on success, or nil when the account is unknown or the password
// does not match.
func (s *UserStore) Authenticate(email, password string) (*model.User, error) {
	u, err := s.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return u, nil
}

// UpdateSettings changes the display name and pledge goal.
func (s *UserStore) UpdateSettings(id int64, name string, pledgeGoal int) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET name = ?, pledge_goal = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, pledgeGoal, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user settings: %w", err)
	}
	return s.GetByID(id)
}

// SetJourneyStart sets the journey start date only if it is still
// unset. The field self-heals on first load and is never reset.
func (s *UserStore) SetJourneyStart(id int64, start time.Time) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET journey_start_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND journey_start_date IS NULL`,
		start, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set journey start: %w", err)
	}
	return s.GetByID(id)
}
