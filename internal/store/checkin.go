package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ashverma/pledge/internal/model"
)

type CheckInStore struct {
	db *sql.DB
}

func NewCheckInStore(db *sql.DB) *CheckInStore {
	return &CheckInStore{db: db}
}

func scanLog(scanner interface{ Scan(...any) error }) (*model.CheckInLog, error) {
	var l model.CheckInLog
	err := scanner.Scan(&l.ID, &l.UserID, &l.Date, &l.Status, &l.Note, &l.Mood, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const logCols = `id, user_id, date, status, note, mood, created_at`

// Append inserts the immutable check-in log and writes the profile's
// updated streak fields in a single transaction, so a crash can never
// leave an orphaned log alongside a stale cached streak. The updated
// profile must already be the output of the streak engine.
func (s *CheckInStore) Append(l model.CheckInLog, u model.User) (*model.CheckInLog, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO logs (id, user_id, date, status, note, mood) VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.Date, l.Status, l.Note, l.Mood,
	)
	if err != nil {
		return nil, fmt.Errorf("insert log: %w", err)
	}

	var lastCheckIn, journeyStart sql.NullTime
	if u.LastCheckInDate != nil {
		lastCheckIn = sql.NullTime{Time: *u.LastCheckInDate, Valid: true}
	}
	if u.JourneyStart != nil {
		journeyStart = sql.NullTime{Time: *u.JourneyStart, Valid: true}
	}

	_, err = tx.Exec(
		`UPDATE users SET current_streak = ?, best_streak = ?, last_check_in_date = ?, journey_start_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		u.CurrentStreak, u.BestStreak, lastCheckIn, journeyStart, u.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile streak: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(l.ID)
}

func (s *CheckInStore) GetByID(id string) (*model.CheckInLog, error) {
	row := s.db.QueryRow(`SELECT `+logCols+` FROM logs WHERE id = ?`, id)
	l, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get log: %w", err)
	}
	return l, nil
}

// ListByUser returns a user's logs, most recent first.
func (s *CheckInStore) ListByUser(userID int64) ([]model.CheckInLog, error) {
	rows, err := s.db.Query(`SELECT `+logCols+` FROM logs WHERE user_id = ? ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()
	return collectLogs(rows)
}

// ListByUserSince returns a user's logs on or after the given time,
// most recent first.
func (s *CheckInStore) ListByUserSince(userID int64, since time.Time) ([]model.CheckInLog, error) {
	rows, err := s.db.Query(
		`SELECT `+logCols+` FROM logs WHERE user_id = ? AND date >= ? ORDER BY date DESC`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("list logs since: %w", err)
	}
	defer rows.Close()
	return collectLogs(rows)
}

// CountOnDay returns how many logs a user has between dayStart and the
// following midnight. Used by the reminder scheduler.
func (s *CheckInStore) CountOnDay(userID int64, dayStart time.Time) (int, error) {
	dayEnd := dayStart.Add(24 * time.Hour)
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM logs WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, dayStart, dayEnd,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count logs on day: %w", err)
	}
	return n, nil
}

func collectLogs(rows *sql.Rows) ([]model.CheckInLog, error) {
	var logs []model.CheckInLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}
