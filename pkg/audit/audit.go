// Package audit records security- and data-relevant actions to the
// append-only activity log.
//
// Entries are written through an Execer so they can join the transaction of
// the action they record; a mutation and its audit row commit or roll back
// together. Entries are never updated or deleted by the application.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Action labels an auditable event
type Action string

const (
	ActionOTPRequest   Action = "OTP Request"
	ActionLoginSuccess Action = "Login Success"
	ActionLoginFailed  Action = "Login Failed"
	ActionTaskCreated  Action = "Task Created"
	ActionTaskUpdated  Action = "Task Updated"
	ActionTaskDeleted  Action = "Task Deleted"
)

// Entry is a single activity log row
type Entry struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Action    Action    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// Execer is satisfied by both *sql.DB and *sql.Tx
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Recorder writes activity log entries
type Recorder struct {
	now func() time.Time
}

// NewRecorder creates a recorder using wall-clock time
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// WithClock returns a recorder with a fixed clock source, for tests
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	return &Recorder{now: now}
}

// Record appends one entry. Pass the surrounding *sql.Tx so the entry
// commits with the action it records.
func (r *Recorder) Record(ctx context.Context, db Execer, userID *int64, action Action, details string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO activity_logs (user_id, action, details, created_at) VALUES ($1, $2, $3, $4)`,
		userID, string(action), details, r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record %q: %w", action, err)
	}
	return nil
}

// Store reads activity log entries
type Store struct {
	db *sql.DB
}

// NewStore creates a read-side store over the activity log
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListByUser returns a user's entries, newest first
func (s *Store) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, action, details, created_at
		 FROM activity_logs WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
