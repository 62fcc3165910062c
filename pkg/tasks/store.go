package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Store persists tasks. Mutations take the caller's transaction so each
// change commits together with its audit entry.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a task store over the given database
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock overrides the store's clock source, for tests
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

const selectTask = `SELECT id, user_id, title, description, status, created_at FROM tasks`

func scanTask(row interface{ Scan(...interface{}) error }) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return &t, nil
}

// Create inserts a task for ownerID. Title and status are assumed validated
// by the caller; status defaults to Pending when empty.
func (s *Store) Create(ctx context.Context, tx *sql.Tx, ownerID int64, title, description string, status Status) (*Task, error) {
	if status == "" {
		status = StatusPending
	}
	createdAt := s.now().UTC()

	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO tasks (user_id, title, description, status, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		ownerID, title, description, string(status), createdAt,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return &Task{
		ID:          id,
		UserID:      ownerID,
		Title:       title,
		Description: description,
		Status:      status,
		Timestamp:   createdAt,
	}, nil
}

// ListByOwner returns all of ownerID's tasks, oldest first
func (s *Store) ListByOwner(ctx context.Context, ownerID int64) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		selectTask+` WHERE user_id = $1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// GetByOwner returns ownerID's task with the given id, or ErrNotFound
func (s *Store) GetByOwner(ctx context.Context, ownerID, taskID int64) (*Task, error) {
	return scanTask(s.db.QueryRowContext(ctx,
		selectTask+` WHERE id = $1 AND user_id = $2`, taskID, ownerID))
}

// UpdateParams carries partial-update fields; nil fields are left unchanged
type UpdateParams struct {
	Title       *string
	Description *string
	Status      *Status
}

// Update applies the non-nil fields of params to ownerID's task and returns
// the updated row. ErrNotFound covers both a missing id and someone else's
// task. An empty params is a no-op that still verifies ownership.
func (s *Store) Update(ctx context.Context, tx *sql.Tx, ownerID, taskID int64, params UpdateParams) (*Task, error) {
	var sets []string
	var args []interface{}
	next := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if params.Title != nil {
		sets = append(sets, "title = "+next(*params.Title))
	}
	if params.Description != nil {
		sets = append(sets, "description = "+next(*params.Description))
	}
	if params.Status != nil {
		sets = append(sets, "status = "+next(string(*params.Status)))
	}

	if len(sets) > 0 {
		query := "UPDATE tasks SET " + strings.Join(sets, ", ") +
			" WHERE id = " + next(taskID) + " AND user_id = " + next(ownerID)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read update result: %w", err)
		}
		if affected == 0 {
			return nil, ErrNotFound
		}
	}

	return scanTask(tx.QueryRowContext(ctx,
		selectTask+` WHERE id = $1 AND user_id = $2`, taskID, ownerID))
}

// Delete removes ownerID's task with the given id, or ErrNotFound
func (s *Store) Delete(ctx context.Context, tx *sql.Tx, ownerID, taskID int64) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`, taskID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
