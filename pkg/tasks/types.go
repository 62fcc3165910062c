// Package tasks implements the per-user task store.
//
// Every query is scoped to the owning user: a task belonging to another user
// is indistinguishable from a task that does not exist. Callers receive
// ErrNotFound in both cases, deliberately hiding whether the id exists at all.
package tasks

import (
	"errors"
	"strings"
	"time"
)

// Status is the task lifecycle state
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In-Progress"
	StatusCompleted  Status = "Completed"
)

// Valid reports whether s is one of the three allowed states
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a single tracked item owned by exactly one user
type Task struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrNotFound is returned when a task does not exist or is owned by a
// different user
var ErrNotFound = errors.New("task not found")

// ValidTitle reports whether a title is non-empty after trimming whitespace
func ValidTitle(title string) bool {
	return strings.TrimSpace(title) != ""
}
