package tasks

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/pkg/config"
	"github.com/taskforge/taskforge/pkg/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite3", DSN: ":memory:", MaxConns: 1, MaxIdle: 1, MaxLifetime: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertUser(t *testing.T, db *sql.DB, email string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, db.QueryRow(
		"INSERT INTO users (email) VALUES ($1) RETURNING id", email,
	).Scan(&id))
	return id
}

func createTask(t *testing.T, db *sql.DB, store *Store, ownerID int64, title string) *Task {
	t.Helper()
	tx, err := db.Begin()
	require.NoError(t, err)
	task, err := store.Create(context.Background(), tx, ownerID, title, "", "")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return task
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusInProgress.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, Status("Done").Valid())
	assert.False(t, Status("").Valid())
}

func TestValidTitle(t *testing.T) {
	assert.True(t, ValidTitle("Buy milk"))
	assert.False(t, ValidTitle(""))
	assert.False(t, ValidTitle("   \t"))
}

func TestCreate_DefaultsToPending(t *testing.T) {
	db := openTestDB(t)
	owner := insertUser(t, db, "a@x.com")
	store := NewStore(db)

	task := createTask(t, db, store, owner, "Buy milk")
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, owner, task.UserID)
	assert.False(t, task.Timestamp.IsZero())
}

func TestOwnershipScoping(t *testing.T) {
	db := openTestDB(t)
	alice := insertUser(t, db, "alice@x.com")
	bob := insertUser(t, db, "bob@x.com")
	store := NewStore(db)
	ctx := context.Background()

	task := createTask(t, db, store, alice, "Alice's task")

	// Bob cannot see, update or delete Alice's task even with the right id.
	_, err := store.GetByOwner(ctx, bob, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := store.ListByOwner(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, list)

	tx, err := db.Begin()
	require.NoError(t, err)
	title := "hijacked"
	_, err = store.Update(ctx, tx, bob, task.ID, UpdateParams{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
	err = store.Delete(ctx, tx, bob, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, tx.Rollback())

	// Alice still sees her task unchanged.
	got, err := store.GetByOwner(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice's task", got.Title)
}

func TestListByOwner_OrderedByCreation(t *testing.T) {
	db := openTestDB(t)
	owner := insertUser(t, db, "a@x.com")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		store := NewStore(db).WithClock(func() time.Time { return ts })
		createTask(t, db, store, owner, title)
	}

	list, err := NewStore(db).ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Title)
	assert.Equal(t, "third", list[2].Title)
}

func TestUpdate_PartialFields(t *testing.T) {
	db := openTestDB(t)
	owner := insertUser(t, db, "a@x.com")
	store := NewStore(db)
	ctx := context.Background()

	task := createTask(t, db, store, owner, "Buy milk")

	tx, err := db.Begin()
	require.NoError(t, err)
	status := StatusCompleted
	updated, err := store.Update(ctx, tx, owner, task.ID, UpdateParams{Status: &status})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	// Only the status changed.
	assert.Equal(t, "Buy milk", updated.Title)
	assert.Equal(t, StatusCompleted, updated.Status)
}

func TestUpdate_EmptyParamsVerifiesOwnership(t *testing.T) {
	db := openTestDB(t)
	owner := insertUser(t, db, "a@x.com")
	store := NewStore(db)
	ctx := context.Background()

	task := createTask(t, db, store, owner, "Buy milk")

	tx, err := db.Begin()
	require.NoError(t, err)
	got, err := store.Update(ctx, tx, owner, task.ID, UpdateParams{})
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	_, err = store.Update(ctx, tx, owner, task.ID+999, UpdateParams{})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, tx.Rollback())
}

func TestDelete(t *testing.T) {
	db := openTestDB(t)
	owner := insertUser(t, db, "a@x.com")
	store := NewStore(db)
	ctx := context.Background()

	task := createTask(t, db, store, owner, "Buy milk")

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, tx, owner, task.ID))
	require.NoError(t, tx.Commit())

	_, err = store.GetByOwner(ctx, owner, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	tx, err = db.Begin()
	require.NoError(t, err)
	assert.ErrorIs(t, store.Delete(ctx, tx, owner, task.ID), ErrNotFound)
	require.NoError(t, tx.Rollback())
}
