package memory

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLConversationStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	store, err := NewSQLConversationStore(db, "sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLStore_AppendAndRecent(t *testing.T) {
	store := newSQLiteStore(t)

	appendTurn(t, store, "helper", "u1", RoleUser, "first")
	appendTurn(t, store, "helper", "u1", RoleModel, "second")
	appendTurn(t, store, "helper", "u1", RoleUser, "third")

	turns, err := store.Recent(context.Background(), "helper", "u1", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	// Limit keeps the newest turns but they come back oldest first.
	assert.Equal(t, "second", turns[0].Content)
	assert.Equal(t, "third", turns[1].Content)
	assert.NotEmpty(t, turns[0].ID)
}

func TestSQLStore_Isolation(t *testing.T) {
	store := newSQLiteStore(t)

	appendTurn(t, store, "helper", "u1", RoleUser, "mine")
	appendTurn(t, store, "helper", "u2", RoleUser, "theirs")

	turns, err := store.Recent(context.Background(), "helper", "u1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "mine", turns[0].Content)
}

func TestSQLStore_RejectsUnknownDialect(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLConversationStore(db, "oracle")
	assert.Error(t, err)
}
