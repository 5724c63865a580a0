package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendTurn(t *testing.T, store ConversationStore, agentID, userID, role, content string) {
	t.Helper()
	require.NoError(t, store.Append(context.Background(), Turn{
		AgentID: agentID,
		UserID:  userID,
		Role:    role,
		Content: content,
	}))
}

func TestInMemoryStore_RecentIsOldestFirst(t *testing.T) {
	store := NewInMemoryConversationStore()
	defer store.Close()

	appendTurn(t, store, "helper", "u1", RoleUser, "hi")
	appendTurn(t, store, "helper", "u1", RoleModel, "hello!")
	appendTurn(t, store, "helper", "u1", RoleUser, "how are you?")

	turns, err := store.Recent(context.Background(), "helper", "u1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "hi", turns[0].Content)
	assert.Equal(t, "hello!", turns[1].Content)
	assert.Equal(t, "how are you?", turns[2].Content)
}

func TestInMemoryStore_RecentHonorsLimit(t *testing.T) {
	store := NewInMemoryConversationStore()
	defer store.Close()

	for i := 0; i < 10; i++ {
		appendTurn(t, store, "helper", "u1", RoleUser, fmt.Sprintf("msg %d", i))
	}

	turns, err := store.Recent(context.Background(), "helper", "u1", 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	// The last three, still oldest first.
	assert.Equal(t, "msg 7", turns[0].Content)
	assert.Equal(t, "msg 9", turns[2].Content)
}

func TestInMemoryStore_ConversationsAreIsolated(t *testing.T) {
	store := NewInMemoryConversationStore()
	defer store.Close()

	appendTurn(t, store, "helper", "u1", RoleUser, "from u1")
	appendTurn(t, store, "helper", "u2", RoleUser, "from u2")
	appendTurn(t, store, "other", "u1", RoleUser, "other agent")

	turns, err := store.Recent(context.Background(), "helper", "u1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "from u1", turns[0].Content)
}

func TestInMemoryStore_AppendValidation(t *testing.T) {
	store := NewInMemoryConversationStore()
	defer store.Close()

	err := store.Append(context.Background(), Turn{UserID: "u1", Role: RoleUser, Content: "x"})
	assert.Error(t, err, "missing agent ID")

	err = store.Append(context.Background(), Turn{AgentID: "a", UserID: "u1", Role: "assistant", Content: "x"})
	assert.Error(t, err, "unknown role")
}

func TestInMemoryStore_RecentEmptyConversation(t *testing.T) {
	store := NewInMemoryConversationStore()
	defer store.Close()

	turns, err := store.Recent(context.Background(), "helper", "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
