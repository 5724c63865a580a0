package memory

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Turn is one persisted conversation turn.
type Turn struct {
	ID        string
	AgentID   string
	UserID    string
	Role      string // "user" or "model"
	Content   string
	CreatedAt time.Time
}

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ConversationStore is the per-(agent, user) ordered log of turns. It is the
// source of truth for the history fed back to the model.
type ConversationStore interface {
	// Append adds a turn to the end of the log.
	Append(ctx context.Context, turn Turn) error

	// Recent returns the last limit turns, oldest first.
	Recent(ctx context.Context, agentID, userID string, limit int) ([]Turn, error)

	Close() error
}

// InMemoryConversationStore keeps conversation logs in process memory. It is
// used for tests and for deployments that accept losing history on restart.
type InMemoryConversationStore struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

func NewInMemoryConversationStore() *InMemoryConversationStore {
	return &InMemoryConversationStore{
		turns: make(map[string][]Turn),
	}
}

func conversationKey(agentID, userID string) string {
	return agentID + "\x00" + userID
}

func (s *InMemoryConversationStore) Append(ctx context.Context, turn Turn) error {
	if turn.AgentID == "" || turn.UserID == "" {
		return fmt.Errorf("agent and user IDs are required")
	}
	if turn.Role != RoleUser && turn.Role != RoleModel {
		return fmt.Errorf("invalid role %q", turn.Role)
	}

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := conversationKey(turn.AgentID, turn.UserID)
	s.turns[key] = append(s.turns[key], turn)
	return nil
}

func (s *InMemoryConversationStore) Recent(ctx context.Context, agentID, userID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[conversationKey(agentID, userID)]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *InMemoryConversationStore) Close() error {
	return nil
}

var _ ConversationStore = (*InMemoryConversationStore)(nil)
