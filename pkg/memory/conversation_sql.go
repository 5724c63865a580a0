package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/parley/pkg/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLConversationStore implements ConversationStore with a SQL backend.
// Supports PostgreSQL, MySQL, and SQLite via database/sql.
type SQLConversationStore struct {
	db      *sql.DB
	dialect string // "postgres", "mysql", or "sqlite"
}

const createTurnsTableSQL = `
CREATE TABLE IF NOT EXISTS conversation_turns (
    id VARCHAR(64) PRIMARY KEY,
    agent_id VARCHAR(255) NOT NULL,
    user_id VARCHAR(255) NOT NULL,
    role VARCHAR(16) NOT NULL,
    content TEXT NOT NULL,
    seq BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_conversation ON conversation_turns(agent_id, user_id, seq);
`

// NewSQLConversationStore creates a SQL-backed conversation store.
func NewSQLConversationStore(db *sql.DB, dialect string) (*SQLConversationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLConversationStore{
		db:      db,
		dialect: dialect,
	}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// NewSQLConversationStoreFromConfig opens the configured database and
// initializes the store.
func NewSQLConversationStoreFromConfig(cfg *config.MemoryConfig) (*SQLConversationStore, error) {
	driver := cfg.Driver
	if driver == "sqlite" {
		driver = "sqlite3"
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := NewSQLConversationStore(db, cfg.Driver)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLConversationStore) initSchema() error {
	for _, stmt := range strings.Split(createTurnsTableSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// rebind converts ?-style placeholders to the dialect's form.
func (s *SQLConversationStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (s *SQLConversationStore) Append(ctx context.Context, turn Turn) error {
	if turn.AgentID == "" || turn.UserID == "" {
		return fmt.Errorf("agent and user IDs are required")
	}
	if turn.Role != RoleUser && turn.Role != RoleModel {
		return fmt.Errorf("invalid role %q", turn.Role)
	}

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	// Persistence within a turn is sequential, so a read-increment race on
	// seq only matters across processes sharing one conversation; last
	// writer still keeps a consistent order.
	var seq int64
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM conversation_turns WHERE agent_id = ? AND user_id = ?`),
		turn.AgentID, turn.UserID)
	if err := row.Scan(&seq); err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO conversation_turns (id, agent_id, user_id, role, content, seq, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		turn.ID, turn.AgentID, turn.UserID, turn.Role, turn.Content, seq, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	return nil
}

func (s *SQLConversationStore) Recent(ctx context.Context, agentID, userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, agent_id, user_id, role, content, created_at
		 FROM conversation_turns
		 WHERE agent_id = ? AND user_id = ?
		 ORDER BY seq DESC
		 LIMIT ?`),
		agentID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.ID, &turn.AgentID, &turn.UserID, &turn.Role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; the model wants oldest-first
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

func (s *SQLConversationStore) Close() error {
	return s.db.Close()
}

var _ ConversationStore = (*SQLConversationStore)(nil)
